package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoSourcesFile is returned when the config names no genome sources file.
var ErrNoSourcesFile = errors.New("no genome sources file configured")

// File keys understood by GenomeSource.URL, in download order.
const (
	FileGFF3             = "gff3"
	FileGO               = "GO"
	FileIPR              = "IPR"
	FileKEGGPathways     = "KEGG_pathways"
	FileKEGGOrthologs    = "KEGG_orthologs"
	FileHomologyAth      = "homology_ath"
	FilePredictedCDS     = "predicted_cds"
	FilePredictedProtein = "predicted_protein"
)

// FileKeys lists every downloadable file key.
var FileKeys = []string{
	FileGFF3, FileGO, FileIPR, FileKEGGPathways, FileKEGGOrthologs,
	FileHomologyAth, FilePredictedCDS, FilePredictedProtein,
}

// GenomeSource describes one reference genome assembly and where to
// download its files. VersionID is the assembly ID the source is listed
// under and is not part of the YAML record itself.
type GenomeSource struct {
	SpeciesName         string `yaml:"species_name"`
	GenomeType          string `yaml:"genome_type,omitempty"`
	GeneIDRegex         string `yaml:"gene_id_regex,omitempty"`
	GFF3URL             string `yaml:"gff3_url,omitempty"`
	GOURL               string `yaml:"GO_url,omitempty"`
	IPRURL              string `yaml:"IPR_url,omitempty"`
	KEGGPathwaysURL     string `yaml:"KEGG_pathways_url,omitempty"`
	KEGGOrthologsURL    string `yaml:"KEGG_orthologs_url,omitempty"`
	HomologyAthURL      string `yaml:"homology_ath_url,omitempty"`
	PredictedCDSURL     string `yaml:"predicted_cds_url,omitempty"`
	PredictedProteinURL string `yaml:"predicted_protein_url,omitempty"`

	VersionID string `yaml:"-"`
}

// URL returns the download URL for a file key, or "" when the key is
// unknown or the source has no such file.
func (g *GenomeSource) URL(fileKey string) string {
	switch fileKey {
	case FileGFF3:
		return g.GFF3URL
	case FileGO:
		return g.GOURL
	case FileIPR:
		return g.IPRURL
	case FileKEGGPathways:
		return g.KEGGPathwaysURL
	case FileKEGGOrthologs:
		return g.KEGGOrthologsURL
	case FileHomologyAth:
		return g.HomologyAthURL
	case FilePredictedCDS:
		return g.PredictedCDSURL
	case FilePredictedProtein:
		return g.PredictedProteinURL
	default:
		return ""
	}
}

// AvailableFiles returns the file keys this source has URLs for.
func (g *GenomeSource) AvailableFiles() []string {
	var keys []string
	for _, k := range FileKeys {
		if g.URL(k) != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

type sourcesFile struct {
	ListVersion   int                      `yaml:"list_version,omitempty"`
	GenomeSources map[string]*GenomeSource `yaml:"genome_sources"`
}

// SourcesPath returns the absolute path of the genome sources list.
func (c *Config) SourcesPath() (string, error) {
	if c.Downloader.GenomeSourcesFile == "" {
		return "", ErrNoSourcesFile
	}
	return c.Resolve(c.Downloader.GenomeSourcesFile), nil
}

// LoadGenomeSources reads the genome sources list the config points to.
// The returned map is keyed by assembly ID and every entry has its
// VersionID set to that key.
func LoadGenomeSources(cfg *Config) (map[string]*GenomeSource, error) {
	sourcesPath, err := cfg.SourcesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(sourcesPath)
	if err != nil {
		return nil, fmt.Errorf("reading genome sources %s: %w", sourcesPath, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing genome sources %s: %w", sourcesPath, err)
	}

	sources := make(map[string]*GenomeSource, len(file.GenomeSources))
	for id, src := range file.GenomeSources {
		if src == nil {
			return nil, fmt.Errorf("%w: genome source %q is empty", ErrInvalid, id)
		}
		if src.GeneIDRegex != "" {
			if _, err := regexp.Compile(src.GeneIDRegex); err != nil {
				return nil, fmt.Errorf("%w: genome source %q: gene_id_regex: %w", ErrInvalid, id, err)
			}
		}
		src.VersionID = id
		sources[id] = src
	}
	return sources, nil
}

// SortedIDs returns the assembly IDs of sources in lexical order.
func SortedIDs(sources map[string]*GenomeSource) []string {
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var unsafeDirChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// versionDir returns the per-assembly download subdirectory name.
func versionDir(src *GenomeSource) string {
	if src.VersionID != "" {
		return src.VersionID
	}
	if src.SpeciesName != "" {
		return strings.ReplaceAll(unsafeDirChars.ReplaceAllString(src.SpeciesName, "_"), " ", "_")
	}
	return "unknown_genome"
}

// LocalFilePath returns where the file for fileKey is stored once
// downloaded, or "" when the source has no URL for it.
func LocalFilePath(cfg *Config, src *GenomeSource, fileKey string) string {
	u := src.URL(fileKey)
	if u == "" {
		return ""
	}
	// Strip query strings before taking the basename.
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	baseDir := cfg.Resolve(cfg.Downloader.DownloadOutputBaseDir)
	return filepath.Join(baseDir, versionDir(src), path.Base(u))
}

// FileStatus describes the local state of a downloadable file.
type FileStatus string

const (
	StatusNotApplicable FileStatus = "not_applicable"
	StatusMissing       FileStatus = "missing"
	StatusIncomplete    FileStatus = "incomplete"
	StatusComplete      FileStatus = "complete"
)

// FileStatusOf reports whether the file for fileKey has been downloaded.
func FileStatusOf(cfg *Config, src *GenomeSource, fileKey string) FileStatus {
	local := LocalFilePath(cfg, src, fileKey)
	if local == "" {
		return StatusNotApplicable
	}

	info, err := os.Stat(local)
	if err != nil {
		return StatusMissing
	}
	if info.Size() == 0 {
		return StatusIncomplete
	}
	return StatusComplete
}

// GFFDatabasePath returns the feature database location for an assembly.
func (c *Config) GFFDatabasePath(assemblyID string) string {
	return filepath.Join(c.Resolve(c.Annotation.GFFDBStorageDir), assemblyID+"_genes.db")
}

// TempDir returns the resolved directory for standardized input copies.
func (c *Config) TempDir() string {
	return c.Resolve(c.Annotation.TempDir)
}
