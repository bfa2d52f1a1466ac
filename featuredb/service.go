package featuredb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NotAvailable fills GeneDetails fields missing from the GFF attributes.
const NotAvailable = "N/A"

// GeneDetails is the flattened view of a gene returned by lookups.
type GeneDetails struct {
	GeneID      string `json:"gene_id"`
	Chrom       string `json:"chrom"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Strand      string `json:"strand"`
	Source      string `json:"source"`
	FeatureType string `json:"feature_type"`
	Aliases     string `json:"aliases"`
	Description string `json:"description"`
}

// DetailColumns is the column order used when GeneDetails are tabulated.
var DetailColumns = []string{"gene_id", "chrom", "start", "end", "strand", "source", "feature_type", "aliases", "description"}

// Details extracts the GeneDetails of f.
func Details(f *Feature) GeneDetails {
	d := GeneDetails{
		GeneID:      f.ID,
		Chrom:       f.SeqID,
		Start:       f.Start,
		End:         f.End,
		Strand:      f.Strand,
		Source:      f.Source,
		FeatureType: f.Type,
		Aliases:     NotAvailable,
		Description: NotAvailable,
	}
	if v, ok := f.Attributes["Alias"]; ok && len(v) > 0 {
		d.Aliases = v[0]
	}
	if v, ok := f.Attributes["description"]; ok && len(v) > 0 {
		d.Description = v[0]
	}
	return d
}

// Row returns the details as strings in DetailColumns order.
func (d GeneDetails) Row() []string {
	return []string{d.GeneID, d.Chrom, strconv.Itoa(d.Start), strconv.Itoa(d.End),
		d.Strand, d.Source, d.FeatureType, d.Aliases, d.Description}
}

// Region is a closed interval on a chromosome.
type Region struct {
	Chrom string
	Start int
	End   int
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

// ParseRegion parses "chrom:start-end". Thousands separators in the
// coordinates are ignored.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	colon := strings.LastIndex(s, ":")
	if colon <= 0 {
		return Region{}, fmt.Errorf("invalid region %q (expected chrom:start-end)", s)
	}
	startStr, endStr, ok := strings.Cut(s[colon+1:], "-")
	if !ok {
		return Region{}, fmt.Errorf("invalid region %q (expected chrom:start-end)", s)
	}
	start, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(startStr), ",", ""))
	if err != nil {
		return Region{}, fmt.Errorf("invalid region start %q", startStr)
	}
	end, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(endStr), ",", ""))
	if err != nil {
		return Region{}, fmt.Errorf("invalid region end %q", endStr)
	}
	if start < 1 || end < start {
		return Region{}, fmt.Errorf("invalid region %q: need 1 <= start <= end", s)
	}
	return Region{Chrom: strings.TrimSpace(s[:colon]), Start: start, End: end}, nil
}

// ProgressFunc receives a completion percentage and a short message.
type ProgressFunc func(percent int, msg string)

// Service answers gene lookups for genome assemblies, building each
// assembly's feature database on first use.
type Service struct {
	storageDir string
	logger     *zap.Logger
	progress   ProgressFunc
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) ServiceOption {
	return func(s *Service) {
		s.progress = fn
	}
}

// NewService creates a Service storing databases under storageDir.
func NewService(storageDir string, opts ...ServiceOption) *Service {
	s := &Service{
		storageDir: storageDir,
		logger:     zap.NewNop(),
		progress:   func(int, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DatabasePath returns the feature database path of an assembly.
func (s *Service) DatabasePath(assemblyID string) string {
	return filepath.Join(s.storageDir, assemblyID+"_genes.db")
}

// Source identifies the GFF3 file of an assembly and how to index it.
type Source struct {
	AssemblyID string
	GFFPath    string
	IDPattern  string
	Force      bool
}

// Prepare builds the assembly's database if needed and opens it.
func (s *Service) Prepare(ctx context.Context, src Source) (*DB, error) {
	dbPath := s.DatabasePath(src.AssemblyID)
	err := Build(ctx, src.GFFPath, dbPath, BuildOptions{
		Force:     src.Force,
		IDPattern: src.IDPattern,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("preparing feature database for %s: %w", src.AssemblyID, err)
	}
	return Open(dbPath)
}

// GenesInRegion returns the genes overlapping region. The chromosome
// name is resolved with MatchSeqID; an unresolvable name yields no genes
// rather than an error.
func (s *Service) GenesInRegion(ctx context.Context, src Source, region Region) ([]GeneDetails, error) {
	s.progress(10, "preparing feature database")
	db, err := s.Prepare(ctx, src)
	if err != nil {
		s.progress(100, "query failed")
		return nil, err
	}
	defer db.Close()

	s.progress(40, "opening database and resolving sequence ID")
	seqids, err := db.SeqIDs(ctx)
	if err != nil {
		s.progress(100, "query failed")
		return nil, err
	}
	s.logger.Debug("available sequence IDs", zap.Strings("seqids", head(seqids, 10)))

	match, err := MatchSeqID(seqids, region.Chrom)
	if errors.Is(err, ErrSeqIDNotFound) {
		s.logger.Error("no sequence ID matches the chromosome", zap.String("chrom", region.Chrom))
		s.progress(100, "no matching chromosome in database")
		return []GeneDetails{}, nil
	}
	if err != nil {
		return nil, err
	}
	switch {
	case match.Ambiguous:
		s.logger.Warn("several sequence IDs match, using the first",
			zap.String("chrom", region.Chrom),
			zap.Strings("candidates", match.Candidates),
			zap.String("seqid", match.SeqID))
	case match.Exact:
		s.logger.Info("exact sequence ID match", zap.String("chrom", region.Chrom), zap.String("seqid", match.SeqID))
	default:
		s.logger.Info("fuzzy sequence ID match", zap.String("chrom", region.Chrom), zap.String("seqid", match.SeqID))
	}

	resolved := Region{Chrom: match.SeqID, Start: region.Start, End: region.End}
	s.progress(60, "querying region "+resolved.String())
	features, err := db.Region(ctx, resolved.Chrom, resolved.Start, resolved.End, GeneType)
	if err != nil {
		s.progress(100, "query failed")
		return nil, err
	}

	s.progress(80, "extracting gene details")
	results := make([]GeneDetails, 0, len(features))
	for _, f := range features {
		results = append(results, Details(f))
	}
	s.logger.Info("genes found in region", zap.String("region", resolved.String()), zap.Int("count", len(results)))
	s.progress(100, "region query complete")
	return results, nil
}

// IDsResult holds the outcome of GeneInfoByIDs.
type IDsResult struct {
	Found    []GeneDetails
	NotFound []string
}

// GeneInfoByIDs looks up each gene ID, preserving input order.
func (s *Service) GeneInfoByIDs(ctx context.Context, src Source, ids []string) (*IDsResult, error) {
	s.progress(10, "preparing feature database")
	db, err := s.Prepare(ctx, src)
	if err != nil {
		s.progress(100, "query failed")
		return nil, err
	}
	defer db.Close()

	s.progress(40, "opening database")
	s.logger.Info("looking up genes by ID", zap.Int("ids", len(ids)))

	res := &IDsResult{}
	total := len(ids)
	for i, id := range ids {
		if i%100 == 0 || i == total-1 {
			s.progress(40+int(float64(i+1)/float64(total)*55), fmt.Sprintf("querying gene %d/%d", i+1, total))
		}

		f, err := db.Get(ctx, id)
		if errors.Is(err, ErrFeatureNotFound) {
			res.NotFound = append(res.NotFound, id)
			continue
		}
		if err != nil {
			s.progress(100, "query failed")
			return nil, err
		}
		res.Found = append(res.Found, Details(f))
	}

	if len(res.NotFound) > 0 {
		s.logger.Warn("gene IDs not found in feature database",
			zap.Int("count", len(res.NotFound)),
			zap.String("first", strings.Join(head(res.NotFound, 5), ", ")+ellipsis(len(res.NotFound) > 5)))
	}
	if len(res.Found) == 0 {
		s.progress(100, "query complete, no genes found")
		return res, nil
	}
	s.logger.Info("gene details retrieved", zap.Int("count", len(res.Found)))
	s.progress(100, "gene query complete")
	return res, nil
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func ellipsis(more bool) string {
	if more {
		return "..."
	}
	return ""
}
