// Package enrichment runs GO and KEGG over-representation analysis on a
// study gene list and plots the results.
package enrichment

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/tabular"
)

// Annotation maps genes to the terms (GO IDs, KEGG pathways) they carry.
type Annotation struct {
	genes map[string]bool
	terms map[string]*term
}

type term struct {
	description string
	genes       map[string]bool
}

// NewAnnotation returns an empty annotation.
func NewAnnotation() *Annotation {
	return &Annotation{
		genes: make(map[string]bool),
		terms: make(map[string]*term),
	}
}

// Add records that gene carries termID. A non-empty description
// replaces an empty one.
func (a *Annotation) Add(gene, termID, description string) {
	gene = strings.TrimSpace(gene)
	termID = strings.TrimSpace(termID)
	if gene == "" || termID == "" {
		return
	}
	t, ok := a.terms[termID]
	if !ok {
		t = &term{genes: make(map[string]bool)}
		a.terms[termID] = t
	}
	if t.description == "" {
		t.description = strings.TrimSpace(description)
	}
	t.genes[gene] = true
	a.genes[gene] = true
}

// Genes returns the number of annotated genes.
func (a *Annotation) Genes() int {
	return len(a.genes)
}

// Terms returns the number of distinct terms.
func (a *Annotation) Terms() int {
	return len(a.terms)
}

// Has reports whether gene carries at least one term.
func (a *Annotation) Has(gene string) bool {
	return a.genes[gene]
}

// Columns names the annotation table columns. Empty names select the
// first, second and third column respectively; a missing description
// column is tolerated.
type Columns struct {
	Gene        string
	Term        string
	Description string
}

var termSeparators = regexp.MustCompile(`[,;|]+`)

// LoadAnnotation reads a gene to term table such as the GO or KEGG
// annotation files listed in the genome sources. Term cells may hold
// several terms separated by commas, semicolons or pipes. With collapse
// set, transcript suffixes are stripped from gene IDs.
func LoadAnnotation(path string, cols Columns, collapse bool) (*Annotation, error) {
	t, err := tabular.Load(path)
	if err != nil {
		return nil, err
	}

	geneIdx, err := columnIndex(t, cols.Gene, 0, true)
	if err != nil {
		return nil, err
	}
	termIdx, err := columnIndex(t, cols.Term, 1, true)
	if err != nil {
		return nil, err
	}
	descIdx, err := columnIndex(t, cols.Description, 2, false)
	if err != nil {
		return nil, err
	}

	a := NewAnnotation()
	for _, row := range t.Rows {
		gene := row[geneIdx]
		if collapse {
			gene = CollapseTranscripts(gene)
		}
		desc := ""
		if descIdx >= 0 {
			desc = row[descIdx]
		}
		for _, id := range termSeparators.Split(row[termIdx], -1) {
			a.Add(gene, id, desc)
		}
	}
	if a.Terms() == 0 {
		return nil, fmt.Errorf("no gene annotations found in %s", path)
	}
	return a, nil
}

func columnIndex(t *tabular.Table, name string, pos int, required bool) (int, error) {
	if name != "" {
		idx := t.Column(name)
		if idx < 0 {
			return 0, fmt.Errorf("column %q not found (columns: %s)", name, strings.Join(t.Header, ", "))
		}
		return idx, nil
	}
	if pos < len(t.Header) {
		return pos, nil
	}
	if required {
		return 0, fmt.Errorf("annotation table needs at least %d columns, has %d", pos+1, len(t.Header))
	}
	return -1, nil
}

var transcriptSuffix = regexp.MustCompile(`\.\d+$`)

// CollapseTranscripts strips a trailing ".N" transcript number from id.
func CollapseTranscripts(id string) string {
	return transcriptSuffix.ReplaceAllString(id, "")
}

// ErrNoGenes is returned by ParseStudyGenes when the input has no IDs.
var ErrNoGenes = errors.New("no gene IDs found")

// StudyGenes is a parsed study gene list.
type StudyGenes struct {
	// IDs is sorted and free of duplicates.
	IDs []string

	// Log2FC holds the fold change per gene when the input carried one.
	Log2FC map[string]float64
}

var studySeparators = regexp.MustCompile(`[\s,;]+`)

// ParseStudyGenes parses pasted gene lists. Entries are separated by
// whitespace, commas or semicolons. With hasLog2FC every non-empty line
// must hold a gene ID followed by a numeric log2 fold change. The first
// line is dropped when hasHeader is set and more than one line is given.
func ParseStudyGenes(lines []string, hasHeader, hasLog2FC bool) (*StudyGenes, error) {
	if hasHeader && len(lines) > 1 {
		lines = lines[1:]
	}

	study := &StudyGenes{}
	if hasLog2FC {
		study.Log2FC = make(map[string]float64)
	}

	var ids []string
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := studySeparators.Split(line, -1)
		if !hasLog2FC {
			ids = append(ids, parts...)
			continue
		}
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: expected gene ID and log2FC, got %q", i+1, line)
		}
		fc, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid log2FC %q", i+1, parts[1])
		}
		study.Log2FC[parts[0]] = fc
		ids = append(ids, parts[0])
	}

	study.IDs = uniqueSorted(ids)
	if len(study.IDs) == 0 {
		return nil, ErrNoGenes
	}
	return study, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
