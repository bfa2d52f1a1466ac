package enrichment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/tabular"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
)

// ErrNoOverlap is returned by Run when no study gene is annotated.
var ErrNoOverlap = errors.New("no study gene carries an annotation")

// Sort keys accepted in Options.SortBy.
const (
	SortPValue         = "p_value"
	SortFDR            = "fdr"
	SortFoldEnrichment = "fold_enrichment"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []string{SortPValue, SortFDR, SortFoldEnrichment}

// Options controls Run.
type Options struct {
	// TopN keeps only the first N results after sorting. Zero keeps all.
	TopN int

	// SortBy is one of SortKeys. Empty means SortFDR.
	SortBy string

	// CollapseTranscripts strips ".N" suffixes from study gene IDs.
	CollapseTranscripts bool
}

// Result is the test outcome for one term.
type Result struct {
	TermID      string
	Description string

	// StudyCount genes of the StudySize annotated study genes carry the
	// term, against PopCount of the PopSize annotated genes overall.
	StudyCount int
	StudySize  int
	PopCount   int
	PopSize    int

	FoldEnrichment float64
	PValue         float64
	FDR            float64

	// Genes lists the study genes carrying the term, sorted.
	Genes []string

	// MeanLog2FC is the mean fold change of Genes, NaN without data.
	MeanLog2FC float64
}

// RichFactor returns StudyCount / PopCount.
func (r *Result) RichFactor() float64 {
	return float64(r.StudyCount) / float64(r.PopCount)
}

// Run tests every term carried by at least one study gene for
// over-representation with a one-sided hypergeometric test. The
// population is the set of annotated genes, so study genes without any
// annotation are ignored. P-values are adjusted with the
// Benjamini-Hochberg procedure.
func Run(study *StudyGenes, ann *Annotation, opts Options) ([]Result, error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortFDR
	}
	if !validSortKey(sortBy) {
		return nil, fmt.Errorf("unknown sort key %q (use %s)", sortBy, strings.Join(SortKeys, ", "))
	}

	ids, log2fc := study.IDs, study.Log2FC
	if opts.CollapseTranscripts {
		ids, log2fc = collapse(ids, log2fc)
	}

	var inPop []string
	for _, id := range ids {
		if ann.Has(id) {
			inPop = append(inPop, id)
		}
	}
	if len(inPop) == 0 {
		return nil, ErrNoOverlap
	}

	popSize := ann.Genes()
	studySize := len(inPop)
	logTotal := combin.LogGeneralizedBinomial(float64(popSize), float64(studySize))

	var results []Result
	for termID, t := range ann.terms {
		var hits []string
		for _, id := range inPop {
			if t.genes[id] {
				hits = append(hits, id)
			}
		}
		if len(hits) == 0 {
			continue
		}

		popCount := len(t.genes)
		k := len(hits)
		results = append(results, Result{
			TermID:         termID,
			Description:    t.description,
			StudyCount:     k,
			StudySize:      studySize,
			PopCount:       popCount,
			PopSize:        popSize,
			FoldEnrichment: (float64(k) / float64(studySize)) / (float64(popCount) / float64(popSize)),
			PValue:         hypergeomSF(k, popSize, popCount, studySize, logTotal),
			Genes:          hits,
			MeanLog2FC:     meanFC(hits, log2fc),
		})
	}

	adjustBH(results)
	sortResults(results, sortBy)
	if opts.TopN > 0 && len(results) > opts.TopN {
		results = results[:opts.TopN]
	}
	return results, nil
}

// hypergeomSF returns P(X >= k) for X drawn from n of N items of which K
// are successes. logTotal is log C(N, n).
func hypergeomSF(k, bigN, bigK, n int, logTotal float64) float64 {
	hi := bigK
	if n < hi {
		hi = n
	}
	terms := make([]float64, 0, hi-k+1)
	for i := k; i <= hi; i++ {
		if n-i > bigN-bigK {
			continue
		}
		terms = append(terms,
			combin.LogGeneralizedBinomial(float64(bigK), float64(i))+
				combin.LogGeneralizedBinomial(float64(bigN-bigK), float64(n-i))-
				logTotal)
	}
	if len(terms) == 0 {
		return 0
	}
	return math.Min(1, math.Exp(floats.LogSumExp(terms)))
}

// adjustBH sets FDR to Benjamini-Hochberg adjusted p-values.
func adjustBH(results []Result) {
	m := len(results)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].PValue < results[order[b]].PValue
	})

	prev := 1.0
	for rank := m; rank >= 1; rank-- {
		r := &results[order[rank-1]]
		q := math.Min(prev, r.PValue*float64(m)/float64(rank))
		r.FDR = q
		prev = q
	}
}

func sortResults(results []Result, by string) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch by {
		case SortPValue:
			if a.PValue != b.PValue {
				return a.PValue < b.PValue
			}
		case SortFoldEnrichment:
			if a.FoldEnrichment != b.FoldEnrichment {
				return a.FoldEnrichment > b.FoldEnrichment
			}
		default:
			if a.FDR != b.FDR {
				return a.FDR < b.FDR
			}
		}
		if a.PValue != b.PValue {
			return a.PValue < b.PValue
		}
		return a.TermID < b.TermID
	})
}

func validSortKey(key string) bool {
	for _, k := range SortKeys {
		if k == key {
			return true
		}
	}
	return false
}

func collapse(ids []string, log2fc map[string]float64) ([]string, map[string]float64) {
	var collapsedFC map[string]float64
	if log2fc != nil {
		sums := make(map[string]float64)
		counts := make(map[string]int)
		for id, fc := range log2fc {
			g := CollapseTranscripts(id)
			sums[g] += fc
			counts[g]++
		}
		collapsedFC = make(map[string]float64, len(sums))
		for g, s := range sums {
			collapsedFC[g] = s / float64(counts[g])
		}
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = CollapseTranscripts(id)
	}
	return uniqueSorted(out), collapsedFC
}

func meanFC(genes []string, log2fc map[string]float64) float64 {
	if log2fc == nil {
		return math.NaN()
	}
	var sum float64
	n := 0
	for _, g := range genes {
		if fc, ok := log2fc[g]; ok {
			sum += fc
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// ResultColumns is the column order of ResultsTable.
var ResultColumns = []string{
	"term_id", "description", "study_count", "study_size", "pop_count", "pop_size",
	"rich_factor", "fold_enrichment", "p_value", "fdr", "mean_log2fc", "genes",
}

// ResultsTable tabulates results.
func ResultsTable(results []Result) *tabular.Table {
	t := &tabular.Table{Header: append([]string(nil), ResultColumns...)}
	for _, r := range results {
		fc := ""
		if !math.IsNaN(r.MeanLog2FC) {
			fc = formatFloat(r.MeanLog2FC)
		}
		t.Rows = append(t.Rows, []string{
			r.TermID,
			r.Description,
			strconv.Itoa(r.StudyCount),
			strconv.Itoa(r.StudySize),
			strconv.Itoa(r.PopCount),
			strconv.Itoa(r.PopSize),
			formatFloat(r.RichFactor()),
			formatFloat(r.FoldEnrichment),
			strconv.FormatFloat(r.PValue, 'g', 6, 64),
			strconv.FormatFloat(r.FDR, 'g', 6, 64),
			fc,
			strings.Join(r.Genes, ";"),
		})
	}
	return t
}

// WriteResults saves results to path in any format tabular.Save accepts.
func WriteResults(results []Result, path string) error {
	return tabular.Save(ResultsTable(results), path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
