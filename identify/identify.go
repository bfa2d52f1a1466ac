// Package identify guesses which genome assembly a list of gene IDs
// comes from by matching them against each assembly's gene ID pattern.
package identify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/config"
)

// Score is the number of IDs an assembly's pattern matched.
type Score struct {
	AssemblyID string
	Matched    int
}

// Identification is the result of Identify.
type Identification struct {
	// AssemblyID is the best matching assembly.
	AssemblyID string

	// Matched and Total count the IDs matched by the winner and the IDs
	// examined.
	Matched int
	Total   int

	// Ambiguous is set when another assembly matched as many IDs.
	Ambiguous bool

	// Scores lists every assembly with at least one match, best first.
	Scores []Score
}

// Fraction returns the share of IDs matched by the winner.
func (id *Identification) Fraction() float64 {
	if id.Total == 0 {
		return 0
	}
	return float64(id.Matched) / float64(id.Total)
}

// Identify scores every source that has a gene_id_regex against ids.
// An ID counts for a source when the source's pattern matches at the
// start of the ID. It returns nil when no source matches any ID.
func Identify(ids []string, sources map[string]*config.GenomeSource) (*Identification, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var scores []Score
	for _, assembly := range config.SortedIDs(sources) {
		src := sources[assembly]
		if src.GeneIDRegex == "" {
			continue
		}
		re, err := regexp.Compile(`^(?:` + src.GeneIDRegex + `)`)
		if err != nil {
			return nil, fmt.Errorf("gene_id_regex of %s: %w", assembly, err)
		}

		n := 0
		for _, id := range ids {
			if re.MatchString(strings.TrimSpace(id)) {
				n++
			}
		}
		if n > 0 {
			scores = append(scores, Score{AssemblyID: assembly, Matched: n})
		}
	}

	if len(scores) == 0 {
		return nil, nil
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Matched > scores[j].Matched
	})

	return &Identification{
		AssemblyID: scores[0].AssemblyID,
		Matched:    scores[0].Matched,
		Total:      len(ids),
		Ambiguous:  len(scores) > 1 && scores[1].Matched == scores[0].Matched,
		Scores:     scores,
	}, nil
}

// SplitGeneList splits pasted text into gene IDs. Commas, semicolons and
// any whitespace separate IDs. Empty entries are dropped; repeated IDs
// are kept so each occurrence counts towards Identify's totals.
func SplitGeneList(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
