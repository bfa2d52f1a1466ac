// Command ct-join merges two gene tables on their gene ID columns.
//
// Usage:
//
//	ct-join [options] left right
//
// Examples:
//
//	ct-join degs.xlsx genes.tsv -o degs_annotated.xlsx
//	ct-join --key1 GeneID --key2 gene_id --left --collapse degs.csv go.csv
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/enrichment"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"github.com/spf13/cobra"
)

var (
	key1     string
	key2     string
	onlyCols string
	leftJoin bool
	collapse bool
	output   string
)

var rootCmd = &cobra.Command{
	Use:   "ct-join [options] left right",
	Short: "Join two gene tables on a gene ID column",
	Long: `This command joins two tables on a gene ID column. Each table may be
.csv, .tsv, .txt or .xlsx, optionally gzipped. The output holds every
column of the left table followed by the columns of the right table,
without its key column. A left row matching several right rows is
repeated once per match.

With --collapse, transcript suffixes such as ".1" are stripped from both
keys before matching, so transcript-level results join gene-level
annotation.

Examples:

  # Attach gene details from ct-gff-genes to a DEG table
  ct-gff-genes -g HAU_v1 -i degs.txt > genes.tsv
  ct-join --key1 GeneID --key2 gene_id degs.xlsx genes.tsv -o degs_annotated.xlsx

  # Keep unmatched rows and take only the description column
  ct-join --left --only description degs.csv genes.tsv`,
	Args: cobra.ExactArgs(2),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&key1, "key1", "1", "", "key column in the left table (default: first)")
	rootCmd.Flags().StringVarP(&key2, "key2", "2", "", "key column in the right table (default: same name as key1, else first)")
	rootCmd.Flags().StringVar(&onlyCols, "only", "", "comma-separated columns to include from the right table")
	rootCmd.Flags().BoolVar(&leftJoin, "left", false, "include left rows without a match")
	rootCmd.Flags().BoolVar(&collapse, "collapse", false, "ignore transcript suffixes when matching keys")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output table (default: tab-delimited stdout)")
}

// keyColumn resolves name in t, defaulting to the first column.
func keyColumn(t *tabular.Table, name string) (int, error) {
	if name == "" {
		if len(t.Header) == 0 {
			return 0, fmt.Errorf("table has no columns")
		}
		return 0, nil
	}
	idx := t.Column(name)
	if idx < 0 {
		return 0, fmt.Errorf("column %q not found (have %s)", name, strings.Join(t.Header, ", "))
	}
	return idx, nil
}

func normalizeKey(v string) string {
	v = strings.TrimSpace(v)
	if collapse {
		v = enrichment.CollapseTranscripts(v)
	}
	return v
}

// Join merges right into left on the given key columns.
func Join(left, right *tabular.Table, leftKey, rightKey int, include []int, keepUnmatched bool) *tabular.Table {
	index := make(map[string][][]string)
	for _, row := range right.Rows {
		key := normalizeKey(row[rightKey])
		if key == "" {
			continue
		}
		var picked []string
		for _, idx := range include {
			picked = append(picked, row[idx])
		}
		index[key] = append(index[key], picked)
	}

	out := &tabular.Table{Header: append([]string{}, left.Header...)}
	for _, idx := range include {
		out.Header = append(out.Header, right.Header[idx])
	}
	for _, row := range left.Rows {
		matches := index[normalizeKey(row[leftKey])]
		if len(matches) == 0 {
			if keepUnmatched {
				out.Rows = append(out.Rows, append(append([]string{}, row...), make([]string, len(include))...))
			}
			continue
		}
		for _, m := range matches {
			out.Rows = append(out.Rows, append(append([]string{}, row...), m...))
		}
	}
	return out
}

func run(cmd *cobra.Command, args []string) error {
	left, err := tabular.Load(args[0])
	if err != nil {
		return fmt.Errorf("left table: %w", err)
	}
	right, err := tabular.Load(args[1])
	if err != nil {
		return fmt.Errorf("right table: %w", err)
	}

	leftKey, err := keyColumn(left, key1)
	if err != nil {
		return fmt.Errorf("left key: %w", err)
	}
	if key2 == "" && key1 != "" && right.Column(key1) >= 0 {
		key2 = key1
	}
	rightKey, err := keyColumn(right, key2)
	if err != nil {
		return fmt.Errorf("right key: %w", err)
	}

	var include []int
	if onlyCols != "" {
		for _, name := range strings.Split(onlyCols, ",") {
			idx, err := keyColumn(right, strings.TrimSpace(name))
			if err != nil {
				return fmt.Errorf("--only: %w", err)
			}
			if idx != rightKey {
				include = append(include, idx)
			}
		}
	} else {
		for i := range right.Header {
			if i != rightKey {
				include = append(include, i)
			}
		}
	}

	joined := Join(left, right, leftKey, rightKey, include, leftJoin)
	if len(joined.Rows) == 0 {
		fmt.Fprintln(os.Stderr, "No rows matched.")
	}
	return cli.WriteTable(joined, output)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
