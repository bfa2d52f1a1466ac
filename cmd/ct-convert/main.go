// Command ct-convert converts tables between CSV, TSV and Excel.
package main

import (
	"fmt"
	"os"

	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"github.com/spf13/cobra"
)

var (
	globalOpts  cli.GlobalOptions
	standardize bool
)

var rootCmd = &cobra.Command{
	Use:   "ct-convert input [output]",
	Short: "Convert a table between CSV, TSV and Excel",
	Long: `Read a table from a .csv, .tsv, .txt or .xlsx file, optionally gzipped,
and write it in the format given by the output file extension.

Text input may be UTF-8 (with or without a byte order mark) or Latin-1.
CSV output carries a UTF-8 byte order mark so spreadsheet programs detect
the encoding.

With --standardize the output name is chosen automatically: the table
is cached as <name>_standardized.csv under annotation.temp_dir and only
rewritten when the input is newer than the cached copy.

Examples:

  # Excel to CSV
  ct-convert HAU_GO.xlsx HAU_GO.csv

  # Gzipped TSV to Excel
  ct-convert degs.tsv.gz degs.xlsx

  # Cache a standardized copy and print its path
  ct-convert --standardize HAU_GO.xlsx.gz`,
	Args: cobra.RangeArgs(1, 2),
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	rootCmd.Flags().BoolVar(&standardize, "standardize", false,
		"write a cached standardized CSV under annotation.temp_dir")
}

func run(cmd *cobra.Command, args []string) error {
	if standardize {
		cfg, logger, err := cli.Setup(&globalOpts)
		if err != nil {
			return err
		}
		defer logger.Sync()

		path, err := tabular.PrepareInput(args[0], cfg.TempDir(), logger)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	if len(args) != 2 {
		return fmt.Errorf("an output file is required")
	}
	if err := tabular.Convert(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Converted %s to %s\n", args[0], args[1])
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
