// Command ct-identify guesses the genome assembly of a gene ID list.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/identify"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	globalOpts cli.GlobalOptions
	colOpts    cli.ColOptions
	ioOpts     cli.IOOptions
)

var rootCmd = &cobra.Command{
	Use:   "ct-identify [options] [gene_id ...]",
	Short: "Identify the assembly of a gene list",
	Long: `Match gene IDs against the gene_id_regex of every assembly in the genome
sources list and report the assembly matching the most IDs.

IDs are taken from the command line, where they may be separated by
spaces, commas or semicolons, or else read from the key column of the
tab-delimited input (--input or stdin).

Examples:

  ct-identify Ghir_A01G000010 Ghir_D05G012340
  cut -f1 degs.txt | ct-identify --nohead`,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	cli.AddColFlags(rootCmd, &colOpts)
	rootCmd.Flags().StringVarP(&ioOpts.Input, "input", "i", "", "input file (default: stdin)")
}

func readIDs(args []string) ([]string, error) {
	if len(args) > 0 {
		return identify.SplitGeneList(strings.Join(args, " ")), nil
	}

	in, err := cli.OpenInput(ioOpts.Input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()
	return cli.NewTabReader(in, !colOpts.NoHead).ReadKeys(colOpts)
}

func run(cmd *cobra.Command, args []string) error {
	ids, err := readIDs(args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no gene IDs given")
	}

	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sources, err := config.LoadGenomeSources(cfg)
	if err != nil {
		return err
	}

	result, err := identify.Identify(ids, sources)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("none of the %d gene IDs matches a known assembly", len(ids))
	}
	if result.Ambiguous {
		logger.Warn("several assemblies match equally well", zap.Any("scores", result.Scores))
	}

	fmt.Printf("%s\t%d/%d\t%.1f%%\n", result.AssemblyID, result.Matched, result.Total, 100*result.Fraction())
	for _, s := range result.Scores[1:] {
		logger.Info("also matched", zap.String("assembly", s.AssemblyID), zap.Int("ids", s.Matched))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
