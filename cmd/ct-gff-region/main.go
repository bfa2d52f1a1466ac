// Command ct-gff-region lists the genes overlapping a chromosome region.
//
// Usage:
//
//	ct-gff-region -g assembly chrom:start-end [options]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
)

var (
	globalOpts cli.GlobalOptions
	genomeOpts cli.GenomeOptions
	ioOpts     cli.IOOptions
)

var rootCmd = &cobra.Command{
	Use:   "ct-gff-region -g assembly chrom:start-end [options]",
	Short: "List the genes in a genomic region",
	Long: `Write the genes of an assembly that overlap a region, ordered by start
position. Coordinates are 1-based and inclusive; commas in numbers are
ignored.

The chromosome name is matched case-insensitively against the sequence
IDs of the annotation. When no ID matches exactly, an ID ending in the
given name after a separator is used, so "A01" finds "Ghir_A01". When no
sequence matches, an empty table is written.

Output columns: gene_id, chrom, start, end, strand, source, feature_type,
aliases, description. Missing aliases and descriptions are written as N/A.

Examples:

  # Genes in the first megabase of A01
  ct-gff-region -g HAU_v1 A01:1-1,000,000

  # Save as Excel
  ct-gff-region -g HAU_v1 Ghir_D05:2000000-2500000 -o d05_genes.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	cli.AddGenomeFlags(rootCmd, &genomeOpts)
	rootCmd.Flags().StringVarP(&ioOpts.Output, "output", "o", "",
		"output file (default: stdout); .csv, .tsv and .xlsx are written as tables")
}

func run(cmd *cobra.Command, args []string) error {
	region, err := featuredb.ParseRegion(args[0])
	if err != nil {
		return err
	}

	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	src, err := cli.ResolveGenome(cfg, &genomeOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := cli.NewPercentBar("region ")
	genes, err := cli.NewFeatureService(cfg, logger, bar).GenesInRegion(ctx, src, region)
	bar.Finish()
	if err != nil {
		return err
	}

	if err := cli.WriteTable(cli.DetailsTable(genes), ioOpts.Output); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if ioOpts.Output != "" {
		fmt.Fprintf(os.Stderr, "%d genes in %s written to %s\n", len(genes), region, ioOpts.Output)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
