// Command ct-gff-genes looks up gene details by gene ID.
//
// Usage:
//
//	ct-gff-genes -g assembly [options] [gene_id ...]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cottongenomics/cotton-toolkit/identify"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
)

var (
	globalOpts  cli.GlobalOptions
	genomeOpts  cli.GenomeOptions
	colOpts     cli.ColOptions
	ioOpts      cli.IOOptions
	missingPath string
)

var rootCmd = &cobra.Command{
	Use:   "ct-gff-genes -g assembly [options] [gene_id ...]",
	Short: "Look up genes by ID",
	Long: `Write the location and annotation of each requested gene.

Gene IDs are taken from the command line, where they may be separated by
spaces, commas or semicolons, or else read from the key column of the
tab-delimited input (--input or stdin). Output rows keep the input order.
IDs missing from the annotation are reported on stderr and, with
--missing, written to a file.

Examples:

  # Look up two genes
  ct-gff-genes -g HAU_v1 Ghir_A01G000010,Ghir_A01G000020

  # Look up the IDs in the "gene" column of a table
  ct-gff-genes -g HAU_v1 -i degs.txt -c gene -o degs_location.xlsx`,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	cli.AddGenomeFlags(rootCmd, &genomeOpts)
	cli.AddColFlags(rootCmd, &colOpts)
	rootCmd.Flags().StringVarP(&ioOpts.Input, "input", "i", "", "input file (default: stdin)")
	rootCmd.Flags().StringVarP(&ioOpts.Output, "output", "o", "",
		"output file (default: stdout); .csv, .tsv and .xlsx are written as tables")
	rootCmd.Flags().StringVar(&missingPath, "missing", "", "write IDs that were not found to this file")
}

func readIDs(args []string) ([]string, error) {
	if len(args) > 0 {
		var ids []string
		for _, a := range args {
			ids = append(ids, identify.SplitGeneList(a)...)
		}
		return ids, nil
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

	src, err := cli.ResolveGenome(cfg, &genomeOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := cli.NewPercentBar("genes ")
	res, err := cli.NewFeatureService(cfg, logger, bar).GeneInfoByIDs(ctx, src, ids)
	bar.Finish()
	if err != nil {
		return err
	}

	if err := cli.WriteTable(cli.DetailsTable(res.Found), ioOpts.Output); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if len(res.NotFound) > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d gene IDs not found\n", len(res.NotFound), len(ids))
		if missingPath != "" {
			out, err := cli.OpenOutput(missingPath)
			if err != nil {
				return err
			}
			defer out.Close()
			w := cli.NewTabWriter(out)
			for _, id := range res.NotFound {
				w.WriteRow(id)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
