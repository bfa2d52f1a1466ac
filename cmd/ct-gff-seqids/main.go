// Command ct-gff-seqids lists the sequence IDs of an assembly's annotation
// and resolves chromosome names against them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
)

var (
	globalOpts cli.GlobalOptions
	genomeOpts cli.GenomeOptions
	counts     bool
)

var rootCmd = &cobra.Command{
	Use:   "ct-gff-seqids -g assembly [options] [chrom ...]",
	Short: "List or resolve sequence IDs",
	Long: `Without arguments, list the sequence IDs of an assembly's annotation in
file order, optionally with the number of genes on each.

With arguments, resolve each chromosome name the way ct-gff-region does
and print the name, the matching sequence ID and how it matched (exact,
suffix, ambiguous or none).

Examples:

  # List sequence IDs with gene counts
  ct-gff-seqids -g HAU_v1 --counts

  # Check what "A01" and "d05" resolve to
  ct-gff-seqids -g HAU_v1 A01 d05`,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	cli.AddGenomeFlags(rootCmd, &genomeOpts)
	rootCmd.Flags().BoolVar(&counts, "counts", false, "show the number of genes per sequence")
}

func run(cmd *cobra.Command, args []string) error {
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

	db, err := cli.NewFeatureService(cfg, logger, nil).Prepare(ctx, src)
	if err != nil {
		return err
	}
	defer db.Close()

	seqids, err := db.SeqIDs(ctx)
	if err != nil {
		return err
	}

	writer := cli.NewTabWriter(os.Stdout)
	defer writer.Flush()

	if len(args) > 0 {
		writer.WriteHeaders([]string{"query", "seqid", "match"})
		for _, chrom := range args {
			m, err := featuredb.MatchSeqID(seqids, chrom)
			switch {
			case errors.Is(err, featuredb.ErrSeqIDNotFound):
				writer.WriteRow(chrom, "", "none")
			case err != nil:
				return err
			default:
				writer.WriteRow(chrom, m.SeqID, matchKind(m))
			}
		}
		return nil
	}

	if !counts {
		writer.WriteHeaders([]string{"seqid"})
		for _, id := range seqids {
			writer.WriteRow(id)
		}
		return nil
	}

	writer.WriteHeaders([]string{"seqid", "genes"})
	for _, id := range seqids {
		n, err := db.Count(ctx, featuredb.NewQuery().Eq("seqid", id))
		if err != nil {
			return fmt.Errorf("counting genes on %s: %w", id, err)
		}
		writer.WriteRow(id, strconv.Itoa(n))
	}
	return nil
}

func matchKind(m *featuredb.SeqIDMatch) string {
	switch {
	case m.Exact:
		return "exact"
	case m.Ambiguous:
		return "ambiguous"
	default:
		return "suffix"
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
