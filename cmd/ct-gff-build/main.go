// Command ct-gff-build indexes the GFF3 annotation of a genome assembly
// into its feature database.
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
)

var rootCmd = &cobra.Command{
	Use:   "ct-gff-build -g assembly [options]",
	Short: "Build the feature database of an assembly",
	Long: `Read the genes of an assembly's GFF3 file (plain or gzipped) and store
them in a SQLite feature database under annotation.gff_db_storage_dir.

Gene IDs are normalized with the assembly's gene_id_regex, so records
such as transcripts that share a normalized ID are merged. An existing
non-empty database is reused unless --force is given. The other ct-gff-*
commands build the database on first use, so running this command
first is optional.

Examples:

  # Build the database from the downloaded annotation
  ct-gff-build -g HAU_v1

  # Rebuild it from a local file
  ct-gff-build -g HAU_v1 --gff TM-1_V2.1.gene.gff3 --force`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	cli.AddGenomeFlags(rootCmd, &genomeOpts)
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

	svc := cli.NewFeatureService(cfg, logger, nil)
	db, err := svc.Prepare(ctx, src)
	if err != nil {
		return err
	}
	defer db.Close()

	genes, err := db.Count(ctx, featuredb.NewQuery())
	if err != nil {
		return err
	}
	seqids, err := db.SeqIDs(ctx)
	if err != nil {
		return err
	}
	created, _ := db.Meta(ctx, "created_at")

	fmt.Printf("Database: %s\n", db.Path())
	fmt.Printf("Source:   %s\n", src.GFFPath)
	fmt.Printf("Built:    %s\n", created)
	fmt.Printf("Genes:    %d on %d sequences\n", genes, len(seqids))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
