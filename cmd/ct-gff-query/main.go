// Command ct-gff-query selects genes from a feature database with
// field filters.
//
// Usage:
//
//	ct-gff-query -g assembly [options]
//
// Examples:
//
//	# Genes on A01 between 1 and 2 Mb
//	ct-gff-query -g HAU_v1 --eq chrom,Ghir_A01 --ge start,1000000 --le end,2000000
//
//	# Count minus-strand genes
//	ct-gff-query -g HAU_v1 --eq strand,- --count
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
	queryOpts  cli.QueryOptions
	ioOpts     cli.IOOptions
)

// defaultColumns are written when no --attr is given.
var defaultColumns = []string{"id", "seqid", "start", "end", "strand", "featuretype", "description"}

var rootCmd = &cobra.Command{
	Use:   "ct-gff-query -g assembly [options]",
	Short: "Query genes of an assembly",
	Long: `This command returns the genes of an assembly's feature database that
match every filter given. It supports standard filtering parameters to
filter the output and column options to select the columns to return.

    ct-gff-query -g assembly [options]

Filter fields: id (gene_id), seqid (chrom), source, featuretype, start,
end, strand. --keyword matches the text of the GFF attributes column.

Output columns are chosen with --attr (-a): any filter field, score,
phase, length, or a GFF attribute tag such as Alias or description.

Examples:

  # Genes on A01 between 1 and 2 Mb
  ct-gff-query -g HAU_v1 --eq chrom,Ghir_A01 --ge start,1000000 --le end,2000000

  # Kinases, longest first
  ct-gff-query -g HAU_v1 --keyword kinase -a id -a length -a description --sort -end

  # Count minus-strand genes
  ct-gff-query -g HAU_v1 --eq strand,- --count`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	cli.AddGenomeFlags(rootCmd, &genomeOpts)
	cli.AddQueryFlags(rootCmd, &queryOpts)
	cli.AddIOFlags(rootCmd, &ioOpts)
}

func run(cmd *cobra.Command, args []string) error {
	// Handle --fields option
	if queryOpts.Fields {
		for _, f := range featuredb.Fields() {
			fmt.Println(f)
		}
		return nil
	}

	query, err := queryOpts.BuildQuery()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
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

	db, err := cli.NewFeatureService(cfg, logger, nil).Prepare(ctx, src)
	if err != nil {
		return err
	}
	defer db.Close()

	// Handle count mode
	if queryOpts.Count {
		count, err := db.Count(ctx, query)
		if err != nil {
			return fmt.Errorf("counting genes: %w", err)
		}
		fmt.Println(count)
		return nil
	}

	features, err := db.Query(ctx, query)
	if err != nil {
		return err
	}

	columns := queryOpts.Columns(defaultColumns)
	delim := ioOpts.GetDelimiter()
	table := cli.FeaturesTable(features, columns, delim)
	if err := cli.WriteTable(table, ioOpts.Output); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
