// Command ct-genomes lists the genome assemblies in the sources list and
// the download state of their files.
package main

import (
	"fmt"
	"os"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
)

var (
	globalOpts cli.GlobalOptions
	ioOpts     cli.IOOptions
	showFiles  bool
)

var rootCmd = &cobra.Command{
	Use:   "ct-genomes [options]",
	Short: "List configured genome assemblies",
	Long: `List the genome assemblies of the genome sources list.

By default one row is written per assembly with its species name and
gene ID pattern. With --files one row is written per assembly and file
type, giving the local path and whether it has been downloaded
(complete, incomplete or missing).

Examples:

  # List assemblies
  ct-genomes

  # Show which files are downloaded
  ct-genomes --files`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	rootCmd.Flags().StringVarP(&ioOpts.Output, "output", "o", "", "output file (default: stdout)")
	rootCmd.Flags().BoolVar(&showFiles, "files", false, "list file download status")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sources, err := config.LoadGenomeSources(cfg)
	if err != nil {
		return err
	}

	outFile, err := cli.OpenOutput(ioOpts.Output)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer outFile.Close()

	writer := cli.NewTabWriter(outFile)
	defer writer.Flush()

	if !showFiles {
		if err := writer.WriteHeaders([]string{"assembly", "species", "gene_id_regex", "files"}); err != nil {
			return err
		}
		for _, id := range config.SortedIDs(sources) {
			src := sources[id]
			if err := writer.WriteRow(id, src.SpeciesName, src.GeneIDRegex,
				cli.FormatValue(src.AvailableFiles(), ",")); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writer.WriteHeaders([]string{"assembly", "file", "status", "path"}); err != nil {
		return err
	}
	for _, id := range config.SortedIDs(sources) {
		src := sources[id]
		for _, key := range src.AvailableFiles() {
			status := config.FileStatusOf(cfg, src, key)
			if err := writer.WriteRow(id, key, string(status), config.LocalFilePath(cfg, src, key)); err != nil {
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
