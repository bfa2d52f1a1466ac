// Command ct-download fetches reference files for the configured genome
// assemblies.
//
// Usage:
//
//	ct-download [options]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/download"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	globalOpts cli.GlobalOptions
	versions   []string
	fileKeys   []string
	force      bool
	workers    int
	useProxy   bool
	noProxy    bool
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "ct-download [options]",
	Short: "Download genome reference files",
	Long: `Download the GFF3 annotation, GO, IPR, KEGG, homology and sequence
files listed for each genome assembly in the genome sources list.

Files are stored under downloader.download_output_base_dir, one
subdirectory per assembly. Files that already exist are skipped unless
--force or downloader.force_download is set. Downloads run concurrently,
up to downloader.max_workers at a time.

File types: ` + strings.Join(config.FileKeys, ", ") + `

Examples:

  # Download everything for every assembly
  ct-download

  # Download only the annotation of one assembly
  ct-download -g HAU_v1 -f gff3

  # Show what would be downloaded
  ct-download --dry-run`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	flags := rootCmd.Flags()
	flags.StringSliceVarP(&versions, "genome", "g", nil, "assembly ID(s) to download (default: all)")
	flags.StringSliceVarP(&fileKeys, "file", "f", nil, "file type(s) to download (default: all)")
	flags.BoolVar(&force, "force", false, "download even if the file exists")
	flags.IntVarP(&workers, "workers", "w", 0, "concurrent downloads (default: downloader.max_workers)")
	flags.BoolVar(&useProxy, "proxy", false, "download through the configured proxies")
	flags.BoolVar(&noProxy, "no-proxy", false, "never use the configured proxies")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "list the downloads without fetching")
	rootCmd.MarkFlagsMutuallyExclusive("proxy", "no-proxy")
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

	clientOpts := []download.ClientOption{download.WithLogger(logger)}
	if (cfg.Downloader.UseProxyForDownload || useProxy) && !noProxy {
		logger.Info("using proxies", zap.String("http", cfg.Proxies.HTTP), zap.String("https", cfg.Proxies.HTTPS))
		clientOpts = append(clientOpts, download.WithProxy(cfg.Proxies.HTTP, cfg.Proxies.HTTPS))
	}

	mgr := download.NewManager(cfg, download.NewClient(clientOpts...), logger)
	if workers > 0 {
		mgr.Workers = workers
	}
	if force {
		mgr.Force = true
	}

	jobs, err := mgr.Plan(sources, versions, fileKeys)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("Nothing to download.")
		return nil
	}

	if dryRun {
		writer := cli.NewTabWriter(os.Stdout)
		defer writer.Flush()
		writer.WriteHeaders([]string{"job", "status", "url", "path"})
		for _, job := range jobs {
			status := config.FileStatusOf(cfg, job.Source, job.FileKey)
			writer.WriteRow(job.Name(), string(status), job.URL, job.Dest)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool := cli.NewBytePool()
	mgr.Progress = func(job download.Job) download.ProgressFunc {
		return pool.Track(job.Name())
	}
	results := mgr.Run(ctx, jobs)
	pool.Stop()

	var downloaded, skipped int
	var errs []error
	for _, res := range results {
		switch {
		case res.Err != nil:
			errs = append(errs, res.Err)
		case res.Skipped:
			skipped++
		default:
			downloaded++
		}
	}

	fmt.Printf("Downloaded %d, skipped %d, failed %d of %d files.\n",
		downloaded, skipped, len(errs), len(jobs))
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
