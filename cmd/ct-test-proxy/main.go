// Command ct-test-proxy checks that the configured HTTP proxies work.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cottongenomics/cotton-toolkit/download"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
)

var (
	globalOpts cli.GlobalOptions
	httpProxy  string
	httpsProxy string
	targets    []string
)

// defaultTargets are fetched when no --url is given.
var defaultTargets = []string{
	"https://www.google.com/generate_204",
	"https://www.cottongen.org/",
}

var rootCmd = &cobra.Command{
	Use:   "ct-test-proxy [options]",
	Short: "Test proxy connectivity",
	Long: `Fetch a few well-known URLs through the proxies of the configuration
(proxies.http and proxies.https) and report the round trip time of each.
--http and --https test other proxies without editing the configuration.

Examples:

  # Test the configured proxies
  ct-test-proxy

  # Test a local proxy against a specific site
  ct-test-proxy --https http://127.0.0.1:7890 --url https://api.openai.com/v1/models`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	rootCmd.Flags().StringVar(&httpProxy, "http", "", "HTTP proxy (default: proxies.http)")
	rootCmd.Flags().StringVar(&httpsProxy, "https", "", "HTTPS proxy (default: proxies.https)")
	rootCmd.Flags().StringSliceVarP(&targets, "url", "u", nil, "URL(s) to fetch")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if httpProxy == "" && httpsProxy == "" {
		httpProxy, httpsProxy = cfg.Proxies.HTTP, cfg.Proxies.HTTPS
	}
	if len(targets) == 0 {
		targets = defaultTargets
	}

	ctx := context.Background()
	failed := 0
	for _, target := range targets {
		elapsed, err := download.TestProxy(ctx, httpProxy, httpsProxy, target)
		if errors.Is(err, download.ErrNoProxy) {
			return fmt.Errorf("no proxy configured; set proxies.http or proxies.https, or pass --http/--https")
		}
		if err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", target, err)
			continue
		}
		fmt.Printf("OK    %s (%d ms)\n", target, elapsed.Milliseconds())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d proxy checks failed", failed, len(targets))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
