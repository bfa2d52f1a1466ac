// Command ct-ai-models lists the models an AI provider offers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cottongenomics/cotton-toolkit/ai"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	globalOpts cli.GlobalOptions
	provider   string
	baseURL    string
)

var rootCmd = &cobra.Command{
	Use:   "ct-ai-models [options]",
	Short: "List the models of an AI provider",
	Long: `Ask an AI provider for the models available to the configured API key
and print one model name per line. Use it to pick the model to set in
ai_services.providers.<name>.model.

Examples:

  # Models of the default provider
  ct-ai-models

  # Models of a self-hosted OpenAI-compatible server
  ct-ai-models --provider openai --base-url http://localhost:8000/v1`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	rootCmd.Flags().StringVar(&provider, "provider", "", "AI provider (default: ai_services.default_provider)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "override the provider's API base URL")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	settings, err := ai.SettingsFor(cfg, provider)
	if err != nil {
		return err
	}
	if baseURL != "" {
		settings.BaseURL = baseURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := ai.New(ctx, settings)
	if err != nil {
		return err
	}
	models, err := p.Models(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	logger.Debug("models listed", zap.String("provider", p.Name()), zap.Int("count", len(models)))

	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
