// Command ct-ai-annotate sends a table column through an AI model and
// stores the replies in a new column.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/ai"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	taskTranslate = "translate"
	taskAnalyze   = "analyze"
)

var (
	globalOpts cli.GlobalOptions

	column    string
	newColumn string
	task      string
	prompt    string
	provider  string
	model     string
	workers   int
	output    string
)

var rootCmd = &cobra.Command{
	Use:   "ct-ai-annotate [options] table",
	Short: "Annotate a table column with an AI model",
	Long: `Send every non-empty cell of a column to an AI provider and write the
replies to a new column of the same table. The table may be .csv, .tsv,
.txt or .xlsx, optionally gzipped.

The prompt is the translation or analysis template from ai_prompts in
the configuration, chosen with --task, or a template given with
--prompt. {text} in the template is replaced with the cell value.

Requests run concurrently, bounded by --workers or
ai_services.batch_max_workers. A failed request does not stop the run:
its cell receives "ERROR: " and the error message.

Examples:

  # Translate descriptions with the default provider
  ct-ai-annotate -c description degs.xlsx

  # Functional analysis with a specific provider and model
  ct-ai-annotate --task analyze -c description -n function \
      --provider deepseek --model deepseek-chat -o degs_ai.csv degs.csv

  # Custom prompt
  ct-ai-annotate -c description -n short --prompt "Summarise in five words: {text}" degs.csv`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	flags := rootCmd.Flags()
	flags.StringVarP(&column, "column", "c", "", "column holding the text to send (required)")
	flags.StringVarP(&newColumn, "new-column", "n", "", "column receiving the replies (default: <column>_<task>)")
	flags.StringVarP(&task, "task", "t", taskTranslate, "prompt template from the config (translate, analyze)")
	flags.StringVar(&prompt, "prompt", "", "custom prompt template, overrides --task")
	flags.StringVar(&provider, "provider", "", "AI provider (default: ai_services.default_provider)")
	flags.StringVar(&model, "model", "", "model name (default: the provider's model in the config)")
	flags.IntVarP(&workers, "workers", "w", 0, "concurrent requests (default: ai_services.batch_max_workers)")
	flags.StringVarP(&output, "output", "o", "", "output table (default: <table>_annotated.csv next to the input)")
	rootCmd.MarkFlagRequired("column")
}

func defaultOutput(input string) string {
	base := filepath.Base(input)
	for {
		ext := filepath.Ext(base)
		if ext == "" {
			break
		}
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(filepath.Dir(input), base+"_annotated.csv")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	template := prompt
	if template == "" {
		switch task {
		case taskTranslate:
			template = cfg.AIPrompts.TranslationPrompt
		case taskAnalyze:
			template = cfg.AIPrompts.AnalysisPrompt
		default:
			return fmt.Errorf("unknown task %q (use %s or %s)", task, taskTranslate, taskAnalyze)
		}
	}
	if newColumn == "" {
		newColumn = column + "_" + task
	}
	if workers == 0 {
		workers = cfg.AIServices.BatchMaxWorkers
	}
	if output == "" {
		output = defaultOutput(args[0])
	}

	table, err := tabular.Load(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	settings, err := ai.SettingsFor(cfg, provider)
	if err != nil {
		return err
	}
	if model != "" {
		settings.Model = model
	}
	p, err := ai.New(ctx, settings)
	if err != nil {
		return err
	}

	opts := ai.AnnotateOptions{
		Column:    column,
		NewColumn: newColumn,
		Template:  template,
		Workers:   workers,
		Logger:    logger,
	}
	bar := cli.NewCountBar(nonEmpty(table, column), p.Name()+" ")
	if bar != nil {
		opts.Progress = func(done, total int) { bar.Set(done) }
	}

	stats, err := ai.AnnotateTable(ctx, table, p, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if err := cli.WriteTable(table, output); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Info("annotation complete",
		zap.String("output", output),
		zap.Int("processed", stats.Processed),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped))
	if stats.Failed > 0 && stats.Processed == 0 {
		return fmt.Errorf("all %d requests failed", stats.Failed)
	}
	return nil
}

// nonEmpty counts the rows AnnotateTable will send.
func nonEmpty(t *tabular.Table, name string) int {
	values, err := t.Values(name)
	if err != nil {
		return 0
	}
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
