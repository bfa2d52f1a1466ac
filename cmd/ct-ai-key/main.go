// Command ct-ai-key stores, removes and reports AI provider API keys.
//
// Usage:
//
//	ct-ai-key set provider
//	ct-ai-key delete provider
//	ct-ai-key status [provider ...]
//
// Keys are saved to ~/.cotton_toolkit/<provider>.key with mode 0600 so
// they need not be written into config.yml.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/ai"
	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	globalOpts cli.GlobalOptions
	showKey    bool
)

var rootCmd = &cobra.Command{
	Use:   "ct-ai-key",
	Short: "Manage AI provider API keys",
	Long: `Save, delete and inspect the API keys used by ct-ai-annotate and
ct-ai-models.

A key is looked up in this order, the first found wins:
  1. api_key of the provider in config.yml
  2. environment variable COTTON_TOOLKIT_<PROVIDER>_API_KEY
  3. the provider's usual variable, such as GEMINI_API_KEY
  4. the key file written by "ct-ai-key set"

Providers: ` + strings.Join(config.ProviderNames, ", ") + `

Examples:

  # Save a key, entered without echo
  ct-ai-key set deepseek

  # Save a key from a script
  echo "$KEY" | ct-ai-key set google

  # Show where each provider's key comes from
  ct-ai-key status`,
	SilenceUsage: true,
}

var setCmd = &cobra.Command{
	Use:   "set provider",
	Short: "Save a provider's API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runSet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete provider",
	Short: "Delete a provider's saved API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var statusCmd = &cobra.Command{
	Use:   "status [provider ...]",
	Short: "Show which source provides each key",
	RunE:  runStatus,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	statusCmd.Flags().BoolVar(&showKey, "show-key", false, "print keys unmasked")
	rootCmd.AddCommand(setCmd, deleteCmd, statusCmd)
}

func checkProvider(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range config.ProviderNames {
		if p == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q (known: %s)", ai.ErrUnknownProvider, name, strings.Join(config.ProviderNames, ", "))
}

// readKey prompts for a key with masked input.
func readKey(provider string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "API key for %s: ", provider)
		key, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return strings.TrimSpace(string(key)), nil
	}

	// Not a terminal, read from stdin directly (for scripting)
	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil && key == "" {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return strings.TrimSpace(key), nil
}

func runSet(cmd *cobra.Command, args []string) error {
	provider, err := checkProvider(args[0])
	if err != nil {
		return err
	}
	key, err := readKey(provider)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("API key required")
	}
	if err := ai.SaveKey(provider, key); err != nil {
		return err
	}
	fmt.Printf("Saved %s key %s to %s\n", provider, ai.MaskKey(key), ai.DefaultKeyPath(provider))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	provider, err := checkProvider(args[0])
	if err != nil {
		return err
	}
	if !ai.KeyFileExists(provider) {
		fmt.Printf("No saved key for %s.\n", provider)
		return nil
	}
	if err := ai.DeleteKey(provider); err != nil {
		return err
	}
	fmt.Printf("Deleted saved key for %s.\n", provider)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	providers := config.ProviderNames
	if len(args) > 0 {
		providers = nil
		for _, a := range args {
			p, err := checkProvider(a)
			if err != nil {
				return err
			}
			providers = append(providers, p)
		}
	}

	// A missing config.yml only hides the config file source.
	cfg, err := cli.LoadConfig(&globalOpts)
	if err != nil {
		cfg = config.Default()
	}

	writer := cli.NewTabWriter(os.Stdout)
	defer writer.Flush()
	writer.WriteHeaders([]string{"provider", "key", "source"})
	for _, name := range providers {
		configured := ""
		if pc := cfg.Provider(name); pc != nil {
			configured = pc.APIKey
		}
		key, from, err := ai.ResolveKey(ai.DefaultSources(name, configured))
		switch {
		case err != nil:
			writer.WriteRow(name, "", err.Error())
		case showKey:
			writer.WriteRow(name, key, from)
		default:
			writer.WriteRow(name, ai.MaskKey(key), from)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
