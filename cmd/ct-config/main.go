// Command ct-config creates, shows and validates the toolkit configuration.
//
// Usage:
//
//	ct-config init [dir]
//	ct-config show
//	ct-config validate
package main

import (
	"fmt"
	"os"

	"github.com/cottongenomics/cotton-toolkit/ai"
	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	globalOpts cli.GlobalOptions
	overwrite  bool
	showKeys   bool
)

var rootCmd = &cobra.Command{
	Use:   "ct-config",
	Short: "Manage the cotton toolkit configuration",
	Long: `Create, display and check the configuration used by every ct-* command.

The configuration is a config.yml file plus the genome sources list it
points to (genome_sources_list.yml by default). Commands look for
config.yml in the working directory unless --config or
COTTON_TOOLKIT_CONFIG names another file.

Examples:

  # Write default config.yml and genome_sources_list.yml to ./project
  ct-config init project

  # Show the effective configuration, including environment overrides
  ct-config show -C project/config.yml

  # Check the configuration and the genome sources list
  ct-config validate -C project/config.yml`,
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write default configuration files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and genome sources list",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	showCmd.Flags().BoolVar(&showKeys, "show-keys", false, "print API keys unmasked")
	rootCmd.AddCommand(initCmd, showCmd, validateCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	configPath, sourcesPath, err := config.GenerateDefaults(dir, overwrite)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", configPath)
	fmt.Printf("Wrote %s\n", sourcesPath)
	fmt.Println("Add genome assemblies to the sources list, then run ct-genomes to check them.")
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(&globalOpts)
	if err != nil {
		return err
	}

	if !showKeys {
		for _, pc := range cfg.AIServices.Providers {
			if pc != nil && pc.APIKey != "" {
				pc.APIKey = ai.MaskKey(pc.APIKey)
			}
		}
	}

	fmt.Printf("# %s\n", cfg.Path())
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(&globalOpts)
	if err != nil {
		return err
	}
	fmt.Printf("Config %s is valid.\n", cfg.Path())

	sources, err := config.LoadGenomeSources(cfg)
	if err != nil {
		return err
	}
	sourcesPath, _ := cfg.SourcesPath()
	fmt.Printf("Genome sources %s lists %d assemblies.\n", sourcesPath, len(sources))

	for _, name := range config.ProviderNames {
		pc := cfg.Provider(name)
		configured := ""
		if pc != nil {
			configured = pc.APIKey
		}
		if _, from, err := ai.ResolveKey(ai.DefaultSources(name, configured)); err == nil {
			fmt.Printf("AI provider %s: key from %s\n", name, from)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
