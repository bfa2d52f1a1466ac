// Package config loads, validates and saves the toolkit configuration.
//
// Two YAML files make up a configuration: the main config (config.yml)
// and the genome sources list it points to (genome_sources_list.yml).
// Relative paths inside the main config are resolved against the
// directory of the file they were loaded from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the main config file name.
	DefaultConfigFile = "config.yml"

	// DefaultSourcesFile is the genome sources list file name.
	DefaultSourcesFile = "genome_sources_list.yml"

	// CurrentVersion is written to config_version by Default.
	CurrentVersion = 1
)

var (
	// ErrExists is returned by GenerateDefaults when it would overwrite files.
	ErrExists = errors.New("config file already exists")

	// ErrInvalid wraps every validation failure returned by Validate.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the main toolkit configuration.
type Config struct {
	ConfigVersion int        `yaml:"config_version"`
	Language      string     `yaml:"i18n_language"`
	LogLevel      string     `yaml:"log_level"`
	Proxies       Proxies    `yaml:"proxies"`
	Downloader    Downloader `yaml:"downloader"`
	Annotation    Annotation `yaml:"annotation"`
	AIServices    AIServices `yaml:"ai_services"`
	AIPrompts     AIPrompts  `yaml:"ai_prompts"`

	// path is the absolute path the config was loaded from or saved to.
	path string
}

// Proxies holds the HTTP proxy endpoints.
type Proxies struct {
	HTTP  string `yaml:"http,omitempty"`
	HTTPS string `yaml:"https,omitempty"`
}

// Downloader configures reference file downloads.
type Downloader struct {
	GenomeSourcesFile     string `yaml:"genome_sources_file"`
	DownloadOutputBaseDir string `yaml:"download_output_base_dir"`
	ForceDownload         bool   `yaml:"force_download"`
	MaxWorkers            int    `yaml:"max_workers"`
	UseProxyForDownload   bool   `yaml:"use_proxy_for_download"`
}

// Annotation configures where derived per-genome data is kept.
type Annotation struct {
	// GFFDBStorageDir holds the per-assembly feature databases.
	GFFDBStorageDir string `yaml:"gff_db_storage_dir"`

	// TempDir holds standardized copies of user input tables.
	TempDir string `yaml:"temp_dir"`
}

// AIServices configures the AI providers.
type AIServices struct {
	DefaultProvider string                     `yaml:"default_provider"`
	UseProxyForAI   bool                       `yaml:"use_proxy_for_ai"`
	BatchMaxWorkers int                        `yaml:"batch_max_workers"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds the settings of one AI provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// AIPrompts holds prompt templates. {text} is replaced with the input.
type AIPrompts struct {
	TranslationPrompt string `yaml:"translation_prompt"`
	AnalysisPrompt    string `yaml:"analysis_prompt"`
}

// LogLevels lists the accepted log_level values.
var LogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR"}

// ProviderNames lists the known AI provider keys in display order.
var ProviderNames = []string{"google", "openai", "deepseek", "qwen", "siliconflow", "grok", "openrouter"}

// defaultModels maps provider keys to the model used when none is set.
var defaultModels = map[string]string{
	"google":      "gemini-2.5-flash",
	"openai":      "gpt-4o-mini",
	"deepseek":    "deepseek-chat",
	"qwen":        "qwen-turbo",
	"siliconflow": "Qwen/Qwen2.5-7B-Instruct",
	"grok":        "grok-3-mini",
	"openrouter":  "openrouter/auto",
}

// Default returns a configuration populated with default values.
func Default() *Config {
	providers := make(map[string]*ProviderConfig, len(ProviderNames))
	for _, name := range ProviderNames {
		providers[name] = &ProviderConfig{Model: defaultModels[name]}
	}

	return &Config{
		ConfigVersion: CurrentVersion,
		Language:      "zh-hans",
		LogLevel:      "INFO",
		Downloader: Downloader{
			GenomeSourcesFile:     DefaultSourcesFile,
			DownloadOutputBaseDir: "genomes",
			MaxWorkers:            3,
		},
		Annotation: Annotation{
			GFFDBStorageDir: filepath.Join("genomes", "gff_databases"),
			TempDir:         filepath.Join("genomes", "standardized"),
		},
		AIServices: AIServices{
			DefaultProvider: "google",
			BatchMaxWorkers: 4,
			Providers:       providers,
		},
		AIPrompts: AIPrompts{
			TranslationPrompt: "Translate the following gene annotation into Chinese. Reply with the translation only:\n\n{text}",
			AnalysisPrompt:    "Summarize the likely biological function of the gene described below in one sentence:\n\n{text}",
		},
	}
}

// Path returns the absolute path of the file the config was loaded from.
// It is empty for a config that was never loaded or saved.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory relative paths are resolved against.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Resolve returns p unchanged if it is absolute, otherwise joined to Dir.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Provider returns the named provider config, or nil when unknown.
func (c *Config) Provider(name string) *ProviderConfig {
	if c.AIServices.Providers == nil {
		return nil
	}
	return c.AIServices.Providers[name]
}

// Validate checks the config and reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Downloader.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("downloader.max_workers must be at least 1, got %d", c.Downloader.MaxWorkers))
	}
	if c.AIServices.BatchMaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("ai_services.batch_max_workers must be at least 1, got %d", c.AIServices.BatchMaxWorkers))
	}
	if !containsFold(LogLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q is not one of %s", c.LogLevel, strings.Join(LogLevels, ", ")))
	}
	if !containsFold(ProviderNames, c.AIServices.DefaultProvider) {
		errs = append(errs, fmt.Errorf("ai_services.default_provider %q is not one of %s",
			c.AIServices.DefaultProvider, strings.Join(ProviderNames, ", ")))
	}
	for name := range c.AIServices.Providers {
		if !containsFold(ProviderNames, name) {
			errs = append(errs, fmt.Errorf("ai_services.providers: unknown provider %q", name))
		}
	}
	if c.Downloader.DownloadOutputBaseDir == "" {
		errs = append(errs, errors.New("downloader.download_output_base_dir must be set"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Load reads the main config from path, applying defaults for any
// setting the file leaves out, and validates the result.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", absPath, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", absPath, err)
	}
	cfg.path = absPath
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	cfg.fillProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", absPath, err)
	}
	return cfg, nil
}

// fillProviderDefaults restores the default model of every known
// provider the file lists without one. yaml.v3 replaces map entries
// wholesale, so values set by Default are lost for listed providers.
func (c *Config) fillProviderDefaults() {
	if c.AIServices.Providers == nil {
		c.AIServices.Providers = make(map[string]*ProviderConfig, len(ProviderNames))
	}
	for _, name := range ProviderNames {
		pc := c.AIServices.Providers[name]
		if pc == nil {
			pc = &ProviderConfig{}
			c.AIServices.Providers[name] = pc
		}
		if strings.TrimSpace(pc.Model) == "" {
			pc.Model = defaultModels[name]
		}
	}
}

// DefaultModel returns the model used for provider when none is set.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Save writes cfg to path as YAML and records path as the config location.
func Save(cfg *Config, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	if err := writeYAML(absPath, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cfg.path = absPath
	return nil
}

// GenerateDefaults writes a default config.yml and an empty genome
// sources list into dir. Existing files are only replaced when
// overwrite is set.
func GenerateDefaults(dir string, overwrite bool) (configPath, sourcesPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating %s: %w", dir, err)
	}

	configPath = filepath.Join(dir, DefaultConfigFile)
	sourcesPath = filepath.Join(dir, DefaultSourcesFile)

	if !overwrite {
		for _, p := range []string{configPath, sourcesPath} {
			if _, err := os.Stat(p); err == nil {
				return "", "", fmt.Errorf("%w: %s", ErrExists, p)
			}
		}
	}

	cfg := Default()
	if err := Save(cfg, configPath); err != nil {
		return "", "", err
	}
	if err := writeYAML(sourcesPath, &sourcesFile{GenomeSources: map[string]*GenomeSource{}}); err != nil {
		return "", "", fmt.Errorf("saving genome sources: %w", err)
	}

	return configPath, sourcesPath, nil
}

func writeYAML(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
