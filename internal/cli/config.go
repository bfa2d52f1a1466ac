package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "COTTON_TOOLKIT"

// envOverrides are the config keys that can be set from the environment,
// e.g. COTTON_TOOLKIT_DOWNLOADER_MAX_WORKERS=8.
var envOverrides = []string{
	"log_level",
	"proxies.http",
	"proxies.https",
	"downloader.max_workers",
	"downloader.force_download",
	"downloader.use_proxy_for_download",
	"ai_services.default_provider",
	"ai_services.use_proxy_for_ai",
	"ai_services.batch_max_workers",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ConfigPath returns the config file a command should read: the --config
// flag, then $COTTON_TOOLKIT_CONFIG, then config.yml in the working
// directory.
func ConfigPath(opts *GlobalOptions) string {
	if opts != nil && opts.ConfigPath != "" {
		return opts.ConfigPath
	}
	if p := newViper().GetString("config"); p != "" {
		return p
	}
	return config.DefaultConfigFile
}

// LoadConfig loads the configuration selected by opts and applies
// environment overrides and the --log-level flag on top of it.
func LoadConfig(opts *GlobalOptions) (*config.Config, error) {
	path := ConfigPath(opts)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s not found (create one with ct-config init)", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(newViper(), cfg); err != nil {
		return nil, err
	}
	if opts != nil && opts.LogLevel != "" {
		cfg.LogLevel = strings.ToUpper(opts.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(v *viper.Viper, cfg *config.Config) error {
	for _, key := range envOverrides {
		if !v.IsSet(key) {
			continue
		}
		switch key {
		case "log_level":
			cfg.LogLevel = strings.ToUpper(v.GetString(key))
		case "proxies.http":
			cfg.Proxies.HTTP = v.GetString(key)
		case "proxies.https":
			cfg.Proxies.HTTPS = v.GetString(key)
		case "downloader.max_workers":
			n, err := intValue(v, key)
			if err != nil {
				return err
			}
			cfg.Downloader.MaxWorkers = n
		case "downloader.force_download":
			cfg.Downloader.ForceDownload = v.GetBool(key)
		case "downloader.use_proxy_for_download":
			cfg.Downloader.UseProxyForDownload = v.GetBool(key)
		case "ai_services.default_provider":
			cfg.AIServices.DefaultProvider = strings.ToLower(v.GetString(key))
		case "ai_services.use_proxy_for_ai":
			cfg.AIServices.UseProxyForAI = v.GetBool(key)
		case "ai_services.batch_max_workers":
			n, err := intValue(v, key)
			if err != nil {
				return err
			}
			cfg.AIServices.BatchMaxWorkers = n
		}
	}
	return nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n := v.GetInt(key)
	if n == 0 && strings.TrimSpace(raw) != "0" {
		return 0, fmt.Errorf("%s_%s: %q is not an integer",
			EnvPrefix, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), raw)
	}
	return n, nil
}

// Setup loads the configuration and creates the logger every command
// starts with.
func Setup(opts *GlobalOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	logger, err := NewLogger(cfg.LogLevel, opts != nil && opts.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("loaded config", zap.String("path", cfg.Path()))
	return cfg, logger, nil
}
