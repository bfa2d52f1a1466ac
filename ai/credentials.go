// Package ai talks to large language model providers to translate and
// annotate gene descriptions in bulk.
//
// API keys are resolved through a chain of sources, first non-empty wins:
//  1. The api_key set for the provider in the configuration
//  2. Environment variable COTTON_TOOLKIT_<PROVIDER>_API_KEY
//  3. The provider's customary variable, such as GEMINI_API_KEY
//  4. Key file ~/.cotton_toolkit/<provider>.key
package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoAPIKey is returned when no source provides a key for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// KeySource represents a source that can provide an API key.
type KeySource interface {
	// Key returns the key from this source, or empty string if not available.
	Key() (string, error)

	// Name returns a human-readable name for this source.
	Name() string
}

type staticSource struct {
	key  string
	name string
}

// StaticSource creates a KeySource returning key, described by name.
func StaticSource(key, name string) KeySource {
	return &staticSource{key: key, name: name}
}

func (s *staticSource) Key() (string, error) {
	return strings.TrimSpace(s.key), nil
}

func (s *staticSource) Name() string {
	return s.name
}

// envSource reads a key from an environment variable.
type envSource struct {
	varName string
}

// EnvSource creates a KeySource that reads from the specified environment variable.
func EnvSource(varName string) KeySource {
	return &envSource{varName: varName}
}

func (s *envSource) Key() (string, error) {
	return strings.TrimSpace(os.Getenv(s.varName)), nil
}

func (s *envSource) Name() string {
	return fmt.Sprintf("environment variable %s", s.varName)
}

// fileSource reads a key from a file.
type fileSource struct {
	path string
}

// FileSource creates a KeySource that reads from the specified file path.
func FileSource(path string) KeySource {
	return &fileSource{path: path}
}

func (s *fileSource) Key() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *fileSource) Name() string {
	return fmt.Sprintf("file %s", s.path)
}

// providerEnv maps provider keys to the environment variable their own
// SDKs and tools read.
var providerEnv = map[string]string{
	"google":      "GEMINI_API_KEY",
	"openai":      "OPENAI_API_KEY",
	"deepseek":    "DEEPSEEK_API_KEY",
	"qwen":        "DASHSCOPE_API_KEY",
	"siliconflow": "SILICONFLOW_API_KEY",
	"grok":        "XAI_API_KEY",
	"openrouter":  "OPENROUTER_API_KEY",
}

// getHomeDir returns the user's home directory, handling Windows compatibility.
func getHomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if profile := os.Getenv("USERPROFILE"); profile != "" {
		return profile
	}
	if drive := os.Getenv("HOMEDRIVE"); drive != "" {
		if path := os.Getenv("HOMEPATH"); path != "" {
			return filepath.Join(drive, path)
		}
	}
	return ""
}

// KeyDir returns the directory holding saved API keys.
func KeyDir() string {
	home := getHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".cotton_toolkit")
}

// DefaultKeyPath returns the key file path for a provider.
func DefaultKeyPath(provider string) string {
	dir := KeyDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, provider+".key")
}

// EnvVarName returns COTTON_TOOLKIT_<PROVIDER>_API_KEY for a provider.
func EnvVarName(provider string) string {
	return "COTTON_TOOLKIT_" + strings.ToUpper(provider) + "_API_KEY"
}

// DefaultSources returns the key source chain for a provider. configKey
// is the api_key from the configuration and may be empty.
func DefaultSources(provider, configKey string) []KeySource {
	sources := []KeySource{
		StaticSource(configKey, "config file"),
		EnvSource(EnvVarName(provider)),
	}
	if v, ok := providerEnv[provider]; ok {
		sources = append(sources, EnvSource(v))
	}
	if path := DefaultKeyPath(provider); path != "" {
		sources = append(sources, FileSource(path))
	}
	return sources
}

// ResolveKey returns the first key found in sources and the name of the
// source that provided it.
func ResolveKey(sources []KeySource) (key, from string, err error) {
	for _, source := range sources {
		k, err := source.Key()
		if err != nil {
			return "", "", fmt.Errorf("error reading from %s: %w", source.Name(), err)
		}
		if k != "" {
			return k, source.Name(), nil
		}
	}
	return "", "", ErrNoAPIKey
}

// SaveKey writes key to the provider's key file with mode 0600.
func SaveKey(provider, key string) error {
	path := DefaultKeyPath(provider)
	if path == "" {
		return fmt.Errorf("cannot determine home directory")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// DeleteKey removes the provider's key file if it exists.
func DeleteKey(provider string) error {
	path := DefaultKeyPath(provider)
	if path == "" {
		return fmt.Errorf("cannot determine home directory")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting key file: %w", err)
	}
	return nil
}

// KeyFileExists reports whether a key file exists for the provider.
func KeyFileExists(provider string) bool {
	path := DefaultKeyPath(provider)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// MaskKey shows the first and last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
