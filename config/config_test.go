package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Downloader.MaxWorkers)
	assert.Equal(t, "google", cfg.AIServices.DefaultProvider)
	for _, name := range ProviderNames {
		assert.NotNil(t, cfg.Provider(name), name)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	writeFile(t, path, `
log_level: debug
downloader:
  download_output_base_dir: data
  max_workers: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Downloader.MaxWorkers)
	assert.Equal(t, 4, cfg.AIServices.BatchMaxWorkers)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Resolve(cfg.Downloader.DownloadOutputBaseDir))
}

func TestLoad_ProviderWithOnlyKeyKeepsDefaultModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, `
ai_services:
  providers:
    google:
      api_key: abc
    deepseek:
      model: deepseek-reasoner
    qwen:
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Provider("google").APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Provider("google").Model)
	assert.Equal(t, "deepseek-reasoner", cfg.Provider("deepseek").Model)
	require.NotNil(t, cfg.Provider("qwen"))
	assert.Equal(t, DefaultModel("qwen"), cfg.Provider("qwen").Model)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider("openai").Model)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yml"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yml")
		writeFile(t, path, "downloader: [unclosed")
		_, err := Load(path)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalid))
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yml")
		writeFile(t, path, `
log_level: LOUD
downloader:
  max_workers: 0
ai_services:
  default_provider: nobody
`)
		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "max_workers")
		assert.Contains(t, err.Error(), "log_level")
		assert.Contains(t, err.Error(), "default_provider")
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := Default()
	cfg.Downloader.ForceDownload = true
	cfg.Provider("openai").APIKey = "sk-test"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Downloader.ForceDownload)
	assert.Equal(t, "sk-test", loaded.Provider("openai").APIKey)
}

func TestGenerateDefaults(t *testing.T) {
	dir := t.TempDir()

	configPath, sourcesPath, err := GenerateDefaults(dir, false)
	require.NoError(t, err)
	assert.FileExists(t, configPath)
	assert.FileExists(t, sourcesPath)

	_, _, err = GenerateDefaults(dir, false)
	assert.ErrorIs(t, err, ErrExists)

	_, _, err = GenerateDefaults(dir, true)
	assert.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	sources, err := LoadGenomeSources(cfg)
	require.NoError(t, err)
	assert.Empty(t, sources)
}
