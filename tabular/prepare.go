package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// StandardizedPath returns the cache path PrepareInput uses for src:
// <tempDir>/<name>_standardized.csv, where name is the base name without
// its table and compression extensions. Inner dots are kept, so
// X.GO.txt.gz and X.KEGG.txt.gz get separate caches.
func StandardizedPath(src, tempDir string) string {
	base := filepath.Base(src)
	if strings.EqualFold(filepath.Ext(base), ".gz") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xlsx", ".xls", ".csv", ".tsv", ".txt":
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(tempDir, base+"_standardized.csv")
}

// PrepareInput converts src to a standardized CSV in tempDir and returns
// its path. A cached copy at least as new as src is reused.
func PrepareInput(src, tempDir string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("input file: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}

	cached := StandardizedPath(src, tempDir)
	if info, err := os.Stat(cached); err == nil {
		if !info.ModTime().Before(srcInfo.ModTime()) {
			logger.Info("using cached standardized file", zap.String("path", filepath.Base(cached)))
			return cached, nil
		}
	} else if !os.IsNotExist(err) {
		logger.Warn("could not check cache timestamp", zap.Error(err))
	}

	logger.Info("standardizing input file", zap.String("file", filepath.Base(src)))
	if err := Convert(src, cached); err != nil {
		return "", err
	}
	logger.Info("standardized file cached", zap.String("path", filepath.Base(cached)))
	return cached, nil
}

// Convert loads in and saves it to out, converting between formats.
func Convert(in, out string) error {
	t, err := Load(in)
	if err != nil {
		return err
	}
	return Save(t, out)
}
