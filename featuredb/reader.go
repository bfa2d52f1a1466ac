package featuredb

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/shenwei356/xopen"
	"go.uber.org/zap"
)

// GeneType is the only GFF3 feature type stored in a feature database.
const GeneType = "gene"

const maxLineSize = 16 << 20

// ReadGenes streams the gene records of a GFF3 file to fn in file
// order. Plain and gzip-compressed files are both accepted. Comment and
// directive lines are skipped, as is every record whose type column is
// not exactly "gene". Gene lines that fail to parse are logged and
// skipped. Returning an error from fn stops the scan.
func ReadGenes(path string, logger *zap.Logger, fn func(*Feature) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	fh, err := xopen.Ropen(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	logger.Debug("opened GFF file for parsing",
		zap.String("path", path),
		zap.Bool("gzipped", strings.HasSuffix(strings.ToLower(path), ".gz")))

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}

		cols := strings.SplitN(strings.TrimSpace(line), "\t", 4)
		if len(cols) < 3 || cols[2] != GeneType {
			continue
		}

		feature, err := ParseLine(line)
		if err != nil {
			logger.Warn("skipping malformed GFF line",
				zap.Int("line", lineNo),
				zap.String("text", strings.TrimSpace(line)),
				zap.Error(err))
			continue
		}

		if err := fn(feature); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// NormalizeID trims id and, when pattern is non-empty, returns the first
// capture group of its first match. The trimmed id is returned unchanged
// when the pattern does not match or has no capture group.
func NormalizeID(id string, pattern *regexp.Regexp) string {
	id = strings.TrimSpace(id)
	if pattern == nil {
		return id
	}
	m := pattern.FindStringSubmatch(id)
	if len(m) < 2 || m[1] == "" {
		return id
	}
	return m[1]
}

// CompileIDPattern compiles a gene ID normalization pattern. An empty
// pattern yields a nil regexp, which NormalizeID treats as "no change".
func CompileIDPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid gene ID pattern %q: %w", pattern, err)
	}
	return re, nil
}
