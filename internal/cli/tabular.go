package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"github.com/shenwei356/xopen"
)

// TabReader reads gene lists and other tab-delimited text. Blank lines
// and lines starting with "#" are skipped.
type TabReader struct {
	scanner    *bufio.Scanner
	headers    []string
	hasHeader  bool
	headerRead bool
}

// NewTabReader returns a reader over r. With hasHeader set the first
// line is taken as column names.
func NewTabReader(r io.Reader, hasHeader bool) *TabReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &TabReader{scanner: sc, hasHeader: hasHeader}
}

// Headers returns the column names, or nil without a header line.
// A leading byte order mark is dropped.
func (t *TabReader) Headers() ([]string, error) {
	if t.headerRead {
		return t.headers, nil
	}
	t.headerRead = true
	if !t.hasHeader {
		return nil, nil
	}

	line, err := t.next()
	if err != nil {
		return nil, err
	}
	t.headers = splitTab(strings.TrimPrefix(line, "\ufeff"))
	return t.headers, nil
}

// Read returns the cells of the next data line, or io.EOF.
func (t *TabReader) Read() ([]string, error) {
	if _, err := t.Headers(); err != nil {
		return nil, err
	}
	line, err := t.next()
	if err != nil {
		return nil, err
	}
	return splitTab(line), nil
}

// FindColumn resolves col to a 0-based index. "0" or "" selects the last
// column (-1), digits are a 1-based position and anything else is a
// header name, matched case-insensitively.
func (t *TabReader) FindColumn(col string) (int, error) {
	if col == "" || col == "0" {
		return -1, nil
	}
	if n, err := strconv.Atoi(col); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid column index: %d", n)
		}
		return n - 1, nil
	}
	for i, h := range t.headers {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q not found (have %s)", col, strings.Join(t.headers, ", "))
}

// ReadKeys reads every row and returns the trimmed, non-empty values of
// the key column selected by opts.
func (t *TabReader) ReadKeys(opts ColOptions) ([]string, error) {
	if _, err := t.Headers(); err != nil && err != io.EOF {
		return nil, err
	}
	keyCol, err := t.FindColumn(opts.Col)
	if err != nil {
		return nil, err
	}

	var keys []string
	for {
		row, err := t.Read()
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}

		idx := keyCol
		if idx < 0 {
			idx = len(row) - 1
		}
		if idx >= len(row) {
			continue
		}
		if key := strings.TrimSpace(row[idx]); key != "" {
			keys = append(keys, key)
		}
	}
}

// next returns the next line that is neither blank nor a comment.
func (t *TabReader) next() (string, error) {
	for t.scanner.Scan() {
		line := strings.TrimRight(t.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	if err := t.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func splitTab(line string) []string {
	return strings.Split(line, "\t")
}

// TabWriter writes tab-delimited output.
type TabWriter struct {
	writer    *bufio.Writer
	delimiter string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		writer:    bufio.NewWriter(w),
		delimiter: "\t",
	}
}

// WriteHeaders writes the header row.
func (t *TabWriter) WriteHeaders(headers []string) error {
	return t.WriteRow(headers...)
}

// WriteRow writes a single row. Tabs and newlines inside fields are
// replaced with spaces so every record stays on one line.
func (t *TabWriter) WriteRow(fields ...string) error {
	clean := make([]string, len(fields))
	for i, f := range fields {
		clean[i] = strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(f)
	}
	_, err := t.writer.WriteString(strings.Join(clean, t.delimiter) + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (t *TabWriter) Flush() error {
	return t.writer.Flush()
}

// OpenInput opens path for reading, decompressing gzip, bzip2, xz or
// zstd input. An empty path or "-" reads stdin.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" {
		path = "-"
	}
	return xopen.Ropen(path)
}

// OpenOutput opens the output file, or returns stdout if path is empty.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// nopWriteCloser wraps a writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// IsTableFile reports whether path names a file tabular.Save can write.
func IsTableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".xlsx":
		return true
	}
	return false
}

// WriteTable writes t to path. Table files (.csv, .tsv, .xlsx) go
// through tabular.Save; anything else, including stdout, is written
// tab-delimited.
func WriteTable(t *tabular.Table, path string) error {
	if IsTableFile(path) {
		return tabular.Save(t, path)
	}

	out, err := OpenOutput(path)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer out.Close()

	w := NewTabWriter(out)
	if err := w.WriteHeaders(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.WriteRow(row...); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return out.Close()
}

// FormatValue formats a value for output, handling multi-valued fields.
func FormatValue(v any, delim string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case []string:
		return strings.Join(val, delim)
	default:
		return fmt.Sprint(v)
	}
}

// FeatureValue returns the value of a query field or GFF attribute tag
// of f. Unknown tags yield nil.
func FeatureValue(f *featuredb.Feature, field string) any {
	switch field {
	case "id", "gene_id":
		return f.ID
	case "seqid", "chrom":
		return f.SeqID
	case "source":
		return f.Source
	case "featuretype":
		return f.Type
	case "start":
		return f.Start
	case "end":
		return f.End
	case "score":
		return f.Score
	case "strand":
		return f.Strand
	case "phase":
		return f.Phase
	case "length":
		return f.Len()
	}
	if v, ok := f.Attributes[field]; ok {
		return v
	}
	return nil
}

// FormatFeature formats the requested fields of f as a row.
func FormatFeature(f *featuredb.Feature, fields []string, delim string) []string {
	row := make([]string, len(fields))
	for i, field := range fields {
		row[i] = FormatValue(FeatureValue(f, field), delim)
	}
	return row
}

// FeaturesTable tabulates the requested fields of features.
func FeaturesTable(features []*featuredb.Feature, fields []string, delim string) *tabular.Table {
	t := &tabular.Table{Header: append([]string(nil), fields...)}
	for _, f := range features {
		t.Rows = append(t.Rows, FormatFeature(f, fields, delim))
	}
	return t
}
