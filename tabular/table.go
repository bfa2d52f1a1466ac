// Package tabular loads and saves the spreadsheet-like files users feed
// the toolkit: CSV, TSV, plain text tables and Excel workbooks,
// optionally gzip-compressed.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shenwei356/xopen"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned for file extensions Load or Save
// cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

const utf8BOM = "\ufeff"

// Table is a header row plus data rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Values returns the cells of the named column.
func (t *Table) Values(name string) ([]string, error) {
	idx := t.Column(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found (columns: %s)", name, strings.Join(t.Header, ", "))
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// SetColumn sets the named column to values, appending the column when
// it does not exist yet.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	idx := t.Column(name)
	if idx < 0 {
		t.Header = append(t.Header, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// baseExt returns the lower-cased extension of path ignoring a trailing .gz.
func baseExt(path string) string {
	p := strings.ToLower(path)
	p = strings.TrimSuffix(p, ".gz")
	return filepath.Ext(p)
}

// Load reads a table from path. Gzip compression is detected by the .gz
// suffix. Excel workbooks (.xlsx, .xls) are read from their first sheet.
// Text tables (.csv, .tsv, .txt) are decoded as UTF-8, falling back to
// Latin-1, and split on tabs when the first line contains one, on commas
// otherwise.
func Load(path string) (*Table, error) {
	ext := baseExt(path)
	switch ext {
	case ".xlsx", ".xls", ".csv", ".tsv", ".txt":
	default:
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, ext, filepath.Base(path))
	}

	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var rows [][]string
	if ext == ".xlsx" || ext == ".xls" {
		rows, err = readExcel(data)
	} else {
		rows, err = readText(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return fromRows(rows), nil
}

func readExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// decodeText returns data as UTF-8 text with any byte order mark removed.
func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decoding Latin-1: %w", err)
		}
		data = decoded
	}
	return strings.TrimPrefix(string(data), utf8BOM), nil
}

// Delimiter returns the field separator for a text table whose first
// line is firstLine.
func Delimiter(firstLine string) rune {
	if strings.ContainsRune(firstLine, '\t') {
		return '\t'
	}
	return ','
}

func readText(data []byte) ([][]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	firstLine, _, _ := strings.Cut(text, "\n")

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = Delimiter(firstLine)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// fromRows builds a Table from raw rows, padding or widening rows so
// every row has as many cells as the widest one.
func fromRows(rows [][]string) *Table {
	t := &Table{}
	if len(rows) == 0 {
		return t
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	t.Header = pad(rows[0], width)
	for i, h := range t.Header {
		t.Header[i] = strings.TrimSpace(h)
		if t.Header[i] == "" {
			t.Header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, pad(row, width))
	}
	return t
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Save writes t to path, choosing the format from the extension. A .csv
// file is UTF-8 with a byte order mark, .tsv is plain UTF-8 and .xlsx is
// an Excel workbook. Parent directories are created as needed.
func Save(t *Table, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".tsv", ".xlsx":
	default:
		return fmt.Errorf("%w: %q (use .csv, .tsv or .xlsx)", ErrUnsupportedFormat, ext)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if ext == ".xlsx" {
		return saveExcel(t, path)
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	delim := ','
	if ext == ".csv" {
		if _, err := io.WriteString(fh, utf8BOM); err != nil {
			fh.Close()
			return err
		}
	} else {
		delim = '\t'
	}
	if err := WriteDelimited(fh, t, delim); err != nil {
		fh.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return fh.Close()
}

// WriteDelimited writes t as delimited text without a byte order mark.
func WriteDelimited(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func saveExcel(t *Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	write := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]any, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := write(1, t.Header); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
