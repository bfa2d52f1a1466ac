package cli

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/cottongenomics/cotton-toolkit/tabular"
)

func TestTabReader_Headers(t *testing.T) {
	input := "col1\tcol2\tcol3\nval1\tval2\tval3"
	reader := NewTabReader(strings.NewReader(input), true)

	headers, err := reader.Headers()
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}

	if len(headers) != 3 {
		t.Errorf("len(headers) = %d, want 3", len(headers))
	}

	expected := []string{"col1", "col2", "col3"}
	for i, h := range headers {
		if h != expected[i] {
			t.Errorf("headers[%d] = %q, want %q", i, h, expected[i])
		}
	}
}

func TestTabReader_NoHeaders(t *testing.T) {
	input := "val1\tval2\tval3"
	reader := NewTabReader(strings.NewReader(input), false)

	headers, err := reader.Headers()
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}

	if headers != nil {
		t.Errorf("headers should be nil for no-header mode")
	}
}

func TestTabReader_Read(t *testing.T) {
	input := "col1\tcol2\nval1\tval2\nval3\tval4"
	reader := NewTabReader(strings.NewReader(input), true)

	// Read headers first
	_, err := reader.Headers()
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}

	// Read first data row
	row, err := reader.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(row) != 2 || row[0] != "val1" || row[1] != "val2" {
		t.Errorf("row = %v, want [val1 val2]", row)
	}

	// Read second data row
	row, err = reader.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(row) != 2 || row[0] != "val3" || row[1] != "val4" {
		t.Errorf("row = %v, want [val3 val4]", row)
	}

	// Read past end
	_, err = reader.Read()
	if err != io.EOF {
		t.Errorf("Read() at EOF should return io.EOF, got %v", err)
	}
}

func TestTabReader_ReadKeys(t *testing.T) {
	input := "\ufeffgene\tnote\nGhir_A01G000010\tx\n\n  Ghir_A01G000020 \ty\n\tz\nGhir_A01G000030"
	reader := NewTabReader(strings.NewReader(input), true)

	keys, err := reader.ReadKeys(ColOptions{Col: "gene"})
	if err != nil {
		t.Fatalf("ReadKeys() error = %v", err)
	}

	expected := []string{"Ghir_A01G000010", "Ghir_A01G000020", "Ghir_A01G000030"}
	if len(keys) != len(expected) {
		t.Fatalf("keys = %v, want %v", keys, expected)
	}
	for i, k := range keys {
		if k != expected[i] {
			t.Errorf("keys[%d] = %q, want %q", i, k, expected[i])
		}
	}
}

func TestTabReader_ReadKeysLastColumn(t *testing.T) {
	reader := NewTabReader(strings.NewReader("a\tg1\nb\tg2\n"), false)

	keys, err := reader.ReadKeys(ColOptions{Col: "0", NoHead: true})
	if err != nil {
		t.Fatalf("ReadKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "g1" || keys[1] != "g2" {
		t.Errorf("keys = %v, want [g1 g2]", keys)
	}

	reader = NewTabReader(strings.NewReader("id\n"), true)
	if _, err := reader.ReadKeys(ColOptions{Col: "gene"}); err == nil {
		t.Error("ReadKeys() with unknown column should fail")
	}
}

func TestTabReader_SkipsComments(t *testing.T) {
	input := "# exported from DESeq2\r\nGeneID\tlog2FC\r\n# up-regulated\r\nGhir_A01G000010\t2.1\r\n"
	reader := NewTabReader(strings.NewReader(input), true)

	keys, err := reader.ReadKeys(ColOptions{Col: "geneid"})
	if err != nil {
		t.Fatalf("ReadKeys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "Ghir_A01G000010" {
		t.Errorf("keys = %v, want [Ghir_A01G000010]", keys)
	}
}

func TestOpenInput_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	zw.Write([]byte("Ghir_A01G000010\nGhir_D05G000020\n"))
	zw.Close()
	f.Close()

	in, err := OpenInput(path)
	if err != nil {
		t.Fatalf("OpenInput() error = %v", err)
	}
	defer in.Close()

	keys, err := NewTabReader(in, false).ReadKeys(ColOptions{Col: "1", NoHead: true})
	if err != nil {
		t.Fatalf("ReadKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[1] != "Ghir_D05G000020" {
		t.Errorf("keys = %v", keys)
	}
}

func TestTabReader_FindColumn(t *testing.T) {
	input := "id\tname\tvalue"
	reader := NewTabReader(strings.NewReader(input), true)
	_, _ = reader.Headers()

	tests := []struct {
		col     string
		want    int
		wantErr bool
	}{
		{"0", -1, false},     // 0 means last column
		{"", -1, false},      // empty means last column
		{"1", 0, false},      // 1-based -> 0-based
		{"2", 1, false},
		{"3", 2, false},
		{"id", 0, false},     // by name
		{"name", 1, false},
		{"value", 2, false},
		{"unknown", 0, true}, // unknown column
		{"-1", 0, true},      // negative index
	}

	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			got, err := reader.FindColumn(tt.col)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindColumn(%q) error = %v, wantErr %v", tt.col, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("FindColumn(%q) = %d, want %d", tt.col, got, tt.want)
			}
		})
	}
}

func TestTabWriter_WriteRow(t *testing.T) {
	var buf strings.Builder
	writer := NewTabWriter(&buf)

	err := writer.WriteRow("a", "b\tc", "d\r\ne")
	if err != nil {
		t.Fatalf("WriteRow() error = %v", err)
	}

	err = writer.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	expected := "a\tb c\td e\n"
	if buf.String() != expected {
		t.Errorf("output = %q, want %q", buf.String(), expected)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		delim string
		want  string
	}{
		{"nil", nil, ";", ""},
		{"string", "hello", ";", "hello"},
		{"int", 42, ";", "42"},
		{"float", 3.14, ";", "3.14"},
		{"string slice", []string{"a", "b", "c"}, ";", "a;b;c"},
		{"string slice comma", []string{"a", "b", "c"}, ",", "a,b,c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatValue(tt.value, tt.delim)
			if got != tt.want {
				t.Errorf("FormatValue(%v, %q) = %q, want %q", tt.value, tt.delim, got, tt.want)
			}
		})
	}
}

func TestFormatFeature(t *testing.T) {
	f := &featuredb.Feature{
		ID:     "Ghir_A01G000010",
		SeqID:  "A01",
		Source: "JGI",
		Type:   "gene",
		Start:  100,
		End:    199,
		Strand: "+",
		Attributes: featuredb.Attributes{
			"Alias": {"GhA01G0001", "Gh_A01G0001"},
		},
	}

	fields := []string{"id", "chrom", "start", "length", "Alias", "missing"}
	got := FormatFeature(f, fields, ";")

	expected := []string{"Ghir_A01G000010", "A01", "100", "100", "GhA01G0001;Gh_A01G0001", ""}
	if len(got) != len(expected) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(expected))
	}

	for i, g := range got {
		if g != expected[i] {
			t.Errorf("got[%d] = %q, want %q", i, g, expected[i])
		}
	}
}

func TestFeaturesTable(t *testing.T) {
	features := []*featuredb.Feature{
		{ID: "g1", SeqID: "A01", Start: 1, End: 10},
		{ID: "g2", SeqID: "A02", Start: 5, End: 9, Attributes: featuredb.Attributes{"Note": {"x", "y"}}},
	}
	table := FeaturesTable(features, []string{"id", "end", "Note"}, ",")

	if len(table.Header) != 3 || table.Header[2] != "Note" {
		t.Errorf("Header = %v", table.Header)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if got := table.Rows[1]; got[0] != "g2" || got[1] != "9" || got[2] != "x,y" {
		t.Errorf("Rows[1] = %v, want [g2 9 x,y]", got)
	}
}

func TestWriteTable(t *testing.T) {
	dir := t.TempDir()
	table := &tabular.Table{
		Header: []string{"gene_id", "description"},
		Rows:   [][]string{{"g1", "kinase"}, {"g2", "N/A"}},
	}

	txt := filepath.Join(dir, "out", "genes.txt")
	if err := WriteTable(table, txt); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	data, err := os.ReadFile(txt)
	if err != nil {
		t.Fatal(err)
	}
	if want := "gene_id\tdescription\ng1\tkinase\ng2\tN/A\n"; string(data) != want {
		t.Errorf("output = %q, want %q", data, want)
	}

	csv := filepath.Join(dir, "genes.csv")
	if err := WriteTable(table, csv); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	loaded, err := tabular.Load(csv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 2 || loaded.Rows[1][1] != "N/A" {
		t.Errorf("loaded rows = %v", loaded.Rows)
	}
}

func TestIOOptions_GetDelimiter(t *testing.T) {
	tests := []struct {
		delim string
		want  string
	}{
		{"::", "::"},
		{"tab", "\t"},
		{"space", " "},
		{"semi", ";"},
		{"comma", ","},
		{"custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.delim, func(t *testing.T) {
			opts := &IOOptions{Delim: tt.delim}
			got := opts.GetDelimiter()
			if got != tt.want {
				t.Errorf("GetDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}
