package cli

import (
	"testing"

	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/spf13/cobra"
)

func TestAddQueryFlags(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &QueryOptions{}

	AddQueryFlags(cmd, opts)

	// Check that all flags were added
	flags := []string{"attr", "count", "fields", "eq", "lt", "le", "gt", "ge", "ne", "in", "keyword", "sort", "limit"}
	for _, name := range flags {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not found", name)
		}
	}

	// Check short flags
	shortFlags := map[string]string{
		"a": "attr",
		"K": "count",
		"e": "eq",
	}
	for short, long := range shortFlags {
		if cmd.Flags().ShorthandLookup(short) == nil {
			t.Errorf("short flag %q (for %s) not found", short, long)
		}
	}
}

func TestAddGlobalFlags(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &GlobalOptions{}

	AddGlobalFlags(cmd, opts)

	for _, name := range []string{"config", "log-level", "verbose"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("flag %q not found", name)
		}
	}

	if err := cmd.PersistentFlags().Parse([]string{"-C", "my.yml", "-v"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if opts.ConfigPath != "my.yml" || !opts.Verbose {
		t.Errorf("opts = %+v, want config my.yml and verbose", opts)
	}
}

func TestAddGenomeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &GenomeOptions{}

	AddGenomeFlags(cmd, opts)

	for _, name := range []string{"assembly", "gff", "force"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not found", name)
		}
	}
	if cmd.Flags().ShorthandLookup("g") == nil {
		t.Error("short flag g not found")
	}
}

func TestAddColFlags(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &ColOptions{}

	AddColFlags(cmd, opts)

	if cmd.Flags().Lookup("col") == nil {
		t.Error("col flag not found")
	}
	if cmd.Flags().Lookup("nohead") == nil {
		t.Error("nohead flag not found")
	}

	// Default is the last column
	if opts.Col != "0" {
		t.Errorf("Col = %q, want %q", opts.Col, "0")
	}
}

func TestAddIOFlags(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &IOOptions{}

	AddIOFlags(cmd, opts)

	if cmd.Flags().Lookup("input") == nil {
		t.Error("input flag not found")
	}
	if cmd.Flags().Lookup("output") == nil {
		t.Error("output flag not found")
	}
	if cmd.Flags().Lookup("delim") == nil {
		t.Error("delim flag not found")
	}

	if opts.Delim != ";" {
		t.Errorf("Delim = %q, want %q", opts.Delim, ";")
	}
}

func TestQueryOptions_BuildQuery(t *testing.T) {
	tests := []struct {
		name        string
		opts        QueryOptions
		wantErr     bool
		wantFilters int
		wantSorts   int
		wantLimit   int
	}{
		{
			name: "empty options",
			opts: QueryOptions{},
		},
		{
			name: "equality filter",
			opts: QueryOptions{
				Equal: []string{"seqid,A01"},
			},
			wantFilters: 1,
		},
		{
			name: "multiple filter types",
			opts: QueryOptions{
				Equal: []string{"seqid,A01"},
				Ge:    []string{"start,100"},
				Le:    []string{"end,5000"},
				Ne:    []string{"strand,-"},
				In:    []string{"featuretype,gene,mRNA"},
			},
			wantFilters: 5,
		},
		{
			name: "invalid filter spec",
			opts: QueryOptions{
				Equal: []string{"invalid-no-comma"},
			},
			wantErr: true,
		},
		{
			name: "sort and limit",
			opts: QueryOptions{
				Sort:  []string{"seqid", "-start"},
				Limit: 10,
			},
			wantSorts: 2,
			wantLimit: 10,
		},
		{
			name:    "negative limit",
			opts:    QueryOptions{Limit: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.opts.BuildQuery()
			if (err != nil) != tt.wantErr {
				t.Errorf("BuildQuery() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if len(q.Filters) != tt.wantFilters {
				t.Errorf("len(Filters) = %d, want %d", len(q.Filters), tt.wantFilters)
			}
			if len(q.SortSpecs) != tt.wantSorts {
				t.Errorf("len(SortSpecs) = %d, want %d", len(q.SortSpecs), tt.wantSorts)
			}
			if q.LimitValue != tt.wantLimit {
				t.Errorf("LimitValue = %d, want %d", q.LimitValue, tt.wantLimit)
			}
		})
	}
}

func TestQueryOptions_SortDirection(t *testing.T) {
	opts := QueryOptions{Sort: []string{"-start", "end"}, Keyword: "kinase"}
	q, err := opts.BuildQuery()
	if err != nil {
		t.Fatalf("BuildQuery() error = %v", err)
	}

	want := []featuredb.SortSpec{{Field: "start", Descending: true}, {Field: "end"}}
	for i, s := range q.SortSpecs {
		if s != want[i] {
			t.Errorf("SortSpecs[%d] = %+v, want %+v", i, s, want[i])
		}
	}
	if q.Keyword != "kinase" {
		t.Errorf("Keyword = %q, want kinase", q.Keyword)
	}
}

func TestQueryOptions_Columns(t *testing.T) {
	defaults := []string{"default1", "default2"}

	opts := QueryOptions{Attr: []string{"explicit1"}}
	fields := opts.Columns(defaults)
	if len(fields) != 1 || fields[0] != "explicit1" {
		t.Errorf("Columns with attrs = %v, want [explicit1]", fields)
	}

	opts = QueryOptions{}
	fields = opts.Columns(defaults)
	if len(fields) != 2 || fields[0] != "default1" {
		t.Errorf("Columns without attrs = %v, want defaults", fields)
	}
}
