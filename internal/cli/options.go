// Package cli provides utilities for building the ct-* command-line tools.
//
// This package provides standardized option handling, config and logger
// setup, tab-delimited I/O and progress bars shared by every command.
package cli

import (
	"fmt"

	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/spf13/cobra"
)

// GlobalOptions are accepted by every command.
type GlobalOptions struct {
	// ConfigPath is the main config file. Empty means $COTTON_TOOLKIT_CONFIG
	// or ./config.yml.
	ConfigPath string

	// LogLevel overrides log_level from the config when set.
	LogLevel string

	// Verbose forces debug logging.
	Verbose bool
}

// AddGlobalFlags adds the config and logging flags to a cobra command.
func AddGlobalFlags(cmd *cobra.Command, opts *GlobalOptions) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&opts.ConfigPath, "config", "C", "",
		"config file (default: $COTTON_TOOLKIT_CONFIG or ./config.yml)")
	flags.StringVar(&opts.LogLevel, "log-level", "",
		"log level (DEBUG, INFO, WARNING, ERROR), overrides the config")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false,
		"enable debug output")
}

// GenomeOptions select the genome assembly a command works on.
type GenomeOptions struct {
	// Assembly is the genome source ID, such as "NBI_v1.1".
	Assembly string

	// GFF overrides the GFF3 file from the genome sources list.
	GFF string

	// Force rebuilds the feature database.
	Force bool
}

// AddGenomeFlags adds the assembly selection flags to a cobra command.
func AddGenomeFlags(cmd *cobra.Command, opts *GenomeOptions) {
	flags := cmd.Flags()

	flags.StringVarP(&opts.Assembly, "assembly", "g", "",
		"genome assembly ID from the genome sources list")
	flags.StringVar(&opts.GFF, "gff", "",
		"GFF3 file to use instead of the downloaded annotation")
	flags.BoolVar(&opts.Force, "force", false,
		"rebuild the feature database even if it exists")
	_ = cmd.MarkFlagRequired("assembly")
}

// QueryOptions holds the gene filter flags of ct-gff-query. Every
// filter is a "field,value" pair; --in takes "field,v1,v2,...".
type QueryOptions struct {
	Attr   []string
	Count  bool
	Fields bool

	Equal []string
	Lt    []string
	Le    []string
	Gt    []string
	Ge    []string
	Ne    []string
	In    []string

	// Keyword is matched against the attributes column.
	Keyword string

	// Sort lists sort fields; a leading "-" sorts descending.
	Sort []string

	// Limit caps the genes returned. Zero returns all.
	Limit int
}

// AddQueryFlags registers the gene filter flags on cmd.
func AddQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	flags := cmd.Flags()

	flags.StringSliceVarP(&opts.Attr, "attr", "a", nil,
		"column(s) to return: a query field or a GFF attribute tag")
	flags.BoolVarP(&opts.Count, "count", "K", false,
		"print the number of matching genes only")
	flags.BoolVar(&opts.Fields, "fields", false,
		"list the filterable gene fields and exit")
	// StringArray keeps commas inside values intact.
	flags.StringArrayVarP(&opts.Equal, "eq", "e", nil,
		"keep genes whose field equals value: field,value (repeatable)")
	flags.StringArrayVar(&opts.Lt, "lt", nil,
		"keep genes whose field is below value: field,value")
	flags.StringArrayVar(&opts.Le, "le", nil,
		"keep genes whose field is at most value: field,value")
	flags.StringArrayVar(&opts.Gt, "gt", nil,
		"keep genes whose field is above value: field,value")
	flags.StringArrayVar(&opts.Ge, "ge", nil,
		"keep genes whose field is at least value: field,value")
	flags.StringArrayVar(&opts.Ne, "ne", nil,
		"drop genes whose field equals value: field,value")
	flags.StringArrayVar(&opts.In, "in", nil,
		"keep genes whose field is one of the values: field,v1,v2,...")
	flags.StringVar(&opts.Keyword, "keyword", "",
		"keyword to search in the GFF attributes")
	flags.StringSliceVar(&opts.Sort, "sort", nil,
		"sort field(s); prefix with - for descending order")
	flags.IntVar(&opts.Limit, "limit", 0,
		"return at most this many genes")
}

// BuildQuery creates a feature query from the options.
func (o *QueryOptions) BuildQuery() (*featuredb.Query, error) {
	q := featuredb.NewQuery()

	single := []struct {
		specs []string
		add   func(field, value string) *featuredb.Query
	}{
		{o.Equal, q.Eq},
		{o.Lt, q.Lt},
		{o.Le, q.Le},
		{o.Gt, q.Gt},
		{o.Ge, q.Ge},
		{o.Ne, q.Ne},
	}
	for _, s := range single {
		for _, spec := range s.specs {
			field, value, err := featuredb.ParseFilterSpec(spec)
			if err != nil {
				return nil, err
			}
			s.add(field, value)
		}
	}

	for _, spec := range o.In {
		field, values, err := featuredb.ParseInFilterSpec(spec)
		if err != nil {
			return nil, err
		}
		q.In(field, values...)
	}

	if o.Keyword != "" {
		q.WithKeyword(o.Keyword)
	}

	for _, s := range o.Sort {
		desc := false
		if len(s) > 1 && s[0] == '-' {
			desc = true
			s = s[1:]
		}
		q.Sort(s, desc)
	}

	if o.Limit < 0 {
		return nil, fmt.Errorf("invalid limit %d", o.Limit)
	}
	if o.Limit > 0 {
		q.Limit(o.Limit)
	}

	return q, nil
}

// Columns returns the output columns, using defaults if none specified.
func (o *QueryOptions) Columns(defaults []string) []string {
	if len(o.Attr) > 0 {
		return o.Attr
	}
	return defaults
}

// ColOptions selects the gene ID column of a tab-delimited input.
type ColOptions struct {
	// Col is a header name, a 1-based position, or "0" for the last column.
	Col string

	NoHead bool
}

// AddColFlags registers --col and --nohead on cmd.
func AddColFlags(cmd *cobra.Command, opts *ColOptions) {
	flags := cmd.Flags()

	flags.StringVarP(&opts.Col, "col", "c", "0",
		"gene ID column: header name, 1-based position, or 0 for the last")
	flags.BoolVar(&opts.NoHead, "nohead", false,
		"the input starts with data, not a header line")
}

// IOOptions holds the input, output and multi-value delimiter flags.
type IOOptions struct {
	Input  string
	Output string

	// Delim joins multi-valued GFF attributes in one output cell.
	Delim string
}

// AddIOFlags registers --input, --output and --delim on cmd.
func AddIOFlags(cmd *cobra.Command, opts *IOOptions) {
	flags := cmd.Flags()

	flags.StringVarP(&opts.Input, "input", "i", "",
		"gene list or table to read (default: stdin; may be compressed)")
	flags.StringVarP(&opts.Output, "output", "o", "",
		"output file (default: stdout); .csv, .tsv and .xlsx are written as tables")
	flags.StringVar(&opts.Delim, "delim", ";",
		"delimiter for multi-valued fields (tab, space, semi, comma or literal)")
}

// GetDelimiter resolves the --delim names to the separator they stand for.
func (o *IOOptions) GetDelimiter() string {
	switch o.Delim {
	case "tab":
		return "\t"
	case "space":
		return " "
	case "semi":
		return ";"
	case "comma":
		return ","
	default:
		return o.Delim
	}
}
