// Package featuredb builds and queries per-assembly gene databases from
// GFF3 annotation files.
//
// A feature database is a single SQLite file holding the gene records of
// one genome assembly. It supports lookups by gene ID, interval queries
// over a sequence region and filtered queries built with Query.
package featuredb

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Attributes holds the column 9 tag/value pairs of a GFF3 record.
// GFF3 tags may carry several comma-separated values.
type Attributes map[string][]string

// Get returns the first value of key, or "" when absent.
func (a Attributes) Get(key string) string {
	if v := a[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// merge adds the values of other to a, dropping duplicates and sorting
// every touched value list.
func (a Attributes) merge(other Attributes) {
	for key, values := range other {
		seen := make(map[string]bool, len(a[key])+len(values))
		var merged []string
		for _, v := range append(append([]string(nil), a[key]...), values...) {
			if !seen[v] {
				seen[v] = true
				merged = append(merged, v)
			}
		}
		sort.Strings(merged)
		a[key] = merged
	}
}

// Feature is one GFF3 record. Start and End are 1-based and inclusive.
type Feature struct {
	ID         string
	SeqID      string
	Source     string
	Type       string
	Start      int
	End        int
	Score      string
	Strand     string
	Phase      string
	Attributes Attributes
}

// Len returns the feature length in bases.
func (f *Feature) Len() int {
	return f.End - f.Start + 1
}

// ParseLine parses a single GFF3 data line. The returned feature has no
// ID; callers decide how IDs are assigned.
func ParseLine(line string) (*Feature, error) {
	cols := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(cols) != 9 {
		return nil, fmt.Errorf("expected 9 tab-separated columns, got %d", len(cols))
	}

	start, err := strconv.Atoi(cols[3])
	if err != nil {
		return nil, fmt.Errorf("invalid start %q: %w", cols[3], err)
	}
	end, err := strconv.Atoi(cols[4])
	if err != nil {
		return nil, fmt.Errorf("invalid end %q: %w", cols[4], err)
	}
	if start < 1 || end < start {
		return nil, fmt.Errorf("invalid coordinates %d-%d", start, end)
	}

	switch cols[6] {
	case "+", "-", ".", "?":
	default:
		return nil, fmt.Errorf("invalid strand %q", cols[6])
	}

	attrs, err := parseAttributes(cols[8])
	if err != nil {
		return nil, err
	}

	return &Feature{
		SeqID:      unescape(cols[0]),
		Source:     cols[1],
		Type:       cols[2],
		Start:      start,
		End:        end,
		Score:      cols[5],
		Strand:     cols[6],
		Phase:      cols[7],
		Attributes: attrs,
	}, nil
}

func parseAttributes(col string) (Attributes, error) {
	attrs := make(Attributes)
	if col == "." || col == "" {
		return attrs, nil
	}

	for _, pair := range strings.Split(col, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("attribute %q has no value", pair)
		}
		key = unescape(strings.TrimSpace(key))
		for _, v := range strings.Split(value, ",") {
			attrs[key] = append(attrs[key], unescape(strings.TrimSpace(v)))
		}
	}
	return attrs, nil
}

// unescape decodes GFF3 percent escapes, leaving malformed ones as is.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
