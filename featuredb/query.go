package featuredb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FilterOp is a comparison applied to one gene field.
type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpNe FilterOp = "ne"
	OpLt FilterOp = "lt"
	OpLe FilterOp = "le"
	OpGt FilterOp = "gt"
	OpGe FilterOp = "ge"
	OpIn FilterOp = "in"
)

var opSQL = map[FilterOp]string{
	OpEq: "=",
	OpNe: "<>",
	OpLt: "<",
	OpLe: "<=",
	OpGt: ">",
	OpGe: ">=",
}

// Field names accepted by Query filters and sorts, mapped to columns.
var fieldColumns = map[string]string{
	"id":          "id",
	"gene_id":     "id",
	"seqid":       "seqid",
	"chrom":       "seqid",
	"source":      "source",
	"featuretype": "featuretype",
	"start":       "start_pos",
	"end":         "end_pos",
	"strand":      "strand",
}

var numericColumns = map[string]bool{"start_pos": true, "end_pos": true}

// Fields returns the field names usable in filters, sorted.
func Fields() []string {
	fields := make([]string, 0, len(fieldColumns))
	for f := range fieldColumns {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Filter constrains one field. OpIn uses Values, every other op Value.
type Filter struct {
	Op     FilterOp
	Field  string
	Value  string
	Values []string
}

// SortSpec orders results by one field.
type SortSpec struct {
	Field      string
	Descending bool
}

// Query selects genes from a feature database. Filters are ANDed.
// Without SortSpecs genes come back in GFF file order.
type Query struct {
	Filters   []Filter
	Keyword   string
	SortSpecs []SortSpec

	// LimitValue caps the result size. Zero means no limit.
	LimitValue int
}

// NewQuery returns a query matching every gene.
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) add(op FilterOp, field, value string) *Query {
	q.Filters = append(q.Filters, Filter{Op: op, Field: field, Value: value})
	return q
}

// Eq keeps genes whose field equals value.
func (q *Query) Eq(field, value string) *Query { return q.add(OpEq, field, value) }

// Ne drops genes whose field equals value.
func (q *Query) Ne(field, value string) *Query { return q.add(OpNe, field, value) }

// Lt keeps genes whose field is below value.
func (q *Query) Lt(field, value string) *Query { return q.add(OpLt, field, value) }

// Le keeps genes whose field is at most value.
func (q *Query) Le(field, value string) *Query { return q.add(OpLe, field, value) }

// Gt keeps genes whose field is above value.
func (q *Query) Gt(field, value string) *Query { return q.add(OpGt, field, value) }

// Ge keeps genes whose field is at least value.
func (q *Query) Ge(field, value string) *Query { return q.add(OpGe, field, value) }

// In keeps genes whose field is one of values.
func (q *Query) In(field string, values ...string) *Query {
	q.Filters = append(q.Filters, Filter{Op: OpIn, Field: field, Values: values})
	return q
}

// WithKeyword keeps genes whose attributes contain keyword.
func (q *Query) WithKeyword(keyword string) *Query {
	q.Keyword = keyword
	return q
}

// Sort appends a sort key.
func (q *Query) Sort(field string, descending bool) *Query {
	q.SortSpecs = append(q.SortSpecs, SortSpec{Field: field, Descending: descending})
	return q
}

// Limit caps the number of genes returned.
func (q *Query) Limit(n int) *Query {
	q.LimitValue = n
	return q
}

// where compiles the filters into a WHERE clause body and its arguments.
// It returns "1" when the query has no constraints.
func (q *Query) where() (string, []any, error) {
	var (
		parts []string
		args  []any
	)

	for _, f := range q.Filters {
		col, ok := fieldColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown field %q (known fields: %s)", f.Field, strings.Join(Fields(), ", "))
		}

		switch f.Op {
		case OpIn:
			if len(f.Values) == 0 {
				parts = append(parts, "0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Values)), ",")
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col, placeholders))
			for _, v := range f.Values {
				arg, err := columnValue(col, v)
				if err != nil {
					return "", nil, err
				}
				args = append(args, arg)
			}
		default:
			sqlOp, ok := opSQL[f.Op]
			if !ok {
				return "", nil, fmt.Errorf("unknown filter operation %q", f.Op)
			}
			arg, err := columnValue(col, f.Value)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, fmt.Sprintf("%s %s ?", col, sqlOp))
			args = append(args, arg)
		}
	}

	if q.Keyword != "" {
		parts = append(parts, "attributes LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(q.Keyword)+"%")
	}

	if len(parts) == 0 {
		return "1", nil, nil
	}
	return strings.Join(parts, " AND "), args, nil
}

// orderBy compiles the sort specifications.
func (q *Query) orderBy() (string, error) {
	if len(q.SortSpecs) == 0 {
		return "file_order", nil
	}
	var parts []string
	for _, s := range q.SortSpecs {
		col, ok := fieldColumns[s.Field]
		if !ok {
			return "", fmt.Errorf("unknown sort field %q", s.Field)
		}
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "file_order")
	return strings.Join(parts, ", "), nil
}

// Clone returns a deep copy of q.
func (q *Query) Clone() *Query {
	c := *q
	c.Filters = append([]Filter(nil), q.Filters...)
	c.SortSpecs = append([]SortSpec(nil), q.SortSpecs...)
	return &c
}

func columnValue(col, v string) (any, error) {
	if !numericColumns[col] {
		return v, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("field %s needs an integer value, got %q", col, v)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ParseFilterSpec splits a "field,value" flag argument. The value may
// itself contain commas.
func ParseFilterSpec(spec string) (field, value string, err error) {
	field, value, ok := strings.Cut(spec, ",")
	if !ok || strings.TrimSpace(field) == "" {
		return "", "", fmt.Errorf("invalid filter %q: expected field,value", spec)
	}
	return strings.TrimSpace(field), value, nil
}

// ParseInFilterSpec splits a "field,v1,v2,..." flag argument.
func ParseInFilterSpec(spec string) (field string, values []string, err error) {
	field, rest, ok := strings.Cut(spec, ",")
	if !ok || strings.TrimSpace(field) == "" {
		return "", nil, fmt.Errorf("invalid in-filter %q: expected field,v1,v2,...", spec)
	}
	return strings.TrimSpace(field), strings.Split(rest, ","), nil
}
