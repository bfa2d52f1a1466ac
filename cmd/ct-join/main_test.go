package main

import (
	"reflect"
	"testing"

	"github.com/cottongenomics/cotton-toolkit/tabular"
)

func TestJoin(t *testing.T) {
	left := &tabular.Table{
		Header: []string{"GeneID", "log2FC"},
		Rows: [][]string{
			{"Ghir_A01G000010.1", "2.5"},
			{"Ghir_A01G000020", "-1.2"},
			{"Ghir_D05G000030", "0.8"},
		},
	}
	right := &tabular.Table{
		Header: []string{"gene_id", "chrom", "description"},
		Rows: [][]string{
			{"Ghir_A01G000010", "A01", "kinase"},
			{"Ghir_A01G000020", "A01", "transporter"},
			{"Ghir_A01G000020", "A01", "duplicate"},
		},
	}

	tests := []struct {
		name     string
		collapse bool
		left     bool
		wantRows [][]string
	}{
		{
			name: "inner",
			wantRows: [][]string{
				{"Ghir_A01G000020", "-1.2", "A01", "transporter"},
				{"Ghir_A01G000020", "-1.2", "A01", "duplicate"},
			},
		},
		{
			name:     "collapse transcripts",
			collapse: true,
			wantRows: [][]string{
				{"Ghir_A01G000010.1", "2.5", "A01", "kinase"},
				{"Ghir_A01G000020", "-1.2", "A01", "transporter"},
				{"Ghir_A01G000020", "-1.2", "A01", "duplicate"},
			},
		},
		{
			name: "left keeps unmatched",
			left: true,
			wantRows: [][]string{
				{"Ghir_A01G000010.1", "2.5", "", ""},
				{"Ghir_A01G000020", "-1.2", "A01", "transporter"},
				{"Ghir_A01G000020", "-1.2", "A01", "duplicate"},
				{"Ghir_D05G000030", "0.8", "", ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collapse = tt.collapse
			defer func() { collapse = false }()

			got := Join(left, right, 0, 0, []int{1, 2}, tt.left)
			wantHeader := []string{"GeneID", "log2FC", "chrom", "description"}
			if !reflect.DeepEqual(got.Header, wantHeader) {
				t.Errorf("header = %v, want %v", got.Header, wantHeader)
			}
			if !reflect.DeepEqual(got.Rows, tt.wantRows) {
				t.Errorf("rows = %v, want %v", got.Rows, tt.wantRows)
			}
		})
	}
}

func TestKeyColumn(t *testing.T) {
	tbl := &tabular.Table{Header: []string{"a", "b"}}
	if idx, err := keyColumn(tbl, ""); err != nil || idx != 0 {
		t.Errorf("keyColumn(\"\") = %d, %v", idx, err)
	}
	if idx, err := keyColumn(tbl, "b"); err != nil || idx != 1 {
		t.Errorf("keyColumn(b) = %d, %v", idx, err)
	}
	if _, err := keyColumn(tbl, "c"); err == nil {
		t.Error("expected error for missing column")
	}
}
