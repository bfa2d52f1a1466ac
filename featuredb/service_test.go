package featuredb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestMatchSeqID(t *testing.T) {
	seqids := []string{"Ghir_A01", "Ghir_D01", "scaffold_12", "chrA02"}

	tests := []struct {
		name  string
		chrom string
		want  string
		exact bool
	}{
		{"exact ignoring case", "ghir_a01", "Ghir_A01", true},
		{"suffix after separator", "A01", "Ghir_A01", false},
		{"lower case suffix", "d01", "Ghir_D01", false},
		{"numeric scaffold", "12", "scaffold_12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MatchSeqID(seqids, tt.chrom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.SeqID)
			assert.Equal(t, tt.exact, m.Exact)
			assert.False(t, m.Ambiguous)
		})
	}

	_, err := MatchSeqID(seqids, "A02")
	assert.ErrorIs(t, err, ErrSeqIDNotFound, "an alphanumeric prefix must not match")

	_, err = MatchSeqID(seqids, "Z99")
	assert.ErrorIs(t, err, ErrSeqIDNotFound)

	_, err = MatchSeqID(seqids, " ")
	assert.ErrorIs(t, err, ErrSeqIDNotFound)
}

func TestMatchSeqID_Ambiguous(t *testing.T) {
	m, err := MatchSeqID([]string{"Gh_A01", "Ghir_A01", "Ghir_A011"}, "A01")
	require.NoError(t, err)
	assert.Equal(t, "Gh_A01", m.SeqID)
	assert.True(t, m.Ambiguous)
	assert.Equal(t, []string{"Gh_A01", "Ghir_A01"}, m.Candidates)
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"A01:100-200", Region{"A01", 100, 200}, false},
		{" Ghir_D05 : 1,000 - 2,500 ", Region{"Ghir_D05", 1000, 2500}, false},
		{"scaffold:1:5-9", Region{"scaffold:1", 5, 9}, false},
		{"A01", Region{}, true},
		{"A01:100", Region{}, true},
		{"A01:x-200", Region{}, true},
		{"A01:300-200", Region{}, true},
		{":1-2", Region{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "A01:1-2", Region{"A01", 1, 2}.String())
}

type progressLog struct {
	percents []int
}

func (p *progressLog) record(percent int, _ string) {
	p.percents = append(p.percents, percent)
}

func newTestService(t *testing.T) (*Service, Source, *progressLog) {
	t.Helper()
	dir := t.TempDir()
	src := Source{
		AssemblyID: "HAU_v1",
		GFFPath:    writeGFF(t, dir, "genes.gff3.gz", testGFF),
		IDPattern:  hauPattern,
	}
	progress := &progressLog{}
	svc := NewService(filepath.Join(dir, "dbs"), WithLogger(zaptest.NewLogger(t)), WithProgress(progress.record))
	return svc, src, progress
}

func TestService_GenesInRegion(t *testing.T) {
	svc, src, progress := newTestService(t)

	genes, err := svc.GenesInRegion(context.Background(), src, Region{Chrom: "A01", Start: 1, End: 1000})
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, GeneDetails{
		GeneID:      "Ghir_A01G000010",
		Chrom:       "Ghir_A01",
		Start:       100,
		End:         500,
		Strand:      "+",
		Source:      "HAU",
		FeatureType: "gene",
		Aliases:     "GhA01G0001",
		Description: "kinase, putative",
	}, genes[0])
	assert.Equal(t, NotAvailable, genes[1].Aliases)
	assert.Equal(t, NotAvailable, genes[1].Description)
	assert.Equal(t, []int{10, 40, 60, 80, 100}, progress.percents)
	assert.FileExists(t, svc.DatabasePath("HAU_v1"))
}

func TestService_GenesInRegion_NoChromosome(t *testing.T) {
	svc, src, progress := newTestService(t)

	genes, err := svc.GenesInRegion(context.Background(), src, Region{Chrom: "Z99", Start: 1, End: 10})
	require.NoError(t, err)
	assert.Empty(t, genes)
	assert.Equal(t, []int{10, 40, 100}, progress.percents)
}

func TestService_GeneInfoByIDs(t *testing.T) {
	svc, src, progress := newTestService(t)

	res, err := svc.GeneInfoByIDs(context.Background(), src, []string{"Ghir_A01G000020", "missing", "Ghir_D01G000010"})
	require.NoError(t, err)
	require.Len(t, res.Found, 2)
	assert.Equal(t, "Ghir_A01G000020", res.Found[0].GeneID)
	assert.Equal(t, "Ghir_D01G000010", res.Found[1].GeneID)
	assert.Equal(t, []string{"missing"}, res.NotFound)
	assert.Equal(t, []int{10, 40, 58, 95, 100}, progress.percents)

	row := res.Found[0].Row()
	assert.Len(t, row, len(DetailColumns))
	assert.Equal(t, "1000", row[2])
}

func TestService_GeneInfoByIDs_ProgressAndMissing(t *testing.T) {
	dir := t.TempDir()
	src := Source{
		AssemblyID: "HAU_v1",
		GFFPath:    writeGFF(t, dir, "genes.gff3", testGFF),
		IDPattern:  hauPattern,
	}
	core, logs := observer.New(zap.WarnLevel)
	progress := &progressLog{}
	svc := NewService(filepath.Join(dir, "dbs"), WithLogger(zap.New(core)), WithProgress(progress.record))

	ids := []string{"Ghir_A01G000020"}
	for i := 0; i < 248; i++ {
		ids = append(ids, fmt.Sprintf("m%03d", i))
	}
	ids = append(ids, "Ghir_D01G000010")

	res, err := svc.GeneInfoByIDs(context.Background(), src, ids)
	require.NoError(t, err)
	assert.Len(t, res.Found, 2)
	assert.Len(t, res.NotFound, 248)

	// Updates at IDs 1, 101, 201 and the last of 250.
	assert.Equal(t, []int{10, 40, 40, 62, 84, 95, 100}, progress.percents)

	warnings := logs.FilterMessage("gene IDs not found in feature database").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.EqualValues(t, 248, fields["count"])
	assert.Equal(t, "m000, m001, m002, m003, m004...", fields["first"])
}

func TestService_PrepareError(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.GenesInRegion(context.Background(), Source{AssemblyID: "X", GFFPath: "/nonexistent.gff3"}, Region{"A01", 1, 2})
	assert.Error(t, err)
}
