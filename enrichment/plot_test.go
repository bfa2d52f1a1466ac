package enrichment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plotResults(t *testing.T) []Result {
	t.Helper()
	study := &StudyGenes{IDs: []string{"g1", "g2", "g3", "g7"}}
	results, err := Run(study, testAnnotation(), Options{})
	require.NoError(t, err)
	return results
}

func TestPlots(t *testing.T) {
	results := plotResults(t)
	dir := t.TempDir()
	opts := PlotOptions{Width: 6, Height: 4, Title: "GO enrichment", ShowTitle: true}

	for _, name := range []string{"bar.png", "bar.jpg", "bar.svg", "bar.pdf"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, PlotBar(results, path, opts))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	bubble := filepath.Join(dir, "bubble.png")
	require.NoError(t, PlotBubble(results, bubble, PlotOptions{}))
	assert.FileExists(t, bubble)
}

func TestPlotUpsetAndCnet(t *testing.T) {
	results := plotResults(t)
	dir := t.TempDir()
	opts := PlotOptions{Width: 8, Height: 6}

	for _, name := range []string{"upset.png", "upset.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, PlotUpset(results, path, opts))
		assert.FileExists(t, path)
	}
	for _, name := range []string{"cnet.png", "cnet.jpeg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, PlotCnet(results, path, opts))
		assert.FileExists(t, path)
	}
}

func TestIntersections(t *testing.T) {
	results := []Result{
		{TermID: "GO:A", Genes: []string{"g1", "g2", "g3"}},
		{TermID: "GO:B", Genes: []string{"g1", "g2", "g4"}},
		{TermID: "GO:C", Genes: []string{"g5"}},
	}
	sets := Intersections(results)
	require.Len(t, sets, 4)
	assert.Equal(t, Intersection{Terms: []int{0, 1}, Genes: []string{"g1", "g2"}}, sets[0])
	assert.Equal(t, Intersection{Terms: []int{0}, Genes: []string{"g3"}}, sets[1])
	assert.Equal(t, Intersection{Terms: []int{1}, Genes: []string{"g4"}}, sets[2])
	assert.Equal(t, Intersection{Terms: []int{2}, Genes: []string{"g5"}}, sets[3])
}

func TestPlots_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, PlotBar(nil, filepath.Join(dir, "a.png"), PlotOptions{}), errNoResults)
	assert.ErrorIs(t, PlotBubble(nil, filepath.Join(dir, "a.png"), PlotOptions{}), errNoResults)
	assert.ErrorIs(t, PlotUpset(nil, filepath.Join(dir, "a.png"), PlotOptions{}), errNoResults)
	assert.ErrorIs(t, PlotCnet(nil, filepath.Join(dir, "a.png"), PlotOptions{}), errNoResults)
	noGenes := []Result{{TermID: "GO:A"}}
	assert.ErrorIs(t, PlotUpset(noGenes, filepath.Join(dir, "a.png"), PlotOptions{}), errNoStudyGenes)
	assert.ErrorIs(t, PlotCnet(noGenes, filepath.Join(dir, "a.png"), PlotOptions{}), errNoStudyGenes)
	assert.ErrorContains(t, PlotBar(plotResults(t), filepath.Join(dir, "a.gif"), PlotOptions{}), "unsupported plot format")
}

func TestTermLabels(t *testing.T) {
	results := []Result{
		{TermID: "GO:1", Description: "a very long description of a biological process"},
		{TermID: "GO:2"},
	}
	labels := termLabels(results, 10)
	assert.Equal(t, []string{"GO:2", "a very ..."}, labels)
}
