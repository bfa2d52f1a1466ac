package enrichment

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotFormats lists the accepted image formats.
var PlotFormats = []string{"png", "jpg", "jpeg", "svg", "pdf"}

// PlotOptions controls chart rendering.
type PlotOptions struct {
	// Width and Height are in inches.
	Width  float64
	Height float64

	// Title is drawn above the chart when ShowTitle is set.
	Title     string
	ShowTitle bool

	// LabelWidth truncates term labels to this many characters. Zero
	// means 50.
	LabelWidth int
}

func (o PlotOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 10
	}
	if h <= 0 {
		h = 8
	}
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}

var errNoResults = errors.New("no enrichment results to plot")

func checkFormat(path string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range PlotFormats {
		if f == ext {
			return nil
		}
	}
	return fmt.Errorf("unsupported plot format %q (use %s)", ext, strings.Join(PlotFormats, ", "))
}

// termLabels returns one axis label per result, bottom to top so the
// first result ends up on top.
func termLabels(results []Result, width int) []string {
	labels := make([]string, len(results))
	for i, r := range results {
		labels[len(results)-1-i] = termLabel(r, width)
	}
	return labels
}

func termLabel(r Result, width int) string {
	if width <= 0 {
		width = 50
	}
	label := r.TermID
	if r.Description != "" {
		label = r.Description
	}
	if runes := []rune(label); len(runes) > width {
		label = string(runes[:width-3]) + "..."
	}
	return label
}

func newPlot(opts PlotOptions, xLabel string) *plot.Plot {
	p := plot.New()
	if opts.ShowTitle {
		p.Title.Text = opts.Title
	}
	p.X.Label.Text = xLabel
	return p
}

func negLog10(v float64) float64 {
	if v <= 0 {
		return 300
	}
	return -math.Log10(v)
}

// PlotBar draws a horizontal bar chart of -log10(FDR) per term and saves
// it to path. The image format follows the file extension.
func PlotBar(results []Result, path string, opts PlotOptions) error {
	if len(results) == 0 {
		return errNoResults
	}
	if err := checkFormat(path); err != nil {
		return err
	}

	values := make(plotter.Values, len(results))
	for i, r := range results {
		values[len(results)-1-i] = negLog10(r.FDR)
	}

	p := newPlot(opts, "-log10(FDR)")
	w, h := opts.size()
	barWidth := (h * 0.7) / vg.Length(len(results)+1)

	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(termLabels(results, opts.LabelWidth)...)

	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving bar chart: %w", err)
	}
	return nil
}

// PlotBubble draws a bubble chart with the rich factor on the x axis, a
// bubble per term sized by study gene count and coloured from blue (high
// FDR) to red (low FDR), and saves it to path.
func PlotBubble(results []Result, path string, opts PlotOptions) error {
	if len(results) == 0 {
		return errNoResults
	}
	if err := checkFormat(path); err != nil {
		return err
	}

	xys := make(plotter.XYs, len(results))
	minCount, maxCount := math.MaxInt, 0
	minQ, maxQ := math.Inf(1), math.Inf(-1)
	for i, r := range results {
		xys[len(results)-1-i] = plotter.XY{X: r.RichFactor(), Y: float64(len(results) - 1 - i)}
		minCount = min(minCount, r.StudyCount)
		maxCount = max(maxCount, r.StudyCount)
		q := negLog10(r.FDR)
		minQ = math.Min(minQ, q)
		maxQ = math.Max(maxQ, q)
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		r := results[len(results)-1-i]
		return draw.GlyphStyle{
			Shape:  draw.CircleGlyph{},
			Radius: bubbleRadius(r.StudyCount, minCount, maxCount),
			Color:  heatColor(negLog10(r.FDR), minQ, maxQ),
		}
	}

	p := newPlot(opts, "Rich factor")
	p.Add(plotter.NewGrid(), scatter)
	p.NominalY(termLabels(results, opts.LabelWidth)...)
	p.X.Min = 0

	w, h := opts.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving bubble chart: %w", err)
	}
	return nil
}

func bubbleRadius(count, lo, hi int) vg.Length {
	const minR, maxR = 3, 12
	if hi <= lo {
		return vg.Points((minR + maxR) / 2)
	}
	f := float64(count-lo) / float64(hi-lo)
	return vg.Points(minR + f*(maxR-minR))
}

// heatColor maps v in [lo, hi] from blue to red.
func heatColor(v, lo, hi float64) color.Color {
	f := 0.5
	if hi > lo {
		f = (v - lo) / (hi - lo)
	}
	return color.RGBA{
		R: uint8(40 + f*200),
		G: 60,
		B: uint8(240 - f*200),
		A: 255,
	}
}
