package enrichment

import (
	"cmp"
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// MaxIntersections caps the number of bars in an UpSet chart.
const MaxIntersections = 20

var errNoStudyGenes = errors.New("enrichment results carry no study genes")

var (
	barColor   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	edgeColor  = color.RGBA{R: 180, G: 180, B: 180, A: 255}
	geneColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	emptyColor = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	dotColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// Intersection is a group of study genes annotated with exactly the same
// terms. Terms holds indexes into the results slice.
type Intersection struct {
	Terms []int
	Genes []string
}

// Intersections groups the study genes of results by the exact set of
// terms they carry, largest group first.
func Intersections(results []Result) []Intersection {
	membership := make(map[string][]int)
	var order []string
	for ti, r := range results {
		for _, g := range r.Genes {
			if _, ok := membership[g]; !ok {
				order = append(order, g)
			}
			membership[g] = append(membership[g], ti)
		}
	}

	index := make(map[string]int)
	var out []Intersection
	for _, g := range order {
		terms := membership[g]
		key := fmt.Sprint(terms)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Intersection{Terms: terms})
		}
		out[i].Genes = append(out[i].Genes, g)
	}
	slices.SortStableFunc(out, func(a, b Intersection) int {
		if c := cmp.Compare(len(b.Genes), len(a.Genes)); c != 0 {
			return c
		}
		return cmp.Compare(len(a.Terms), len(b.Terms))
	})
	return out
}

// PlotUpset draws an UpSet chart of the study genes shared between
// terms: one bar per intersection above a dot matrix marking which terms
// form it. At most MaxIntersections bars are drawn.
func PlotUpset(results []Result, path string, opts PlotOptions) error {
	if len(results) == 0 {
		return errNoResults
	}
	if err := checkFormat(path); err != nil {
		return err
	}
	sets := Intersections(results)
	if len(sets) == 0 {
		return errNoStudyGenes
	}
	if len(sets) > MaxIntersections {
		sets = sets[:MaxIntersections]
	}

	maxCount := float64(len(sets[0].Genes))
	rowH := maxCount * 0.8 / float64(len(results))
	rowY := func(term int) float64 { return -float64(term+1) * rowH }

	p := newPlot(opts, "")
	w, h := opts.size()

	values := make(plotter.Values, len(sets))
	for i, s := range sets {
		values[i] = float64(len(s.Genes))
	}
	bars, err := plotter.NewBarChart(values, (w*0.6)/vg.Length(len(sets)+1))
	if err != nil {
		return err
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)

	var empty, filled plotter.XYs
	for i, s := range sets {
		for t := range results {
			xy := plotter.XY{X: float64(i), Y: rowY(t)}
			if slices.Contains(s.Terms, t) {
				filled = append(filled, xy)
			} else {
				empty = append(empty, xy)
			}
		}
		if len(s.Terms) > 1 {
			line, err := plotter.NewLine(plotter.XYs{
				{X: float64(i), Y: rowY(s.Terms[0])},
				{X: float64(i), Y: rowY(s.Terms[len(s.Terms)-1])},
			})
			if err != nil {
				return err
			}
			line.Color = dotColor
			line.Width = vg.Points(1.5)
			p.Add(line)
		}
	}
	for _, dots := range []struct {
		xys   plotter.XYs
		color color.Color
	}{{empty, emptyColor}, {filled, dotColor}} {
		if len(dots.xys) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(dots.xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle = draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: vg.Points(4), Color: dots.color}
		p.Add(sc)
	}

	var ticks plot.ConstantTicks
	for _, t := range (plot.DefaultTicks{}).Ticks(0, maxCount) {
		if t.Value >= 0 && t.Value <= maxCount {
			ticks = append(ticks, t)
		}
	}
	for t, r := range results {
		ticks = append(ticks, plot.Tick{Value: rowY(t), Label: termLabel(r, opts.LabelWidth)})
	}
	p.Y.Tick.Marker = ticks
	p.Y.Label.Text = "Genes"
	p.Y.Min = rowY(len(results)-1) - rowH/2
	p.Y.Max = maxCount * 1.05
	p.X.Min = -0.5
	p.X.Max = float64(len(sets)) - 0.5
	p.X.Tick.Marker = plot.ConstantTicks{}

	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving upset chart: %w", err)
	}
	return nil
}

// PlotCnet draws a gene-concept network: terms in a column on the left,
// their study genes in a column on the right and an edge for every
// annotation. Term nodes are sized by gene count and coloured by FDR.
func PlotCnet(results []Result, path string, opts PlotOptions) error {
	if len(results) == 0 {
		return errNoResults
	}
	if err := checkFormat(path); err != nil {
		return err
	}

	var genes []string
	seen := make(map[string]bool)
	for _, r := range results {
		for _, g := range r.Genes {
			if !seen[g] {
				seen[g] = true
				genes = append(genes, g)
			}
		}
	}
	if len(genes) == 0 {
		return errNoStudyGenes
	}
	slices.Sort(genes)
	geneY := make(map[string]float64, len(genes))
	for i, g := range genes {
		geneY[g] = column(i, len(genes))
	}

	p := newPlot(opts, "")
	p.HideAxes()
	p.X.Min, p.X.Max = -0.8, 1.5
	p.Y.Min, p.Y.Max = 0, 1

	termXYs := make(plotter.XYs, len(results))
	minCount, maxCount := len(genes), 0
	minQ, maxQ := math.Inf(1), math.Inf(-1)
	for i, r := range results {
		termXYs[i] = plotter.XY{X: 0, Y: column(i, len(results))}
		minCount = min(minCount, len(r.Genes))
		maxCount = max(maxCount, len(r.Genes))
		minQ = math.Min(minQ, negLog10(r.FDR))
		maxQ = math.Max(maxQ, negLog10(r.FDR))
		for _, g := range r.Genes {
			edge, err := plotter.NewLine(plotter.XYs{termXYs[i], {X: 1, Y: geneY[g]}})
			if err != nil {
				return err
			}
			edge.Color = edgeColor
			p.Add(edge)
		}
	}

	terms, err := plotter.NewScatter(termXYs)
	if err != nil {
		return err
	}
	terms.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		r := results[i]
		return draw.GlyphStyle{
			Shape:  draw.CircleGlyph{},
			Radius: bubbleRadius(len(r.Genes), minCount, maxCount),
			Color:  heatColor(negLog10(r.FDR), minQ, maxQ),
		}
	}

	geneXYs := make(plotter.XYs, len(genes))
	for i, g := range genes {
		geneXYs[i] = plotter.XY{X: 1, Y: geneY[g]}
	}
	geneNodes, err := plotter.NewScatter(geneXYs)
	if err != nil {
		return err
	}
	geneNodes.GlyphStyle = draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: vg.Points(3), Color: geneColor}
	p.Add(terms, geneNodes)

	termNames := make([]string, len(results))
	for i, r := range results {
		termNames[i] = termLabel(r, opts.LabelWidth)
	}
	termText, err := nodeLabels(termXYs, termNames, text.XRight, -8)
	if err != nil {
		return err
	}
	geneText, err := nodeLabels(geneXYs, genes, text.XLeft, 6)
	if err != nil {
		return err
	}
	p.Add(termText, geneText)

	w, h := opts.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving cnet chart: %w", err)
	}
	return nil
}

// column spreads n nodes evenly over [0, 1], the first on top.
func column(i, n int) float64 {
	return 1 - (float64(i)+0.5)/float64(n)
}

func nodeLabels(xys plotter.XYs, names []string, align text.XAlignment, dx vg.Length) (*plotter.Labels, error) {
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = align
		labels.TextStyle[i].YAlign = text.YCenter
	}
	labels.Offset = vg.Point{X: dx}
	return labels, nil
}
