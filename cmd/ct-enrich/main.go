// Command ct-enrich runs GO or KEGG enrichment analysis on a gene list.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/enrichment"
	"github.com/cottongenomics/cotton-toolkit/internal/cli"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	globalOpts cli.GlobalOptions
	ioOpts     cli.IOOptions

	assembly       string
	annotationKind string
	annotationFile string
	cols           enrichment.Columns
	hasHeader      bool
	hasLog2FC      bool
	collapse       bool
	sortBy         string
	topN           int

	barPlot    string
	bubblePlot string
	upsetPlot  string
	cnetPlot   string
	plotOpts   enrichment.PlotOptions
)

var rootCmd = &cobra.Command{
	Use:   "ct-enrich [options]",
	Short: "GO/KEGG enrichment analysis",
	Long: `Test which GO terms or KEGG pathways are over-represented in a study
gene list, using a one-sided hypergeometric test against all annotated
genes and Benjamini-Hochberg FDR correction.

The study list is read from --input or stdin: gene IDs separated by
whitespace, commas or semicolons. With --log2fc each line holds a gene
ID and its log2 fold change, and the mean fold change of each term's
genes is reported.

The annotation is either a table given with --annotation or the GO or
KEGG file downloaded for the assembly given with -g. Its first three
columns are taken as gene, term and description unless named with
--gene-col, --term-col and --desc-col.

Sort keys: ` + strings.Join(enrichment.SortKeys, ", ") + `
Plot formats: ` + strings.Join(enrichment.PlotFormats, ", ") + `

Examples:

  # GO enrichment with the downloaded annotation
  ct-enrich -g HAU_v1 -i degs.txt -o go_enrichment.csv --bar go_bar.png

  # KEGG pathways with fold changes and a bubble chart
  ct-enrich -g HAU_v1 --type KEGG_pathways --log2fc --header -i degs_fc.txt \
      -o kegg.xlsx --bubble kegg_bubble.pdf --top 20

  # Shared genes between the top terms
  ct-enrich -g HAU_v1 -i degs.txt --top 10 --upset go_upset.png --cnet go_cnet.svg`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	cli.AddGlobalFlags(rootCmd, &globalOpts)
	flags := rootCmd.Flags()
	flags.StringVarP(&ioOpts.Input, "input", "i", "", "study gene list (default: stdin)")
	flags.StringVarP(&ioOpts.Output, "output", "o", "", "results file (.csv, .tsv, .xlsx; default: stdout)")

	flags.StringVarP(&assembly, "assembly", "g", "", "assembly whose downloaded annotation is used")
	flags.StringVar(&annotationKind, "type", config.FileGO, "annotation file type with -g (GO, KEGG_pathways)")
	flags.StringVarP(&annotationFile, "annotation", "a", "", "annotation table (overrides -g)")
	flags.StringVar(&cols.Gene, "gene-col", "", "annotation gene ID column (default: first)")
	flags.StringVar(&cols.Term, "term-col", "", "annotation term column (default: second)")
	flags.StringVar(&cols.Description, "desc-col", "", "annotation description column (default: third)")

	flags.BoolVar(&hasHeader, "header", false, "the study list starts with a header line")
	flags.BoolVar(&hasLog2FC, "log2fc", false, "the study list has a log2 fold change column")
	flags.BoolVar(&collapse, "collapse", false, "strip transcript suffixes (.1, .2) from gene IDs")
	flags.StringVar(&sortBy, "sort", enrichment.SortFDR, "sort results by")
	flags.IntVar(&topN, "top", 0, "keep the top N terms (0 = all)")

	flags.StringVar(&barPlot, "bar", "", "write a bar chart to this file")
	flags.StringVar(&bubblePlot, "bubble", "", "write a bubble chart to this file")
	flags.StringVar(&upsetPlot, "upset", "", "write an UpSet chart of genes shared between terms to this file")
	flags.StringVar(&cnetPlot, "cnet", "", "write a gene-term network chart to this file")
	flags.Float64Var(&plotOpts.Width, "width", 10, "plot width in inches")
	flags.Float64Var(&plotOpts.Height, "height", 8, "plot height in inches")
	flags.StringVar(&plotOpts.Title, "title", "", "plot title (default: \"<type> enrichment\")")
	flags.BoolVar(&plotOpts.ShowTitle, "show-title", true, "draw the title above each chart")
	flags.IntVar(&plotOpts.LabelWidth, "label-width", 50, "truncate term labels to this many characters")
}

func readStudy() (*enrichment.StudyGenes, error) {
	in, err := cli.OpenInput(ioOpts.Input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	var lines []string
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading study genes: %w", err)
	}
	return enrichment.ParseStudyGenes(lines, hasHeader, hasLog2FC)
}

// annotationPath returns the annotation table to load, standardizing a
// downloaded file into the temp directory first.
func annotationPath(cfg *config.Config, logger *zap.Logger) (string, error) {
	if annotationFile != "" {
		return annotationFile, nil
	}
	if assembly == "" {
		return "", fmt.Errorf("either --annotation or --assembly is required")
	}

	sources, err := config.LoadGenomeSources(cfg)
	if err != nil {
		return "", err
	}
	src, ok := sources[assembly]
	if !ok {
		return "", fmt.Errorf("unknown assembly %q", assembly)
	}
	local := config.LocalFilePath(cfg, src, annotationKind)
	if local == "" {
		return "", fmt.Errorf("assembly %s has no %s file", assembly, annotationKind)
	}
	if config.FileStatusOf(cfg, src, annotationKind) != config.StatusComplete {
		return "", fmt.Errorf("%s not downloaded; run ct-download -g %s -f %s", local, assembly, annotationKind)
	}
	return tabular.PrepareInput(local, cfg.TempDir(), logger)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := cli.Setup(&globalOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	study, err := readStudy()
	if err != nil {
		return err
	}

	path, err := annotationPath(cfg, logger)
	if err != nil {
		return err
	}
	ann, err := enrichment.LoadAnnotation(path, cols, collapse)
	if err != nil {
		return err
	}
	logger.Info("loaded annotation",
		zap.String("file", filepath.Base(path)),
		zap.Int("genes", ann.Genes()),
		zap.Int("terms", ann.Terms()))

	results, err := enrichment.Run(study, ann, enrichment.Options{
		TopN:                topN,
		SortBy:              sortBy,
		CollapseTranscripts: collapse,
	})
	if err != nil {
		return err
	}
	logger.Info("enrichment complete", zap.Int("study_genes", len(study.IDs)), zap.Int("terms", len(results)))

	if err := cli.WriteTable(enrichment.ResultsTable(results), ioOpts.Output); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	if plotOpts.Title == "" {
		plotOpts.Title = annotationKind + " enrichment"
	}
	charts := []struct {
		kind string
		path string
		plot func([]enrichment.Result, string, enrichment.PlotOptions) error
	}{
		{"bar", barPlot, enrichment.PlotBar},
		{"bubble", bubblePlot, enrichment.PlotBubble},
		{"upset", upsetPlot, enrichment.PlotUpset},
		{"cnet", cnetPlot, enrichment.PlotCnet},
	}
	for _, c := range charts {
		if c.path == "" {
			continue
		}
		if err := c.plot(results, c.path, plotOpts); err != nil {
			return fmt.Errorf("%s chart: %w", c.kind, err)
		}
		logger.Info("chart written", zap.String("kind", c.kind), zap.String("path", c.path))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
