package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/featuredb"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"go.uber.org/zap"
)

// ResolveGenome looks up the assembly named in opts and returns the
// feature source for its GFF3 file.
func ResolveGenome(cfg *config.Config, opts *GenomeOptions) (featuredb.Source, error) {
	sources, err := config.LoadGenomeSources(cfg)
	if err != nil {
		return featuredb.Source{}, err
	}
	src, ok := sources[opts.Assembly]
	if !ok {
		return featuredb.Source{}, fmt.Errorf("unknown assembly %q (available: %s)",
			opts.Assembly, strings.Join(config.SortedIDs(sources), ", "))
	}

	gffPath := opts.GFF
	if gffPath == "" {
		gffPath = config.LocalFilePath(cfg, src, config.FileGFF3)
		if gffPath == "" {
			return featuredb.Source{}, fmt.Errorf("assembly %s has no gff3_url; pass --gff", opts.Assembly)
		}
		if _, err := os.Stat(gffPath); errors.Is(err, os.ErrNotExist) {
			return featuredb.Source{}, fmt.Errorf("GFF3 file %s not found; run ct-download -g %s -f gff3 first",
				gffPath, opts.Assembly)
		}
	}

	return featuredb.Source{
		AssemblyID: src.VersionID,
		GFFPath:    gffPath,
		IDPattern:  src.GeneIDRegex,
		Force:      opts.Force,
	}, nil
}

// NewFeatureService creates the feature service for cfg. Progress is
// drawn on bar when it is non-nil.
func NewFeatureService(cfg *config.Config, logger *zap.Logger, bar *PercentBar) *featuredb.Service {
	opts := []featuredb.ServiceOption{featuredb.WithLogger(logger)}
	if bar != nil {
		opts = append(opts, featuredb.WithProgress(bar.Update))
	}
	return featuredb.NewService(cfg.Resolve(cfg.Annotation.GFFDBStorageDir), opts...)
}

// DetailsTable tabulates gene details in featuredb.DetailColumns order.
func DetailsTable(details []featuredb.GeneDetails) *tabular.Table {
	t := &tabular.Table{Header: append([]string(nil), featuredb.DetailColumns...)}
	for _, d := range details {
		t.Rows = append(t.Rows, d.Row())
	}
	return t
}
