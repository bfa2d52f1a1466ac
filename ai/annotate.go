package ai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cottongenomics/cotton-toolkit/tabular"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrorPrefix marks cells whose prompt failed.
const ErrorPrefix = "ERROR: "

// AnnotateOptions controls AnnotateTable.
type AnnotateOptions struct {
	// Column holds the text sent to the model.
	Column string

	// NewColumn receives the replies. It is appended when missing and
	// overwritten otherwise.
	NewColumn string

	// Template is the prompt, with {text} replaced by the cell value.
	Template string

	// Workers bounds concurrent requests. Values below 1 mean 1.
	Workers int

	Logger *zap.Logger

	// Progress is called after each row with the rows done and the
	// number of non-empty rows.
	Progress func(done, total int)
}

// AnnotateStats summarises an AnnotateTable run.
type AnnotateStats struct {
	Processed int
	Skipped   int
	Failed    int
}

// AnnotateTable sends every non-empty cell of opts.Column through p and
// stores the reply in opts.NewColumn of the same row. Rows whose request
// fails get ErrorPrefix followed by the error, so one failure does not
// abort the batch. Only context cancellation stops the run early.
func AnnotateTable(ctx context.Context, t *tabular.Table, p Provider, opts AnnotateOptions) (AnnotateStats, error) {
	var stats AnnotateStats
	values, err := t.Values(opts.Column)
	if err != nil {
		return stats, err
	}
	if opts.NewColumn == "" {
		return stats, fmt.Errorf("output column name is empty")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := max(opts.Workers, 1)

	out := make([]string, len(values))
	var todo []int
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			stats.Skipped++
			continue
		}
		todo = append(todo, i)
	}

	logger.Info("annotating table",
		zap.String("provider", p.Name()),
		zap.String("column", opts.Column),
		zap.Int("rows", len(todo)),
		zap.Int("workers", workers))

	var done, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range todo {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reply, err := p.Complete(gctx, RenderPrompt(opts.Template, strings.TrimSpace(values[i])))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed.Add(1)
				logger.Warn("annotation failed", zap.Int("row", i+1), zap.Error(err))
				out[i] = ErrorPrefix + err.Error()
			} else {
				out[i] = reply
			}
			n := done.Add(1)
			if opts.Progress != nil {
				opts.Progress(int(n), len(todo))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if err := t.SetColumn(opts.NewColumn, out); err != nil {
		return stats, err
	}
	stats.Failed = int(failed.Load())
	stats.Processed = len(todo) - stats.Failed
	return stats, nil
}
