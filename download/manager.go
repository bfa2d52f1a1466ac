package download

import (
	"context"
	"fmt"

	"github.com/cottongenomics/cotton-toolkit/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one file to download.
type Job struct {
	Source  *config.GenomeSource
	FileKey string
	URL     string
	Dest    string
}

// Name identifies the job in logs and progress output.
func (j Job) Name() string {
	return j.Source.VersionID + "/" + j.FileKey
}

// Result is the outcome of one Job.
type Result struct {
	Job     Job
	Skipped bool
	Bytes   int64
	Err     error
}

// Manager runs download jobs for the genome sources of a configuration.
type Manager struct {
	Config *config.Config
	Client *Client
	Logger *zap.Logger

	// Workers bounds concurrent downloads. Values below 1 mean the
	// configured max_workers.
	Workers int

	// Force downloads files even when a complete copy exists.
	Force bool

	// Progress, when set, returns the progress callback for a job.
	Progress func(Job) ProgressFunc
}

// NewManager creates a Manager using the downloader settings of cfg.
func NewManager(cfg *config.Config, client *Client, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		Config:  cfg,
		Client:  client,
		Logger:  logger,
		Workers: cfg.Downloader.MaxWorkers,
		Force:   cfg.Downloader.ForceDownload,
	}
}

// Plan lists the jobs for the given assemblies and file keys. Empty
// versions selects every assembly and empty fileKeys every file type.
// Files without a URL are left out.
func (m *Manager) Plan(sources map[string]*config.GenomeSource, versions, fileKeys []string) ([]Job, error) {
	if len(versions) == 0 {
		versions = config.SortedIDs(sources)
	}
	if len(fileKeys) == 0 {
		fileKeys = config.FileKeys
	}
	for _, key := range fileKeys {
		if !knownKey(key) {
			return nil, fmt.Errorf("unknown file type %q (known: %v)", key, config.FileKeys)
		}
	}

	var jobs []Job
	for _, id := range versions {
		src, ok := sources[id]
		if !ok {
			return nil, fmt.Errorf("unknown genome version %q", id)
		}
		for _, key := range fileKeys {
			u := src.URL(key)
			if u == "" {
				continue
			}
			jobs = append(jobs, Job{
				Source:  src,
				FileKey: key,
				URL:     u,
				Dest:    config.LocalFilePath(m.Config, src, key),
			})
		}
	}
	return jobs, nil
}

// Run executes jobs concurrently and returns one Result per job in job
// order. A failed job does not stop the others.
func (m *Manager) Run(ctx context.Context, jobs []Job) []Result {
	workers := m.Workers
	if workers < 1 {
		workers = m.Config.Downloader.MaxWorkers
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = m.runJob(ctx, job)
			return nil
		})
	}
	g.Wait()
	return results
}

func (m *Manager) runJob(ctx context.Context, job Job) Result {
	res := Result{Job: job}

	if !m.Force && config.FileStatusOf(m.Config, job.Source, job.FileKey) == config.StatusComplete {
		m.Logger.Info("file exists, skipping", zap.String("job", job.Name()), zap.String("path", job.Dest))
		res.Skipped = true
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	var progress ProgressFunc
	if m.Progress != nil {
		progress = m.Progress(job)
	}

	m.Logger.Info("downloading", zap.String("job", job.Name()), zap.String("url", job.URL))
	n, err := m.Client.Fetch(ctx, job.URL, job.Dest, progress)
	if err != nil {
		m.Logger.Error("download failed", zap.String("job", job.Name()), zap.Error(err))
		res.Err = fmt.Errorf("%s: %w", job.Name(), err)
		return res
	}
	m.Logger.Info("download complete", zap.String("job", job.Name()), zap.Int64("bytes", n))
	res.Bytes = n
	return res
}

func knownKey(key string) bool {
	for _, k := range config.FileKeys {
		if k == key {
			return true
		}
	}
	return false
}
