// Package download wraps the hub CLI to fetch model snapshots into the local
// cache for offline use on compute nodes.
package download

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llmdeploy/llmdeploy/internal/shell"
)

// Options identify the snapshot to fetch.
type Options struct {
	RepoID   string
	Revision string
	CacheDir string
}

// Downloader shells out to huggingface-cli. Downloads can run for a long
// time, so the runner's usual timeout does not apply; callers bound the
// operation through ctx.
type Downloader struct {
	Runner shell.Runner
	Logger *logrus.Logger
}

func New(logger *logrus.Logger) *Downloader {
	runner := shell.New(logger)
	// Model weights are tens of gigabytes; give the command a day.
	runner.Timeout = 24 * time.Hour
	return &Downloader{Runner: runner, Logger: logger}
}

// Fetch downloads the snapshot into the cache directory.
func (d *Downloader) Fetch(ctx context.Context, opts Options) error {
	if opts.RepoID == "" {
		return fmt.Errorf("repo id is required")
	}
	revision := opts.Revision
	if revision == "" {
		revision = "main"
	}
	args := []string{"download", opts.RepoID, "--revision", revision}
	if opts.CacheDir != "" {
		args = append(args, "--cache-dir", opts.CacheDir)
	}
	d.Logger.Infof("downloading %s@%s", opts.RepoID, revision)
	out, err := d.Runner.Output(ctx, "huggingface-cli", args...)
	if err != nil {
		return fmt.Errorf("download %s: %w", opts.RepoID, err)
	}
	d.Logger.Debugf("download output: %s", out)
	return nil
}
