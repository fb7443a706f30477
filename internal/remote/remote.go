// Package remote keeps the project's remote git sources up to date.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SmritiSatyan/garden/internal/config"
	"github.com/SmritiSatyan/garden/internal/events"
	"github.com/SmritiSatyan/garden/internal/proc"
	"github.com/SmritiSatyan/garden/internal/supervise"
)

// Op is the git operation performed for a source.
type Op string

const (
	OpClone Op = "clone"
	OpPull  Op = "pull"
)

// Options configures UpdateAll.
type Options struct {
	// Parallel updates sources concurrently, Limit at a time (0 = all).
	Parallel bool
	Limit    int
	// Rate caps git launches per second. Zero disables pacing.
	Rate float64

	// Git is the git executable, "git" when empty.
	Git    string
	Events events.Emitter
}

// Result reports the update of one source.
type Result struct {
	Source   config.Source
	Path     string
	Op       Op
	Duration time.Duration
	Err      error
}

// UpdateAll clones missing sources and pulls existing ones. Every source is
// attempted; the returned error joins the failures.
func UpdateAll(ctx context.Context, p *config.Project, opts Options) ([]Result, error) {
	logger := slog.With("component", "remote", "project", p.Name)

	if opts.Git == "" {
		opts.Git = "git"
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	var g errgroup.Group
	switch {
	case !opts.Parallel:
		g.SetLimit(1)
	case opts.Limit > 0:
		g.SetLimit(opts.Limit)
	}

	results := make([]Result, len(p.Sources))
	var mu sync.Mutex
	for i, src := range p.Sources {
		g.Go(func() error {
			res := update(ctx, limiter, p, src, opts)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			if res.Err != nil {
				logger.Warn("source update failed", "source", src.Name, "op", res.Op, "error", res.Err)
			} else {
				logger.Info("source updated", "source", src.Name, "op", res.Op, "elapsed", res.Duration.Round(time.Millisecond))
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", r.Source.Name, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func update(ctx context.Context, limiter *rate.Limiter, p *config.Project, src config.Source, opts Options) (res Result) {
	path := p.SourcePath(src)
	res = Result{Source: src, Path: path}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	var args []string
	if isCheckout(path) {
		res.Op = OpPull
		args = []string{"-C", path, "pull"}
	} else {
		res.Op = OpClone
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			res.Err = fmt.Errorf("creating parent directory: %w", err)
			return res
		}
		args = []string{"clone", src.RepositoryURL, path}
	}

	if err := limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	h := proc.Spawn(ctx, proc.Command{Path: opts.Git, Args: args})
	supervise.StreamLogs(h, src.Name, opts.Events)
	res.Err = supervise.WaitForProcess(ctx, h, fmt.Sprintf("git %s failed", res.Op))
	return res
}

func isCheckout(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}
