package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchSource yields input files that have not been processed yet.
type BatchSource interface {
	ExtractBatch(ctx context.Context) ([]string, error)
	// Commit marks paths as processed so they are not returned again.
	Commit(ctx context.Context, paths []string) error
}

// Runner watches a source and processes each new set of inputs as a batch.
type Runner struct {
	source       BatchSource
	orchestrator *Orchestrator
	outputDir    string
	pollInterval time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics

	ready     atomic.Bool
	lastBatch atomic.Pointer[domain.Batch]
}

// NewRunner creates a Runner. A nil clock uses real time.
func NewRunner(source BatchSource, orchestrator *Orchestrator, outputDir string, pollInterval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		source:       source,
		orchestrator: orchestrator,
		outputDir:    outputDir,
		pollInterval: pollInterval,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once a batch has been processed and loaded.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no batch has been processed yet")
	}
	return nil
}

// LastBatch returns the most recently completed batch, or nil.
func (r *Runner) LastBatch() *domain.Batch {
	return r.lastBatch.Load()
}

// Run polls the source until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("watcher started", "output_dir", r.outputDir, "poll_interval", r.pollInterval)
	r.metrics.WatcherRunning.Set(1)
	defer r.metrics.WatcherRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !r.poll(ctx, &backoff) {
			return nil
		}
	}
}

// poll runs one extract-process-commit cycle. Returns false if the runner
// should stop.
func (r *Runner) poll(ctx context.Context, backoff *time.Duration) bool {
	paths, err := r.source.ExtractBatch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.logger.Error("scan inputs failed", "error", err)
		return r.backoffOrStop(ctx, backoff)
	}

	if len(paths) == 0 {
		return r.sleep(ctx, r.pollInterval)
	}

	batch, err := r.orchestrator.RunBatch(ctx, BatchRequest{Inputs: paths, OutputDir: r.outputDir})
	if batch == nil {
		r.logger.Error("batch rejected", "error", err, "inputs", len(paths))
		return r.backoffOrStop(ctx, backoff)
	}
	if ctx.Err() != nil {
		// Cancelled units are reported but the inputs stay unprocessed.
		return false
	}
	if err != nil {
		// Inputs stay uncommitted and are retried as a whole.
		return r.backoffOrStop(ctx, backoff)
	}

	if err := r.source.Commit(ctx, paths); err != nil {
		r.logger.Warn("commit inputs failed", "error", err, "inputs", len(paths))
	}
	*backoff = initialBackoff
	r.lastBatch.Store(batch)
	r.ready.Store(true)
	return true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns false
// if the runner should stop.
func (r *Runner) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !r.sleep(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := r.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
