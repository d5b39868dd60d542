package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
)

// ErrInvalidConcurrency is returned before any work starts when the batch
// would have no worker slots.
var ErrInvalidConcurrency = errors.New("concurrency limit must be at least 1")

// Decoder turns one input file into waveform records.
type Decoder interface {
	Decode(path string) ([]domain.WaveformRecord, error)
}

// BatchLoader writes a finished batch to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batch *domain.Batch) error
}

// BatchRequest describes one batch run.
type BatchRequest struct {
	// Inputs are decoded and grouped into station events.
	Inputs []string
	// Events are processed as given, in addition to those from Inputs.
	Events []domain.StationEvent
	// OutputDir must be writable when set; file sinks write there.
	OutputDir string
	// Concurrency overrides the orchestrator's default when non-zero.
	Concurrency int
	Progress    ProgressFunc
}

// OrchestratorConfig holds the batch-level settings.
type OrchestratorConfig struct {
	Concurrency int
	GroupWindow time.Duration
}

type namedLoader struct {
	name   string
	loader BatchLoader
}

// Orchestrator decodes inputs, groups them into station events, processes the
// events on a bounded worker pool and hands the ordered results to loaders.
type Orchestrator struct {
	processor *StationProcessor
	decoder   Decoder
	cfg       OrchestratorConfig
	loaders   []namedLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewOrchestrator creates an Orchestrator. decoder may be nil when requests
// only carry pre-grouped events.
func NewOrchestrator(processor *StationProcessor, decoder Decoder, cfg OrchestratorConfig, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	if cfg.GroupWindow <= 0 {
		cfg.GroupWindow = domain.DefaultGroupWindow
	}
	return &Orchestrator{
		processor: processor,
		decoder:   decoder,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// AddLoader registers a sink. Loaders run in registration order after every
// station event has finished.
func (o *Orchestrator) AddLoader(name string, l BatchLoader) {
	o.loaders = append(o.loaders, namedLoader{name: name, loader: l})
}

// RunBatch processes one batch. Configuration problems (no worker slots, an
// unusable output directory, inputs without a decoder) are returned before any
// work starts, with a nil batch. Otherwise the batch always carries one result
// per station event and per undecodable input; a non-nil error alongside it
// reports loaders that failed.
func (o *Orchestrator) RunBatch(ctx context.Context, req BatchRequest) (*domain.Batch, error) {
	limit := o.cfg.Concurrency
	if req.Concurrency != 0 {
		limit = req.Concurrency
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidConcurrency, limit)
	}
	if len(req.Inputs) > 0 && o.decoder == nil {
		return nil, errors.New("batch has input files but no decoder is configured")
	}
	if req.OutputDir != "" {
		if err := ensureWritable(req.OutputDir); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		StartedAt: start.UTC(),
		OutputDir: req.OutputDir,
	}
	logger := o.logger.With("batch_id", batch.ID)

	records, results := o.decodeInputs(req.Inputs, logger)
	events := append(domain.GroupStationEvents(records, o.cfg.GroupWindow), req.Events...)

	logger.Info("batch started",
		"inputs", len(req.Inputs),
		"records", len(records),
		"station_events", len(events),
		"concurrency", limit,
	)
	o.metrics.BatchSize.Observe(float64(len(events)))

	for _, out := range o.process(ctx, events, limit, req.Progress) {
		results = append(results, out.Result)
		batch.Series = append(batch.Series, out.Series...)
	}

	batch.Results = domain.Aggregate(results)
	batch.Summary = domain.Summarize(batch.Results)
	batch.FinishedAt = time.Now().UTC()

	for _, r := range batch.Results {
		o.metrics.StationEvents.WithLabelValues(string(r.Status)).Inc()
		if r.Status == domain.StatusFailed {
			o.metrics.StationFailures.WithLabelValues(string(r.ErrorKind), string(r.FailedStage)).Inc()
		}
	}

	err := o.load(ctx, batch, logger)

	o.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	logger.Info("batch finished",
		"duration", time.Since(start),
		"succeeded", batch.Summary.Succeeded,
		"partial", batch.Summary.Partial,
		"failed", batch.Summary.Failed,
		"max_class", batch.Summary.MaxClass,
	)
	return batch, err
}

// decodeInputs decodes every input. An input that cannot be decoded yields a
// failed result named after the file, so it is reported rather than dropped.
func (o *Orchestrator) decodeInputs(paths []string, logger *slog.Logger) ([]domain.WaveformRecord, []domain.IntensityResult) {
	var (
		records []domain.WaveformRecord
		failed  []domain.IntensityResult
	)
	for _, path := range paths {
		recs, err := o.decoder.Decode(path)
		if err != nil {
			logger.Warn("decode failed", "path", path, "error", err)
			o.metrics.DecodeErrors.Inc()
			failed = append(failed, domain.FailedSourceResult(sourceStem(path), path, err))
			continue
		}
		o.metrics.RecordsDecoded.Add(float64(len(recs)))
		records = append(records, recs...)
	}
	return records, failed
}

type indexedOutcome struct {
	index   int
	outcome Outcome
}

// process runs every event on at most limit goroutines. Outcomes are returned
// in event order regardless of completion order. Once ctx is done, events that
// have not been admitted are failed as cancelled without running.
func (o *Orchestrator) process(ctx context.Context, events []domain.StationEvent, limit int, progress ProgressFunc) []Outcome {
	sem := semaphore.NewWeighted(int64(limit))
	outcomes := make(chan indexedOutcome, len(events))

	var wg sync.WaitGroup
	for i, ev := range events {
		if progress != nil {
			progress(ev.Key(), domain.StagePending)
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes <- indexedOutcome{index: i, outcome: cancelled(ev, progress, err)}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			o.metrics.WorkersInFlight.Inc()
			defer o.metrics.WorkersInFlight.Dec()

			start := time.Now()
			out := o.processor.Process(ctx, ev, progress)
			o.metrics.StationDuration.Observe(time.Since(start).Seconds())

			outcomes <- indexedOutcome{index: i, outcome: out}
		}()
	}

	wg.Wait()
	close(outcomes)

	ordered := make([]Outcome, len(events))
	for res := range outcomes {
		ordered[res.index] = res.outcome
	}
	return ordered
}

func cancelled(ev domain.StationEvent, progress ProgressFunc, cause error) Outcome {
	if progress != nil {
		progress(ev.Key(), domain.StageFailed)
	}
	return Outcome{Result: domain.FailedResult(ev, domain.StagePending, domain.NewCancelled(cause))}
}

func (o *Orchestrator) load(ctx context.Context, batch *domain.Batch, logger *slog.Logger) error {
	var errs []error
	for _, l := range o.loaders {
		if err := l.loader.LoadBatch(ctx, batch); err != nil {
			logger.Error("load batch failed", "sink", l.name, "error", err)
			o.metrics.LoadErrors.WithLabelValues(l.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
			continue
		}
		o.metrics.ResultsLoaded.WithLabelValues(l.name).Add(float64(len(batch.Results)))
	}
	return errors.Join(errs...)
}

// ensureWritable creates dir if needed and proves a file can be created in it.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return fmt.Errorf("output directory %s: %w", dir, err)
	}
	return os.Remove(name)
}

func sourceStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
