package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/dsp"
)

// ProgressFunc observes stage transitions of station events. It is called from
// worker goroutines and must be safe for concurrent use.
type ProgressFunc func(key domain.StationKey, stage domain.Stage)

// Settings configures the per-station computation.
type Settings struct {
	Preprocess     domain.PreprocessConfig
	Extract        domain.ExtractConfig
	Intensity      domain.IntensityConfig
	AlignTolerance time.Duration
	// KeepSeries retains cleaned acceleration and velocity for plotting.
	KeepSeries bool
}

// DefaultSettings returns the default processing configuration.
func DefaultSettings() Settings {
	return Settings{
		Preprocess:     domain.DefaultPreprocessConfig(),
		Extract:        domain.DefaultExtractConfig(),
		Intensity:      domain.DefaultIntensityConfig(),
		AlignTolerance: 10 * time.Millisecond,
	}
}

// Validate rejects settings that would fail every station.
func (s Settings) Validate() error {
	if err := s.Preprocess.Validate(); err != nil {
		return err
	}
	if err := s.Extract.Validate(); err != nil {
		return err
	}
	if err := s.Intensity.Validate(); err != nil {
		return err
	}
	if s.AlignTolerance < 0 {
		return fmt.Errorf("alignment tolerance %s must not be negative", s.AlignTolerance)
	}
	return nil
}

// Outcome is everything one station event produces.
type Outcome struct {
	Result domain.IntensityResult
	Series []domain.WaveformSeries
}

// StationProcessor runs one station event through preprocessing, extraction
// and intensity computation. It holds no per-event state and is safe for
// concurrent use.
type StationProcessor struct {
	settings     Settings
	preprocessor *domain.Preprocessor
	logger       *slog.Logger
}

// NewStationProcessor creates a processor. Filter designs are shared through
// designs, which may be nil.
func NewStationProcessor(settings Settings, calibration domain.CalibrationTable, designs *dsp.DesignCache, logger *slog.Logger) (*StationProcessor, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processing settings: %w", err)
	}
	return &StationProcessor{
		settings:     settings,
		preprocessor: domain.NewPreprocessor(settings.Preprocess, calibration, designs),
		logger:       logger,
	}, nil
}

// Process computes the intensity of one station event. It never returns an
// error: every failure, including a panic in the numeric code and
// cancellation of ctx, becomes a failed result naming the stage it stopped
// at.
func (p *StationProcessor) Process(ctx context.Context, ev domain.StationEvent, progress ProgressFunc) (out Outcome) {
	run := &stationRun{event: ev, stage: domain.StagePending, progress: progress}

	defer func() {
		if r := recover(); r != nil {
			out = run.fail(p.logger, fmt.Errorf("panic while %s: %v", run.stage, r))
		}
	}()

	if ev.Err != nil {
		return run.fail(p.logger, ev.Err)
	}
	if len(ev.Records) == 0 {
		return run.fail(p.logger, &domain.Error{Kind: domain.KindIncompleteStation, Detail: "no components recorded"})
	}

	run.advance(domain.StagePreprocessing)
	if err := ev.CheckAlignment(p.settings.AlignTolerance); err != nil {
		return run.fail(p.logger, err)
	}
	components := ev.Components()
	cleaned := make([]domain.WaveformRecord, 0, len(components))
	for _, c := range components {
		if err := ctx.Err(); err != nil {
			return run.fail(p.logger, domain.NewCancelled(err))
		}
		rec, err := p.preprocessor.Preprocess(ev.Records[c])
		if err != nil {
			return run.fail(p.logger, err)
		}
		cleaned = append(cleaned, rec)
	}

	run.advance(domain.StageExtracting)
	motions := make([]domain.Motion, 0, len(cleaned))
	metrics := make([]domain.ComponentMetrics, 0, len(cleaned))
	for _, rec := range cleaned {
		if err := ctx.Err(); err != nil {
			return run.fail(p.logger, domain.NewCancelled(err))
		}
		m, err := domain.ExtractMotion(rec, p.settings.Extract)
		if err != nil {
			return run.fail(p.logger, err)
		}
		motions = append(motions, m)
		metrics = append(metrics, m.Metrics)
	}

	run.advance(domain.StageComputing)
	if err := ctx.Err(); err != nil {
		return run.fail(p.logger, domain.NewCancelled(err))
	}
	est, err := p.settings.Intensity.Compute(motions)
	if err != nil {
		return run.fail(p.logger, err)
	}

	out.Result = domain.NewResult(ev, metrics, est)
	if p.settings.KeepSeries {
		out.Series = seriesOf(ev, cleaned, motions)
	}
	run.advance(domain.StageSucceeded)

	p.logger.Debug("station event computed",
		"station_id", ev.StationID,
		"event_id", ev.EventID,
		"status", out.Result.Status,
		"intensity_value", out.Result.IntensityValue,
		"intensity_class", out.Result.IntensityClass,
	)
	return out
}

// stationRun tracks the state machine of one event.
type stationRun struct {
	event    domain.StationEvent
	stage    domain.Stage
	progress ProgressFunc
}

func (r *stationRun) advance(stage domain.Stage) {
	r.stage = stage
	if r.progress != nil {
		r.progress(r.event.Key(), stage)
	}
}

func (r *stationRun) fail(logger *slog.Logger, err error) Outcome {
	result := domain.FailedResult(r.event, r.stage, err)
	logger.Warn("station event failed",
		"station_id", r.event.StationID,
		"event_id", r.event.EventID,
		"stage", r.stage,
		"error_kind", result.ErrorKind,
		"error", err,
	)
	r.advance(domain.StageFailed)
	return Outcome{Result: result}
}

func seriesOf(ev domain.StationEvent, cleaned []domain.WaveformRecord, motions []domain.Motion) []domain.WaveformSeries {
	out := make([]domain.WaveformSeries, len(motions))
	for i, m := range motions {
		out[i] = domain.WaveformSeries{
			StationID:    ev.StationID,
			EventID:      ev.EventID,
			Component:    m.Metrics.Component,
			SampleRate:   m.SampleRate,
			StartTime:    cleaned[i].StartTime,
			Acceleration: m.Acceleration,
			Velocity:     m.Velocity,
		}
	}
	return out
}
