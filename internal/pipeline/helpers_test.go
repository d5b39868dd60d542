package pipeline_test

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/dsp"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
	"github.com/couchcryptid/seismic-intensity/internal/pipeline"
)

const testRate = 100.0

var testStart = time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)

// burst is a Gaussian-windowed sine of the given peak amplitude in m/s².
func burst(amp, freqHz float64, n int) []float64 {
	out := make([]float64, n)
	centre, sigma := float64(n)/2, float64(n)/12
	for i := range out {
		d := (float64(i) - centre) / sigma
		out[i] = amp * math.Exp(-d*d/2) * math.Sin(2*math.Pi*freqHz*float64(i)/testRate)
	}
	return out
}

func record(station string, c domain.Component, samples []float64) domain.WaveformRecord {
	return domain.WaveformRecord{
		StationID:  station,
		Component:  c,
		SampleRate: testRate,
		StartTime:  testStart,
		Samples:    samples,
		Unit:       domain.UnitAcceleration,
		Source:     station + ".json",
	}
}

func stationRecords(station string, amp float64) []domain.WaveformRecord {
	return []domain.WaveformRecord{
		record(station, domain.ComponentNorthSouth, burst(amp, 2, 2000)),
		record(station, domain.ComponentEastWest, burst(0.8*amp, 3, 2000)),
		record(station, domain.ComponentVertical, burst(0.5*amp, 5, 2000)),
	}
}

func stationEvent(station string, amp float64) domain.StationEvent {
	return domain.NewStationEvent(station, stationRecords(station, amp)...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newProcessor(t *testing.T, mutate ...func(*pipeline.Settings)) *pipeline.StationProcessor {
	t.Helper()
	settings := pipeline.DefaultSettings()
	for _, m := range mutate {
		m(&settings)
	}
	p, err := pipeline.NewStationProcessor(settings, nil, dsp.NewDesignCache(8), discardLogger())
	require.NoError(t, err)
	return p
}

func newOrchestrator(t *testing.T, decoder pipeline.Decoder, concurrency int) *pipeline.Orchestrator {
	t.Helper()
	return pipeline.NewOrchestrator(newProcessor(t), decoder, pipeline.OrchestratorConfig{
		Concurrency: concurrency,
		GroupWindow: domain.DefaultGroupWindow,
	}, discardLogger(), observability.NewMetricsForTesting())
}

// --- mocks ---

type fakeDecoder map[string][]domain.WaveformRecord

func (d fakeDecoder) Decode(path string) ([]domain.WaveformRecord, error) {
	recs, ok := d[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrInvalidRecord)
	}
	return recs, nil
}

type recordingLoader struct {
	mu      sync.Mutex
	batches []*domain.Batch
	err     error
}

func (l *recordingLoader) LoadBatch(_ context.Context, batch *domain.Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = append(l.batches, batch)
	return l.err
}

func (l *recordingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.batches)
}

type progressLog struct {
	mu     sync.Mutex
	stages map[domain.StationKey][]domain.Stage
}

func newProgressLog() *progressLog {
	return &progressLog{stages: make(map[domain.StationKey][]domain.Stage)}
}

func (p *progressLog) record(key domain.StationKey, stage domain.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages[key] = append(p.stages[key], stage)
}
