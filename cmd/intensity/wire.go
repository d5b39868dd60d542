package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/seismic-intensity/internal/adapter/calibfile"
	kafkaadapter "github.com/couchcryptid/seismic-intensity/internal/adapter/kafka"
	"github.com/couchcryptid/seismic-intensity/internal/adapter/report"
	"github.com/couchcryptid/seismic-intensity/internal/adapter/storage"
	"github.com/couchcryptid/seismic-intensity/internal/adapter/waveformfile"
	"github.com/couchcryptid/seismic-intensity/internal/config"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/dsp"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
	"github.com/couchcryptid/seismic-intensity/internal/pipeline"
)

// designCacheSize bounds the number of distinct filter designs kept; one per
// sample rate in practice.
const designCacheSize = 32

// service is the wired processing stack shared by run and watch.
type service struct {
	orchestrator *pipeline.Orchestrator
	store        *storage.Store
	closers      []namedCloser
	logger       *slog.Logger
}

type namedCloser struct {
	name  string
	close func() error
}

// newService builds the orchestrator and its sinks from cfg. The report writer
// is always registered; Kafka and the result store only when configured.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*service, error) {
	calibration := domain.CalibrationTable{}
	if cfg.CalibrationFile != "" {
		table, err := calibfile.Load(cfg.CalibrationFile)
		if err != nil {
			return nil, err
		}
		calibration = table
		logger.Info("calibration loaded", "file", cfg.CalibrationFile, "entries", len(table))
	}

	settings := pipeline.Settings{
		Preprocess:     cfg.Preprocess(),
		Extract:        cfg.Extract(),
		Intensity:      cfg.Intensity(),
		AlignTolerance: cfg.AlignTolerance,
		KeepSeries:     cfg.WriteSeries,
	}
	processor, err := pipeline.NewStationProcessor(settings, calibration, dsp.NewDesignCache(designCacheSize), logger)
	if err != nil {
		return nil, err
	}

	orch := pipeline.NewOrchestrator(processor, waveformfile.NewDecoder(), pipeline.OrchestratorConfig{
		Concurrency: cfg.Concurrency,
		GroupWindow: cfg.GroupWindow,
	}, logger, metrics)

	s := &service{orchestrator: orch, logger: logger}
	orch.AddLoader("report", report.NewWriter(cfg.OutputDir, logger))

	if cfg.StorageDriver != "" {
		store, err := storage.Open(cfg.StorageDriver, cfg.StorageDSN)
		if err != nil {
			return nil, fmt.Errorf("open result store: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		s.store = store
		s.closers = append(s.closers, namedCloser{"result store", store.Close})
		orch.AddLoader("storage", store)
		logger.Info("result store enabled", "driver", cfg.StorageDriver)
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		s.closers = append(s.closers, namedCloser{"kafka writer", writer.Close})
		orch.AddLoader("kafka", writer)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaResultTopic)
	}
	return s, nil
}

// Close releases sinks in reverse order of creation.
func (s *service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.close(); err != nil {
			s.logger.Error("close failed", "component", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
