package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/seismic-intensity/internal/adapter/http"
	"github.com/couchcryptid/seismic-intensity/internal/adapter/waveformfile"
	"github.com/couchcryptid/seismic-intensity/internal/pipeline"
)

// ledgerName is the file in the output directory listing processed inputs.
const ledgerName = ".processed"

func newWatchCommand(a *app) *cobra.Command {
	var inputDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process new files in the input directory as they appear",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := a.cfg, a.logger
			if cmd.Flags().Changed("input") {
				cfg.InputDir = inputDir
			}
			if cfg.InputDir == "" {
				return errors.New("INPUT_DIR (or --input) is required for watch")
			}
			if filepath.Clean(cfg.InputDir) == filepath.Clean(cfg.OutputDir) {
				// Reports are JSON files and would be picked up as inputs.
				return errors.New("INPUT_DIR and OUTPUT_DIR must differ")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics := processMetrics()
			svc, err := newService(ctx, cfg, logger, metrics)
			if err != nil {
				return err
			}

			source, err := waveformfile.NewDirSource(cfg.InputDir, filepath.Join(cfg.OutputDir, ledgerName))
			if err != nil {
				_ = svc.Close()
				return err
			}
			runner := pipeline.NewRunner(source, svc.orchestrator, cfg.OutputDir, cfg.PollInterval, nil, logger, metrics)

			var ready readiness = []checker{runner}
			if svc.store != nil {
				ready = append(ready, svc.store)
			}
			srv := httpadapter.NewServer(cfg.HTTPAddr, ready, runner, logger)

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := runner.Run(ctx); err != nil {
					logger.Error("watcher error", "error", err)
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			select {
			case <-done:
			case <-shutdownCtx.Done():
				logger.Warn("watcher did not stop before the shutdown timeout")
			}
			if err := svc.Close(); err != nil {
				return err
			}

			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory to watch (overrides INPUT_DIR)")
	return cmd
}

type checker interface {
	CheckReadiness(ctx context.Context) error
}

// readiness is ready when every checker is.
type readiness []checker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
