package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// BatchReporter exposes the most recently completed batch.
type BatchReporter interface {
	LastBatch() *domain.Batch
}

// Server exposes health, readiness, metrics and last-batch status endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /batches/latest routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, batches BatchReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /batches/latest", handleLatest(batches))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type latestResponse struct {
	BatchID    string         `json:"batch_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Summary    domain.Summary `json:"summary"`
}

// handleLatest reports the summary of the last batch, without per-station
// results.
func handleLatest(batches BatchReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b := batches.LastBatch()
		if b == nil {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no batch has completed yet"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, latestResponse{
			BatchID:    b.ID,
			StartedAt:  b.StartedAt,
			FinishedAt: b.FinishedAt,
			Summary:    b.Summary,
		})
	}
}
