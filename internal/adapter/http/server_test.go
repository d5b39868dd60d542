package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/seismic-intensity/internal/adapter/http"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockBatches struct {
	batch *domain.Batch
}

func (m *mockBatches) LastBatch() *domain.Batch { return m.batch }

func newTestServer(readyErr error, batch *domain.Batch) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockBatches{batch: batch}, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("no batch has been processed yet"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no batch has been processed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLatestBatch(t *testing.T) {
	t.Run("none yet", func(t *testing.T) {
		rec := get(newTestServer(nil, nil), "/batches/latest")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("summary only", func(t *testing.T) {
		results := []domain.IntensityResult{
			{StationID: "ST01", Status: domain.StatusSuccess, IntensityClass: 6},
			{StationID: "ST02", Status: domain.StatusFailed, ErrorKind: domain.KindCalibration},
		}
		batch := &domain.Batch{ID: "b-1", Results: results, Summary: domain.Summarize(results)}

		rec := get(newTestServer(nil, batch), "/batches/latest")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "b-1", body["batch_id"])
		assert.NotContains(t, body, "results")
		assert.Contains(t, body, "summary")
	})
}
