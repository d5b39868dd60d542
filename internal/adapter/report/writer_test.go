package report_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-intensity/internal/adapter/report"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

var start = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

func testBatch(dir string) *domain.Batch {
	results := []domain.IntensityResult{
		{
			StationID:             "ST01",
			EventID:               "ST01-20240426T151000.000Z",
			StartTime:             start,
			CombinedPGA:           1.2,
			CombinedPGV:           0.05,
			CombinedPGAGal:        120,
			CombinedPGVCMS:        5,
			AccelerationIntensity: 6.84,
			VelocityIntensity:     5.87,
			IntensityValue:        6.84,
			IntensityClass:        7,
			Status:                domain.StatusSuccess,
			Stage:                 domain.StageSucceeded,
		},
		{
			StationID:         "ST02",
			EventID:           "ST02",
			Status:            domain.StatusFailed,
			Stage:             domain.StageFailed,
			FailedStage:       domain.StagePending,
			ErrorKind:         domain.KindInvalidRecord,
			ErrorDetail:       "ST02.json: parse",
			MissingComponents: []domain.Component{domain.ComponentVertical},
		},
	}
	return &domain.Batch{
		ID:        "b-1",
		StartedAt: start,
		Results:   results,
		Summary:   domain.Summarize(results),
		OutputDir: dir,
	}
}

func newWriter(dir string) *report.Writer {
	return report.NewWriter(dir, slog.New(slog.DiscardHandler))
}

func TestLoadBatch_WritesJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, newWriter("").LoadBatch(context.Background(), testBatch(dir)))

	data, err := os.ReadFile(report.ResultsPath(dir, "b-1"))
	require.NoError(t, err)
	var got domain.Batch
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "b-1", got.ID)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 7.0, got.Results[0].IntensityClass)
	assert.Equal(t, 1, got.Summary.Failed)

	f, err := os.Open(filepath.Join(dir, "intensity-b-1.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "station_id", rows[0][0])
	assert.Equal(t, []string{
		"ST01", "ST01-20240426T151000.000Z", "2024-04-26T15:10:00.000Z", "success",
		"120.000", "5.000", "6.84", "5.87", "6.84", "7", "false", "", "", "",
	}, rows[1])
	assert.Equal(t, "", rows[2][4], "failed rows carry no intensity")
	assert.Equal(t, "vertical", rows[2][11])
	assert.Equal(t, "InvalidRecord", rows[2][12])

	_, err = os.Stat(filepath.Join(dir, "series-b-1.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBatch_WritesSeries(t *testing.T) {
	dir := t.TempDir()
	b := testBatch(dir)
	b.Series = []domain.WaveformSeries{{
		StationID:    "ST01",
		Component:    domain.ComponentVertical,
		SampleRate:   100,
		Acceleration: []float64{0, 1},
		Velocity:     []float64{0, 0.005},
	}}
	require.NoError(t, newWriter("").LoadBatch(context.Background(), b))

	data, err := os.ReadFile(filepath.Join(dir, "series-b-1.json"))
	require.NoError(t, err)
	var series []domain.WaveformSeries
	require.NoError(t, json.Unmarshal(data, &series))
	require.Len(t, series, 1)
	assert.Equal(t, []float64{0, 1}, series[0].Acceleration)
}

func TestLoadBatch_FallsBackToWriterDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, newWriter(dir).LoadBatch(context.Background(), testBatch("")))
	assert.FileExists(t, report.ResultsPath(dir, "b-1"))
}

func TestLoadBatch_NoDirectory(t *testing.T) {
	err := newWriter("").LoadBatch(context.Background(), testBatch(""))
	assert.Error(t, err)
}
