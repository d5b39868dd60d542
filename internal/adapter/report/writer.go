// Package report writes batch results to the output directory.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/seismic-intensity/internal/adapter/waveformfile"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// Writer stores each batch as intensity-<id>.json and intensity-<id>.csv, and
// series-<id>.json when waveform series were kept. It implements
// pipeline.BatchLoader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer. dir is used for batches that carry no output
// directory of their own.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// ResultsPath returns where the JSON result set of a batch is written.
func ResultsPath(dir, batchID string) string {
	return filepath.Join(dir, "intensity-"+batchID+".json")
}

// LoadBatch writes the batch files. Every file appears atomically.
func (w *Writer) LoadBatch(ctx context.Context, batch *domain.Batch) error {
	dir := batch.OutputDir
	if dir == "" {
		dir = w.dir
	}
	if dir == "" {
		return fmt.Errorf("no output directory for batch %s", batch.ID)
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if err := waveformfile.WriteFileAtomic(ResultsPath(dir, batch.ID), data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	table, err := encodeCSV(batch.Results)
	if err != nil {
		return err
	}
	if err := waveformfile.WriteFileAtomic(filepath.Join(dir, "intensity-"+batch.ID+".csv"), table); err != nil {
		return err
	}

	if len(batch.Series) > 0 {
		series, err := json.Marshal(batch.Series)
		if err != nil {
			return fmt.Errorf("encode series: %w", err)
		}
		if err := waveformfile.WriteFileAtomic(filepath.Join(dir, "series-"+batch.ID+".json"), series); err != nil {
			return err
		}
	}

	w.logger.Info("report written", "batch_id", batch.ID, "dir", dir, "results", len(batch.Results))
	return nil
}

var csvHeader = []string{
	"station_id", "event_id", "start_time", "status",
	"pga_gal", "pgv_cms", "intensity_pga", "intensity_pgv",
	"intensity_value", "intensity_class", "out_of_range",
	"missing_components", "error_kind", "error_detail",
}

// encodeCSV renders one row per result. Failed results leave the numeric
// columns empty.
func encodeCSV(results []domain.IntensityResult) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range results {
		row := []string{r.StationID, r.EventID, "", string(r.Status), "", "", "", "", "", "", "", "", string(r.ErrorKind), r.ErrorDetail}
		if !r.StartTime.IsZero() {
			row[2] = r.StartTime.UTC().Format("2006-01-02T15:04:05.000Z")
		}
		if r.Computed() {
			row[4] = formatFloat(r.CombinedPGAGal, 3)
			row[5] = formatFloat(r.CombinedPGVCMS, 3)
			row[6] = formatFloat(r.AccelerationIntensity, 2)
			row[7] = formatFloat(r.VelocityIntensity, 2)
			row[8] = formatFloat(r.IntensityValue, 2)
			row[9] = formatFloat(r.IntensityClass, 0)
			row[10] = strconv.FormatBool(r.OutOfRange)
		}
		missing := make([]string, len(r.MissingComponents))
		for i, c := range r.MissingComponents {
			missing[i] = string(c)
		}
		row[11] = strings.Join(missing, " ")
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
