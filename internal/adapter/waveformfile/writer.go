package waveformfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

type outRecord struct {
	StationID  string    `json:"station_id"`
	Component  string    `json:"component"`
	SampleRate float64   `json:"sample_rate"`
	StartTime  string    `json:"start_time"`
	Unit       string    `json:"unit"`
	Samples    []float64 `json:"samples"`
}

// Write stores records at path in the format Decode reads. The file appears
// atomically so a watching DirSource never sees it half written.
func Write(path string, records []domain.WaveformRecord) error {
	out := make([]outRecord, len(records))
	for i, r := range records {
		out[i] = outRecord{
			StationID:  r.StationID,
			Component:  string(r.Component),
			SampleRate: r.SampleRate,
			StartTime:  r.StartTime.UTC().Format(time.RFC3339Nano),
			Unit:       string(r.Unit),
			Samples:    r.Samples,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
