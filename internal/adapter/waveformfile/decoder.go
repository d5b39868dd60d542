// Package waveformfile reads and writes decoded waveform records as JSON files
// and watches a directory for new ones.
package waveformfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/relvacode/iso8601"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// fileRecord is the on-disk shape of one channel. Component and unit accept
// the aliases understood by domain.ParseComponent and domain.ParseUnit, and
// start_time may be an ISO-8601 string or epoch seconds.
type fileRecord struct {
	StationID  string          `json:"station_id"`
	Component  string          `json:"component"`
	SampleRate float64         `json:"sample_rate"`
	StartTime  json.RawMessage `json:"start_time"`
	Unit       string          `json:"unit"`
	Samples    []float64       `json:"samples"`
}

// Decoder reads decoded-record files. It implements pipeline.Decoder.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads one file holding either a single record object or a list of
// them. Any problem with the file fails the whole file.
func (d *Decoder) Decode(path string) ([]domain.WaveformRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalid(path, "read", err)
	}
	return DecodeBytes(data, path)
}

// DecodeBytes parses file contents. source is recorded on every record.
func DecodeBytes(data []byte, source string) ([]domain.WaveformRecord, error) {
	var raw []fileRecord
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, invalid(source, "empty file", nil)
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, invalid(source, "parse", err)
		}
	default:
		var one fileRecord
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, invalid(source, "parse", err)
		}
		raw = []fileRecord{one}
	}
	if len(raw) == 0 {
		return nil, invalid(source, "no records", nil)
	}

	out := make([]domain.WaveformRecord, 0, len(raw))
	for i, fr := range raw {
		rec, err := fr.toDomain(source)
		if err != nil {
			return nil, invalid(source, fmt.Sprintf("record %d", i), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (fr fileRecord) toDomain(source string) (domain.WaveformRecord, error) {
	if fr.StationID == "" {
		return domain.WaveformRecord{}, fmt.Errorf("missing station_id")
	}
	component, err := domain.ParseComponent(fr.Component)
	if err != nil {
		return domain.WaveformRecord{}, err
	}
	unit := domain.UnitAcceleration
	if fr.Unit != "" {
		if unit, err = domain.ParseUnit(fr.Unit); err != nil {
			return domain.WaveformRecord{}, err
		}
	}
	start, err := parseStartTime(fr.StartTime)
	if err != nil {
		return domain.WaveformRecord{}, err
	}
	return domain.WaveformRecord{
		StationID:  fr.StationID,
		Component:  component,
		SampleRate: fr.SampleRate,
		StartTime:  start,
		Samples:    fr.Samples,
		Unit:       unit,
		Source:     source,
	}, nil
}

func parseStartTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("missing start_time")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("start_time: %w", err)
		}
		t, err := iso8601.ParseString(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("start_time %q: %w", s, err)
		}
		return t.UTC(), nil
	}

	secs, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("start_time %s is neither ISO-8601 nor epoch seconds", raw)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC(), nil
}

func invalid(source, what string, err error) error {
	return &domain.Error{
		Kind:   domain.KindInvalidRecord,
		Detail: fmt.Sprintf("%s: %s", filepath.Base(source), what),
		Err:    err,
	}
}
