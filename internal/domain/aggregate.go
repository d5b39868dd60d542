package domain

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// Batch is the ordered result set of one batch run, handed to report writers
// and other sinks.
type Batch struct {
	ID         string            `json:"batch_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Summary    Summary           `json:"summary"`
	Results    []IntensityResult `json:"results"`

	// OutputDir is where file sinks write. Series is populated only when
	// waveform series were requested.
	OutputDir string           `json:"-"`
	Series    []WaveformSeries `json:"-"`
}

// Aggregate returns the results in deterministic order: by station ID, then
// start time, then event ID. Failed entries are kept. The input is not
// modified.
func Aggregate(results []IntensityResult) []IntensityResult {
	out := slices.Clone(results)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := strings.Compare(a.StationID, b.StationID); c != 0 {
			return c < 0
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.EventID < b.EventID
	})
	return out
}

// Summary counts the results of a batch.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`

	// MaxClass is the highest intensity class computed, zero if none was.
	MaxClass float64 `json:"max_class"`
	// MaxStationID is the station that recorded MaxClass.
	MaxStationID string `json:"max_station_id,omitempty"`

	FailuresByKind map[ErrorKind]int `json:"failures_by_kind,omitempty"`
}

// Summarize counts results by status and failure kind.
func Summarize(results []IntensityResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusPartial:
			s.Partial++
		case StatusFailed:
			s.Failed++
			if s.FailuresByKind == nil {
				s.FailuresByKind = make(map[ErrorKind]int)
			}
			s.FailuresByKind[r.ErrorKind]++
		}
		if r.Computed() && r.IntensityClass > s.MaxClass {
			s.MaxClass = r.IntensityClass
			s.MaxStationID = r.StationID
		}
	}
	return s
}
