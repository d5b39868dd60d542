package domain

import (
	"errors"
	"strings"
	"time"
)

// Status summarises how completely a station-event was computed.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusPartial results were computed from fewer than three components.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Stage is a state of the per-station processing machine:
// pending → preprocessing → extracting → computing → succeeded | failed.
type Stage string

const (
	StagePending       Stage = "pending"
	StagePreprocessing Stage = "preprocessing"
	StageExtracting    Stage = "extracting"
	StageComputing     Stage = "computing"
	StageSucceeded     Stage = "succeeded"
	StageFailed        Stage = "failed"
)

// Terminal reports whether no further transition follows the stage.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// Unit conversions for reporting alongside SI values.
const (
	galPerMS2 = 100.0 // 1 m/s² = 100 gal
	cmsPerMS  = 100.0 // 1 m/s = 100 cm/s
)

// IntensityResult is the outcome for one station-event. Failed results keep
// the station attribution so reports can render a "no result" row.
type IntensityResult struct {
	StationID  string             `json:"station_id"`
	EventID    string             `json:"event_id"`
	StartTime  time.Time          `json:"start_time"`
	Components []ComponentMetrics `json:"components"`

	CombinedPGA    float64 `json:"combined_pga"`
	CombinedPGV    float64 `json:"combined_pgv"`
	CombinedPGAGal float64 `json:"combined_pga_gal"`
	CombinedPGVCMS float64 `json:"combined_pgv_cms"`

	AccelerationIntensity float64 `json:"intensity_pga"`
	VelocityIntensity     float64 `json:"intensity_pgv"`
	IntensityValue        float64 `json:"intensity_value"`
	IntensityClass        float64 `json:"intensity_class"`
	OutOfRange            bool    `json:"out_of_range"`

	Status Status `json:"status"`
	Stage  Stage  `json:"stage"`

	FailedStage       Stage       `json:"failed_stage,omitempty"`
	ErrorKind         ErrorKind   `json:"error_kind,omitempty"`
	ErrorDetail       string      `json:"error_detail,omitempty"`
	MissingComponents []Component `json:"missing_components,omitempty"`

	Sources     []string  `json:"sources,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Key returns the attribution key of the result.
func (r IntensityResult) Key() StationKey {
	return StationKey{StationID: r.StationID, EventID: r.EventID}
}

// Computed reports whether the result carries intensity values.
func (r IntensityResult) Computed() bool {
	return r.Status == StatusSuccess || r.Status == StatusPartial
}

// NewResult builds a success or partial result from the calculator output.
func NewResult(ev StationEvent, metrics []ComponentMetrics, est IntensityEstimate) IntensityResult {
	r := baseResult(ev)
	r.Components = metrics
	r.CombinedPGA = est.CombinedPGA
	r.CombinedPGV = est.CombinedPGV
	r.CombinedPGAGal = est.CombinedPGA * galPerMS2
	r.CombinedPGVCMS = est.CombinedPGV * cmsPerMS
	r.AccelerationIntensity = est.AccelerationIntensity
	r.VelocityIntensity = est.VelocityIntensity
	r.IntensityValue = est.Value
	r.IntensityClass = est.Class
	r.OutOfRange = est.OutOfRange
	r.Stage = StageSucceeded
	r.Status = StatusSuccess

	if len(r.MissingComponents) > 0 {
		r.Status = StatusPartial
		r.ErrorKind = KindIncompleteStation
		r.ErrorDetail = "computed without " + joinComponents(r.MissingComponents)
	}
	return r
}

// FailedResult builds a failed result for an event that stopped at stage.
func FailedResult(ev StationEvent, stage Stage, err error) IntensityResult {
	r := baseResult(ev)
	r.Status = StatusFailed
	r.Stage = StageFailed
	r.FailedStage = stage
	r.ErrorKind = KindOf(err)

	var de *Error
	if errors.As(err, &de) && de.Err == nil {
		r.ErrorDetail = de.Detail
	} else if err != nil {
		r.ErrorDetail = err.Error()
	}
	return r
}

// FailedSourceResult reports an input that could not be decoded into any
// record. The station ID is the best guess available (usually the file name).
func FailedSourceResult(stationID, source string, err error) IntensityResult {
	r := FailedResult(StationEvent{StationID: stationID, EventID: stationID}, StagePending, err)
	r.MissingComponents = nil
	r.Sources = []string{source}
	return r
}

func baseResult(ev StationEvent) IntensityResult {
	return IntensityResult{
		StationID:         ev.StationID,
		EventID:           ev.EventID,
		StartTime:         ev.StartTime,
		MissingComponents: ev.Missing(),
		Sources:           ev.Sources(),
		ProcessedAt:       clock.Now().UTC(),
	}
}

func joinComponents(cs []Component) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// WaveformSeries is a cleaned channel and its derived velocity, kept for
// diagnostic plotting.
type WaveformSeries struct {
	StationID    string    `json:"station_id"`
	EventID      string    `json:"event_id"`
	Component    Component `json:"component"`
	SampleRate   float64   `json:"sample_rate"`
	StartTime    time.Time `json:"start_time"`
	Acceleration []float64 `json:"acceleration"`
	Velocity     []float64 `json:"velocity"`
}
