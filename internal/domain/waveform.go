package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/seismic-intensity/internal/dsp"
)

// Component identifies the axis a channel records.
type Component string

const (
	ComponentNorthSouth Component = "north-south"
	ComponentEastWest   Component = "east-west"
	ComponentVertical   Component = "vertical"
)

// RequiredComponents lists the three axes of a complete station event in
// their canonical order.
var RequiredComponents = []Component{ComponentNorthSouth, ComponentEastWest, ComponentVertical}

// IsHorizontal reports whether the component lies in the horizontal plane.
func (c Component) IsHorizontal() bool {
	return c == ComponentNorthSouth || c == ComponentEastWest
}

func (c Component) rank() int {
	for i, rc := range RequiredComponents {
		if rc == c {
			return i
		}
	}
	return len(RequiredComponents)
}

// ParseComponent accepts the canonical names, short aliases (ns, ew, ud),
// the axis letters used by three-channel loggers (x, y, z), and SEED channel
// codes whose orientation letter is N, E or Z (e.g. HNN, HNE, HNZ).
func ParseComponent(s string) (Component, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "north-south", "ns", "n", "x":
		return ComponentNorthSouth, nil
	case "east-west", "ew", "e", "y":
		return ComponentEastWest, nil
	case "vertical", "ud", "z", "u":
		return ComponentVertical, nil
	}
	if len(v) == 3 {
		switch v[2] {
		case 'n', '1':
			return ComponentNorthSouth, nil
		case 'e', '2':
			return ComponentEastWest, nil
		case 'z':
			return ComponentVertical, nil
		}
	}
	return "", newError(KindInvalidRecord, "unknown component %q", s)
}

// Unit is the physical meaning of a record's samples.
type Unit string

const (
	// UnitRawCount samples are digitiser counts that need calibration.
	UnitRawCount Unit = "raw-count"
	// UnitAcceleration samples are ground acceleration in m/s².
	UnitAcceleration Unit = "acceleration"
)

// ParseUnit accepts the canonical names and a few common spellings.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw-count", "raw", "count", "counts":
		return UnitRawCount, nil
	case "acceleration", "m/s2", "m/s^2", "mps2":
		return UnitAcceleration, nil
	}
	return "", newError(KindInvalidRecord, "unknown unit %q", s)
}

// WaveformRecord is one decoded channel of a strong-motion recording.
type WaveformRecord struct {
	StationID  string    `json:"station_id"`
	Component  Component `json:"component"`
	SampleRate float64   `json:"sample_rate"`
	StartTime  time.Time `json:"start_time"`
	Samples    []float64 `json:"samples"`
	Unit       Unit      `json:"unit"`

	// Source names the input the record was decoded from, for diagnostics.
	Source string `json:"source,omitempty"`
}

// SamplePeriod is the spacing between samples in seconds.
func (r WaveformRecord) SamplePeriod() float64 {
	return 1 / r.SampleRate
}

// Duration is the time spanned by the samples.
func (r WaveformRecord) Duration() time.Duration {
	if len(r.Samples) == 0 || r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(r.Samples)-1) / r.SampleRate * float64(time.Second))
}

// Validate checks the structural invariants of a record: a known component and
// unit, a positive finite sample rate, and a non-empty, finite sample series.
func (r WaveformRecord) Validate() error {
	if r.Component.rank() == len(RequiredComponents) {
		return newError(KindInvalidRecord, "%s: unknown component %q", r.StationID, r.Component)
	}
	if r.Unit != UnitRawCount && r.Unit != UnitAcceleration {
		return newError(KindInvalidRecord, "%s/%s: unknown unit %q", r.StationID, r.Component, r.Unit)
	}
	if !(r.SampleRate > 0) || math.IsInf(r.SampleRate, 0) {
		return newError(KindInvalidRecord, "%s/%s: sample rate %g is not positive", r.StationID, r.Component, r.SampleRate)
	}
	if len(r.Samples) == 0 {
		return newError(KindInvalidRecord, "%s/%s: no samples", r.StationID, r.Component)
	}
	if ok, at := dsp.AllFinite(r.Samples); !ok {
		return newError(KindInvalidRecord, "%s/%s: non-finite sample at index %d", r.StationID, r.Component, at)
	}
	return nil
}

// withSamples returns a copy of r carrying new samples and unit.
func (r WaveformRecord) withSamples(samples []float64, unit Unit) WaveformRecord {
	r.Samples = samples
	r.Unit = unit
	return r
}

// StationKey attributes work and results to one station-event.
type StationKey struct {
	StationID string `json:"station_id"`
	EventID   string `json:"event_id"`
}

func (k StationKey) String() string {
	return k.StationID + "/" + k.EventID
}

// StationEvent is the unit of computation: the channels of one instrument
// during one event.
type StationEvent struct {
	StationID string
	EventID   string
	StartTime time.Time
	Records   map[Component]WaveformRecord

	// Err records a grouping problem (e.g. a duplicated component) that
	// fails the event before any processing.
	Err error
}

// NewStationEvent builds an event from records that belong together. The
// event ID is derived from the station and the earliest start time.
func NewStationEvent(stationID string, records ...WaveformRecord) StationEvent {
	ev := StationEvent{
		StationID: stationID,
		Records:   make(map[Component]WaveformRecord, len(records)),
	}
	for _, rec := range records {
		if ev.StartTime.IsZero() || rec.StartTime.Before(ev.StartTime) {
			ev.StartTime = rec.StartTime
		}
		if _, dup := ev.Records[rec.Component]; dup && ev.Err == nil {
			ev.Err = newError(KindInvalidRecord, "%s: duplicate %s component", stationID, rec.Component)
		}
		ev.Records[rec.Component] = rec
	}
	ev.EventID = eventID(stationID, ev.StartTime)
	return ev
}

// Key returns the attribution key of the event.
func (e StationEvent) Key() StationKey {
	return StationKey{StationID: e.StationID, EventID: e.EventID}
}

// Missing lists required components without a record, in canonical order.
func (e StationEvent) Missing() []Component {
	var missing []Component
	for _, c := range RequiredComponents {
		if _, ok := e.Records[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Components lists the components present, in canonical order.
func (e StationEvent) Components() []Component {
	out := make([]Component, 0, len(e.Records))
	for c := range e.Records {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank() < out[j].rank() })
	return out
}

// Sources lists the distinct inputs the event's records came from.
func (e StationEvent) Sources() []string {
	seen := make(map[string]struct{}, len(e.Records))
	var out []string
	for _, c := range e.Components() {
		src := e.Records[c].Source
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

// CheckAlignment verifies that all components share a sample rate and that the
// earliest and latest start times are within tolerance, so they can be
// combined sample by sample.
func (e StationEvent) CheckAlignment(tolerance time.Duration) error {
	var ref, first, last *WaveformRecord
	for _, c := range e.Components() {
		rec := e.Records[c]
		if ref == nil {
			ref, first, last = &rec, &rec, &rec
			continue
		}
		if math.Abs(rec.SampleRate-ref.SampleRate) > 1e-6*ref.SampleRate {
			return newError(KindInvalidRecord, "%s: %s sample rate %g Hz differs from %s %g Hz",
				e.StationID, rec.Component, rec.SampleRate, ref.Component, ref.SampleRate)
		}
		if rec.StartTime.Before(first.StartTime) {
			first = &rec
		}
		if rec.StartTime.After(last.StartTime) {
			last = &rec
		}
	}
	if ref == nil {
		return nil
	}
	if skew := last.StartTime.Sub(first.StartTime); skew > tolerance {
		return newError(KindInvalidRecord, "%s: %s starts %s after %s (tolerance %s)",
			e.StationID, last.Component, skew, first.Component, tolerance)
	}
	return nil
}

func eventID(stationID string, start time.Time) string {
	return fmt.Sprintf("%s-%s", stationID, start.UTC().Format("20060102T150405.000Z"))
}
