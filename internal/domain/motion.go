package domain

import (
	"fmt"

	"github.com/couchcryptid/seismic-intensity/internal/dsp"
)

// DefaultMinSamples is the shortest record accepted for peak extraction.
const DefaultMinSamples = 100

// ComponentMetrics are the peak ground motion parameters of one channel.
type ComponentMetrics struct {
	Component Component `json:"component"`
	// PGA is the peak absolute acceleration in m/s².
	PGA float64 `json:"pga"`
	// PGV is the peak absolute velocity in m/s.
	PGV float64 `json:"pgv"`
	// PGATime is the offset of the acceleration peak from the record start.
	PGATime float64 `json:"pga_time_s"`
}

// Motion is one cleaned channel with its derived velocity and peaks.
type Motion struct {
	Metrics      ComponentMetrics
	SampleRate   float64
	Acceleration []float64
	Velocity     []float64
}

// ExtractConfig controls ground motion extraction.
type ExtractConfig struct {
	MinSamples int
	// VelocityDetrend removes integration drift from the velocity series.
	VelocityDetrend Detrend
}

// DefaultExtractConfig returns a linear velocity baseline and the default
// minimum length.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		MinSamples:      DefaultMinSamples,
		VelocityDetrend: Detrend{Method: DetrendLinear},
	}
}

// Validate rejects unusable settings.
func (c ExtractConfig) Validate() error {
	if c.MinSamples < 2 {
		return fmt.Errorf("minimum samples %d must be at least 2", c.MinSamples)
	}
	if _, err := ParseDetrendMethod(string(c.VelocityDetrend.Method)); err != nil {
		return err
	}
	return nil
}

// ExtractMotion derives PGA from a cleaned acceleration record and PGV from
// its trapezoidal integral after baseline removal.
func ExtractMotion(rec WaveformRecord, cfg ExtractConfig) (Motion, error) {
	if err := rec.Validate(); err != nil {
		return Motion{}, err
	}
	if rec.Unit != UnitAcceleration {
		return Motion{}, newError(KindInvalidRecord, "%s/%s: expected %s samples, got %s",
			rec.StationID, rec.Component, UnitAcceleration, rec.Unit)
	}
	if len(rec.Samples) < cfg.MinSamples {
		return Motion{}, newError(KindInsufficientData, "%s/%s: %d samples, need at least %d",
			rec.StationID, rec.Component, len(rec.Samples), cfg.MinSamples)
	}

	pga, at := dsp.PeakAbs(rec.Samples)

	velocity, err := cfg.VelocityDetrend.Apply(dsp.CumTrapz(rec.Samples, rec.SamplePeriod()))
	if err != nil {
		return Motion{}, wrapError(KindInsufficientData, err, "%s/%s: velocity baseline", rec.StationID, rec.Component)
	}
	pgv, _ := dsp.PeakAbs(velocity)

	return Motion{
		Metrics: ComponentMetrics{
			Component: rec.Component,
			PGA:       pga,
			PGV:       pgv,
			PGATime:   float64(at) / rec.SampleRate,
		},
		SampleRate:   rec.SampleRate,
		Acceleration: rec.Samples,
		Velocity:     velocity,
	}, nil
}
