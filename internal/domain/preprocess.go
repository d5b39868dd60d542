package domain

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/seismic-intensity/internal/dsp"
)

// DetrendMethod selects the baseline removed before filtering and after
// integration.
type DetrendMethod string

const (
	DetrendMean       DetrendMethod = "mean"
	DetrendLinear     DetrendMethod = "linear"
	DetrendPolynomial DetrendMethod = "polynomial"
)

// ParseDetrendMethod validates a method name.
func ParseDetrendMethod(s string) (DetrendMethod, error) {
	switch m := DetrendMethod(s); m {
	case DetrendMean, DetrendLinear, DetrendPolynomial:
		return m, nil
	}
	return "", fmt.Errorf("unknown detrend method %q (want mean, linear or polynomial)", s)
}

// Detrend describes a baseline correction.
type Detrend struct {
	Method DetrendMethod
	// Order is used by DetrendPolynomial only.
	Order int
}

// Apply removes the baseline from x, returning a new slice.
func (d Detrend) Apply(x []float64) ([]float64, error) {
	switch d.Method {
	case DetrendMean:
		return dsp.DetrendMean(x), nil
	case DetrendLinear, "":
		return dsp.DetrendLinear(x), nil
	case DetrendPolynomial:
		return dsp.DetrendPolynomial(x, d.Order)
	}
	return nil, fmt.Errorf("unknown detrend method %q", d.Method)
}

// PreprocessConfig carries the passband and baseline settings.
type PreprocessConfig struct {
	LowHz   float64
	HighHz  float64
	Order   int
	Detrend Detrend
	// TaperFraction is the share of the record at each end ramped to zero
	// before filtering.
	TaperFraction float64
}

// DefaultTaperFraction is the cosine taper applied at each end of a record.
const DefaultTaperFraction = 0.05

// DefaultPreprocessConfig returns the 0.1–10 Hz fourth-order band used for
// instrumental intensity, with a linear baseline and a 5% taper.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		LowHz:         0.1,
		HighHz:        10,
		Order:         4,
		Detrend:       Detrend{Method: DetrendLinear, Order: 3},
		TaperFraction: DefaultTaperFraction,
	}
}

// Validate rejects settings that can never produce a filter.
func (c PreprocessConfig) Validate() error {
	if !(c.LowHz > 0) {
		return fmt.Errorf("filter low corner %g Hz must be positive", c.LowHz)
	}
	if !(c.HighHz > c.LowHz) {
		return fmt.Errorf("filter high corner %g Hz must exceed low corner %g Hz", c.HighHz, c.LowHz)
	}
	if c.Order < 1 || c.Order > 12 {
		return fmt.Errorf("filter order %d out of range [1, 12]", c.Order)
	}
	if c.TaperFraction < 0 || c.TaperFraction > 0.5 {
		return fmt.Errorf("taper fraction %g out of range [0, 0.5]", c.TaperFraction)
	}
	if _, err := ParseDetrendMethod(string(c.Detrend.Method)); err != nil {
		return err
	}
	if c.Detrend.Method == DetrendPolynomial && (c.Detrend.Order < 0 || c.Detrend.Order > dsp.MaxPolynomialOrder) {
		return fmt.Errorf("detrend order %d out of range [0, %d]", c.Detrend.Order, dsp.MaxPolynomialOrder)
	}
	return nil
}

// Preprocessor turns a raw record into cleaned acceleration: baseline
// removal, calibration of raw counts, an end taper, then a zero-phase
// band-pass.
type Preprocessor struct {
	cfg         PreprocessConfig
	calibration CalibrationTable
	designs     *dsp.DesignCache
}

// NewPreprocessor creates a Preprocessor. A nil cache designs every filter
// from scratch.
func NewPreprocessor(cfg PreprocessConfig, calibration CalibrationTable, designs *dsp.DesignCache) *Preprocessor {
	return &Preprocessor{cfg: cfg, calibration: calibration, designs: designs}
}

// Preprocess returns a cleaned copy of rec with unit acceleration and the same
// number of samples. The input is not modified.
func (p *Preprocessor) Preprocess(rec WaveformRecord) (WaveformRecord, error) {
	if err := rec.Validate(); err != nil {
		return WaveformRecord{}, err
	}

	samples, err := p.cfg.Detrend.Apply(rec.Samples)
	if err != nil {
		if errors.Is(err, dsp.ErrSingularFit) {
			return WaveformRecord{}, wrapError(KindInsufficientData, err, "%s/%s: baseline fit", rec.StationID, rec.Component)
		}
		return WaveformRecord{}, wrapError(KindInvalidRecord, err, "%s/%s: baseline fit", rec.StationID, rec.Component)
	}

	if rec.Unit == UnitRawCount {
		samples, err = p.calibration.countsToAcceleration(rec.StationID, samples)
		if err != nil {
			return WaveformRecord{}, err
		}
	}

	sos, err := p.bandpass(rec.SampleRate)
	if err != nil {
		return WaveformRecord{}, wrapError(KindInvalidRecord, err, "%s/%s: %g Hz sampling cannot carry the %g–%g Hz band",
			rec.StationID, rec.Component, rec.SampleRate, p.cfg.LowHz, p.cfg.HighHz)
	}

	samples = dsp.CosineTaper(samples, p.cfg.TaperFraction)
	return rec.withSamples(sos.FiltFilt(samples), UnitAcceleration), nil
}

func (p *Preprocessor) bandpass(sampleRate float64) (dsp.SOS, error) {
	if p.designs != nil {
		return p.designs.Bandpass(p.cfg.Order, p.cfg.LowHz, p.cfg.HighHz, sampleRate)
	}
	return dsp.ButterworthBandpass(p.cfg.Order, p.cfg.LowHz, p.cfg.HighHz, sampleRate)
}
