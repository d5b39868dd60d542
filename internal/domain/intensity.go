package domain

import (
	"fmt"
	"math"

	"github.com/couchcryptid/seismic-intensity/internal/dsp"
)

// Coefficients of the log-linear relation I = A·log10(X) + B.
type Coefficients struct {
	A float64
	B float64
}

// Estimate evaluates the relation. A non-positive X yields -Inf, which the
// scale later clamps to its minimum.
func (c Coefficients) Estimate(x float64) float64 {
	if !(x > 0) {
		return math.Inf(-1)
	}
	return c.A*math.Log10(x) + c.B
}

// Rule selects how the acceleration and velocity estimates are combined.
type Rule string

const (
	// RuleMax takes the larger of the two estimates.
	RuleMax Rule = "max"
	// RuleGBT2020 takes the velocity estimate when both estimates reach 6.0
	// and their mean otherwise.
	RuleGBT2020 Rule = "gbt2020"
)

// ParseRule validates a rule name.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(s); r {
	case RuleMax, RuleGBT2020:
		return r, nil
	}
	return "", fmt.Errorf("unknown intensity rule %q (want max or gbt2020)", s)
}

// gbtVelocityThreshold is the estimate above which GB/T 17742-2020 relies on
// velocity alone.
const gbtVelocityThreshold = 6.0

// Scale is the discrete intensity scale.
type Scale struct {
	Min  float64
	Max  float64
	Step float64
}

// Clamp limits v to the scale's domain and reports whether it was outside.
func (s Scale) Clamp(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v) || v < s.Min:
		return s.Min, true
	case v > s.Max:
		return s.Max, true
	}
	return v, false
}

// Classify rounds a value to the nearest scale step within the domain.
func (s Scale) Classify(v float64) float64 {
	clamped, _ := s.Clamp(v)
	class := math.Round(clamped/s.Step) * s.Step
	c, _ := s.Clamp(class)
	return c
}

// IntensityConfig holds the empirical relations, the combination rule and the
// scale.
type IntensityConfig struct {
	// Acceleration relates PGA in m/s² to intensity.
	Acceleration Coefficients
	// Velocity relates PGV in m/s to intensity.
	Velocity Coefficients
	Rule     Rule
	Scale    Scale
}

// DefaultIntensityConfig returns the GB/T 17742-2020 relations on the 1–12
// scale with integer classes.
func DefaultIntensityConfig() IntensityConfig {
	return IntensityConfig{
		Acceleration: Coefficients{A: 3.17, B: 6.59},
		Velocity:     Coefficients{A: 3.00, B: 9.77},
		Rule:         RuleMax,
		Scale:        Scale{Min: 1, Max: 12, Step: 1},
	}
}

// Validate rejects unusable settings.
func (c IntensityConfig) Validate() error {
	if _, err := ParseRule(string(c.Rule)); err != nil {
		return err
	}
	if !(c.Acceleration.A > 0) || !(c.Velocity.A > 0) {
		return fmt.Errorf("intensity slopes must be positive (got %g, %g)", c.Acceleration.A, c.Velocity.A)
	}
	if !(c.Scale.Max > c.Scale.Min) {
		return fmt.Errorf("intensity scale [%g, %g] is empty", c.Scale.Min, c.Scale.Max)
	}
	if !(c.Scale.Step > 0) {
		return fmt.Errorf("intensity step %g must be positive", c.Scale.Step)
	}
	return nil
}

// IntensityEstimate is the calculator's output for one station-event.
type IntensityEstimate struct {
	// CombinedPGA is the peak of the vector-synthesised acceleration, m/s².
	CombinedPGA float64
	// CombinedPGV is the peak of the vector-synthesised velocity, m/s.
	CombinedPGV float64
	// AccelerationIntensity and VelocityIntensity are the branch estimates,
	// clamped to the scale for reporting.
	AccelerationIntensity float64
	VelocityIntensity     float64
	Value                 float64
	Class                 float64
	OutOfRange            bool
}

// Compute synthesises the available components sample by sample, evaluates
// both branches and maps the selected value onto the scale. With all three
// components this is the three-component synthesis of GB/T 17742-2020; with
// fewer it is the synthesis of what is present.
func (c IntensityConfig) Compute(motions []Motion) (IntensityEstimate, error) {
	if len(motions) == 0 {
		return IntensityEstimate{}, newError(KindIncompleteStation, "no components available")
	}

	accel := make([][]float64, 0, len(motions))
	vel := make([][]float64, 0, len(motions))
	for _, m := range motions {
		accel = append(accel, m.Acceleration)
		vel = append(vel, m.Velocity)
	}
	return c.FromPeaks(dsp.VectorPeak(accel...), dsp.VectorPeak(vel...)), nil
}

// FromPeaks evaluates the relations for already combined peaks.
func (c IntensityConfig) FromPeaks(pga, pgv float64) IntensityEstimate {
	ia := c.Acceleration.Estimate(pga)
	iv := c.Velocity.Estimate(pgv)

	value := c.selectBranch(ia, iv)
	clamped, outOfRange := c.Scale.Clamp(value)

	iaReport, _ := c.Scale.Clamp(ia)
	ivReport, _ := c.Scale.Clamp(iv)

	return IntensityEstimate{
		CombinedPGA:           pga,
		CombinedPGV:           pgv,
		AccelerationIntensity: iaReport,
		VelocityIntensity:     ivReport,
		Value:                 clamped,
		Class:                 c.Scale.Classify(clamped),
		OutOfRange:            outOfRange,
	}
}

func (c IntensityConfig) selectBranch(ia, iv float64) float64 {
	if c.Rule == RuleGBT2020 {
		if ia >= gbtVelocityThreshold && iv >= gbtVelocityThreshold {
			return iv
		}
		return (ia + iv) / 2
	}
	return math.Max(ia, iv)
}
