package domain

import "math"

const (
	// LocalGravity converts g to m/s². Strong-motion networks in China
	// calibrate against 9.79865 m/s² rather than standard gravity.
	LocalGravity = 9.79865

	// DefaultADCBits is the resolution of a typical 24-bit digitiser.
	DefaultADCBits = 24

	// adcHeadroom is the fraction of the ADC range mapped to full scale.
	adcHeadroom = 0.9

	// DefaultStationKey selects the calibration applied to stations that have
	// no entry of their own.
	DefaultStationKey = "*"
)

// Calibration converts raw digitiser counts to acceleration. Either
// CountsPerG is given directly, or it is derived from the sensor full scale
// and ADC resolution as 0.9·2^(bits−1)/full_scale_g.
type Calibration struct {
	CountsPerG float64 `json:"counts_per_g,omitempty" yaml:"counts_per_g,omitempty"`
	FullScaleG float64 `json:"full_scale_g,omitempty" yaml:"full_scale_g,omitempty"`
	ADCBits    int     `json:"adc_bits,omitempty" yaml:"adc_bits,omitempty"`
	// Gravity overrides LocalGravity when the instrument was calibrated
	// against a different reference.
	Gravity float64 `json:"gravity,omitempty" yaml:"gravity,omitempty"`
}

// Sensitivity returns counts per m/s².
func (c Calibration) Sensitivity() (float64, error) {
	gravity := c.Gravity
	if gravity == 0 {
		gravity = LocalGravity
	}
	if !(gravity > 0) {
		return 0, newError(KindCalibration, "gravity %g must be positive", gravity)
	}

	countsPerG := c.CountsPerG
	if countsPerG == 0 && c.FullScaleG != 0 {
		if !(c.FullScaleG > 0) {
			return 0, newError(KindCalibration, "full scale %g g must be positive", c.FullScaleG)
		}
		bits := c.ADCBits
		if bits == 0 {
			bits = DefaultADCBits
		}
		if bits < 2 || bits > 32 {
			return 0, newError(KindCalibration, "adc bits %d out of range [2, 32]", bits)
		}
		countsPerG = adcHeadroom * math.Pow(2, float64(bits-1)) / c.FullScaleG
	}
	if !(countsPerG > 0) || math.IsInf(countsPerG, 0) {
		return 0, newError(KindCalibration, "no usable sensitivity (counts_per_g or full_scale_g)")
	}
	return countsPerG / gravity, nil
}

// CalibrationTable maps station IDs to their calibration. The entry under
// DefaultStationKey, if any, applies to stations without their own entry.
type CalibrationTable map[string]Calibration

// Lookup returns the calibration for a station.
func (t CalibrationTable) Lookup(stationID string) (Calibration, bool) {
	if c, ok := t[stationID]; ok {
		return c, true
	}
	c, ok := t[DefaultStationKey]
	return c, ok
}

// countsToAcceleration converts raw counts to m/s² for a station.
func (t CalibrationTable) countsToAcceleration(stationID string, counts []float64) ([]float64, error) {
	cal, ok := t.Lookup(stationID)
	if !ok {
		return nil, newError(KindCalibration, "no calibration for station %q", stationID)
	}
	sensitivity, err := cal.Sensitivity()
	if err != nil {
		return nil, newError(KindCalibration, "station %q: %s", stationID, err.(*Error).Detail)
	}
	out := make([]float64, len(counts))
	for i, v := range counts {
		out[i] = v / sensitivity
	}
	return out, nil
}
