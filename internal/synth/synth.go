// Package synth generates synthetic strong-motion records for fixtures and
// demos. Each component is a Gaussian-windowed sine burst plus optional
// seeded noise, so the peak acceleration is known in advance.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// Config describes the burst recorded by one station.
type Config struct {
	StationID  string
	Start      time.Time
	SampleRate float64
	Duration   time.Duration
	// PeakAcceleration is the horizontal burst amplitude in m/s². The
	// vertical component gets VerticalRatio of it.
	PeakAcceleration float64
	VerticalRatio    float64
	FrequencyHz      float64
	// Noise is the standard deviation of additive white noise in m/s².
	Noise float64
	Seed  uint64
	// CountsPerMS2, when positive, emits raw counts instead of acceleration.
	CountsPerMS2 float64
	// Omit drops components, e.g. to produce an incomplete station.
	Omit []domain.Component
}

// Default returns a 60 s, 100 Hz, 2 Hz burst of 1 m/s².
func Default(stationID string, start time.Time) Config {
	return Config{
		StationID:        stationID,
		Start:            start,
		SampleRate:       100,
		Duration:         60 * time.Second,
		PeakAcceleration: 1,
		VerticalRatio:    0.6,
		FrequencyHz:      2,
	}
}

// Station returns one record per component that is not omitted, in canonical
// component order.
func Station(cfg Config) ([]domain.WaveformRecord, error) {
	if cfg.StationID == "" {
		return nil, fmt.Errorf("station id is required")
	}
	if !(cfg.SampleRate > 0) || cfg.Duration <= 0 {
		return nil, fmt.Errorf("station %s: sample rate and duration must be positive", cfg.StationID)
	}
	if cfg.FrequencyHz <= 0 || cfg.FrequencyHz >= cfg.SampleRate/2 {
		return nil, fmt.Errorf("station %s: burst frequency %g Hz must be below Nyquist", cfg.StationID, cfg.FrequencyHz)
	}

	n := int(cfg.Duration.Seconds() * cfg.SampleRate)
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(len(cfg.StationID))))

	omit := make(map[domain.Component]bool, len(cfg.Omit))
	for _, c := range cfg.Omit {
		omit[c] = true
	}

	var out []domain.WaveformRecord
	for i, c := range domain.RequiredComponents {
		if omit[c] {
			continue
		}
		amp := cfg.PeakAcceleration
		if c == domain.ComponentVertical {
			amp *= cfg.VerticalRatio
		}
		// Phase offsets keep the components from peaking together.
		samples := Burst(amp, cfg.FrequencyHz, cfg.SampleRate, n, float64(i)*math.Pi/5)
		if cfg.Noise > 0 {
			for j := range samples {
				samples[j] += rng.NormFloat64() * cfg.Noise
			}
		}

		unit := domain.UnitAcceleration
		if cfg.CountsPerMS2 > 0 {
			unit = domain.UnitRawCount
			for j := range samples {
				samples[j] = math.Round(samples[j] * cfg.CountsPerMS2)
			}
		}
		out = append(out, domain.WaveformRecord{
			StationID:  cfg.StationID,
			Component:  c,
			SampleRate: cfg.SampleRate,
			StartTime:  cfg.Start,
			Samples:    samples,
			Unit:       unit,
		})
	}
	return out, nil
}

// Burst returns n samples of a sine at freq Hz under a Gaussian window
// centred in the record, with peak amplitude close to amp.
func Burst(amp, freq, rate float64, n int, phase float64) []float64 {
	out := make([]float64, n)
	mid := float64(n) / 2 / rate
	width := 2 / freq
	for i := range out {
		t := float64(i) / rate
		w := math.Exp(-0.5 * math.Pow((t-mid)/width, 2))
		out[i] = amp * w * math.Sin(2*math.Pi*freq*(t-mid)+math.Pi/2+phase)
	}
	return out
}
