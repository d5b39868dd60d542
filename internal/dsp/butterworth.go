package dsp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDesign is returned when filter parameters cannot produce a stable
// digital filter at the given sample rate.
var ErrInvalidDesign = errors.New("dsp: invalid filter design")

// Biquad is one second-order section normalised so that a0 = 1:
//
//	H(z) = (B0 + B1·z⁻¹ + B2·z⁻²) / (1 + A1·z⁻¹ + A2·z⁻²)
//
// First-order sections leave B2 and A2 at zero.
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// DCGain is H(1), the response to a constant input.
func (q Biquad) DCGain() float64 {
	return (q.B0 + q.B1 + q.B2) / (1 + q.A1 + q.A2)
}

// SOS is a cascade of second-order sections applied in order.
type SOS []Biquad

// ButterworthLowpass designs an order-N low-pass with -3 dB at cutoffHz.
func ButterworthLowpass(order int, cutoffHz, sampleRate float64) (SOS, error) {
	w0, err := prewarpedCorner(order, cutoffHz, sampleRate)
	if err != nil {
		return nil, err
	}
	cos := math.Cos(w0)
	sin := math.Sin(w0)

	sos := make(SOS, 0, (order+1)/2)
	for _, q := range butterworthQ(order) {
		alpha := sin / (2 * q)
		a0 := 1 + alpha
		sos = append(sos, Biquad{
			B0: (1 - cos) / 2 / a0,
			B1: (1 - cos) / a0,
			B2: (1 - cos) / 2 / a0,
			A1: -2 * cos / a0,
			A2: (1 - alpha) / a0,
		})
	}
	if order%2 == 1 {
		k := math.Tan(w0 / 2)
		sos = append(sos, Biquad{
			B0: k / (1 + k),
			B1: k / (1 + k),
			A1: (k - 1) / (k + 1),
		})
	}
	return sos, nil
}

// ButterworthHighpass designs an order-N high-pass with -3 dB at cutoffHz.
func ButterworthHighpass(order int, cutoffHz, sampleRate float64) (SOS, error) {
	w0, err := prewarpedCorner(order, cutoffHz, sampleRate)
	if err != nil {
		return nil, err
	}
	cos := math.Cos(w0)
	sin := math.Sin(w0)

	sos := make(SOS, 0, (order+1)/2)
	for _, q := range butterworthQ(order) {
		alpha := sin / (2 * q)
		a0 := 1 + alpha
		sos = append(sos, Biquad{
			B0: (1 + cos) / 2 / a0,
			B1: -(1 + cos) / a0,
			B2: (1 + cos) / 2 / a0,
			A1: -2 * cos / a0,
			A2: (1 - alpha) / a0,
		})
	}
	if order%2 == 1 {
		k := math.Tan(w0 / 2)
		sos = append(sos, Biquad{
			B0: 1 / (1 + k),
			B1: -1 / (1 + k),
			A1: (k - 1) / (k + 1),
		})
	}
	return sos, nil
}

// ButterworthBandpass cascades an order-N high-pass at lowHz with an order-N
// low-pass at highHz.
func ButterworthBandpass(order int, lowHz, highHz, sampleRate float64) (SOS, error) {
	if !(lowHz < highHz) {
		return nil, fmt.Errorf("%w: low corner %g Hz must be below high corner %g Hz", ErrInvalidDesign, lowHz, highHz)
	}
	hp, err := ButterworthHighpass(order, lowHz, sampleRate)
	if err != nil {
		return nil, err
	}
	lp, err := ButterworthLowpass(order, highHz, sampleRate)
	if err != nil {
		return nil, err
	}
	return append(hp, lp...), nil
}

func prewarpedCorner(order int, cutoffHz, sampleRate float64) (float64, error) {
	if order < 1 {
		return 0, fmt.Errorf("%w: order %d", ErrInvalidDesign, order)
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("%w: sample rate %g Hz", ErrInvalidDesign, sampleRate)
	}
	nyquist := sampleRate / 2
	if !(cutoffHz > 0) || cutoffHz >= nyquist {
		return 0, fmt.Errorf("%w: corner %g Hz outside (0, %g) Hz", ErrInvalidDesign, cutoffHz, nyquist)
	}
	return 2 * math.Pi * cutoffHz / sampleRate, nil
}

// butterworthQ returns the quality factor of each conjugate pole pair.
func butterworthQ(order int) []float64 {
	qs := make([]float64, 0, order/2)
	for k := 1; k <= order/2; k++ {
		theta := float64(2*k-1) * math.Pi / float64(2*order)
		qs = append(qs, 1/(2*math.Cos(theta)))
	}
	return qs
}

// Filter runs the cascade causally from a zero state.
func (s SOS) Filter(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	for _, q := range s {
		q.run(out, 0, 0)
	}
	return out
}

// FiltFilt applies the cascade forward and backward for a zero-phase result
// with squared magnitude response. The input is odd-extended at both ends by
// the settling length of the cascade, capped at len(x)-1. Records whose ends
// are not at rest should be tapered first (see CosineTaper): odd extension
// turns a non-zero end value into a level step that a high-pass rings on.
func (s SOS) FiltFilt(x []float64) []float64 {
	n := len(x)
	if n == 0 || len(s) == 0 {
		out := make([]float64, n)
		copy(out, x)
		return out
	}

	pad := s.padLength()
	if pad > n-1 {
		pad = n - 1
	}
	ext := oddExtend(x, pad)

	s.runSteadyState(ext)
	reverse(ext)
	s.runSteadyState(ext)
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[pad:pad+n])
	return out
}

// settleLevel is the fraction an edge transient may keep when it reaches the
// data.
const settleLevel = 1e-3

// padLength is the number of samples the slowest pole of the cascade needs to
// decay to settleLevel, and never less than the conventional 3·(2·sections+1).
func (s SOS) padLength() int {
	pad := 3 * (2*len(s) + 1)
	for _, q := range s {
		r := q.poleRadius()
		if r <= 0 || r >= 1 {
			continue
		}
		if n := int(math.Ceil(math.Log(settleLevel) / math.Log(r))); n > pad {
			pad = n
		}
	}
	return pad
}

// poleRadius is the largest pole magnitude of the section, the roots of
// z² + A1·z + A2.
func (q Biquad) poleRadius() float64 {
	disc := q.A1*q.A1 - 4*q.A2
	if disc < 0 {
		return math.Sqrt(q.A2)
	}
	root := math.Sqrt(disc)
	return math.Max(math.Abs(-q.A1+root), math.Abs(-q.A1-root)) / 2
}

// runSteadyState filters in place with every section's state initialised to
// the steady state it would reach for a constant input equal to x[0].
func (s SOS) runSteadyState(x []float64) {
	if len(x) == 0 {
		return
	}
	level := x[0]
	for _, q := range s {
		z1, z2 := q.steadyState(level)
		q.run(x, z1, z2)
		level *= q.DCGain()
	}
}

// steadyState returns the transposed direct form II state for a constant
// input u held forever.
func (q Biquad) steadyState(u float64) (float64, float64) {
	y := q.DCGain() * u
	z2 := q.B2*u - q.A2*y
	z1 := q.B1*u - q.A1*y + z2
	return z1, z2
}

// run filters x in place (transposed direct form II).
func (q Biquad) run(x []float64, z1, z2 float64) {
	for i, in := range x {
		out := q.B0*in + z1
		z1 = q.B1*in - q.A1*out + z2
		z2 = q.B2*in - q.A2*out
		x[i] = out
	}
}

// oddExtend reflects x about its end points: 2·x[0] − x[pad..1] on the left
// and 2·x[n−1] − x[n−2..n−1−pad] on the right.
func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*pad)
	for i := range pad {
		ext[i] = 2*x[0] - x[pad-i]
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)
	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
