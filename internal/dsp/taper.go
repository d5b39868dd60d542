package dsp

import "math"

// CosineTaper returns a copy of x with a half-cosine ramp applied to the
// first and last fraction of its samples (a Tukey window). fraction is
// clamped to [0, 0.5]; zero returns an unmodified copy.
func CosineTaper(x []float64, fraction float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)

	fraction = math.Min(math.Max(fraction, 0), 0.5)
	m := int(fraction * float64(len(x)))
	for i := range m {
		w := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(m)))
		out[i] *= w
		out[len(out)-1-i] *= w
	}
	return out
}
