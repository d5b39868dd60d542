package dsp

import "math"

// CumTrapz returns the running trapezoidal integral of x sampled every dt
// seconds. The first element is zero and the output has the input's length.
func CumTrapz(x []float64, dt float64) []float64 {
	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + (x[i-1]+x[i])*dt/2
	}
	return out
}

// PeakAbs returns the largest absolute value in x and its index. An empty
// slice yields (0, -1).
func PeakAbs(x []float64) (float64, int) {
	peak, at := 0.0, -1
	for i, v := range x {
		if a := math.Abs(v); a > peak || at < 0 {
			peak, at = a, i
		}
	}
	return peak, at
}

// VectorPeak returns max_t sqrt(Σ_c x_c(t)²) over the given series, aligned at
// their first sample. Series shorter than the longest contribute zero past
// their end, so the result is never below any single series' PeakAbs.
func VectorPeak(series ...[]float64) float64 {
	longest := 0
	for _, s := range series {
		longest = max(longest, len(s))
	}

	var peak float64
	for i := range longest {
		var sum float64
		for _, s := range series {
			if i < len(s) {
				sum += s[i] * s[i]
			}
		}
		peak = max(peak, sum)
	}
	return math.Sqrt(peak)
}

// AllFinite reports whether every value is neither NaN nor ±Inf, returning the
// index of the first offending sample otherwise.
func AllFinite(x []float64) (bool, int) {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false, i
		}
	}
	return true, -1
}
