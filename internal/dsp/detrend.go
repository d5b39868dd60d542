package dsp

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingularFit is returned when a polynomial baseline cannot be fitted,
// typically because the series has fewer samples than coefficients.
var ErrSingularFit = errors.New("dsp: singular polynomial fit")

// MaxPolynomialOrder bounds DetrendPolynomial; higher orders are numerically
// meaningless for baseline correction.
const MaxPolynomialOrder = 10

// DetrendMean subtracts the arithmetic mean.
func DetrendMean(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out
}

// DetrendLinear subtracts the least-squares straight line through the samples.
func DetrendLinear(x []float64) []float64 {
	n := len(x)
	if n < 2 {
		return DetrendMean(x)
	}

	// Sample index as abscissa; the centred form keeps the sums small.
	tMean := float64(n-1) / 2
	var xSum float64
	for _, v := range x {
		xSum += v
	}
	xMean := xSum / float64(n)

	var sxy, sxx float64
	for i, v := range x {
		dt := float64(i) - tMean
		sxy += dt * (v - xMean)
		sxx += dt * dt
	}
	slope := sxy / sxx

	out := make([]float64, n)
	for i, v := range x {
		out[i] = v - (xMean + slope*(float64(i)-tMean))
	}
	return out
}

// DetrendPolynomial subtracts the least-squares polynomial baseline of the
// given order. Order 0 is the mean and order 1 the straight line.
func DetrendPolynomial(x []float64, order int) ([]float64, error) {
	if order < 0 || order > MaxPolynomialOrder {
		return nil, fmt.Errorf("dsp: polynomial order %d out of range [0, %d]", order, MaxPolynomialOrder)
	}
	switch order {
	case 0:
		return DetrendMean(x), nil
	case 1:
		return DetrendLinear(x), nil
	}

	n := len(x)
	if n <= order {
		return nil, fmt.Errorf("%w: %d samples for order %d", ErrSingularFit, n, order)
	}

	coeffs, err := fitPolynomial(x, order)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for i, v := range x {
		out[i] = v - evalPolynomial(coeffs, abscissa(i, n))
	}
	return out, nil
}

// abscissa maps sample i of n onto [-1, 1] so the normal equations stay well
// conditioned for long records.
func abscissa(i, n int) float64 {
	if n == 1 {
		return 0
	}
	return 2*float64(i)/float64(n-1) - 1
}

// fitPolynomial solves the normal equations (VᵀV)c = Vᵀx by Gaussian
// elimination with partial pivoting.
func fitPolynomial(x []float64, order int) ([]float64, error) {
	m := order + 1
	n := len(x)

	// Power sums Σ t^k for k = 0..2·order.
	powSums := make([]float64, 2*order+1)
	rhs := make([]float64, m)
	for i, v := range x {
		t := abscissa(i, n)
		p := 1.0
		for k := 0; k <= 2*order; k++ {
			powSums[k] += p
			if k < m {
				rhs[k] += p * v
			}
			p *= t
		}
	}

	a := make([][]float64, m)
	for r := range m {
		a[r] = make([]float64, m+1)
		for c := range m {
			a[r][c] = powSums[r+c]
		}
		a[r][m] = rhs[r]
	}

	for col := range m {
		pivot := col
		for r := col + 1; r < m; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, ErrSingularFit
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < m; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= m; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	coeffs := make([]float64, m)
	for r := m - 1; r >= 0; r-- {
		s := a[r][m]
		for c := r + 1; c < m; c++ {
			s -= a[r][c] * coeffs[c]
		}
		coeffs[r] = s / a[r][r]
	}
	return coeffs, nil
}

// evalPolynomial evaluates c[0] + c[1]·t + ... by Horner's rule.
func evalPolynomial(c []float64, t float64) float64 {
	var y float64
	for k := len(c) - 1; k >= 0; k-- {
		y = y*t + c[k]
	}
	return y
}
