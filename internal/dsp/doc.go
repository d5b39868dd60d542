// Package dsp implements the numeric kernels used to clean strong-motion
// records: polynomial detrending, Butterworth filter design as cascaded
// second-order sections, zero-phase forward-backward filtering, cumulative
// trapezoidal integration, and peak detection.
//
// All functions are pure: inputs are never modified and outputs are freshly
// allocated slices.
//
// # Filter design
//
// Butterworth low-pass and high-pass filters are designed per section with the
// bilinear transform, pre-warped at the corner frequency. An order-N filter is
// N/2 biquads whose quality factors are
//
//	Q_k = 1 / (2·cos((2k−1)·π / (2N))),  k = 1..N/2
//
// plus one first-order section when N is odd. A band-pass is the cascade of a
// high-pass at the low corner and a low-pass at the high corner, which is exact
// for the wide strong-motion passband (0.1–10 Hz spans two decades).
//
// # Zero-phase filtering
//
// [SOS.FiltFilt] extends the signal by odd reflection at both ends, runs the
// cascade forward and backward with steady-state initial conditions, and
// trims the padding. The result has no phase shift, so peak times are not
// biased by the filter. The padding covers the decay of the slowest pole: at
// 0.1 Hz and 100 samples/s that is close to 30 s of samples. Callers taper
// records with [CosineTaper] first so the ends carry no step into the
// high-pass.
package dsp
