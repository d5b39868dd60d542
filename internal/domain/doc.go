// Package domain models strong-motion recordings and the computation of
// instrumental seismic intensity from them, following GB/T 17742-2020.
//
// # Data Source
//
// Records arrive already decoded from instrument files (see the waveformfile
// adapter): one channel per [WaveformRecord], carrying the station ID, the
// component, the sample rate, the start time and the samples. Samples are either
// raw digitiser counts or acceleration in m/s².
//
// Channels are grouped into a [StationEvent] by station ID and start-time
// proximity ([GroupStationEvents]). Event IDs are derived from the station and
// the earliest channel start, so regrouping the same input yields the same
// IDs.
//
// # Processing
//
// Each station event passes through three steps, in this order:
//
//	Preprocessing   baseline removal (mean, linear or polynomial), calibration
//	                of raw counts, zero-phase Butterworth band-pass
//	Extracting      PGA = max|a(t)|; v(t) = ∫a dt (trapezoid), baseline removed;
//	                PGV = max|v(t)|
//	Computing       vector synthesis of the available components, then the
//	                log-linear relations below
//
// Calibration:
//
//	counts_per_g = 0.9 · 2^(bits−1) / full_scale_g   (unless given directly)
//	a [m/s²]     = counts / counts_per_g · 9.79865
//
// The table entry under "*" applies to stations without their own entry.
// Raw-count records with no applicable entry fail with CalibrationError.
//
// # Intensity
//
//	I_a = 3.17 · log10(PGA) + 6.59      PGA in m/s²
//	I_v = 3.00 · log10(PGV) + 9.77      PGV in m/s
//
// PGA and PGV are the peaks of the sample-by-sample vector sum of the available
// components. The reported value is selected by [Rule]:
//
//	max       larger of I_a and I_v (default; monotonic in both peaks)
//	gbt2020   I_v when I_a ≥ 6 and I_v ≥ 6, else (I_a + I_v)/2
//
// The gbt2020 rule is the standard's text. It is not monotonic: when I_a is
// well above 6 and I_v crosses 6 the value can drop.
//
// The value is clamped to [1, 12] and flagged out of range when clamping
// happened; the class is the value rounded to the nearest integer. A zero
// record therefore maps to class 1.
//
// # Failures
//
// Every failure is an [*Error] with one of five kinds: InvalidRecord,
// CalibrationError, InsufficientData, IncompleteStation and Cancelled. A
// station event missing some components is still computed (status partial,
// kind IncompleteStation); one with no components fails.
package domain
