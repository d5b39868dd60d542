package domain

import "time"

var testStart = time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)

func accelRecord(station string, c Component, rate float64, samples []float64) WaveformRecord {
	return WaveformRecord{
		StationID:  station,
		Component:  c,
		SampleRate: rate,
		StartTime:  testStart,
		Samples:    samples,
		Unit:       UnitAcceleration,
		Source:     station + ".json",
	}
}

func zeros(n int) []float64 {
	return make([]float64, n)
}
