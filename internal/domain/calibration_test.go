package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibration_Sensitivity(t *testing.T) {
	t.Run("from full scale and ADC bits", func(t *testing.T) {
		got, err := Calibration{FullScaleG: 2}.Sensitivity()
		require.NoError(t, err)
		want := 0.9 * math.Pow(2, 23) / 2 / LocalGravity
		assert.InEpsilon(t, want, got, 1e-12)
	})

	t.Run("16-bit ADC", func(t *testing.T) {
		got, err := Calibration{FullScaleG: 1, ADCBits: 16}.Sensitivity()
		require.NoError(t, err)
		assert.InEpsilon(t, 0.9*32768/LocalGravity, got, 1e-12)
	})

	t.Run("direct counts per g with custom gravity", func(t *testing.T) {
		got, err := Calibration{CountsPerG: 9806.65, Gravity: 9.80665}.Sensitivity()
		require.NoError(t, err)
		assert.InEpsilon(t, 1000, got, 1e-12)
	})

	bad := map[string]Calibration{
		"empty":            {},
		"negative scale":   {FullScaleG: -2},
		"too many bits":    {FullScaleG: 2, ADCBits: 40},
		"negative gravity": {CountsPerG: 1000, Gravity: -1},
	}
	for name, c := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := c.Sensitivity()
			assert.ErrorIs(t, err, ErrCalibration)
		})
	}
}

func TestCalibrationTable_Lookup(t *testing.T) {
	table := CalibrationTable{
		"ST01":            {CountsPerG: 1000},
		DefaultStationKey: {FullScaleG: 2},
	}

	c, ok := table.Lookup("ST01")
	require.True(t, ok)
	assert.Equal(t, 1000.0, c.CountsPerG)

	c, ok = table.Lookup("ST99")
	require.True(t, ok)
	assert.Equal(t, 2.0, c.FullScaleG)

	_, ok = CalibrationTable{"ST01": {CountsPerG: 1}}.Lookup("ST02")
	assert.False(t, ok)
}

func TestCalibrationTable_CountsToAcceleration(t *testing.T) {
	table := CalibrationTable{"ST01": {CountsPerG: 1000 * LocalGravity}}

	got, err := table.countsToAcceleration("ST01", []float64{0, 1000, -500})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, -0.5}, got, 1e-12)

	_, err = table.countsToAcceleration("ST02", []float64{1})
	assert.ErrorIs(t, err, ErrCalibration)

	_, err = CalibrationTable{"ST03": {}}.countsToAcceleration("ST03", []float64{1})
	require.ErrorIs(t, err, ErrCalibration)
	assert.Contains(t, err.Error(), `station "ST03"`)
}
