package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.InDelta(t, 0.1, cfg.FilterLowHz, 1e-12)
	assert.InDelta(t, 10.0, cfg.FilterHighHz, 1e-12)
	assert.Equal(t, 4, cfg.FilterOrder)
	assert.Equal(t, "linear", cfg.DetrendMethod)
	assert.Equal(t, 3, cfg.DetrendOrder)
	assert.Equal(t, 100, cfg.MinSamples)
	assert.Equal(t, "max", cfg.IntensityRule)
	assert.Empty(t, cfg.CalibrationFile)
	assert.Equal(t, runtime.NumCPU(), cfg.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.GroupWindow)
	assert.Equal(t, 10*time.Millisecond, cfg.AlignTolerance)
	assert.Equal(t, "./out", cfg.OutputDir)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.False(t, cfg.WriteSeries)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "seismic-intensity-results", cfg.KafkaResultTopic)
	assert.Empty(t, cfg.StorageDriver)

	assert.Equal(t, domain.DefaultPreprocessConfig(), cfg.Preprocess())
	assert.Equal(t, domain.DefaultIntensityConfig(), cfg.Intensity())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FILTER_LOW_HZ", "0.05")
	t.Setenv("FILTER_HIGH_HZ", "20")
	t.Setenv("FILTER_ORDER", "2")
	t.Setenv("TAPER_FRACTION", "0.1")
	t.Setenv("DETREND_METHOD", "polynomial")
	t.Setenv("DETREND_ORDER", "5")
	t.Setenv("MIN_SAMPLES", "200")
	t.Setenv("INTENSITY_RULE", "gbt2020")
	t.Setenv("CALIBRATION_FILE", "/etc/seismic/calibration.yaml")
	t.Setenv("CONCURRENCY", "3")
	t.Setenv("GROUP_WINDOW", "2m")
	t.Setenv("ALIGN_TOLERANCE", "50ms")
	t.Setenv("INPUT_DIR", "/data/in")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("POLL_INTERVAL", "1s")
	t.Setenv("WRITE_SERIES", "true")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_RESULT_TOPIC", "custom-results")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("STORAGE_DSN", "file:results.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, domain.PreprocessConfig{
		LowHz:         0.05,
		HighHz:        20,
		Order:         2,
		Detrend:       domain.Detrend{Method: domain.DetrendPolynomial, Order: 5},
		TaperFraction: 0.1,
	}, cfg.Preprocess())
	assert.Equal(t, 200, cfg.Extract().MinSamples)
	assert.Equal(t, domain.RuleGBT2020, cfg.Intensity().Rule)
	assert.Equal(t, "/etc/seismic/calibration.yaml", cfg.CalibrationFile)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.GroupWindow)
	assert.Equal(t, 50*time.Millisecond, cfg.AlignTolerance)
	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.True(t, cfg.WriteSeries)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-results", cfg.KafkaResultTopic)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, "file:results.db", cfg.StorageDSN)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"CONCURRENCY", "0", "CONCURRENCY"},
		{"CONCURRENCY", "many", "CONCURRENCY"},
		{"FILTER_LOW_HZ", "low", "FILTER_LOW_HZ"},
		{"FILTER_HIGH_HZ", "0.01", "filter"},
		{"FILTER_ORDER", "0", "filter"},
		{"TAPER_FRACTION", "0.8", "filter"},
		{"TAPER_FRACTION", "wide", "TAPER_FRACTION"},
		{"DETREND_METHOD", "spline", "DETREND_METHOD"},
		{"MIN_SAMPLES", "1", "MIN_SAMPLES"},
		{"INTENSITY_RULE", "mean", "INTENSITY_RULE"},
		{"GROUP_WINDOW", "0s", "GROUP_WINDOW"},
		{"ALIGN_TOLERANCE", "soon", "ALIGN_TOLERANCE"},
		{"POLL_INTERVAL", "-1s", "POLL_INTERVAL"},
		{"WRITE_SERIES", "maybe", "WRITE_SERIES"},
		{"STORAGE_DRIVER", "mysql", "STORAGE_DRIVER"},
		{"STORAGE_DRIVER", "postgres", "STORAGE_DSN"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestValidate_AfterOverride(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Concurrency = -2
	assert.ErrorContains(t, cfg.Validate(), "CONCURRENCY")
}
