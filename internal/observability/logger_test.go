package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-intensity/internal/config"
)

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("station event failed", "station_id", "ST01")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "station event failed", entry["msg"])
	assert.Equal(t, "ST01", entry["station_id"])
}

func TestNewConsoleLogger_TextAndUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&config.Config{LogLevel: "loud", LogFormat: "text"}, &buf)

	logger.Debug("hidden")
	logger.Info("batch started")
	assert.Contains(t, buf.String(), "msg=\"batch started\"")
	assert.NotContains(t, buf.String(), "hidden")
}
