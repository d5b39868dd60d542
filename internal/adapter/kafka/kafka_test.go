package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var processedAt = time.Date(2024, 4, 26, 15, 12, 0, 0, time.UTC)

func TestSerializeToMessage(t *testing.T) {
	result := domain.IntensityResult{
		StationID:      "ST01",
		EventID:        "ST01-20240426T151000.000Z",
		IntensityClass: 7,
		Status:         domain.StatusSuccess,
		ProcessedAt:    processedAt,
	}

	msg, err := serializeToMessage("b-1", result)
	require.NoError(t, err)

	assert.Equal(t, []byte("ST01"), msg.Key)
	assert.Contains(t, string(msg.Value), `"intensity_class":7`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "batch_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("b-1"), msg.Headers[0].Value)
	assert.Equal(t, "status", msg.Headers[1].Key)
	assert.Equal(t, []byte("success"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(processedAt.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_FailedResultCarriesKind(t *testing.T) {
	msg, err := serializeToMessage("b-1", domain.IntensityResult{
		StationID: "ST02",
		Status:    domain.StatusFailed,
		ErrorKind: domain.KindCalibration,
	})
	require.NoError(t, err)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "error_kind", msg.Headers[3].Key)
	assert.Equal(t, []byte("CalibrationError"), msg.Headers[3].Value)
}

func TestLoadBatch(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: slog.New(slog.DiscardHandler)}

	batch := &domain.Batch{ID: "b-1", Results: []domain.IntensityResult{
		{StationID: "ST01", Status: domain.StatusSuccess},
		{StationID: "ST02", Status: domain.StatusFailed, ErrorKind: domain.KindInvalidRecord},
	}}
	require.NoError(t, w.LoadBatch(context.Background(), batch))
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("ST01"), fw.msgs[0].Key)
	assert.Equal(t, []byte("ST02"), fw.msgs[1].Key)

	require.NoError(t, w.LoadBatch(context.Background(), &domain.Batch{ID: "empty"}))
	assert.Len(t, fw.msgs, 2)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestLoadBatch_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	w := &Writer{writer: fw, logger: slog.New(slog.DiscardHandler)}

	err := w.LoadBatch(context.Background(), &domain.Batch{ID: "b", Results: []domain.IntensityResult{{StationID: "ST01"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}
