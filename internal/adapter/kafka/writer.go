package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/seismic-intensity/internal/config"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes intensity results to a Kafka topic, one message per
// station event. It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured result topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes every result of the batch, failed ones included, in a
// single WriteMessages call. Messages are keyed by station so results of one
// station stay ordered within a partition.
func (w *Writer) LoadBatch(ctx context.Context, batch *domain.Batch) error {
	if len(batch.Results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Results))
	for i := range batch.Results {
		msg, err := serializeToMessage(batch.ID, batch.Results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d results: %w", len(msgs), err)
	}
	w.logger.Debug("results published", "batch_id", batch.ID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an IntensityResult into a Kafka message.
func serializeToMessage(batchID string, result domain.IntensityResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize intensity result: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "batch_id", Value: []byte(batchID)},
		{Key: "status", Value: []byte(result.Status)},
		{Key: "processed_at", Value: []byte(result.ProcessedAt.Format(time.RFC3339))},
	}
	if result.ErrorKind != "" {
		headers = append(headers, kafkago.Header{Key: "error_kind", Value: []byte(result.ErrorKind)})
	}
	return kafkago.Message{
		Key:     []byte(result.StationID),
		Value:   data,
		Headers: headers,
	}, nil
}
