//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/seismic-intensity/internal/adapter/kafka"
	"github.com/couchcryptid/seismic-intensity/internal/adapter/waveformfile"
	"github.com/couchcryptid/seismic-intensity/internal/config"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
	"github.com/couchcryptid/seismic-intensity/internal/pipeline"
	"github.com/couchcryptid/seismic-intensity/internal/synth"
)

const testResultTopic = "test-intensity-results"

var baseStart = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("intensity-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedResult holds a deserialized message read from the result topic.
type publishedResult struct {
	Result  domain.IntensityResult
	Key     string
	Headers map[string]string
}

func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedResult {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from result topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var r domain.IntensityResult
	require.NoError(t, json.Unmarshal(msg.Value, &r), "unmarshal result message")
	return publishedResult{Result: r, Key: string(msg.Key), Headers: headers}
}

// TestBatchPublishesResults runs a batch of synthetic stations, one of them
// undecodable, and verifies every result reaches the topic.
func TestBatchPublishesResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testResultTopic)

	in := t.TempDir()
	var inputs []string
	for i := range 3 {
		cfg := synth.Default(fmt.Sprintf("ST%02d", i+1), baseStart)
		cfg.PeakAcceleration = 0.5 * float64(i+1)
		recs, err := synth.Station(cfg)
		require.NoError(t, err)
		path := filepath.Join(in, cfg.StationID+".json")
		require.NoError(t, waveformfile.Write(path, recs))
		inputs = append(inputs, path)
	}
	inputs = append(inputs, filepath.Join(in, "missing.json"))

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaResultTopic: testResultTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	processor, err := pipeline.NewStationProcessor(pipeline.DefaultSettings(), nil, nil, discardLogger())
	require.NoError(t, err)
	orch := pipeline.NewOrchestrator(processor, waveformfile.NewDecoder(), pipeline.OrchestratorConfig{Concurrency: 2},
		discardLogger(), observability.NewMetricsForTesting())
	orch.AddLoader("kafka", writer)

	batch, err := orch.RunBatch(ctx, pipeline.BatchRequest{Inputs: inputs})
	require.NoError(t, err)
	require.Len(t, batch.Results, 4)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testResultTopic,
		GroupID:     fmt.Sprintf("test-results-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]publishedResult, 4)
	for len(received) < 4 {
		pr := readResult(ctx, t, consumer)
		received[pr.Key] = pr
	}

	for _, id := range []string{"ST01", "ST02", "ST03"} {
		pr, ok := received[id]
		require.True(t, ok, "missing result for %s", id)
		assert.Equal(t, "success", pr.Headers["status"])
		assert.Equal(t, batch.ID, pr.Headers["batch_id"])
		_, err := time.Parse(time.RFC3339, pr.Headers["processed_at"])
		assert.NoError(t, err, "processed_at should be valid RFC3339")
		assert.GreaterOrEqual(t, pr.Result.IntensityClass, 1.0)
	}
	assert.Less(t, received["ST01"].Result.IntensityValue, received["ST03"].Result.IntensityValue)

	failed := received["missing"]
	assert.Equal(t, domain.StatusFailed, failed.Result.Status)
	assert.Equal(t, string(domain.KindInvalidRecord), failed.Headers["error_kind"])
}
