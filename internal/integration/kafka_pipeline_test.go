//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroclim/drought-index-etl/internal/adapter/kafka"
	"github.com/hydroclim/drought-index-etl/internal/config"
	"github.com/hydroclim/drought-index-etl/internal/domain"
	"github.com/hydroclim/drought-index-etl/internal/observability"
	"github.com/hydroclim/drought-index-etl/internal/pipeline"
	"github.com/hydroclim/drought-index-etl/internal/region"
)

const (
	testSourceTopic   = "test-precipitation-series"
	testRegionalTopic = "test-regional-spi"
	testStatsTopic    = "test-drought-stats"

	fixtureYears = 15
)

func testConfig(broker string) *config.Config {
	return &config.Config{
		KafkaBrokers:        []string{broker},
		KafkaSourceTopic:    testSourceTopic,
		KafkaRegionalTopic:  testRegionalTopic,
		KafkaStatsTopic:     testStatsTopic,
		KafkaGroupID:        fmt.Sprintf("test-%d", time.Now().UnixNano()),
		SnapshotIdleTimeout: 3 * time.Second,
		PollInterval:        time.Minute,
	}
}

// fixtureRecord builds one location's raw message: years of positive
// monthly totals with a seasonal cycle plus a location offset.
func fixtureRecord(id string, offset float64) domain.RawSeriesRecord {
	values := make([]float64, 0, fixtureYears*12)
	for i := 0; i < fixtureYears*12; i++ {
		seasonal := 40 + 30*math.Sin(float64(i%12)/12*2*math.Pi)
		noise := 10 * math.Sin(float64(i)*0.7)
		values = append(values, seasonal+noise+offset+15)
	}
	return domain.RawSeriesRecord{LocationID: id, StartMonth: "2005-01", Values: values}
}

func publishSeries(ctx context.Context, t *testing.T, broker string, records ...domain.RawSeriesRecord) {
	t.Helper()
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		payload, err := json.Marshal(rec)
		require.NoError(t, err)
		msgs[i] = kafkago.Message{Key: []byte(rec.LocationID), Value: payload}
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

// TestSnapshotExtract verifies the reader's compacted-topic semantics: a
// replaced message wins and the snapshot contains one series per key.
func TestSnapshotExtract(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)

	stale := fixtureRecord("loc-a", 0)
	updated := fixtureRecord("loc-a", 5)
	other := fixtureRecord("loc-b", 10)
	publishSeries(ctx, t, broker, stale, other, updated)

	reader := kafka.NewReader(testConfig(broker), discardLogger())
	series, err := reader.ExtractSnapshot(ctx)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "loc-a", series[0].LocationID)
	assert.Equal(t, "loc-b", series[1].LocationID)
	assert.Equal(t, updated.Values, series[0].Values, "newest message per key must win")
}

// TestPipelineEndToEnd runs extract, compute, and load against real Kafka
// and verifies the records arriving on both sink topics.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testRegionalTopic)
	createTopic(t, broker, testStatsTopic)

	publishSeries(ctx, t, broker, fixtureRecord("loc-a", 0), fixtureRecord("loc-b", 8))

	cfg := testConfig(broker)
	reader := kafka.NewReader(cfg, discardLogger())
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	mapping := region.Mapping{"loc-a": "north", "loc-b": "north"}
	compute := pipeline.ComputeConfig{Scales: []domain.Scale{1}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, writer, mapping, compute, cfg.PollInterval, discardLogger(), metrics)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// At scale 1 with all-positive input, every month yields one regional
	// record, and every fixture year yields one stats record.
	wantRegional := fixtureYears * 12
	regional := consumeJSON[domain.RegionalValue](ctx, t, broker, testRegionalTopic, wantRegional)
	yearly := consumeJSON[domain.YearlyStats](ctx, t, broker, testStatsTopic, fixtureYears)

	pipelineCancel()
	require.NoError(t, <-errCh)

	seenMonths := map[string]bool{}
	for _, v := range regional {
		assert.Equal(t, "north", v.RegionID)
		assert.Equal(t, domain.Scale(1), v.Scale)
		assert.Equal(t, 2, v.Locations)
		assert.Equal(t, domain.Classify(v.Mean), v.Class)
		assert.False(t, seenMonths[v.Month.String()], "duplicate month %s", v.Month)
		seenMonths[v.Month.String()] = true
	}

	for _, y := range yearly {
		assert.Equal(t, "north", y.RegionID)
		assert.Equal(t, 12, y.Months)
		assert.False(t, y.Partial)
	}
}

func consumeJSON[T any](ctx context.Context, t *testing.T, broker, topic string, count int) []T {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	out := make([]T, 0, count)
	for len(out) < count {
		readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		cancel()
		require.NoError(t, err, "read from %s", topic)

		var v T
		require.NoError(t, json.Unmarshal(msg.Value, &v))
		out = append(out, v)
	}
	return out
}
