package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hydroclim/drought-index-etl/internal/config"
	"github.com/hydroclim/drought-index-etl/internal/domain"
)

// Writer publishes computed records to the regional-SPI and drought-stats
// sink topics. It implements pipeline.ResultLoader.
type Writer struct {
	regional *kafkago.Writer
	stats    *kafkago.Writer
	logger   *slog.Logger
}

// NewWriter creates producers for both sink topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	newTopicWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:  kafkago.TCP(cfg.KafkaBrokers...),
			Topic: topic,
			// Partition by record key so one region's series stays ordered.
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Writer{
		regional: newTopicWriter(cfg.KafkaRegionalTopic),
		stats:    newTopicWriter(cfg.KafkaStatsTopic),
		logger:   logger,
	}
}

// LoadRegional publishes regional monthly SPI records in one batch.
func (w *Writer) LoadRegional(ctx context.Context, values []domain.RegionalValue) error {
	if len(values) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(values))
	for i, v := range values {
		msg, err := regionalMessage(v)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.regional.WriteMessages(ctx, msgs...)
}

// LoadYearly publishes yearly drought statistics in one batch.
func (w *Writer) LoadYearly(ctx context.Context, stats []domain.YearlyStats) error {
	if len(stats) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(stats))
	for i, s := range stats {
		msg, err := yearlyMessage(s)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.stats.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	if err := w.regional.Close(); err != nil {
		return err
	}
	return w.stats.Close()
}

func regionalMessage(v domain.RegionalValue) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize regional value: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(v.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "scale", Value: []byte(strconv.Itoa(int(v.Scale)))},
			{Key: "computed_at", Value: []byte(v.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}

func yearlyMessage(s domain.YearlyStats) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize yearly stats: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "scale", Value: []byte(strconv.Itoa(int(s.Scale)))},
			{Key: "computed_at", Value: []byte(s.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
