package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// batchSize bounds a single WriteMessages call.
const batchSize = 1000

// Publisher produces appended observations to a Kafka topic, one JSON
// message per row, keyed by station, date and time.
// It implements pipeline.Publisher.
type Publisher struct {
	writer      *kafkago.Writer
	parameterID string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPublisher creates a Kafka producer for topic. parameterID is attached to
// every message as a header.
func NewPublisher(brokers []string, topic, parameterID string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, parameterID: parameterID, now: time.Now, logger: logger}
}

// Publish writes rows in batches. Rows of the same station share a key and so
// land on the same partition in order.
func (p *Publisher) Publish(ctx context.Context, rows []domain.Observation) error {
	if len(rows) == 0 {
		return nil
	}
	syncedAt := p.now().UTC()

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		msgs := make([]kafkago.Message, 0, end-start)
		for _, o := range rows[start:end] {
			msg, err := serializeToMessage(o, p.parameterID, syncedAt)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish observations: %w", err)
		}
	}
	p.logger.Debug("observations published", "topic", p.writer.Topic, "count", len(rows))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message.
func serializeToMessage(o domain.Observation, parameterID string, syncedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "parameter_id", Value: []byte(parameterID)},
			{Key: "synced_at", Value: []byte(syncedAt.Format(time.RFC3339))},
		},
	}, nil
}
