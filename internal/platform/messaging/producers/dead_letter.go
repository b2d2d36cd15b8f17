package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/corepay-ledger/internal/config"
)

// deadLetterRecord is the envelope written to the DLQ topic. The original
// payload is carried as a string because malformed events are, by definition,
// not valid JSON.
type deadLetterRecord struct {
	Key      string           `json:"key"`
	Payload  string           `json:"payload"`
	Reason   DeadLetterReason `json:"reason"`
	FailedAt time.Time        `json:"failed_at"`
}

// DLQProducer parks unprocessable payment events and exhausted outbox
// messages on a dead letter topic. Writes are synchronous: losing a dead
// letter would lose the only record of the failure.
type DLQProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewDLQProducer returns nil when no DLQ topic is configured; callers treat
// a nil producer as "dead lettering disabled".
func NewDLQProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic not configured, dead lettering disabled")
		return nil, nil
	}

	writer, err := newTopicWriter(logger, cfg, cfg.DLQTopic, kafka.RequireAll, false)
	if err != nil {
		return nil, fmt.Errorf("failed to set up DLQ producer: %w", err)
	}

	return &DLQProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DLQTopic,
	}, nil
}

// PublishToDLQ writes the original message under its original key so the DLQ
// preserves per-entity ordering of failures.
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, original []byte, reason DeadLetterReason) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("DLQ producer not initialized")
	}

	record, err := json.Marshal(deadLetterRecord{
		Key:      key,
		Payload:  string(original),
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter record: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: record,
		Headers: []kafka.Header{
			{Key: "dlq-reason", Value: []byte(reason)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish dead letter", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish dead letter to %s: %w", p.topic, err)
	}

	p.logger.Info("Published dead letter", "topic", p.topic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ writer for topic %s: %w", p.topic, err)
	}
	return nil
}
