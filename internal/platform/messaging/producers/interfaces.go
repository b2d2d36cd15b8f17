package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// DeadLetterReason classifies why a payment event or outbox message was
// routed to the dead letter queue. The reason rides along as a Kafka header
// so DLQ consumers can triage without parsing the payload.
type DeadLetterReason string

const (
	// ReasonMalformedEvent marks payloads that could not be decoded at all
	ReasonMalformedEvent DeadLetterReason = "MALFORMED_EVENT"
	// ReasonInvalidEvent marks decoded events that failed structural validation
	ReasonInvalidEvent DeadLetterReason = "INVALID_EVENT"
	// ReasonInsufficientFunds marks debit events the entity can never cover
	ReasonInsufficientFunds DeadLetterReason = "INSUFFICIENT_FUNDS"
	// ReasonPublishExhausted marks outbox messages that ran out of publish attempts
	ReasonPublishExhausted DeadLetterReason = "PUBLISH_ATTEMPTS_EXHAUSTED"
)

// MessagePublisher handles publishing messages to a primary topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher handles publishing unprocessable messages to the DLQ
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, original []byte, reason DeadLetterReason) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
