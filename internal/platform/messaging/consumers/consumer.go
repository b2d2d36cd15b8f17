package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/corepay-ledger/internal/config"
)

// InboundEvent is one payment event as read from the stream, before decoding.
// Partition and offset identify the message for log correlation.
type InboundEvent struct {
	Key        string
	Payload    []byte
	Partition  int
	Offset     int64
	ReceivedAt time.Time
}

// EventHandler processes one inbound event. Returning nil commits the offset;
// returning an error leaves it uncommitted so the event is redelivered.
type EventHandler func(ctx context.Context, evt InboundEvent) error

// PaymentEventConsumer reads payment events from the configured topic as part
// of a consumer group, with manual offset commits.
type PaymentEventConsumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewPaymentEventConsumer(logger *slog.Logger, cfg *config.KafkaConfig) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		logger: logger.With("topic", cfg.PaymentEventTopic, "group_id", cfg.ConsumerGroup),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.PaymentEventTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Run blocks fetching and handling events until ctx is canceled. An offset is
// committed only after the handler accepts the event, so a crashed processor
// sees unacknowledged events again on restart.
func (c *PaymentEventConsumer) Run(ctx context.Context, handler EventHandler) error {
	c.logger.Info("Consuming payment events")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer")
				return nil
			}
			c.logger.Error("Failed to fetch payment event", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		evt := InboundEvent{
			Key:        string(msg.Key),
			Payload:    msg.Value,
			Partition:  msg.Partition,
			Offset:     msg.Offset,
			ReceivedAt: msg.Time,
		}
		if err := handler(ctx, evt); err != nil {
			// Uncommitted events are redelivered after a rebalance or restart
			c.logger.Error("Payment event left uncommitted",
				"partition", evt.Partition, "offset", evt.Offset, "key", evt.Key, "error", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit offset after processing",
				"partition", evt.Partition, "offset", evt.Offset, "error", err)
		}
	}
}

func (c *PaymentEventConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
