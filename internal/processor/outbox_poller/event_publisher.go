package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corepay-ledger/internal/domain/outbox"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/platform/messaging/producers"
)

// EventPublisher publishes outbox messages to the ledger events topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher on a Kafka producer
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes the recorded ledger transaction and marks the outbox
// message processed. The message is keyed by entity ID so all of an entity's
// events land on one partition, preserving their order for consumers.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	transaction, err := message.GetLedgerTransaction()
	if err != nil {
		p.logger.Error("Failed to unmarshal ledger transaction from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	if err := p.producer.Publish(ctx, transaction.EntityID, transaction); err != nil {
		return fmt.Errorf("failed to publish ledger transaction %s: %w", message.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		p.logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("publish for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	return nil
}
