package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corepay-ledger/internal/domain/balance"
	"github.com/corepay-ledger/internal/platform/messaging/consumers"
	"github.com/corepay-ledger/internal/platform/messaging/producers"
)

// PaymentEventHandler handles incoming payment event messages from Kafka
type PaymentEventHandler struct {
	service  PaymentEventService
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewPaymentEventHandler creates a new handler
func NewPaymentEventHandler(
	logger *slog.Logger,
	service PaymentEventService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		service:  service,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes inbound payment events. Malformed or structurally
// invalid events go to the DLQ and their offsets are committed; transient
// failures are returned so the event stays uncommitted for redelivery.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, evt consumers.InboundEvent) error {
	var event PaymentEvent
	if err := json.Unmarshal(evt.Payload, &event); err != nil {
		return h.deadLetter(ctx, evt, producers.ReasonMalformedEvent, err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	if err := event.Validate(); err != nil {
		logger.Error("Payment event failed validation",
			"event_id", event.EventID,
			"error", err,
		)
		return h.deadLetter(ctx, evt, producers.ReasonInvalidEvent, err)
	}

	logger.Info("Received payment event for processing",
		"event_id", event.EventID,
		"user_id", event.UserID,
		"type", event.Type,
		"amount", event.Amount,
	)

	if err := h.service.ProcessEvent(ctx, &event); err != nil {
		// A debit the entity cannot cover will never succeed on retry.
		if errors.Is(err, balance.ErrInsufficientFunds) {
			return h.deadLetter(ctx, evt, producers.ReasonInsufficientFunds, err)
		}
		logger.Error("Failed to process payment event",
			"event_id", event.EventID,
			"error", err,
		)
		return fmt.Errorf("processing payment event %s failed: %w", event.EventID, err)
	}

	logger.Info("Successfully processed payment event", "event_id", event.EventID)
	return nil // Success, commit offset
}

// deadLetter routes an unprocessable event to the DLQ. When the DLQ is
// unavailable the original error propagates so the event is redelivered.
func (h *PaymentEventHandler) deadLetter(ctx context.Context, evt consumers.InboundEvent, reason producers.DeadLetterReason, cause error) error {
	h.logger.Error("Payment event is unprocessable",
		"message_key", evt.Key,
		"partition", evt.Partition,
		"offset", evt.Offset,
		"reason", reason,
		"error", cause,
	)

	if h.producer != nil {
		if dlqErr := h.producer.PublishToDLQ(ctx, evt.Key, evt.Payload, reason); dlqErr != nil {
			h.logger.Error("Failed to publish event to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", evt.Key,
			)
		} else {
			return nil // Event handled, commit offset
		}
	}
	return fmt.Errorf("%s: %w", reason, cause)
}
