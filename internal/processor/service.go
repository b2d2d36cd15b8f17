// Package processor ingests payment gateway events. Each event is recorded
// for reconciliation and applied to the owning entity's balance through the
// balance engine, idempotent by the gateway reference.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corepay-ledger/internal/domain/reconciliation"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/engine"
)

// PaymentEvent is the wire format of a gateway payment event
type PaymentEvent struct {
	EventID    string    `json:"event_id"`
	Reference  string    `json:"reference"`
	UserID     string    `json:"user_id"`
	EntityType string    `json:"entity_type"`
	Type       string    `json:"type"` // CREDIT or DEBIT
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	Purpose    string    `json:"purpose"`
	OccurredAt time.Time `json:"occurred_at"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// Validate checks the structural invariants of an event before any side effect
func (e *PaymentEvent) Validate() error {
	if e.EventID == "" {
		return errors.New("event id cannot be empty")
	}
	if e.Reference == "" {
		return errors.New("reference cannot be empty")
	}
	if e.UserID == "" {
		return errors.New("user id cannot be empty")
	}
	if e.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if len(e.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	if !shared.TransactionType(e.Type).Valid() {
		return fmt.Errorf("unknown transaction type %q", e.Type)
	}
	return nil
}

// PaymentEventService applies one gateway payment event
type PaymentEventService interface {
	ProcessEvent(ctx context.Context, event *PaymentEvent) error
}

type paymentEventService struct {
	engine       engine.BalanceEngine
	transactions reconciliation.TransactionSource
	logger       *slog.Logger
}

// NewPaymentEventService creates the event processing service
func NewPaymentEventService(
	logger *slog.Logger,
	balanceEngine engine.BalanceEngine,
	transactions reconciliation.TransactionSource,
) PaymentEventService {
	return &paymentEventService{
		engine:       balanceEngine,
		transactions: transactions,
		logger:       logger,
	}
}

// ProcessEvent records the transaction for reconciliation and applies the
// balance mutation. Both steps tolerate redelivery: the recording ignores
// duplicate event IDs and the mutation is idempotent by reference.
func (s *paymentEventService) ProcessEvent(ctx context.Context, event *PaymentEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	record := &reconciliation.PaymentTransaction{
		ID:         event.EventID,
		Reference:  event.Reference,
		UserID:     event.UserID,
		Amount:     event.Amount,
		Currency:   event.Currency,
		Status:     event.Status,
		OccurredAt: event.OccurredAt,
	}
	if err := s.transactions.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to record payment transaction %s: %w", event.EventID, err)
	}

	entityType := shared.EntityType(event.EntityType)
	if !entityType.Valid() {
		entityType = shared.EntityTypeEmployee
	}

	req := &engine.MutationRequest{
		EntityID:   event.UserID,
		EntityType: entityType,
		Amount:     event.Amount,
		Currency:   event.Currency,
		Reference:  event.Reference,
		Purpose:    event.Purpose,
	}

	var update *engine.BalanceUpdate
	var err error
	switch shared.TransactionType(event.Type) {
	case shared.TransactionTypeDebit:
		update, err = s.engine.Debit(ctx, req)
	default:
		update, err = s.engine.Credit(ctx, req)
	}
	if err != nil {
		return err
	}

	if update.Duplicate {
		logger.Info("Payment event already applied, skipping",
			"event_id", event.EventID, "reference", event.Reference)
		return nil
	}

	logger.Info("Payment event applied",
		"event_id", event.EventID,
		"entity_id", event.UserID,
		"type", event.Type,
		"amount", event.Amount,
		"new_balance", update.Balance)

	return nil
}
