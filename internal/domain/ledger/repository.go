package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages the append-only transaction log
type Repository interface {
	// Create appends a transaction. Returns ErrDuplicateTransaction when the
	// (entity, reference) pair already exists.
	Create(ctx context.Context, transaction *Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByReference retrieves the transaction recorded for an entity under the
	// given idempotency reference. Returns nil, nil when no such transaction
	// exists, enabling idempotent retries.
	GetByReference(ctx context.Context, entityID, reference string) (*Transaction, error)

	// ListByEntity retrieves up to limit transactions for an entity,
	// newest first
	ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]*Transaction, error)

	// ListByTimeRange retrieves an entity's transactions within [from, to),
	// oldest first
	ListByTimeRange(ctx context.Context, entityID string, from, to time.Time) ([]*Transaction, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing ledger transaction
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "ledger transaction not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateTransaction indicates an idempotency reference collision
type ErrDuplicateTransaction struct {
	EntityID  string
	Reference string
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate ledger transaction for entity " + e.EntityID + " with reference " + e.Reference
}

// Is implements the errors.Is interface for ErrDuplicateTransaction
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.EntityID == "" && t.Reference == "" {
		return true
	}
	return e.EntityID == t.EntityID && e.Reference == t.Reference
}
