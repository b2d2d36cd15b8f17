package balance

import (
	"context"

	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// Repository defines balance record persistence operations
type Repository interface {
	// GetByEntityID retrieves the balance record for an entity.
	// Returns ErrRecordNotFound if the entity has never transacted; callers
	// that must never fail on a fresh entity map that to a zero record.
	GetByEntityID(ctx context.Context, entityID string) (*Record, error)

	// Update persists a mutated record using optimistic locking on Version
	Update(ctx context.Context, record *Record) error

	// LockForUpdate ensures a row exists for the entity and acquires a
	// pessimistic lock on it. Must be called within a transaction; the lock
	// is the per-entity serialization point for all balance mutations.
	LockForUpdate(ctx context.Context, entityID string, entityType shared.EntityType, currency string) (*Record, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	EntityID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for entity: " + e.EntityID
}

// ErrRecordNotFound indicates the entity has no balance row yet
type ErrRecordNotFound struct {
	EntityID string
}

func (e ErrRecordNotFound) Error() string {
	return "balance record not found: " + e.EntityID
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	// An empty target EntityID matches any ErrRecordNotFound
	if t.EntityID == "" {
		return true
	}
	return e.EntityID == t.EntityID
}
