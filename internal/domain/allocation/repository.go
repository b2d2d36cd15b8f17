package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines allocation persistence operations
type Repository interface {
	Create(ctx context.Context, alloc *Allocation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Allocation, error)

	// LockForUpdate acquires a pessimistic lock on the allocation row.
	// Must be called within a transaction; it guards the pending -> terminal
	// transition against concurrent accept/reject calls.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Allocation, error)

	// UpdateStatus persists a status transition
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) error

	// ListPending retrieves the employee's allocations still awaiting a decision
	ListPending(ctx context.Context, employeeID string) ([]*Allocation, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrAllocationNotFound indicates a missing allocation or one that does not
// belong to the caller
type ErrAllocationNotFound struct {
	ID uuid.UUID
}

func (e ErrAllocationNotFound) Error() string {
	return "allocation not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrAllocationNotFound
func (e ErrAllocationNotFound) Is(target error) bool {
	t, ok := target.(ErrAllocationNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrAllocationProcessed indicates a state-machine violation: the allocation
// already reached a terminal status
type ErrAllocationProcessed struct {
	ID     uuid.UUID
	Status Status
}

func (e ErrAllocationProcessed) Error() string {
	return "allocation " + e.ID.String() + " already processed with status " + string(e.Status)
}

// Is implements the errors.Is interface for ErrAllocationProcessed
func (e ErrAllocationProcessed) Is(target error) bool {
	t, ok := target.(ErrAllocationProcessed)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrAllocationExpired indicates the offer window has passed
type ErrAllocationExpired struct {
	ID uuid.UUID
}

func (e ErrAllocationExpired) Error() string {
	return "allocation expired: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrAllocationExpired
func (e ErrAllocationExpired) Is(target error) bool {
	t, ok := target.(ErrAllocationExpired)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
