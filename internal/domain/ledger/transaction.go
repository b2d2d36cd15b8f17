package ledger

import (
	"time"

	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Transaction is one immutable entry in an entity's append-only transaction log.
// PreviousBalance and NewBalance snapshot the balance at write time so an audit
// can be served point-in-time without replaying the log. A transaction is never
// mutated or deleted; corrections are appended as compensating entries.
type Transaction struct {
	ID              uuid.UUID              `json:"id"`
	Reference       string                 `json:"reference"` // Idempotency key, unique per entity
	EntityID        string                 `json:"entity_id"`
	EntityType      shared.EntityType      `json:"entity_type"`
	Type            shared.TransactionType `json:"type"`
	Amount          int64                  `json:"amount"` // Stored in minor units
	Currency        string                 `json:"currency"`
	Purpose         string                 `json:"purpose"`
	PreviousBalance int64                  `json:"previous_balance"`
	NewBalance      int64                  `json:"new_balance"`
	CreatedAt       time.Time              `json:"created_at"`
}
