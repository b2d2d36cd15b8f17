package outbox

import (
	"encoding/json"
	"time"

	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Message stores a committed ledger transaction for reliable event publishing.
// A message is written in the same database transaction as the ledger append,
// so the event stream can never diverge from the ledger.
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	EntityID      string              `json:"entity_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(transaction *ledger.Transaction) (*Message, error) {
	payload, err := json.Marshal(transaction)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: transaction.ID,
		EntityID:      transaction.EntityID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetLedgerTransaction extracts the ledger transaction from the payload
func (m *Message) GetLedgerTransaction() (*ledger.Transaction, error) {
	var transaction ledger.Transaction
	if err := json.Unmarshal(m.Payload, &transaction); err != nil {
		return nil, err
	}
	return &transaction, nil
}
