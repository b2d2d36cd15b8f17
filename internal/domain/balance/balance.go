package balance

import (
	"errors"
	"time"

	"github.com/corepay-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds for debit")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrEmptyEntityID         = errors.New("entity id cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Record is the authoritative balance of a single entity (company or employee).
// All amounts are integers in the smallest currency unit; the record carries
// cumulative credit/debit totals so that Balance == TotalCredited - TotalDebited
// holds against the transaction log at all times.
type Record struct {
	EntityID      string            `json:"entity_id"`
	EntityType    shared.EntityType `json:"entity_type"`
	Balance       int64             `json:"balance"` // Stored in minor units
	TotalCredited int64             `json:"total_credited"`
	TotalDebited  int64             `json:"total_debited"`
	Currency      string            `json:"currency"`
	Version       int               `json:"version"` // For optimistic locking
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewRecord creates a zero-initialized balance record for an entity that has
// never transacted
func NewRecord(entityID string, entityType shared.EntityType, currency string) (*Record, error) {
	if entityID == "" {
		return nil, ErrEmptyEntityID
	}
	if !entityType.Valid() {
		return nil, shared.ErrInvalidEntityType
	}
	if len(currency) != 3 { // Basic validation for currency code length
		return nil, ErrInvalidCurrencyFormat
	}

	now := time.Now()
	return &Record{
		EntityID:   entityID,
		EntityType: entityType,
		Balance:    0,
		Currency:   currency,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Credit adds the specified amount to the balance
func (r *Record) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	r.Balance += amount
	r.TotalCredited += amount
	r.UpdatedAt = time.Now()
	r.Version++
	return nil
}

// Debit subtracts the specified amount from the balance. The balance is never
// allowed to go negative.
func (r *Record) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if r.Balance < amount {
		return ErrInsufficientFunds
	}

	r.Balance -= amount
	r.TotalDebited += amount
	r.UpdatedAt = time.Now()
	r.Version++
	return nil
}

// CanDebit checks if the entity has sufficient funds for a debit
func (r *Record) CanDebit(amount int64) bool {
	return r.Balance >= amount
}

// Apply routes a transaction type to the matching mutation
func (r *Record) Apply(txType shared.TransactionType, amount int64) error {
	switch txType {
	case shared.TransactionTypeCredit:
		return r.Credit(amount)
	case shared.TransactionTypeDebit:
		return r.Debit(amount)
	default:
		return shared.ErrInvalidTransactionType
	}
}
