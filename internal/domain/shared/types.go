package shared

import "errors"

var (
	ErrInvalidEntityType      = errors.New("invalid entity type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidCurrency        = errors.New("invalid currency")
)

// EntityType identifies which kind of ledger entity a balance belongs to
type EntityType string

const (
	EntityTypeCompany  EntityType = "COMPANY"
	EntityTypeEmployee EntityType = "EMPLOYEE"
)

// Valid reports whether the entity type is one of the known kinds
func (t EntityType) Valid() bool {
	return t == EntityTypeCompany || t == EntityTypeEmployee
}

// TransactionType defines the direction of a ledger transaction
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Valid reports whether the transaction type is one of the known kinds
func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
