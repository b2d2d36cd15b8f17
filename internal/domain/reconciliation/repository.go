package reconciliation

import (
	"context"
	"time"
)

// TransactionSource reads payment transactions owned by the gateway collaborator
type TransactionSource interface {
	// ListUnmatched retrieves up to limit unmatched transactions for a user
	// within the window, oldest first
	ListUnmatched(ctx context.Context, userID string, start, end time.Time, limit int) ([]*PaymentTransaction, error)

	GetByID(ctx context.Context, id string) (*PaymentTransaction, error)

	// MarkMatched flips the transaction's matched flag. Returns
	// ErrAlreadyMatched when the transaction was consumed concurrently.
	MarkMatched(ctx context.Context, id string, matchID string) error

	// CountByUser returns total and matched transaction counts in the window
	CountByUser(ctx context.Context, userID string, start, end time.Time) (total int64, matched int64, err error)

	// Create records a gateway transaction for later reconciliation
	Create(ctx context.Context, transaction *PaymentTransaction) error
}

// LogbookSource reads expense entries owned by the logbook collaborator
type LogbookSource interface {
	ListUnmatched(ctx context.Context, userID string, start, end time.Time, limit int) ([]*LogbookEntry, error)
	GetByID(ctx context.Context, id string) (*LogbookEntry, error)
	MarkMatched(ctx context.Context, id string, matchID string) error
}

// MatchRepository persists confirmed matches
type MatchRepository interface {
	// Create stores a confirmed match. Returns ErrAlreadyMatched when either
	// side already belongs to another match.
	Create(ctx context.Context, match *Match) error

	GetByTransactionID(ctx context.Context, transactionID string) (*Match, error)

	// ListByUser retrieves the user's matches within the window, newest first
	ListByUser(ctx context.Context, userID string, start, end time.Time) ([]*Match, error)
}

// ErrAlreadyMatched indicates one side of a proposed pairing is already
// consumed by a confirmed match
type ErrAlreadyMatched struct {
	TransactionID  string
	LogbookEntryID string
}

func (e ErrAlreadyMatched) Error() string {
	if e.TransactionID != "" && e.LogbookEntryID != "" {
		return "pair already matched: transaction " + e.TransactionID + ", logbook entry " + e.LogbookEntryID
	}
	if e.TransactionID != "" {
		return "transaction already matched: " + e.TransactionID
	}
	return "logbook entry already matched: " + e.LogbookEntryID
}

// Is implements the errors.Is interface for ErrAlreadyMatched
func (e ErrAlreadyMatched) Is(target error) bool {
	_, ok := target.(ErrAlreadyMatched)
	return ok
}

// ErrTransactionNotFound indicates a missing gateway transaction
type ErrTransactionNotFound struct {
	ID string
}

func (e ErrTransactionNotFound) Error() string {
	return "payment transaction not found: " + e.ID
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == "" {
		return true
	}
	return e.ID == t.ID
}

// ErrEntryNotFound indicates a missing logbook entry
type ErrEntryNotFound struct {
	ID string
}

func (e ErrEntryNotFound) Error() string {
	return "logbook entry not found: " + e.ID
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.ID == "" {
		return true
	}
	return e.ID == t.ID
}
