// Package engine implements the balance engine: the single write path for all
// balance mutations. Every credit or debit runs as one database transaction
// that locks the balance row, applies the mutation, appends the ledger
// transaction and writes the outbox row, so the balance and the log can never
// diverge.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/corepay-ledger/internal/domain/balance"
	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/domain/outbox"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/platform/persistence"
)

// MutationRequest describes one credit or debit against an entity's balance
type MutationRequest struct {
	EntityID   string
	EntityType shared.EntityType
	Amount     int64
	Currency   string
	Reference  string // Caller-supplied idempotency key, unique per entity
	Purpose    string
}

// TransferRequest describes an atomic fund movement between two entities
type TransferRequest struct {
	FromEntityID   string
	FromEntityType shared.EntityType
	ToEntityID     string
	ToEntityType   shared.EntityType
	Amount         int64
	Currency       string
	Reference      string
	Reason         string
}

// BalanceUpdate is the result of a balance mutation. Duplicate is set when the
// reference was already applied and the previously recorded transaction is
// returned instead of a new one.
type BalanceUpdate struct {
	Transaction *ledger.Transaction
	Balance     int64
	Duplicate   bool
}

// TransferResult carries both legs of a completed transfer
type TransferResult struct {
	Debit  *BalanceUpdate
	Credit *BalanceUpdate
}

// ErrTransferReversed indicates the referenced transfer already failed and its
// debit was compensated. The reference is spent; the caller must issue a new
// transfer under a fresh reference.
type ErrTransferReversed struct {
	Reference string
}

func (e ErrTransferReversed) Error() string {
	return "transfer " + e.Reference + " was reversed after a failed credit leg, retry with a new reference"
}

// Is implements the errors.Is interface for ErrTransferReversed
func (e ErrTransferReversed) Is(target error) bool {
	t, ok := target.(ErrTransferReversed)
	if !ok {
		return false
	}
	return t.Reference == "" || t.Reference == e.Reference
}

// BalanceEngine is the only component allowed to mutate balances
type BalanceEngine interface {
	Credit(ctx context.Context, req *MutationRequest) (*BalanceUpdate, error)
	Debit(ctx context.Context, req *MutationRequest) (*BalanceUpdate, error)
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
	GetBalance(ctx context.Context, entityID string) (*balance.Record, error)
	ListTransactions(ctx context.Context, entityID string, limit, offset int) ([]*ledger.Transaction, error)
	ListTransactionsByTimeRange(ctx context.Context, entityID string, from, to time.Time) ([]*ledger.Transaction, error)
}

// TxRunner runs a function inside a database transaction.
// Satisfied by *persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ TxRunner = (*persistence.PostgresDB)(nil)

type balanceEngine struct {
	pgDB        TxRunner
	balanceRepo balance.Repository
	ledgerRepo  ledger.Repository
	outboxRepo  outbox.Repository
	logger      *slog.Logger
}

// NewBalanceEngine creates the balance engine
func NewBalanceEngine(
	logger *slog.Logger,
	pgDB TxRunner,
	balanceRepo balance.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
) BalanceEngine {
	return &balanceEngine{
		pgDB:        pgDB,
		balanceRepo: balanceRepo,
		ledgerRepo:  ledgerRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

// Credit adds funds to an entity's balance
func (e *balanceEngine) Credit(ctx context.Context, req *MutationRequest) (*BalanceUpdate, error) {
	return e.mutate(ctx, shared.TransactionTypeCredit, req)
}

// Debit removes funds from an entity's balance, failing with
// balance.ErrInsufficientFunds when the balance would go negative
func (e *balanceEngine) Debit(ctx context.Context, req *MutationRequest) (*BalanceUpdate, error) {
	return e.mutate(ctx, shared.TransactionTypeDebit, req)
}

func (e *balanceEngine) mutate(ctx context.Context, txType shared.TransactionType, req *MutationRequest) (*BalanceUpdate, error) {
	if err := validateMutation(req); err != nil {
		return nil, err
	}

	// Fast idempotency path, outside the write transaction
	if existing, err := e.ledgerRepo.GetByReference(ctx, req.EntityID, req.Reference); err != nil {
		return nil, err
	} else if existing != nil {
		e.logger.Info("Duplicate reference, returning recorded result",
			"entity_id", req.EntityID, "reference", req.Reference)
		return &BalanceUpdate{Transaction: existing, Balance: existing.NewBalance, Duplicate: true}, nil
	}

	var update *BalanceUpdate
	err := e.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		update, txErr = e.applyInTx(ctx, tx, txType, req)
		return txErr
	})
	if err != nil {
		// A concurrent request with the same reference may have won the race
		// between the idempotency check and the insert.
		var dupErr ledger.ErrDuplicateTransaction
		if errors.As(err, &dupErr) {
			existing, lookupErr := e.ledgerRepo.GetByReference(ctx, req.EntityID, req.Reference)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return &BalanceUpdate{Transaction: existing, Balance: existing.NewBalance, Duplicate: true}, nil
			}
		}
		return nil, err
	}

	e.logger.Info("Balance mutation applied",
		"entity_id", req.EntityID,
		"type", string(txType),
		"amount", req.Amount,
		"new_balance", update.Balance,
		"reference", req.Reference)

	return update, nil
}

// applyInTx performs one mutation inside an open transaction: lock the balance
// row, apply the arithmetic, persist the record, append the ledger transaction
// and write the outbox row.
func (e *balanceEngine) applyInTx(ctx context.Context, tx pgx.Tx, txType shared.TransactionType, req *MutationRequest) (*BalanceUpdate, error) {
	balanceRepo := e.balanceRepo.WithTx(tx)
	ledgerRepo := e.ledgerRepo.WithTx(tx)
	outboxRepo := e.outboxRepo.WithTx(tx)

	rec, err := balanceRepo.LockForUpdate(ctx, req.EntityID, req.EntityType, req.Currency)
	if err != nil {
		return nil, err
	}

	if rec.Currency != req.Currency {
		return nil, shared.ErrInvalidCurrency
	}

	previousBalance := rec.Balance
	if err := rec.Apply(txType, req.Amount); err != nil {
		return nil, err
	}

	if err := balanceRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	transaction := &ledger.Transaction{
		ID:              uuid.New(),
		Reference:       req.Reference,
		EntityID:        req.EntityID,
		EntityType:      req.EntityType,
		Type:            txType,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Purpose:         req.Purpose,
		PreviousBalance: previousBalance,
		NewBalance:      rec.Balance,
		CreatedAt:       time.Now(),
	}
	if err := ledgerRepo.Create(ctx, transaction); err != nil {
		return nil, err
	}

	message, err := outbox.NewMessage(transaction)
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := outboxRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	return &BalanceUpdate{Transaction: transaction, Balance: rec.Balance}, nil
}

// Transfer moves funds between two entities: debit the source, then credit the
// destination. If the credit fails after the debit committed, a compensating
// credit restores the source and the original error propagates to the caller.
func (e *balanceEngine) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	debitReq := &MutationRequest{
		EntityID:   req.FromEntityID,
		EntityType: req.FromEntityType,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reference:  req.Reference + ":debit",
		Purpose:    req.Reason,
	}
	creditReq := &MutationRequest{
		EntityID:   req.ToEntityID,
		EntityType: req.ToEntityType,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reference:  req.Reference + ":credit",
		Purpose:    req.Reason,
	}

	debit, err := e.Debit(ctx, debitReq)
	if err != nil {
		return nil, err
	}

	// A duplicate debit means a prior attempt under this reference got past the
	// debit leg. If that attempt was compensated, the reversal is the recorded
	// outcome: crediting the destination now would recreate the reversed funds.
	if debit.Duplicate {
		comp, compErr := e.ledgerRepo.GetByReference(ctx, req.FromEntityID, req.Reference+":compensation")
		if compErr != nil {
			return nil, compErr
		}
		if comp != nil {
			return nil, ErrTransferReversed{Reference: req.Reference}
		}
	}

	credit, err := e.Credit(ctx, creditReq)
	if err != nil {
		e.logger.Error("Transfer credit leg failed, compensating source",
			"from", req.FromEntityID, "to", req.ToEntityID, "reference", req.Reference, "error", err)

		// The compensation must not be cut short by a cancelled request.
		compensationCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		compensation := &MutationRequest{
			EntityID:   req.FromEntityID,
			EntityType: req.FromEntityType,
			Amount:     req.Amount,
			Currency:   req.Currency,
			Reference:  req.Reference + ":compensation",
			Purpose:    "transfer reversal: " + req.Reason,
		}
		if _, compErr := e.Credit(compensationCtx, compensation); compErr != nil {
			e.logger.Error("Transfer compensation failed, source balance inconsistent",
				"from", req.FromEntityID, "reference", req.Reference, "error", compErr)
			return nil, fmt.Errorf("transfer failed and compensation failed: %w", compErr)
		}

		return nil, err
	}

	return &TransferResult{Debit: debit, Credit: credit}, nil
}

// GetBalance retrieves an entity's balance. Entities that have never
// transacted report a zero balance rather than an error.
func (e *balanceEngine) GetBalance(ctx context.Context, entityID string) (*balance.Record, error) {
	rec, err := e.balanceRepo.GetByEntityID(ctx, entityID)
	if err != nil {
		if errors.Is(err, balance.ErrRecordNotFound{}) {
			return &balance.Record{EntityID: entityID, Balance: 0}, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListTransactions retrieves an entity's transaction history, newest first
func (e *balanceEngine) ListTransactions(ctx context.Context, entityID string, limit, offset int) ([]*ledger.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return e.ledgerRepo.ListByEntity(ctx, entityID, limit, offset)
}

// ListTransactionsByTimeRange returns an entity's statement for a period,
// oldest first
func (e *balanceEngine) ListTransactionsByTimeRange(ctx context.Context, entityID string, from, to time.Time) ([]*ledger.Transaction, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("invalid time range: %s is not before %s", from, to)
	}
	return e.ledgerRepo.ListByTimeRange(ctx, entityID, from, to)
}

func validateMutation(req *MutationRequest) error {
	if req.EntityID == "" {
		return balance.ErrEmptyEntityID
	}
	if !req.EntityType.Valid() {
		return shared.ErrInvalidEntityType
	}
	if req.Amount <= 0 {
		return balance.ErrInvalidAmount
	}
	if len(req.Currency) != 3 {
		return balance.ErrInvalidCurrencyFormat
	}
	if req.Reference == "" {
		return errors.New("reference cannot be empty")
	}
	return nil
}
