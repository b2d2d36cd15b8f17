package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a transaction to the ledger. A duplicate (entity_id, reference)
// pair violates the unique constraint and surfaces as ErrDuplicateTransaction.
func (r *LedgerRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.Reference,
		tx.EntityID,
		tx.EntityType,
		tx.Type,
		tx.Amount,
		tx.Currency,
		tx.Purpose,
		tx.PreviousBalance,
		tx.NewBalance,
		tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ledger.ErrDuplicateTransaction{EntityID: tx.EntityID, Reference: tx.Reference}
		}
		r.logger.Error("Failed to create ledger transaction", "entity_id", tx.EntityID, "reference", tx.Reference, "error", err)
		return fmt.Errorf("failed to create ledger transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its unique identifier
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `
		SELECT id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at
		FROM ledger_transactions
		WHERE id = $1
	`

	tx, err := r.scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get ledger transaction", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get ledger transaction: %w", err)
	}

	return tx, nil
}

// GetByReference retrieves a transaction by entity and caller-supplied reference.
// Returns nil without error when no transaction exists, so callers can use it
// for idempotency checks.
func (r *LedgerRepository) GetByReference(ctx context.Context, entityID, reference string) (*ledger.Transaction, error) {
	query := `
		SELECT id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at
		FROM ledger_transactions
		WHERE entity_id = $1 AND reference = $2
	`

	tx, err := r.scanTransaction(r.querier.QueryRow(ctx, query, entityID, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by reference", "entity_id", entityID, "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return tx, nil
}

// ListByEntity retrieves transactions for an entity, newest first
func (r *LedgerRepository) ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]*ledger.Transaction, error) {
	query := `
		SELECT id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at
		FROM ledger_transactions
		WHERE entity_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, entityID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger transactions", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// ListByTimeRange retrieves an entity's transactions within [from, to), oldest first.
// Used by reporting to build period statements.
func (r *LedgerRepository) ListByTimeRange(ctx context.Context, entityID string, from, to time.Time) ([]*ledger.Transaction, error) {
	query := `
		SELECT id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at
		FROM ledger_transactions
		WHERE entity_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, entityID, from, to)
	if err != nil {
		r.logger.Error("Failed to list transactions by time range", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to list transactions by time range: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

func (r *LedgerRepository) scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.EntityID,
		&tx.EntityType,
		&tx.Type,
		&tx.Amount,
		&tx.Currency,
		&tx.Purpose,
		&tx.PreviousBalance,
		&tx.NewBalance,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *LedgerRepository) collectTransactions(rows pgx.Rows) ([]*ledger.Transaction, error) {
	var transactions []*ledger.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger transactions: %w", err)
	}
	return transactions, nil
}
