// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the balance ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corepay-ledger/internal/domain/balance"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// BalanceRepository implements the balance.Repository interface for PostgreSQL
type BalanceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBalanceRepository creates a new PostgreSQL balance repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.Repository {
	return &BalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *BalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return &BalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByEntityID retrieves the balance record for an entity
func (r *BalanceRepository) GetByEntityID(ctx context.Context, entityID string) (*balance.Record, error) {
	query := `
		SELECT entity_id, entity_type, balance, total_credited, total_debited, currency, version, created_at, updated_at
		FROM balances
		WHERE entity_id = $1
	`

	var rec balance.Record
	err := r.querier.QueryRow(ctx, query, entityID).Scan(
		&rec.EntityID,
		&rec.EntityType,
		&rec.Balance,
		&rec.TotalCredited,
		&rec.TotalDebited,
		&rec.Currency,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrRecordNotFound{EntityID: entityID}
		}
		r.logger.Error("Failed to get balance record", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to get balance record: %w", err)
	}

	return &rec, nil
}

// Update persists a mutated balance record using optimistic locking
func (r *BalanceRepository) Update(ctx context.Context, rec *balance.Record) error {
	query := `
		UPDATE balances
		SET balance = $1, total_credited = $2, total_debited = $3, version = $4, updated_at = $5
		WHERE entity_id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		rec.Balance,
		rec.TotalCredited,
		rec.TotalDebited,
		rec.Version,
		rec.UpdatedAt,
		rec.EntityID,
		rec.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update balance record", "entity_id", rec.EntityID, "error", err)
		return fmt.Errorf("failed to update balance record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return balance.ErrConcurrentModification{EntityID: rec.EntityID}
	}

	return nil
}

// LockForUpdate ensures a balance row exists for the entity and obtains a
// pessimistic lock on it. Entities that have never transacted get a zero row
// inserted first, so the lock always succeeds and callers never see "not found".
// Must be used within a transaction.
func (r *BalanceRepository) LockForUpdate(ctx context.Context, entityID string, entityType shared.EntityType, currency string) (*balance.Record, error) {
	insertQuery := `
		INSERT INTO balances (entity_id, entity_type, balance, total_credited, total_debited, currency, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, $3, 1, NOW(), NOW())
		ON CONFLICT (entity_id) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, insertQuery, entityID, entityType, currency); err != nil {
		r.logger.Error("Failed to ensure balance row", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to ensure balance row: %w", err)
	}

	lockQuery := `
		SELECT entity_id, entity_type, balance, total_credited, total_debited, currency, version, created_at, updated_at
		FROM balances
		WHERE entity_id = $1
		FOR UPDATE
	`

	var rec balance.Record
	err := r.querier.QueryRow(ctx, lockQuery, entityID).Scan(
		&rec.EntityID,
		&rec.EntityType,
		&rec.Balance,
		&rec.TotalCredited,
		&rec.TotalDebited,
		&rec.Currency,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrRecordNotFound{EntityID: entityID}
		}
		r.logger.Error("Failed to lock balance record", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to lock balance record: %w", err)
	}

	return &rec, nil
}
