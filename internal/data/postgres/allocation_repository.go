package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corepay-ledger/internal/domain/allocation"
	"github.com/corepay-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AllocationRepository implements the allocation.Repository interface for PostgreSQL
type AllocationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAllocationRepository creates a new PostgreSQL allocation repository
func NewAllocationRepository(logger *slog.Logger, db *persistence.PostgresDB) allocation.Repository {
	return &AllocationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *AllocationRepository) WithTx(tx pgx.Tx) allocation.Repository {
	return &AllocationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create persists a new allocation
func (r *AllocationRepository) Create(ctx context.Context, a *allocation.Allocation) error {
	query := `
		INSERT INTO allocations (id, company_id, employee_id, amount, currency, budget_type, description, allocated_by, expires_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		a.ID,
		a.CompanyID,
		a.EmployeeID,
		a.Amount,
		a.Currency,
		a.BudgetType,
		a.Description,
		a.AllocatedBy,
		a.ExpiresAt,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create allocation", "allocation_id", a.ID, "error", err)
		return fmt.Errorf("failed to create allocation: %w", err)
	}

	return nil
}

// GetByID retrieves an allocation by its identifier
func (r *AllocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	query := selectAllocation + ` WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// LockForUpdate retrieves an allocation with a pessimistic lock.
// Must be used within a transaction.
func (r *AllocationRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	query := selectAllocation + ` WHERE id = $1 FOR UPDATE`
	return r.queryOne(ctx, query, id)
}

// UpdateStatus transitions an allocation to a new status
func (r *AllocationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status allocation.Status, updatedAt time.Time) error {
	query := `UPDATE allocations SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.querier.Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		r.logger.Error("Failed to update allocation status", "allocation_id", id, "status", status, "error", err)
		return fmt.Errorf("failed to update allocation status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return allocation.ErrAllocationNotFound{ID: id}
	}

	return nil
}

// ListPending retrieves pending allocations for an employee, oldest first
func (r *AllocationRepository) ListPending(ctx context.Context, employeeID string) ([]*allocation.Allocation, error) {
	query := selectAllocation + ` WHERE employee_id = $1 AND status = $2 ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, employeeID, allocation.StatusPending)
	if err != nil {
		r.logger.Error("Failed to list pending allocations", "employee_id", employeeID, "error", err)
		return nil, fmt.Errorf("failed to list pending allocations: %w", err)
	}
	defer rows.Close()

	var allocations []*allocation.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}

	return allocations, nil
}

const selectAllocation = `
	SELECT id, company_id, employee_id, amount, currency, budget_type, description, allocated_by, expires_at, status, created_at, updated_at
	FROM allocations`

func (r *AllocationRepository) queryOne(ctx context.Context, query string, id uuid.UUID) (*allocation.Allocation, error) {
	a, err := scanAllocation(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, allocation.ErrAllocationNotFound{ID: id}
		}
		r.logger.Error("Failed to get allocation", "allocation_id", id, "error", err)
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return a, nil
}

func scanAllocation(row pgx.Row) (*allocation.Allocation, error) {
	var a allocation.Allocation
	err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.EmployeeID,
		&a.Amount,
		&a.Currency,
		&a.BudgetType,
		&a.Description,
		&a.AllocatedBy,
		&a.ExpiresAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
