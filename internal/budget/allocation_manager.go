// Package budget implements budget allocations: a company offers funds to an
// employee, and nothing moves until the employee accepts. Acceptance debits
// the company and credits the employee in one database transaction so the
// funds can never be duplicated or lost between the two balances.
package budget

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/corepay-ledger/internal/domain/allocation"
	"github.com/corepay-ledger/internal/domain/balance"
	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/domain/outbox"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/engine"
)

// AllocateRequest describes a new budget offer from a company to an employee
type AllocateRequest struct {
	CompanyID   string
	EmployeeID  string
	Amount      int64
	Currency    string
	BudgetType  string
	Description string
	AllocatedBy string
	ExpiresAt   *time.Time
}

// DecisionFunc is the shape of Accept and Reject, letting callers treat the
// two decisions uniformly.
type DecisionFunc func(ctx context.Context, employeeID string, allocationID uuid.UUID) (*allocation.Allocation, error)

// AllocationManager manages the lifecycle of budget allocations
type AllocationManager interface {
	Allocate(ctx context.Context, req *AllocateRequest) (*allocation.Allocation, error)
	Accept(ctx context.Context, employeeID string, allocationID uuid.UUID) (*allocation.Allocation, error)
	Reject(ctx context.Context, employeeID string, allocationID uuid.UUID) (*allocation.Allocation, error)
	ListPending(ctx context.Context, employeeID string) ([]*allocation.Allocation, error)
}

type allocationManager struct {
	pgDB           engine.TxRunner
	allocationRepo allocation.Repository
	balanceRepo    balance.Repository
	ledgerRepo     ledger.Repository
	outboxRepo     outbox.Repository
	logger         *slog.Logger
}

// NewAllocationManager creates the allocation manager
func NewAllocationManager(
	logger *slog.Logger,
	pgDB engine.TxRunner,
	allocationRepo allocation.Repository,
	balanceRepo balance.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
) AllocationManager {
	return &allocationManager{
		pgDB:           pgDB,
		allocationRepo: allocationRepo,
		balanceRepo:    balanceRepo,
		ledgerRepo:     ledgerRepo,
		outboxRepo:     outboxRepo,
		logger:         logger,
	}
}

// Allocate creates a pending allocation after checking the company can cover
// it. No funds move until the employee accepts; the balance check only guards
// against offers the company clearly cannot honor.
func (m *allocationManager) Allocate(ctx context.Context, req *AllocateRequest) (*allocation.Allocation, error) {
	a, err := allocation.New(req.CompanyID, req.EmployeeID, req.Amount, req.Currency, req.BudgetType, req.Description, req.AllocatedBy, req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	companyBalance, err := m.balanceRepo.GetByEntityID(ctx, req.CompanyID)
	if err != nil {
		if errors.Is(err, balance.ErrRecordNotFound{}) {
			// A company that has never transacted cannot cover any allocation.
			return nil, balance.ErrInsufficientFunds
		}
		return nil, err
	}
	if !companyBalance.CanDebit(req.Amount) {
		return nil, balance.ErrInsufficientFunds
	}

	if err := m.allocationRepo.Create(ctx, a); err != nil {
		return nil, err
	}

	m.logger.Info("Allocation created",
		"allocation_id", a.ID.String(),
		"company_id", a.CompanyID,
		"employee_id", a.EmployeeID,
		"amount", a.Amount)

	return a, nil
}

// Accept moves the allocated funds from the company to the employee. The
// whole operation runs in one transaction: the allocation row is locked,
// guarded against double processing and expiry, both balances are locked in a
// fixed order, and the two ledger transactions plus outbox rows are appended
// before the status flips to ACCEPTED.
func (m *allocationManager) Accept(ctx context.Context, employeeID string, allocationID uuid.UUID) (*allocation.Allocation, error) {
	var accepted *allocation.Allocation

	err := m.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		allocationRepo := m.allocationRepo.WithTx(tx)
		balanceRepo := m.balanceRepo.WithTx(tx)
		ledgerRepo := m.ledgerRepo.WithTx(tx)
		outboxRepo := m.outboxRepo.WithTx(tx)

		a, err := allocationRepo.LockForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if a.EmployeeID != employeeID {
			// An allocation addressed to someone else is invisible to this caller.
			return allocation.ErrAllocationNotFound{ID: allocationID}
		}

		if err := a.Accept(); err != nil {
			return err
		}

		companyRec, err := balanceRepo.LockForUpdate(ctx, a.CompanyID, shared.EntityTypeCompany, a.Currency)
		if err != nil {
			return err
		}
		employeeRec, err := balanceRepo.LockForUpdate(ctx, a.EmployeeID, shared.EntityTypeEmployee, a.Currency)
		if err != nil {
			return err
		}
		if companyRec.Currency != a.Currency || employeeRec.Currency != a.Currency {
			return shared.ErrInvalidCurrency
		}

		companyPrevious := companyRec.Balance
		if err := companyRec.Debit(a.Amount); err != nil {
			return err
		}
		employeePrevious := employeeRec.Balance
		if err := employeeRec.Credit(a.Amount); err != nil {
			return err
		}

		if err := balanceRepo.Update(ctx, companyRec); err != nil {
			return err
		}
		if err := balanceRepo.Update(ctx, employeeRec); err != nil {
			return err
		}

		reference := "allocation:" + a.ID.String()
		now := time.Now()
		debitTx := &ledger.Transaction{
			ID:              uuid.New(),
			Reference:       reference + ":debit",
			EntityID:        a.CompanyID,
			EntityType:      shared.EntityTypeCompany,
			Type:            shared.TransactionTypeDebit,
			Amount:          a.Amount,
			Currency:        a.Currency,
			Purpose:         "budget allocation to " + a.EmployeeID,
			PreviousBalance: companyPrevious,
			NewBalance:      companyRec.Balance,
			CreatedAt:       now,
		}
		creditTx := &ledger.Transaction{
			ID:              uuid.New(),
			Reference:       reference + ":credit",
			EntityID:        a.EmployeeID,
			EntityType:      shared.EntityTypeEmployee,
			Type:            shared.TransactionTypeCredit,
			Amount:          a.Amount,
			Currency:        a.Currency,
			Purpose:         "budget allocation from " + a.CompanyID,
			PreviousBalance: employeePrevious,
			NewBalance:      employeeRec.Balance,
			CreatedAt:       now,
		}

		for _, transaction := range []*ledger.Transaction{debitTx, creditTx} {
			if err := ledgerRepo.Create(ctx, transaction); err != nil {
				return err
			}
			message, err := outbox.NewMessage(transaction)
			if err != nil {
				return err
			}
			if err := outboxRepo.Create(ctx, message); err != nil {
				return err
			}
		}

		if err := allocationRepo.UpdateStatus(ctx, a.ID, allocation.StatusAccepted, a.UpdatedAt); err != nil {
			return err
		}

		accepted = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Allocation accepted",
		"allocation_id", allocationID.String(),
		"employee_id", employeeID,
		"amount", accepted.Amount)

	return accepted, nil
}

// Reject declines a pending allocation. No balances change; rejection only
// flips the status so the company knows the offer was declined.
func (m *allocationManager) Reject(ctx context.Context, employeeID string, allocationID uuid.UUID) (*allocation.Allocation, error) {
	var rejected *allocation.Allocation

	err := m.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		allocationRepo := m.allocationRepo.WithTx(tx)

		a, err := allocationRepo.LockForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if a.EmployeeID != employeeID {
			return allocation.ErrAllocationNotFound{ID: allocationID}
		}

		if err := a.Reject(); err != nil {
			return err
		}

		if err := allocationRepo.UpdateStatus(ctx, a.ID, allocation.StatusRejected, a.UpdatedAt); err != nil {
			return err
		}

		rejected = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Allocation rejected", "allocation_id", allocationID.String(), "employee_id", employeeID)

	return rejected, nil
}

// ListPending retrieves the employee's open allocations, oldest first
func (m *allocationManager) ListPending(ctx context.Context, employeeID string) ([]*allocation.Allocation, error) {
	return m.allocationRepo.ListPending(ctx, employeeID)
}
