package allocation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount         = errors.New("allocation amount must be positive")
	ErrEmptyCompanyID        = errors.New("company id cannot be empty")
	ErrEmptyEmployee         = errors.New("employee id cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Status defines the allocation state machine: PENDING -> {ACCEPTED, REJECTED}.
// ACCEPTED and REJECTED are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Allocation is a pending offer of budget from a company to an employee.
// Creating one moves no funds; the company ledger is debited and the employee
// ledger credited only when the allocation is accepted.
type Allocation struct {
	ID          uuid.UUID  `json:"id"`
	CompanyID   string     `json:"company_id"`
	EmployeeID  string     `json:"employee_id"`
	Amount      int64      `json:"amount"` // Stored in minor units
	Currency    string     `json:"currency"`
	BudgetType  string     `json:"budget_type"`
	Description string     `json:"description"`
	AllocatedBy string     `json:"allocated_by"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// New creates a pending allocation
func New(companyID, employeeID string, amount int64, currency, budgetType, description, allocatedBy string, expiresAt *time.Time) (*Allocation, error) {
	if companyID == "" {
		return nil, ErrEmptyCompanyID
	}
	if employeeID == "" {
		return nil, ErrEmptyEmployee
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	now := time.Now()
	return &Allocation{
		ID:          uuid.New(),
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Amount:      amount,
		Currency:    currency,
		BudgetType:  budgetType,
		Description: description,
		AllocatedBy: allocatedBy,
		ExpiresAt:   expiresAt,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Accept transitions the allocation to ACCEPTED. A second transition attempt
// on a terminal allocation fails rather than silently succeeding, so a retried
// accept can never double-credit the employee.
func (a *Allocation) Accept() error {
	if a.Status != StatusPending {
		return ErrAllocationProcessed{ID: a.ID, Status: a.Status}
	}
	if a.Expired(time.Now()) {
		return ErrAllocationExpired{ID: a.ID}
	}

	a.Status = StatusAccepted
	a.UpdatedAt = time.Now()
	return nil
}

// Reject transitions the allocation to REJECTED with the same terminal-state guard
func (a *Allocation) Reject() error {
	if a.Status != StatusPending {
		return ErrAllocationProcessed{ID: a.ID, Status: a.Status}
	}

	a.Status = StatusRejected
	a.UpdatedAt = time.Now()
	return nil
}

// Expired reports whether the allocation's offer window has passed
func (a *Allocation) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}
