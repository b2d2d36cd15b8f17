package handler

import "time"

// MutationRequest is the payload for credit and debit operations
type MutationRequest struct {
	EntityID   string `json:"entity_id" binding:"required"`
	EntityType string `json:"entity_type" binding:"required,oneof=COMPANY EMPLOYEE"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	Currency   string `json:"currency" binding:"required,len=3"`
	Reference  string `json:"reference" binding:"required"`
	Purpose    string `json:"purpose"`
}

// TransferRequest is the payload for moving funds between two entities
type TransferRequest struct {
	FromEntityID   string `json:"from_entity_id" binding:"required"`
	FromEntityType string `json:"from_entity_type" binding:"required,oneof=COMPANY EMPLOYEE"`
	ToEntityID     string `json:"to_entity_id" binding:"required"`
	ToEntityType   string `json:"to_entity_type" binding:"required,oneof=COMPANY EMPLOYEE"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Currency       string `json:"currency" binding:"required,len=3"`
	Reference      string `json:"reference" binding:"required"`
	Reason         string `json:"reason"`
}

// AllocateRequest is the payload for creating a budget allocation
type AllocateRequest struct {
	CompanyID   string     `json:"company_id" binding:"required"`
	EmployeeID  string     `json:"employee_id" binding:"required"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Currency    string     `json:"currency" binding:"required,len=3"`
	BudgetType  string     `json:"budget_type"`
	Description string     `json:"description"`
	AllocatedBy string     `json:"allocated_by"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// AllocationDecisionRequest identifies the employee acting on an allocation
type AllocationDecisionRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
}

// ReconciliationRunRequest scopes an automatic reconciliation run
type ReconciliationRunRequest struct {
	UserID string    `json:"user_id" binding:"required"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
}

// ManualMatchRequest pairs a payment transaction with a logbook entry
type ManualMatchRequest struct {
	TransactionID  string `json:"transaction_id" binding:"required"`
	LogbookEntryID string `json:"logbook_entry_id" binding:"required"`
	ActorID        string `json:"actor_id" binding:"required"`
	Notes          string `json:"notes"`
}
