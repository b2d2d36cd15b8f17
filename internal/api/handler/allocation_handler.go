package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/corepay-ledger/internal/api/middleware"
	"github.com/corepay-ledger/internal/budget"
)

// AllocationHandler exposes the budget allocation lifecycle over HTTP
type AllocationHandler struct {
	manager budget.AllocationManager
	logger  *slog.Logger
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(logger *slog.Logger, manager budget.AllocationManager) *AllocationHandler {
	return &AllocationHandler{
		manager: manager,
		logger:  logger,
	}
}

// Create handles POST /api/v1/allocations
func (h *AllocationHandler) Create(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	a, err := h.manager.Allocate(c.Request.Context(), &budget.AllocateRequest{
		CompanyID:   req.CompanyID,
		EmployeeID:  req.EmployeeID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		BudgetType:  req.BudgetType,
		Description: req.Description,
		AllocatedBy: req.AllocatedBy,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.logger.Warn("allocation rejected",
			"company_id", req.CompanyID,
			"employee_id", req.EmployeeID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondCreated(c, a)
}

// Accept handles POST /api/v1/allocations/:allocationId/accept
func (h *AllocationHandler) Accept(c *gin.Context) {
	h.decide(c, h.manager.Accept, "accept")
}

// Reject handles POST /api/v1/allocations/:allocationId/reject
func (h *AllocationHandler) Reject(c *gin.Context) {
	h.decide(c, h.manager.Reject, "reject")
}

func (h *AllocationHandler) decide(c *gin.Context, act budget.DecisionFunc, action string) {
	allocationID, err := uuid.Parse(c.Param("allocationId"))
	if err != nil {
		RespondBadRequest(c, "invalid allocation id")
		return
	}

	var req AllocationDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	a, err := act(c.Request.Context(), req.EmployeeID, allocationID)
	if err != nil {
		h.logger.Warn("allocation decision rejected",
			"allocation_id", allocationID,
			"action", action,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, a)
}

// ListPending handles GET /api/v1/allocations/pending/:employeeId
func (h *AllocationHandler) ListPending(c *gin.Context) {
	employeeID := c.Param("employeeId")
	if employeeID == "" {
		RespondBadRequest(c, "employee id is required")
		return
	}

	allocations, err := h.manager.ListPending(c.Request.Context(), employeeID)
	if err != nil {
		h.logger.Error("failed to list pending allocations",
			"employee_id", employeeID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, allocations)
}
