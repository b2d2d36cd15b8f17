package handler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corepay-ledger/internal/api/middleware"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/engine"
)

// BalanceHandler exposes balance queries and mutations over HTTP
type BalanceHandler struct {
	engine engine.BalanceEngine
	logger *slog.Logger
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(logger *slog.Logger, eng engine.BalanceEngine) *BalanceHandler {
	return &BalanceHandler{
		engine: eng,
		logger: logger,
	}
}

// GetBalance handles GET /api/v1/balances/:entityId
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" {
		RespondBadRequest(c, "entity id is required")
		return
	}

	rec, err := h.engine.GetBalance(c.Request.Context(), entityID)
	if err != nil {
		h.logger.Error("failed to get balance",
			"entity_id", entityID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Credit handles POST /api/v1/balances/credit
func (h *BalanceHandler) Credit(c *gin.Context) {
	h.mutate(c, h.engine.Credit)
}

// Debit handles POST /api/v1/balances/debit
func (h *BalanceHandler) Debit(c *gin.Context) {
	h.mutate(c, h.engine.Debit)
}

func (h *BalanceHandler) mutate(c *gin.Context, apply func(ctx context.Context, req *engine.MutationRequest) (*engine.BalanceUpdate, error)) {
	var req MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	update, err := apply(c.Request.Context(), &engine.MutationRequest{
		EntityID:   req.EntityID,
		EntityType: shared.EntityType(req.EntityType),
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reference:  req.Reference,
		Purpose:    req.Purpose,
	})
	if err != nil {
		h.logger.Warn("balance mutation rejected",
			"entity_id", req.EntityID,
			"reference", req.Reference,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	if update.Duplicate {
		RespondOK(c, update)
		return
	}
	RespondCreated(c, update)
}

// Transfer handles POST /api/v1/transfers
func (h *BalanceHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.engine.Transfer(c.Request.Context(), &engine.TransferRequest{
		FromEntityID:   req.FromEntityID,
		FromEntityType: shared.EntityType(req.FromEntityType),
		ToEntityID:     req.ToEntityID,
		ToEntityType:   shared.EntityType(req.ToEntityType),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Reference:      req.Reference,
		Reason:         req.Reason,
	})
	if err != nil {
		h.logger.Warn("transfer rejected",
			"from", req.FromEntityID,
			"to", req.ToEntityID,
			"reference", req.Reference,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondCreated(c, result)
}

// ListTransactions handles GET /api/v1/balances/:entityId/transactions
func (h *BalanceHandler) ListTransactions(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" {
		RespondBadRequest(c, "entity id is required")
		return
	}

	// A from/to pair switches to a period statement instead of paging
	if c.Query("from") != "" || c.Query("to") != "" {
		h.listByTimeRange(c, entityID)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, err := h.engine.ListTransactions(c.Request.Context(), entityID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list transactions",
			"entity_id", entityID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondPaginated(c, transactions, limit, offset, len(transactions))
}

func (h *BalanceHandler) listByTimeRange(c *gin.Context, entityID string) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		RespondBadRequest(c, "from must be an RFC3339 timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		RespondBadRequest(c, "to must be an RFC3339 timestamp")
		return
	}
	if !to.After(from) {
		RespondBadRequest(c, "to must be after from")
		return
	}

	transactions, err := h.engine.ListTransactionsByTimeRange(c.Request.Context(), entityID, from, to)
	if err != nil {
		h.logger.Error("failed to list transactions by time range",
			"entity_id", entityID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, transactions)
}
