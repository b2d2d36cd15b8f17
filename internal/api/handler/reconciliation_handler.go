package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corepay-ledger/internal/api/middleware"
	"github.com/corepay-ledger/internal/reconciler"
)

// ReconciliationHandler exposes payment reconciliation over HTTP
type ReconciliationHandler struct {
	service *reconciler.Service
	logger  *slog.Logger
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(logger *slog.Logger, service *reconciler.Service) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: service,
		logger:  logger,
	}
}

// Run handles POST /api/v1/reconciliation/run
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req ReconciliationRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.End.After(req.Start) {
		RespondBadRequest(c, "end must be after start")
		return
	}

	result, err := h.service.RunAutomaticReconciliation(c.Request.Context(), req.UserID, req.Start, req.End)
	if err != nil {
		h.logger.Error("reconciliation run failed",
			"user_id", req.UserID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, result)
}

// Candidates handles GET /api/v1/reconciliation/candidates
func (h *ReconciliationHandler) Candidates(c *gin.Context) {
	userID, start, end, ok := h.window(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	candidates, err := h.service.GetPotentialMatches(c.Request.Context(), userID, start, end, limit)
	if err != nil {
		h.logger.Error("failed to list match candidates",
			"user_id", userID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, candidates)
}

// ManualMatch handles POST /api/v1/reconciliation/matches
func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	var req ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	match, err := h.service.ManualReconciliation(c.Request.Context(), req.TransactionID, req.LogbookEntryID, req.ActorID, req.Notes)
	if err != nil {
		h.logger.Warn("manual match rejected",
			"transaction_id", req.TransactionID,
			"logbook_entry_id", req.LogbookEntryID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondCreated(c, match)
}

// Stats handles GET /api/v1/reconciliation/stats. The window bounds are
// optional: an absent start covers all history and an absent end runs up to
// now, so a bare user_id query reports the full picture.
func (h *ReconciliationHandler) Stats(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		RespondBadRequest(c, "user_id is required")
		return
	}

	start, end, ok := h.optionalWindow(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID, start, end)
	if err != nil {
		h.logger.Error("failed to compute reconciliation stats",
			"user_id", userID,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		mapDomainError(c, err)
		return
	}

	RespondOK(c, stats)
}

// window parses the user_id, start and end query parameters shared by the
// read endpoints. Responds with a 400 and returns ok=false on bad input.
func (h *ReconciliationHandler) window(c *gin.Context) (userID string, start, end time.Time, ok bool) {
	userID = c.Query("user_id")
	if userID == "" {
		RespondBadRequest(c, "user_id is required")
		return "", time.Time{}, time.Time{}, false
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		RespondBadRequest(c, "start must be an RFC3339 timestamp")
		return "", time.Time{}, time.Time{}, false
	}
	end, err = time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		RespondBadRequest(c, "end must be an RFC3339 timestamp")
		return "", time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		RespondBadRequest(c, "end must be after start")
		return "", time.Time{}, time.Time{}, false
	}

	return userID, start, end, true
}

// optionalWindow parses start and end when present, defaulting to an
// unbounded start and an end of now.
func (h *ReconciliationHandler) optionalWindow(c *gin.Context) (start, end time.Time, ok bool) {
	var err error
	if raw := c.Query("start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			RespondBadRequest(c, "start must be an RFC3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
	}
	end = time.Now()
	if raw := c.Query("end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			RespondBadRequest(c, "end must be an RFC3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
	}
	if !end.After(start) {
		RespondBadRequest(c, "end must be after start")
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}
