package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corepay-ledger/internal/domain/allocation"
	"github.com/corepay-ledger/internal/domain/balance"
	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/domain/reconciliation"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/engine"
)

// mapDomainError translates a service error into the matching HTTP response.
// Anything not recognized as a caller problem is treated as a store failure.
func mapDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, balance.ErrInvalidAmount),
		errors.Is(err, balance.ErrInvalidCurrencyFormat),
		errors.Is(err, balance.ErrEmptyEntityID),
		errors.Is(err, allocation.ErrInvalidAmount),
		errors.Is(err, allocation.ErrEmptyCompanyID),
		errors.Is(err, allocation.ErrEmptyEmployee),
		errors.Is(err, allocation.ErrInvalidCurrencyFormat),
		errors.Is(err, shared.ErrInvalidEntityType),
		errors.Is(err, shared.ErrInvalidCurrency):
		RespondBadRequest(c, err.Error())

	case errors.Is(err, balance.ErrInsufficientFunds):
		respondError(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error())

	case errors.Is(err, allocation.ErrAllocationNotFound{}),
		errors.Is(err, ledger.ErrTransactionNotFound{}),
		errors.Is(err, balance.ErrRecordNotFound{}),
		errors.Is(err, reconciliation.ErrTransactionNotFound{}),
		errors.Is(err, reconciliation.ErrEntryNotFound{}):
		RespondNotFound(c, err.Error())

	case errors.Is(err, allocation.ErrAllocationProcessed{}),
		errors.Is(err, allocation.ErrAllocationExpired{}),
		errors.Is(err, reconciliation.ErrAlreadyMatched{}),
		errors.Is(err, engine.ErrTransferReversed{}):
		RespondConflict(c, err.Error())

	default:
		RespondServiceUnavailable(c, "the operation could not be completed")
	}
}
