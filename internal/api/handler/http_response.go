package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corepay-ledger/internal/api/middleware"
)

// Response is the envelope for every API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a machine-readable code and a human-readable message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo holds pagination details for list responses
type MetaInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// respond writes a data response with the request's correlation ID attached
func respond(c *gin.Context, status int, data interface{}, meta *MetaInfo) {
	c.JSON(status, Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
		Meta:          meta,
	})
}

// respondError writes an error response with the request's correlation ID attached
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 response
func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data, nil)
}

// RespondCreated sends a 201 response
func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, data, nil)
}

// RespondPaginated sends a 200 response with pagination metadata
func RespondPaginated(c *gin.Context, data interface{}, limit, offset, count int) {
	respond(c, http.StatusOK, data, &MetaInfo{Limit: limit, Offset: offset, Count: count})
}

// RespondBadRequest sends a 400 response
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound sends a 404 response
func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondConflict sends a 409 response
func RespondConflict(c *gin.Context, message string) {
	respondError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondInternalError sends a 500 response
func RespondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// RespondServiceUnavailable sends a 503 response
func RespondServiceUnavailable(c *gin.Context, message string) {
	respondError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", message)
}
