package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"settlement/internal/repository"
	"settlement/internal/service"
	"settlement/internal/settlement"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}

	var ve *settlement.ValidationError
	if errors.As(err, &ve) {
		resp.Missing = ve.Missing
	}
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var ve *settlement.ValidationError

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.As(err, &ve),
		errors.Is(err, settlement.ErrEmptyInput),
		errors.Is(err, service.ErrInvalidOption),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrInvalidStatusCode):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrSettlementInProgress):
		return http.StatusConflict

	case errors.Is(err, service.ErrRunTimeout):
		return http.StatusGatewayTimeout

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
