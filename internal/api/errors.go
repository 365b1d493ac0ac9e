package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/service"
	"alcyxob/coaching-app/internal/storage"
)

// Error codes carried in every error body next to the message.
const (
	CodeValidation   = "validation_error"
	CodeConflict     = "conflict"
	CodeNotFound     = "not_found"
	CodeJobTerminal  = "job_terminal"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	Field       string `json:"field,omitempty"`
	ActiveJobID string `json:"activeJobId,omitempty"`
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: codeForStatus(status)})
}

// respondError maps a service error to its HTTP status. Unknown errors are
// logged and hidden behind a generic 500.
func (h *handlerBase) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var cerr *service.ConflictError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error: verr.Error(),
			Code:  CodeValidation,
			Field: verr.Field,
		})
	case errors.As(err, &cerr):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
			Error:       cerr.Error(),
			Code:        CodeConflict,
			ActiveJobID: cerr.ActiveJobID,
		})
	case errors.Is(err, service.ErrJobTerminal):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeJobTerminal})
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrClientNotManaged),
		errors.Is(err, service.ErrClientNotRole),
		errors.Is(err, service.ErrClientAlreadyAssigned):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, storage.ErrStorageDisabled):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
