package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/services"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// Error codes used in the error envelope.
const (
	CodeNotFound        = "not_found"
	CodeInvalidInput    = "invalid_input"
	CodePayloadTooLarge = "payload_too_large"
	CodeUpstream        = "upstream_error"
	CodeInternal        = "internal_error"
)

// ErrorBody is the error envelope: {"error": {"code", "message"}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request. Message never contains raw
// model output.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor maps a pipeline error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, domain.ErrInsightParse),
		errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrUnexpectedResponse):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError logs the full error and responds with its public form.
func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	requestID := c.GetString(ctxRequestID)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s [%s]: %v", c.Request.Method, c.Request.URL.Path, requestID, err)
	} else {
		logger.Debug("%s %s [%s]: %v", c.Request.Method, c.Request.URL.Path, requestID, err)
	}
	abort(c, status, code, services.PublicMessage(err))
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(ctxRequestID),
	}})
}
