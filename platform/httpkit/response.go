// Package httpkit holds the gin plumbing shared by every module: response
// helpers, domain error mapping, caller identity and middleware. It contains
// no business logic.
package httpkit

import (
	"errors"
	"net/http"
	"strconv"

	"lead_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RetryAfter is attached as error details when a caller must wait before
// trying again; HandleError mirrors it into the Retry-After header.
type RetryAfter struct {
	Seconds int `json:"retryAfterSeconds"`
}

// HandleError maps domain errors to HTTP responses.
// If the error is a typed *apperr.Error, it uses the error's Kind to determine
// the HTTP status code. Otherwise, it defaults to 400 Bad Request.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		if domainErr.Kind == apperr.KindInternal || domainErr.Kind == apperr.KindUnavailable {
			_ = c.Error(err)
		}
		if retry, ok := domainErr.Details.(RetryAfter); ok && retry.Seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(retry.Seconds))
		}
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	// Fallback for non-typed errors
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
