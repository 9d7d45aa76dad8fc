package httpcontroller

import (
	"crypto/rand"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body returned for failed requests. Error carries
// a caller-safe message only; internal detail stays in the server log, keyed
// by the correlation id.
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

// generateCorrelationID creates a short identifier for tracking an error
// between a client report and the server log.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// handleError logs the failure with full detail and returns a sanitized JSON
// response to the caller.
func (s *Server) handleError(ctx echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         message,
		CorrelationID: generateCorrelationID(),
	}

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	s.webLogger.Error("Request failed",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", errorStr,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", s.RealIP(ctx))

	return ctx.JSON(code, resp)
}
