package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pagelink/internal/http/middleware"
	"pagelink/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "EMPTY_CONTENT", "NOT_FOUND")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps service-level failures to HTTP responses.
// Validation failures are 4xx; NotFound and Expired are presented identically
// so callers cannot distinguish an expired page from one that never existed;
// id exhaustion and store unavailability are transient server-side conditions
// and answer 503 so clients know to retry.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_CONTENT", "no HTML content provided")
	case errors.Is(err, service.ErrInvalidEncoding):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ENCODING", "content must be valid UTF-8 text")
	case errors.Is(err, service.ErrInvalidExpiration):
		return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRATION", "invalid expiration option")
	case errors.Is(err, service.ErrContentTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "CONTENT_TOO_LARGE", "content exceeds the maximum upload size")
	case errors.Is(err, service.ErrIDExhausted):
		return writeError(c, fiber.StatusServiceUnavailable, "ID_EXHAUSTED", "could not allocate a link, try again")
	case errors.Is(err, service.ErrStoreUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage temporarily unavailable, try again")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrExpired), errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "page not found")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "CONTENT_TOO_LARGE", "content exceeds the maximum upload size")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
