package serverutils

import (
	"context"
	"errors"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
)

// StatusError is implemented by errors that know their HTTP status.
type StatusError interface {
	error
	StatusCode() int
}

// ResolveError maps an error returned by a handler to a status and a user facing message.
func ResolveError(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, validationErr.Error()
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode(), statusErr.Error()
	}

	switch {
	case errors.Is(err, identity.ErrInvalidCredential), errors.Is(err, identity.ErrMissingEmail):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "Request timed out"
	}

	return fiber.StatusInternalServerError, "Internal server error"
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		code, message := ResolveError(err)
		if code >= fiber.StatusInternalServerError {
			log.Error(logger.ModuleHTTP, "Request failed", map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
				"error":  err,
			})
		}

		return c.Status(code).JSON(ErrorResponse(code, message))
	}
}
