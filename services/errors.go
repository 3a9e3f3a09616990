// services/errors.go
package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Typed error kinds shared by the services. Handlers translate them to
// HTTP statuses with RespondError; anything unrecognized is a 500.

type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// ConflictError covers wrong-state transitions and double-claimed commissions.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

type AuthorizationError struct{ Msg string }

func (e *AuthorizationError) Error() string { return e.Msg }

// DependencyError wraps failures of external collaborators (email, CRM).
// Notification failures are logged, never surfaced to the caller.
type DependencyError struct {
	Msg string
	Err error
}

func (e *DependencyError) Error() string { return e.Msg }
func (e *DependencyError) Unwrap() error { return e.Err }

// RespondError maps a service error onto the fiber response.
func RespondError(c *fiber.Ctx, err error) error {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		ae *AuthorizationError
		de *DependencyError
	)
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Msg})
	case errors.As(err, &nf):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nf.Msg})
	case errors.As(err, &ce):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ce.Msg})
	case errors.As(err, &ae):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ae.Msg})
	case errors.As(err, &de):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": de.Msg})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
