package handlers

import (
	"errors"

	"mood-token-system/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientFunds):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrAlreadyDone),
		errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidActivity),
		errors.Is(err, services.ErrSelfGift):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Errorf("Unhandled service error on %s: %v", c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
