package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/rokcupza/nats-registry/internal/pkg/entry"
	"github.com/rokcupza/nats-registry/internal/pkg/exportarchive"
	"github.com/rokcupza/nats-registry/internal/pkg/mail"
	"github.com/rokcupza/nats-registry/internal/pkg/payfast"
)

// Package-level collaborators, wired once at startup by Setup.
var (
	entrySvc *entry.Service
	mailQ    *mail.Queue
	gateway  *payfast.Adapter
	archive  *exportarchive.Client
)

// Setup wires the controllers' collaborators. The archive client may be nil
// when the export archive is disabled.
func Setup(svc *entry.Service, q *mail.Queue, gw *payfast.Adapter, arc *exportarchive.Client) {
	entrySvc = svc
	mailQ = q
	gateway = gw
	archive = arc
}

// errorResponse maps coordinator errors onto the API envelope. Unknown errors
// log server-side and surface as a bare 500; payloads never leak internals.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, entry.ErrDriverNotFound),
		errors.Is(err, entry.ErrEventNotFound),
		errors.Is(err, entry.ErrEntryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})

	case errors.Is(err, entry.ErrRegistrationClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "registration_closed", "message": err.Error()})

	case errors.Is(err, entry.ErrDuplicateEntry):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "duplicate_entry", "message": err.Error()})

	case errors.Is(err, entry.ErrPaymentStateMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "payment_state_mismatch", "message": err.Error()})

	case errors.Is(err, entry.ErrDiscountInvalid):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "discount_invalid", "message": err.Error()})

	case errors.Is(err, entry.ErrUnknownItem):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown_item", "message": err.Error()})

	case errors.Is(err, entry.ErrNotFreeEntry):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "not_free_entry", "message": err.Error()})
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	log.Errorf("[API] unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Something went wrong"})
}

// badRequest is the envelope for unparseable request bodies.
func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": msg})
}
