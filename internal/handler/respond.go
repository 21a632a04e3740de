package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"messenger-backend/internal/service"
)

// viewerFromCtx reads the identity the auth middleware stored.
func viewerFromCtx(c *fiber.Ctx) service.Viewer {
	id, _ := c.Locals("user_id").(string)
	name, _ := c.Locals("user_name").(string)
	role, _ := c.Locals("user_role").(string)
	return service.Viewer{ID: id, Name: name, Role: role}
}

// fail maps service sentinels onto HTTP statuses. Anything unrecognized is a
// transient backend failure the caller may retry.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidParticipant),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrPollQuestion),
		errors.Is(err, service.ErrPollOptions),
		errors.Is(err, service.ErrUnknownOption):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrNotMember):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrPollNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(502).JSON(fiber.Map{"error": "temporary backend failure, retry"})
	}
}
