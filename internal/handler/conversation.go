package handler

import (
	"github.com/gofiber/fiber/v2"

	"messenger-backend/internal/model"
	"messenger-backend/internal/service"
)

type ConversationHandler struct {
	directory *service.Directory
}

func NewConversationHandler(directory *service.Directory) *ConversationHandler {
	return &ConversationHandler{directory: directory}
}

// ResolveOrCreate returns the direct conversation with the counterpart,
// creating it on first contact.
// POST /api/v1/conversations
func (h *ConversationHandler) ResolveOrCreate(c *fiber.Ctx) error {
	var req struct {
		CounterpartID string `json:"counterpart_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	conv, err := h.directory.ResolveOrCreate(c.Context(), viewerFromCtx(c), req.CounterpartID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(conv)
}

// List returns the viewer's conversations with member lists.
// GET /api/v1/conversations
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	convs, err := h.directory.ListForViewer(c.Context(), viewerFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	return c.JSON(fiber.Map{"conversations": convs})
}
