package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"messenger-backend/internal/model"
	"messenger-backend/internal/service"
)

type MessageHandler struct {
	messenger    *service.Messenger
	historyLimit int
}

func NewMessageHandler(messenger *service.Messenger, historyLimit int) *MessageHandler {
	return &MessageHandler{messenger: messenger, historyLimit: historyLimit}
}

// GetHistory returns a page of past messages, oldest first.
// GET /api/v1/conversations/:id/messages?limit=50&before=<message id>
func (h *MessageHandler) GetHistory(c *fiber.Ctx) error {
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	limit := h.historyLimit
	if v, err := strconv.Atoi(c.Query("limit", "")); err == nil && v > 0 {
		limit = v
	}

	var before *uuid.UUID
	if raw := c.Query("before"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid before cursor"})
		}
		before = &id
	}

	msgs, err := h.messenger.History(c.Context(), viewerFromCtx(c), conversationID, before, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// Post sends a text message over REST. Same emit path as the ws "message"
// event, so deliveries reach joined viewers either way.
// POST /api/v1/conversations/:id/messages
func (h *MessageHandler) Post(c *fiber.Ctx) error {
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	msg, err := h.messenger.Send(c.Context(), viewerFromCtx(c), model.WSOutgoing{
		ConversationID: conversationID,
		Kind:           model.KindText,
		Text:           req.Text,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(msg)
}
