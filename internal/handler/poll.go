package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"messenger-backend/internal/service"
)

type PollHandler struct {
	polls *service.PollService
}

func NewPollHandler(polls *service.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

// Create attaches a new poll message to the conversation.
// POST /api/v1/conversations/:id/polls
func (h *PollHandler) Create(c *fiber.Ctx) error {
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	var req struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		AllowMultiple bool     `json:"allow_multiple"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	msg, poll, err := h.polls.Create(c.Context(), conversationID, viewerFromCtx(c), req.Question, req.Options, req.AllowMultiple)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": msg, "poll": poll})
}

// Get returns the poll with voter sets and the derived tally.
// GET /api/v1/polls/:id
func (h *PollHandler) Get(c *fiber.Ctx) error {
	pollID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid poll id"})
	}

	poll, err := h.polls.Get(c.Context(), pollID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"poll": poll, "tally": poll.Tally()})
}

// Vote records the caller's vote and returns the refreshed poll.
// POST /api/v1/polls/:id/votes
func (h *PollHandler) Vote(c *fiber.Ctx) error {
	pollID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid poll id"})
	}

	var req struct {
		OptionID uuid.UUID `json:"option_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	poll, err := h.polls.Vote(c.Context(), pollID, viewerFromCtx(c), req.OptionID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"poll": poll, "tally": poll.Tally()})
}
