package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"messenger-backend/internal/service"
)

type AttachmentHandler struct {
	attachments *service.AttachmentService
}

func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Upload transfers the file to the blob store and, on success, emits the
// file message into the conversation.
// POST /api/v1/conversations/:id/attachments (multipart, field "file")
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "multipart field 'file' is required"})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "unreadable upload"})
	}
	defer f.Close()

	msg, err := h.attachments.Attach(c.Context(), conversationID, viewerFromCtx(c),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), f)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(msg)
}
