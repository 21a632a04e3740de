package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"messenger-backend/internal/model"
	"messenger-backend/internal/storage"
)

// AttachmentService is the two-phase upload pipeline: the binary is
// transferred to the blob store first, and only a completed upload emits a
// file-kind message. A failed transfer leaves no message behind.
type AttachmentService struct {
	blobs   storage.BlobStore
	convs   ConversationStore
	emitter MessageEmitter
}

func NewAttachmentService(blobs storage.BlobStore, convs ConversationStore, emitter MessageEmitter) *AttachmentService {
	return &AttachmentService{blobs: blobs, convs: convs, emitter: emitter}
}

// Attach uploads the payload and emits the file message carrying the blob
// URL and the original filename. Permission and membership are checked
// before the upload so a rejected sender never pushes bytes to the store
// and no orphan blob is left behind; cancelling ctx aborts an in-flight
// transfer.
func (s *AttachmentService) Attach(ctx context.Context, conversationID uuid.UUID, sender Viewer, filename, contentType string, r io.Reader) (*model.Message, error) {
	if sender.IsObserver() {
		return nil, ErrPermissionDenied
	}
	if filename == "" {
		return nil, ErrMissingFile
	}

	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasMember(sender.ID) {
		return nil, ErrNotMember
	}

	path := fmt.Sprintf("%s/%s-%s", conversationID, uuid.NewString(), filename)
	url, err := s.blobs.Upload(ctx, path, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	return s.emitter.Send(ctx, sender, model.WSOutgoing{
		ConversationID: conversationID,
		Kind:           model.KindFile,
		FileURL:        url,
		FileName:       filename,
	})
}
