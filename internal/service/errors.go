package service

import "errors"

var (
	ErrInvalidParticipant   = errors.New("participant ids must be non-empty and distinct")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotMember            = errors.New("not a conversation member")
	ErrPermissionDenied     = errors.New("observers cannot perform write actions")

	ErrInvalidKind  = errors.New("unsupported message kind")
	ErrEmptyMessage = errors.New("message text is required")
	ErrMissingFile  = errors.New("file url and name are required")

	ErrPollQuestion  = errors.New("poll question is required")
	ErrPollOptions   = errors.New("poll needs at least two non-empty options")
	ErrPollNotFound  = errors.New("poll not found")
	ErrUnknownOption = errors.New("option does not belong to poll")

	ErrTimelineClosed = errors.New("timeline is closed")
)
