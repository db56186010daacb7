package services

import "errors"

// Sentinel errors for the conversation/moderation engine. Handlers map these
// to HTTP status codes; anything else is treated as a persistence failure.
var (
	ErrInvalidParticipant   = errors.New("invalid participant")
	ErrInvalidSender        = errors.New("sender is not a participant of this conversation")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrSelfBlock            = errors.New("cannot block yourself")
	ErrConversationConflict = errors.New("conversation creation conflict not resolved")
)
