package domain

import "time"

// CallMessageType differentiates between replies and notes.
type CallMessageType string

const (
	MessageTypePublicReply  CallMessageType = "PUBLIC_REPLY"
	MessageTypeInternalNote CallMessageType = "INTERNAL_NOTE"
)

// CallMessage captures communications in a call thread.
type CallMessage struct {
	ID          string
	CallID      string
	AuthorID    string
	AuthorRole  Role
	MessageType CallMessageType
	Body        string
	CreatedAt   time.Time
}
