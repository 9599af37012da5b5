package dto

import (
	"time"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// RequestChatRequest payload for POST /chat/sessions.
type RequestChatRequest struct {
	Subject string `json:"subject" validate:"max=200"`
}

// PostChatMessageRequest payload for POST /chat/sessions/:id/messages.
type PostChatMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// ChatSessionResponse describes a chat session.
type ChatSessionResponse struct {
	ID          string            `json:"id"`
	ClientID    string            `json:"client_id"`
	ClientName  string            `json:"client_name"`
	CompanyID   *string           `json:"company_id"`
	OperatorID  *string           `json:"operator_id"`
	Subject     string            `json:"subject"`
	Status      domain.ChatStatus `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	AcceptedAt  *time.Time        `json:"accepted_at"`
	ClosedAt    *time.Time        `json:"closed_at"`
	// QueuePosition is set only while the session waits in the queue.
	QueuePosition *int64 `json:"queue_position,omitempty"`
}

// QueuedChatResponse is a waiting session with its place in line.
type QueuedChatResponse struct {
	Session        ChatSessionResponse `json:"session"`
	Position       int64               `json:"position"`
	WaitingSeconds int64               `json:"waiting_seconds"`
}

// ChatMessageResponse is one chat line.
type ChatMessageResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}
