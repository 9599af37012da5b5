package events

import (
	"time"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCallOpened             EventType = "call_opened"
	EventCallStatusChanged      EventType = "call_status_changed"
	EventCallPriorityChanged    EventType = "call_priority_changed"
	EventCallAssigned           EventType = "call_assigned"
	EventCallMessageAdded       EventType = "call_message_added"
	EventChatRequested          EventType = "chat_requested"
	EventChatAccepted           EventType = "chat_accepted"
	EventChatClosed             EventType = "chat_closed"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Actor is the user who caused an event and the role they acted under.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services. SubjectID is the call,
// chat session or user the event is about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CallOpenedPayload payload.
type CallOpenedPayload struct {
	Protocol  string              `json:"protocol"`
	CompanyID string              `json:"company_id"`
	Priority  domain.CallPriority `json:"priority"`
	Title     string              `json:"title"`
}

// CallStatusChangedPayload payload.
type CallStatusChangedPayload struct {
	OldStatus domain.CallStatus `json:"old_status"`
	NewStatus domain.CallStatus `json:"new_status"`
	Comment   string            `json:"comment,omitempty"`
}

// CallPriorityChangedPayload payload.
type CallPriorityChangedPayload struct {
	OldPriority domain.CallPriority `json:"old_priority"`
	NewPriority domain.CallPriority `json:"new_priority"`
}

// CallAssignedPayload payload.
type CallAssignedPayload struct {
	OldOperatorID *string `json:"old_operator_id,omitempty"`
	OperatorID    string  `json:"operator_id"`
}

// CallMessageAddedPayload payload.
type CallMessageAddedPayload struct {
	MessageID   string                 `json:"message_id"`
	MessageType domain.CallMessageType `json:"message_type"`
	BodyPreview string                 `json:"body_preview"`
}

// ChatPayload describes a chat session transition.
type ChatPayload struct {
	ClientID   string            `json:"client_id"`
	OperatorID *string           `json:"operator_id,omitempty"`
	Status     domain.ChatStatus `json:"status"`
}

// PasswordResetPayload carries the one-time token to the mail stub.
type PasswordResetPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
