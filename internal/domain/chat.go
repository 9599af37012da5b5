package domain

import "time"

// ChatStatus is the lifecycle of a live chat session.
type ChatStatus string

const (
	ChatStatusWaiting   ChatStatus = "WAITING"
	ChatStatusActive    ChatStatus = "ACTIVE"
	ChatStatusClosed    ChatStatus = "CLOSED"
	ChatStatusCancelled ChatStatus = "CANCELLED"
)

// ChatSession pairs a waiting client with the operator who accepted them.
type ChatSession struct {
	ID          string
	ClientID    string
	ClientName  string
	CompanyID   *string
	OperatorID  *string
	Subject     string
	Status      ChatStatus
	RequestedAt time.Time
	AcceptedAt  *time.Time
	ClosedAt    *time.Time
}

// IsOpen reports whether the session still accepts messages or acceptance.
func (s *ChatSession) IsOpen() bool {
	return s.Status == ChatStatusWaiting || s.Status == ChatStatusActive
}

// IsParticipant reports whether userID is the client or the accepting operator.
func (s *ChatSession) IsParticipant(userID string) bool {
	if s.ClientID == userID {
		return true
	}
	return s.OperatorID != nil && *s.OperatorID == userID
}

// ChatMessage is a single line in a chat session.
type ChatMessage struct {
	ID         string
	SessionID  string
	AuthorID   string
	AuthorRole Role
	Body       string
	SentAt     time.Time
}
