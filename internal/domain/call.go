package domain

import "time"

// CallStatus enumerates lifecycle states for support calls.
type CallStatus string

const (
	CallStatusOpen          CallStatus = "OPEN"
	CallStatusInProgress    CallStatus = "IN_PROGRESS"
	CallStatusWaitingClient CallStatus = "WAITING_CLIENT"
	CallStatusResolved      CallStatus = "RESOLVED"
	CallStatusClosed        CallStatus = "CLOSED"
	CallStatusCancelled     CallStatus = "CANCELLED"
)

// CallPriority enumerates urgency.
type CallPriority string

const (
	CallPriorityLow    CallPriority = "LOW"
	CallPriorityMedium CallPriority = "MEDIUM"
	CallPriorityHigh   CallPriority = "HIGH"
	CallPriorityUrgent CallPriority = "URGENT"
)

// Call is a support request opened by a client.
type Call struct {
	ID          string
	Protocol    string
	CompanyID   string
	ClientID    string
	OperatorID  *string
	Title       string
	Description string
	Status      CallStatus
	Priority    CallPriority
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsFinal reports whether no further transitions are possible.
func (c *Call) IsFinal() bool {
	return c.Status == CallStatusClosed || c.Status == CallStatusCancelled
}
