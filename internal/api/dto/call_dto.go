package dto

import (
	"time"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// OpenCallRequest payload for POST /calls.
type OpenCallRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=5000"`
	Priority    domain.CallPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Tags        []string            `json:"tags" validate:"max=10,dive,max=40"`
}

// AddCallMessageRequest payload for POST /calls/:id/messages.
type AddCallMessageRequest struct {
	Body        string                 `json:"body" validate:"required,max=10000"`
	MessageType domain.CallMessageType `json:"message_type" validate:"omitempty,oneof=PUBLIC_REPLY INTERNAL_NOTE"`
}

// UpdateCallStatusRequest payload for PATCH /calls/:id/status.
type UpdateCallStatusRequest struct {
	Status  domain.CallStatus `json:"status" validate:"required,oneof=OPEN IN_PROGRESS WAITING_CLIENT RESOLVED CLOSED CANCELLED"`
	Comment string            `json:"comment" validate:"max=500"`
}

// UpdateCallPriorityRequest payload for PATCH /calls/:id/priority.
type UpdateCallPriorityRequest struct {
	Priority domain.CallPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
}

// AssignCallRequest payload for POST /calls/:id/assign.
type AssignCallRequest struct {
	OperatorID string `json:"operator_id" validate:"required,uuid"`
}

// CallResponse summarizes a call.
type CallResponse struct {
	ID          string              `json:"id"`
	Protocol    string              `json:"protocol"`
	CompanyID   string              `json:"company_id"`
	ClientID    string              `json:"client_id"`
	OperatorID  *string             `json:"operator_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.CallStatus   `json:"status"`
	Priority    domain.CallPriority `json:"priority"`
	Tags        []string            `json:"tags"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClosedAt    *time.Time          `json:"closed_at"`
}

// CallMessageResponse is one entry of a call thread.
type CallMessageResponse struct {
	ID          string                 `json:"id"`
	AuthorID    string                 `json:"author_id"`
	AuthorRole  string                 `json:"author_role"`
	MessageType domain.CallMessageType `json:"message_type"`
	Body        string                 `json:"body"`
	CreatedAt   time.Time              `json:"created_at"`
}

// CallDetailResponse is a call with its visible thread.
type CallDetailResponse struct {
	CallResponse
	Messages []CallMessageResponse `json:"messages"`
}

// CallHistoryResponse is an audit entry.
type CallHistoryResponse struct {
	ID          string                `json:"id"`
	ChangedByID string                `json:"changed_by_id"`
	ChangeType  domain.CallChangeType `json:"change_type"`
	OldValue    map[string]any        `json:"old_value"`
	NewValue    map[string]any        `json:"new_value"`
	CreatedAt   time.Time             `json:"created_at"`
}
