package domain

import "time"

// CallChangeType captures what changed in a history entry.
type CallChangeType string

const (
	ChangeTypeStatus   CallChangeType = "STATUS_CHANGE"
	ChangeTypeOperator CallChangeType = "OPERATOR_CHANGE"
	ChangeTypePriority CallChangeType = "PRIORITY_CHANGE"
)

// CallHistory is an immutable audit trail entry.
type CallHistory struct {
	ID          string
	CallID      string
	ChangedByID string
	ChangeType  CallChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
