package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated        TicketChangeType = "CREATED"
	ChangeTypeStatus         TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee       TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority       TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeDetails        TicketChangeType = "DETAILS_CHANGE"
	ChangeTypeApproval       TicketChangeType = "APPROVAL_DECISION"
	ChangeTypeCategorization TicketChangeType = "CATEGORIZATION"
	ChangeTypeEscalation     TicketChangeType = "ESCALATION"
	ChangeTypeComment        TicketChangeType = "COMMENT_ADDED"
	ChangeTypeDeleted        TicketChangeType = "DELETED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID *string
	ChangeType  TicketChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
