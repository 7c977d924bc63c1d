package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventApprovalRequested     EventType = "approval_requested"
	EventApprovalDecided       EventType = "approval_decided"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketCategorized     EventType = "ticket_categorized"
	EventTicketDeleted         EventType = "ticket_deleted"
)

// Actor identifies who caused an event. A nil UserID means the system (e.g. the escalation job).
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// SystemActor is used for scheduler-driven changes.
var SystemActor = Actor{}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Title        string                `json:"title"`
	RequesterID  string                `json:"requester_id"`
	DepartmentID *string               `json:"department_id,omitempty"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	SLADueDate   time.Time             `json:"sla_due_date"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	RequesterID  string              `json:"requester_id"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	Comment      string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketNumber       string  `json:"ticket_number"`
	AssigneeID         string  `json:"assignee_id"`
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	TicketNumber string  `json:"ticket_number"`
	CommentID    string  `json:"comment_id"`
	AuthorID     *string `json:"author_id,omitempty"`
	RequesterID  string  `json:"requester_id"`
	AssigneeID   *string `json:"assignee_id,omitempty"`
	IsInternal   bool    `json:"is_internal"`
	BodyPreview  string  `json:"body_preview"`
}

// ApprovalRequestedPayload payload.
type ApprovalRequestedPayload struct {
	TicketNumber string `json:"ticket_number"`
	Title        string `json:"title"`
	ApprovalID   string `json:"approval_id"`
	ReviewerID   string `json:"reviewer_id"`
}

// ApprovalDecidedPayload payload.
type ApprovalDecidedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	ApprovalID   string                `json:"approval_id"`
	ReviewerID   string                `json:"reviewer_id"`
	RequesterID  string                `json:"requester_id"`
	Decision     domain.ApprovalStatus `json:"decision"`
	Comment      string                `json:"comment,omitempty"`
	TicketStatus domain.TicketStatus   `json:"ticket_status"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	SLADueDate   time.Time             `json:"sla_due_date"`
	DepartmentID *string               `json:"department_id,omitempty"`
	AssigneeID   *string               `json:"assignee_id,omitempty"`
}

// TicketCategorizedPayload payload.
type TicketCategorizedPayload struct {
	TicketNumber  string                `json:"ticket_number"`
	RootCause     *domain.RootCause     `json:"root_cause,omitempty"`
	IssueCategory *domain.IssueCategory `json:"issue_category,omitempty"`
	ServiceItemID *string               `json:"service_item_id,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	RequesterID  string              `json:"requester_id"`
	Status       domain.TicketStatus `json:"status"`
}
