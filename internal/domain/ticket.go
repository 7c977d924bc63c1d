package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusPendingApproval TicketStatus = "pending_approval"
	TicketStatusApproved        TicketStatus = "approved"
	TicketStatusRejected        TicketStatus = "rejected"
	TicketStatusAssigned        TicketStatus = "assigned"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusPending         TicketStatus = "pending"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusRejected || s == TicketStatusCancelled
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusPendingApproval, TicketStatusApproved, TicketStatusRejected,
		TicketStatusAssigned, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved,
		TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// DefaultSLA is the resolution window used when no catalog entry overrides it.
func (p TicketPriority) DefaultSLA() time.Duration {
	switch p {
	case TicketPriorityUrgent:
		return 4 * time.Hour
	case TicketPriorityHigh:
		return 24 * time.Hour
	case TicketPriorityLow:
		return 120 * time.Hour
	default:
		return 72 * time.Hour
	}
}

// RootCause classifies why an incident happened.
type RootCause string

const (
	RootCauseHumanError     RootCause = "human_error"
	RootCauseSystemError    RootCause = "system_error"
	RootCauseExternalFactor RootCause = "external_factor"
	RootCauseUndetermined   RootCause = "undetermined"
)

// Valid reports whether c is a known root cause.
func (c RootCause) Valid() bool {
	switch c {
	case RootCauseHumanError, RootCauseSystemError, RootCauseExternalFactor, RootCauseUndetermined:
		return true
	}
	return false
}

// IssueCategory classifies what kind of request a ticket was.
type IssueCategory string

const (
	IssueCategoryRequest   IssueCategory = "request"
	IssueCategoryComplaint IssueCategory = "complaint"
	IssueCategoryProblem   IssueCategory = "problem"
)

// Valid reports whether c is a known issue category.
func (c IssueCategory) Valid() bool {
	switch c {
	case IssueCategoryRequest, IssueCategoryComplaint, IssueCategoryProblem:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                string
	TicketNumber      string
	Title             string
	Description       string
	RequesterID       string
	DepartmentID      *string
	UnitID            *string
	AssignedToID      *string
	Status            TicketStatus
	Priority          TicketPriority
	ServiceItemID     *string
	ServiceTemplateID *string
	BSGTemplateID     *string
	CustomFields      map[string]any
	AssetID           *string
	SLADueDate        time.Time
	IsEscalated       bool
	EscalatedAt       *time.Time
	RootCause         *RootCause
	IssueCategory     *IssueCategory
	CategorizedByID   *string
	CategorizedAt     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
	ClosedAt          *time.Time
	DeletedAt         *time.Time
}

// SLABreached reports whether the due date has passed while work is still outstanding.
func (t *Ticket) SLABreached(now time.Time) bool {
	if t.Status.Terminal() || t.Status == TicketStatusResolved {
		return false
	}
	return now.After(t.SLADueDate)
}
