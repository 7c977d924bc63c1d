package domain

import "time"

// ApprovalStatus is the decision state of a business approval.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// BusinessApproval links a ticket to a manager who must sign it off.
type BusinessApproval struct {
	ID         string         `json:"id"`
	TicketID   string         `json:"ticket_id"`
	ReviewerID string         `json:"reviewer_id"`
	Status     ApprovalStatus `json:"status"`
	Comment    string         `json:"comment"`
	DecidedAt  *time.Time     `json:"decided_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// PendingApproval is an approval joined with the ticket summary a reviewer needs to decide.
type PendingApproval struct {
	BusinessApproval
	TicketNumber string         `json:"ticket_number"`
	TicketTitle  string         `json:"ticket_title"`
	Priority     TicketPriority `json:"priority"`
	RequesterID  string         `json:"requester_id"`
}
