package dto

import (
	"time"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// CreateTicketRequest payload. The v2 endpoint also honours the template fields.
type CreateTicketRequest struct {
	Title             string                `json:"title" validate:"required,max=255"`
	Description       string                `json:"description" validate:"max=20000"`
	Priority          domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DepartmentID      *string               `json:"department_id"`
	UnitID            *string               `json:"unit_id"`
	AssetID           *string               `json:"asset_id"`
	ServiceItemID     *string               `json:"service_item_id"`
	ServiceTemplateID *string               `json:"service_template_id"`
	BSGTemplateID     *string               `json:"bsg_template_id"`
	CustomFields      map[string]any        `json:"custom_fields"`
}

// UpdateTicketRequest edits ticket details.
type UpdateTicketRequest struct {
	Title       *string                `json:"title" validate:"omitempty,max=255"`
	Description *string                `json:"description" validate:"omitempty,max=20000"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// StatusUpdateRequest moves a ticket through its lifecycle.
type StatusUpdateRequest struct {
	Status  domain.TicketStatus `json:"status" validate:"required"`
	Comment string              `json:"comment" validate:"max=5000"`
}

// AssignRequest names the technician to assign. Empty means auto-assign.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body        string              `json:"body" validate:"required,max=20000"`
	IsInternal  bool                `json:"is_internal"`
	Attachments []AttachmentRequest `json:"attachments" validate:"dive"`
}

// AttachmentRequest describes attachment input.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required,max=255"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
}

// ApprovalDecisionRequest carries the reviewer's comment.
type ApprovalDecisionRequest struct {
	Comment string `json:"comment" validate:"max=5000"`
}

// CategorizationRequest classifies a ticket.
type CategorizationRequest struct {
	RootCause     *domain.RootCause     `json:"root_cause" validate:"omitempty,oneof=human_error system_error external_factor undetermined"`
	IssueCategory *domain.IssueCategory `json:"issue_category" validate:"omitempty,oneof=request complaint problem"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                `json:"id"`
	TicketNumber  string                `json:"ticket_number"`
	Title         string                `json:"title"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	RequesterID   string                `json:"requester_id"`
	DepartmentID  *string               `json:"department_id"`
	UnitID        *string               `json:"unit_id"`
	AssignedToID  *string               `json:"assigned_to_id"`
	ServiceItemID *string               `json:"service_item_id"`
	BSGTemplateID *string               `json:"bsg_template_id"`
	SLADueDate    time.Time             `json:"sla_due_date"`
	SLABreached   bool                  `json:"sla_breached"`
	IsEscalated   bool                  `json:"is_escalated"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description       string                    `json:"description"`
	ServiceTemplateID *string                   `json:"service_template_id"`
	AssetID           *string                   `json:"asset_id"`
	CustomFields      map[string]any            `json:"custom_fields"`
	EscalatedAt       *time.Time                `json:"escalated_at"`
	RootCause         *domain.RootCause         `json:"root_cause"`
	IssueCategory     *domain.IssueCategory     `json:"issue_category"`
	CategorizedByID   *string                   `json:"categorized_by_id"`
	CategorizedAt     *time.Time                `json:"categorized_at"`
	ResolvedAt        *time.Time                `json:"resolved_at"`
	ClosedAt          *time.Time                `json:"closed_at"`
	Comments          []CommentResponse         `json:"comments,omitempty"`
	History           []TicketHistoryResponse   `json:"history,omitempty"`
	Approvals         []domain.BusinessApproval `json:"approvals,omitempty"`
}

// CommentResponse represents a thread message.
type CommentResponse struct {
	ID          string               `json:"id"`
	AuthorID    *string              `json:"author_id"`
	Body        string               `json:"body"`
	IsInternal  bool                 `json:"is_internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string `json:"id"`
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Pagination accompanies paged list responses.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}
