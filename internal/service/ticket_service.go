package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.TicketCommentRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	approvals   repository.ApprovalRepository
	users       repository.UserRepository
	departments repository.DepartmentRepository
	catalog     repository.CatalogRepository
	bsg         repository.BSGTemplateRepository
	assets      repository.AssetRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.TicketCommentRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	ApprovalRepo   repository.ApprovalRepository
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	CatalogRepo    repository.CatalogRepository
	BSGRepo        repository.BSGTemplateRepository
	AssetRepo      repository.AssetRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title             string
	Description       string
	Priority          domain.TicketPriority
	DepartmentID      *string
	UnitID            *string
	AssetID           *string
	ServiceItemID     *string
	ServiceTemplateID *string
	BSGTemplateID     *string
	CustomFields      map[string]any
}

// TicketUpdateInput carries the editable ticket details. Nil fields are left untouched.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
}

// TicketListFilter describes listing filters; visibility is derived from the caller.
type TicketListFilter struct {
	RequesterID  *string
	DepartmentID *string
	AssigneeID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Escalated    *bool
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// CommentAttachmentInput defines attachment metadata.
type CommentAttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// TicketDetail is a ticket with the thread, audit trail and approvals the caller may see.
type TicketDetail struct {
	Ticket    *domain.Ticket
	Comments  []domain.TicketComment
	History   []domain.TicketHistory
	Approvals []domain.BusinessApproval
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		approvals:   deps.ApprovalRepo,
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		catalog:     deps.CatalogRepo,
		bsg:         deps.BSGRepo,
		assets:      deps.AssetRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         nowUTC,
	}
}

// ticketForm is what the chosen service template or BSG template contributes to a new ticket.
type ticketForm struct {
	fields           []forms.Field
	requiresApproval bool
	slaHours         *int
	defaultPriority  domain.TicketPriority
}

// CreateTicket opens a ticket on behalf of the actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "is required"})
	}

	ticket := &domain.Ticket{
		TicketNumber:      generateTicketNumber(s.now()),
		Title:             title,
		Description:       strings.TrimSpace(input.Description),
		RequesterID:       actor.ID,
		DepartmentID:      trimmedPtr(input.DepartmentID),
		UnitID:            trimmedPtr(input.UnitID),
		AssetID:           trimmedPtr(input.AssetID),
		ServiceItemID:     trimmedPtr(input.ServiceItemID),
		ServiceTemplateID: trimmedPtr(input.ServiceTemplateID),
		BSGTemplateID:     trimmedPtr(input.BSGTemplateID),
		Priority:          input.Priority,
	}
	if ticket.DepartmentID == nil {
		ticket.DepartmentID = actor.DepartmentID
	}
	if err := s.resolveOrganization(ctx, ticket); err != nil {
		return nil, err
	}
	if ticket.AssetID != nil && s.assets != nil {
		if _, err := s.assets.GetByID(ctx, *ticket.AssetID); err != nil {
			return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": *ticket.AssetID})
		}
	}

	form, err := s.resolveForm(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if len(form.fields) > 0 {
		values, err := validateFieldValues(form.fields, input.CustomFields)
		if err != nil {
			return nil, err
		}
		ticket.CustomFields = values
	}

	if ticket.Priority == "" {
		ticket.Priority = form.defaultPriority
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}
	ticket.SLADueDate = s.now().Add(slaWindow(form.slaHours, ticket.Priority))

	var approvals []*domain.BusinessApproval
	ticket.Status = domain.TicketStatusOpen
	if form.requiresApproval {
		reviewers, err := s.approversFor(ctx, actor, ticket.DepartmentID)
		if err != nil {
			return nil, err
		}
		ticket.Status = domain.TicketStatusPendingApproval
		for _, reviewer := range reviewers {
			approvals = append(approvals, &domain.BusinessApproval{
				ReviewerID: reviewer.ID,
				Status:     domain.ApprovalPending,
			})
		}
	}

	if len(approvals) > 0 {
		err = s.tickets.CreateWithApprovals(ctx, ticket, approvals)
	} else {
		err = s.tickets.Create(ctx, ticket)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"status":   ticket.Status,
			"priority": ticket.Priority,
		},
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketCreated, ticket.ID, actorOf(actor), events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		Title:        ticket.Title,
		RequesterID:  ticket.RequesterID,
		DepartmentID: ticket.DepartmentID,
		Priority:     ticket.Priority,
		Status:       ticket.Status,
		SLADueDate:   ticket.SLADueDate,
	}))
	for _, approval := range approvals {
		publish(ctx, s.dispatcher, events.NewEvent(events.EventApprovalRequested, ticket.ID, actorOf(actor), events.ApprovalRequestedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			ApprovalID:   approval.ID,
			ReviewerID:   approval.ReviewerID,
		}))
	}
	return ticket, nil
}

func (s *TicketService) resolveOrganization(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.DepartmentID != nil && s.departments != nil {
		dept, err := s.departments.GetByID(ctx, *ticket.DepartmentID)
		if err != nil {
			return apperrors.NotFoundOr(err, "department", map[string]any{"department_id": *ticket.DepartmentID})
		}
		if !dept.IsActive {
			return apperrors.NewValidationError("department inactive", map[string]any{"department_id": dept.ID})
		}
	}
	if ticket.UnitID != nil && s.departments != nil {
		unit, err := s.departments.GetUnit(ctx, *ticket.UnitID)
		if err != nil {
			return apperrors.NotFoundOr(err, "unit", map[string]any{"unit_id": *ticket.UnitID})
		}
		if ticket.DepartmentID == nil {
			ticket.DepartmentID = strPtr(unit.DepartmentID)
		} else if *ticket.DepartmentID != unit.DepartmentID {
			return apperrors.NewValidationError("unit not part of department", map[string]any{"unit_id": unit.ID})
		}
	}
	return nil
}

func (s *TicketService) resolveForm(ctx context.Context, ticket *domain.Ticket) (ticketForm, error) {
	var form ticketForm
	if ticket.BSGTemplateID != nil {
		if ticket.ServiceItemID != nil || ticket.ServiceTemplateID != nil {
			return form, apperrors.NewValidationError("choose either a service template or a BSG template", nil)
		}
		tmpl, err := s.bsg.GetByID(ctx, *ticket.BSGTemplateID)
		if err != nil {
			return form, apperrors.NotFoundOr(err, "bsg_template", map[string]any{"bsg_template_id": *ticket.BSGTemplateID})
		}
		if !tmpl.IsActive {
			return form, apperrors.NewValidationError("bsg template inactive", map[string]any{"bsg_template_id": tmpl.ID})
		}
		fields, err := withMasterOptions(ctx, s.bsg, tmpl.Fields)
		if err != nil {
			return form, err
		}
		form.fields = fields
		form.requiresApproval = tmpl.RequiresApproval
		form.slaHours = tmpl.SLAHours
		return form, nil
	}

	if ticket.ServiceTemplateID != nil {
		tmpl, err := s.catalog.GetTemplate(ctx, *ticket.ServiceTemplateID)
		if err != nil {
			return form, apperrors.NotFoundOr(err, "service_template", map[string]any{"service_template_id": *ticket.ServiceTemplateID})
		}
		if !tmpl.IsActive {
			return form, apperrors.NewValidationError("service template inactive", map[string]any{"service_template_id": tmpl.ID})
		}
		if ticket.ServiceItemID == nil {
			ticket.ServiceItemID = strPtr(tmpl.ServiceItemID)
		} else if *ticket.ServiceItemID != tmpl.ServiceItemID {
			return form, apperrors.NewValidationError("template does not belong to service item", map[string]any{"service_template_id": tmpl.ID})
		}
		fields, err := withMasterOptions(ctx, s.bsg, tmpl.Fields)
		if err != nil {
			return form, err
		}
		form.fields = fields
	}

	if ticket.ServiceItemID != nil {
		item, err := s.catalog.GetItem(ctx, *ticket.ServiceItemID)
		if err != nil {
			return form, apperrors.NotFoundOr(err, "service_item", map[string]any{"service_item_id": *ticket.ServiceItemID})
		}
		if !item.IsActive {
			return form, apperrors.NewValidationError("service item inactive", map[string]any{"service_item_id": item.ID})
		}
		form.requiresApproval = item.RequiresApproval
		form.slaHours = item.SLAHours
		if item.DefaultPriority.Valid() {
			form.defaultPriority = item.DefaultPriority
		}
	}
	return form, nil
}

// approversFor picks the reviewers of a ticket that needs business approval: the department's managers,
// then the requester's direct manager, then the administrators.
func (s *TicketService) approversFor(ctx context.Context, requester *domain.User, departmentID *string) ([]domain.User, error) {
	var reviewers []domain.User
	if departmentID != nil {
		managers, err := s.users.ListByDepartmentRole(ctx, *departmentID, domain.RoleManager)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, m := range managers {
			if m.ID != requester.ID {
				reviewers = append(reviewers, m)
			}
		}
	}
	if len(reviewers) == 0 && requester.ManagerID != nil && *requester.ManagerID != requester.ID {
		manager, err := s.users.GetByID(ctx, *requester.ManagerID)
		if err != nil && !isNotFound(err) {
			return nil, apperrors.MapError(err)
		}
		if manager.Active() {
			reviewers = append(reviewers, *manager)
		}
	}
	if len(reviewers) == 0 {
		role := domain.RoleAdmin
		status := domain.UserStatusActive
		admins, err := s.users.List(ctx, repository.UserFilter{Role: &role, Status: &status})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, a := range admins {
			if a.ID != requester.ID {
				reviewers = append(reviewers, a)
			}
		}
	}
	if len(reviewers) == 0 {
		return nil, apperrors.NewConflict("no approver available for this request", nil)
	}
	return reviewers, nil
}

// ListTickets returns the tickets visible to the actor.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, int, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	tickets, total, err := s.tickets.List(ctx, repository.TicketFilter{
		Visibility:   visibilityFor(actor),
		RequesterID:  filter.RequesterID,
		DepartmentID: filter.DepartmentID,
		AssigneeID:   filter.AssigneeID,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		Escalated:    filter.Escalated,
		SearchTerm:   trimmedPtr(filter.SearchTerm),
		CreatedFrom:  filter.CreatedFrom,
		CreatedTo:    filter.CreatedTo,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

// GetTicket returns a ticket with its comments, history and approvals.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.visibleComments(ctx, actor, ticket.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.visibleHistory(ctx, actor, ticket.ID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvals.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{Ticket: ticket, Comments: comments, History: history, Approvals: approvals}, nil
}

// UpdateTicket edits title, description or priority.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.Terminal() {
		return nil, apperrors.NewConflict("ticket is closed for edits", map[string]any{"status": ticket.Status})
	}
	if !actor.Role.IsStaff() {
		if ticket.RequesterID != actor.ID {
			return nil, apperrors.NewForbidden("only the requester may edit this ticket")
		}
		if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusPendingApproval {
			return nil, apperrors.NewConflict("ticket can no longer be edited", map[string]any{"status": ticket.Status})
		}
	}

	oldDetails := map[string]any{}
	newDetails := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "is required"})
		}
		if title != ticket.Title {
			oldDetails["title"], newDetails["title"] = ticket.Title, title
			ticket.Title = title
		}
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description != ticket.Description {
			oldDetails["description"], newDetails["description"] = ticket.Description, description
			ticket.Description = description
		}
	}
	oldPriority := ticket.Priority
	if input.Priority != nil && *input.Priority != ticket.Priority {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
		if ticket.ServiceItemID == nil && ticket.BSGTemplateID == nil && !ticket.IsEscalated {
			due := ticket.CreatedAt.Add(ticket.Priority.DefaultSLA())
			if due.After(s.now()) {
				ticket.SLADueDate = due
			}
		}
	}
	if len(newDetails) == 0 && oldPriority == ticket.Priority {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if len(newDetails) > 0 {
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actorID(actor),
			ChangeType:  domain.ChangeTypeDetails,
			OldValue:    oldDetails,
			NewValue:    newDetails,
		})
	}
	if oldPriority != ticket.Priority {
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actorID(actor),
			ChangeType:  domain.ChangeTypePriority,
			OldValue:    map[string]any{"priority": oldPriority},
			NewValue:    map[string]any{"priority": ticket.Priority, "sla_due_date": ticket.SLADueDate},
		})
		publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketPriorityChanged, ticket.ID, actorOf(actor), events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: ticket.Priority,
		}))
	}
	return ticket, nil
}

// UpdateStatus moves a ticket along its lifecycle.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	switch newStatus {
	case domain.TicketStatusApproved, domain.TicketStatusRejected:
		return nil, apperrors.NewValidationError("use the approval endpoints to approve or reject", map[string]any{"status": newStatus})
	case domain.TicketStatusAssigned:
		return nil, apperrors.NewValidationError("use the assignment endpoint to assign", map[string]any{"status": newStatus})
	case domain.TicketStatusPendingApproval:
		return nil, apperrors.NewValidationError("approval is requested when the ticket is created", map[string]any{"status": newStatus})
	}

	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatusChange(actor, ticket, newStatus); err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	now := s.now()
	ticket.Status = newStatus
	switch newStatus {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	case domain.TicketStatusInProgress:
		if oldStatus == domain.TicketStatusResolved {
			ticket.ResolvedAt = nil
			ticket.ClosedAt = nil
		}
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	s.recordStatusChange(ctx, actor, ticket, oldStatus, strings.TrimSpace(comment))
	return ticket, nil
}

// authorizeStatusChange limits who may drive which transition. Requesters may only cancel before work
// starts, confirm a resolution or reopen it; technicians must own the ticket.
func authorizeStatusChange(actor *domain.User, ticket *domain.Ticket, next domain.TicketStatus) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return nil
	case domain.RoleTechnician:
		if sameID(ticket.AssignedToID, actor.ID) {
			return nil
		}
		if ticket.RequesterID == actor.ID {
			return requesterTransition(ticket, next)
		}
		return apperrors.NewForbidden("ticket is not assigned to you")
	default:
		if ticket.RequesterID != actor.ID {
			return apperrors.NewForbidden("access denied")
		}
		return requesterTransition(ticket, next)
	}
}

func requesterTransition(ticket *domain.Ticket, next domain.TicketStatus) error {
	switch {
	case next == domain.TicketStatusCancelled && preWork(ticket.Status):
		return nil
	case ticket.Status == domain.TicketStatusResolved &&
		(next == domain.TicketStatusClosed || next == domain.TicketStatusInProgress):
		return nil
	}
	return apperrors.NewForbidden("requesters may only cancel, close or reopen their tickets")
}

// AddComment appends to the ticket thread.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, body string, internal bool, attachments []CommentAttachmentInput) (*domain.TicketComment, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"body": "is required"})
	}
	if internal && !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only staff may add internal comments")
	}
	if ticket.Status.Terminal() && !actor.Role.IsStaff() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   actorID(actor),
		Body:       body,
		IsInternal: internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, att := range attachments {
		ref := &domain.AttachmentReference{
			CommentID:  comment.ID,
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		}
		if err := s.attachments.Create(ctx, ref); err != nil {
			return nil, apperrors.MapError(err)
		}
		comment.Attachments = append(comment.Attachments, *ref)
	}

	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeComment,
		NewValue: map[string]any{
			"comment_id":  comment.ID,
			"is_internal": comment.IsInternal,
			"attachments": len(comment.Attachments),
		},
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketCommentAdded, ticket.ID, actorOf(actor), events.TicketCommentAddedPayload{
		TicketNumber: ticket.TicketNumber,
		CommentID:    comment.ID,
		AuthorID:     comment.AuthorID,
		RequesterID:  ticket.RequesterID,
		AssigneeID:   ticket.AssignedToID,
		IsInternal:   comment.IsInternal,
		BodyPreview:  stringPreview(body, 140),
	}))
	return comment, nil
}

// ListComments returns the thread as the actor may see it.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketComment, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.visibleComments(ctx, actor, ticket.ID)
}

// ListHistory returns the audit trail; requesters only see lifecycle entries.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketHistory, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.visibleHistory(ctx, actor, ticket.ID)
}

// DeleteTicket soft deletes a ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if err := s.tickets.SoftDelete(ctx, ticket.ID); err != nil {
		return apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeDeleted,
		OldValue:    map[string]any{"status": ticket.Status},
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketDeleted, ticket.ID, actorOf(actor), events.TicketDeletedPayload{
		TicketNumber: ticket.TicketNumber,
		RequesterID:  ticket.RequesterID,
		Status:       ticket.Status,
	}))
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.ID))
	return nil
}

func (s *TicketService) loadVisible(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) visibleComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketComment, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID, actor.Role.IsStaff())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(comments) == 0 || s.attachments == nil {
		return comments, nil
	}
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	byComment, err := s.attachments.ListByComments(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range comments {
		comments[i].Attachments = byComment[comments[i].ID]
	}
	return comments, nil
}

func (s *TicketService) visibleHistory(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketHistory, error) {
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role.IsStaff() {
		return history, nil
	}
	filtered := make([]domain.TicketHistory, 0, len(history))
	for _, entry := range history {
		if requesterVisibleChanges[entry.ChangeType] {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus, comment string) {
	newValue := map[string]any{"status": ticket.Status}
	if comment != "" {
		newValue["comment"] = comment
	}
	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    newValue,
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actorOf(actor), events.TicketStatusChangedPayload{
		TicketNumber: ticket.TicketNumber,
		RequesterID:  ticket.RequesterID,
		OldStatus:    oldStatus,
		NewStatus:    ticket.Status,
		Comment:      comment,
	}))
}

func slaWindow(hours *int, priority domain.TicketPriority) time.Duration {
	if hours != nil && *hours > 0 {
		return time.Duration(*hours) * time.Hour
	}
	return priority.DefaultSLA()
}

func generateTicketNumber(now time.Time) string {
	return "BSG-" + now.Format("20060102") + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
