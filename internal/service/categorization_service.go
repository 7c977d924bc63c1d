package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// CategorizationService records root cause and issue category on tickets and reports on them.
type CategorizationService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// CategorizationInput is the classification applied to a ticket. Nil values are left untouched.
type CategorizationInput struct {
	RootCause     *domain.RootCause
	IssueCategory *domain.IssueCategory
}

// AnalyticsRange bounds analytics queries.
type AnalyticsRange struct {
	DepartmentID *string
	From         *time.Time
	To           *time.Time
}

// NewCategorizationService constructs the service.
func NewCategorizationService(tickets repository.TicketRepository, history repository.TicketHistoryRepository, dispatcher events.Dispatcher, logger *zap.Logger) *CategorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategorizationService{tickets: tickets, history: history, dispatcher: dispatcher, logger: logger, now: nowUTC}
}

// Categorize sets the classification of a ticket.
func (s *CategorizationService) Categorize(ctx context.Context, actor *domain.User, ticketID string, input CategorizationInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only staff may categorize tickets")
	}
	if input.RootCause == nil && input.IssueCategory == nil {
		return nil, apperrors.NewValidationError("root_cause or issue_category is required", nil)
	}
	if input.RootCause != nil && !input.RootCause.Valid() {
		return nil, apperrors.NewValidationError("invalid root cause", map[string]any{"root_cause": *input.RootCause})
	}
	if input.IssueCategory != nil && !input.IssueCategory.Valid() {
		return nil, apperrors.NewValidationError("invalid issue category", map[string]any{"issue_category": *input.IssueCategory})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}

	oldValue := map[string]any{"root_cause": ticket.RootCause, "issue_category": ticket.IssueCategory}
	if input.RootCause != nil {
		rc := *input.RootCause
		ticket.RootCause = &rc
	}
	if input.IssueCategory != nil {
		ic := *input.IssueCategory
		ticket.IssueCategory = &ic
	}
	now := s.now()
	ticket.CategorizedByID = actorID(actor)
	ticket.CategorizedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeCategorization,
		OldValue:    oldValue,
		NewValue:    map[string]any{"root_cause": ticket.RootCause, "issue_category": ticket.IssueCategory},
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketCategorized, ticket.ID, actorOf(actor), events.TicketCategorizedPayload{
		TicketNumber:  ticket.TicketNumber,
		RootCause:     ticket.RootCause,
		IssueCategory: ticket.IssueCategory,
		ServiceItemID: ticket.ServiceItemID,
	}))
	return ticket, nil
}

// ListUncategorized lists resolved or closed tickets still missing a classification.
// Managers only see their own department.
func (s *CategorizationService) ListUncategorized(ctx context.Context, actor *domain.User, departmentID *string, page Page) ([]domain.Ticket, int, error) {
	dept, err := scopedDepartment(actor, departmentID)
	if err != nil {
		return nil, 0, err
	}
	tickets, total, err := s.tickets.ListUncategorized(ctx, dept, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

// Analytics counts tickets by root cause, issue category and service item.
func (s *CategorizationService) Analytics(ctx context.Context, actor *domain.User, rng AnalyticsRange) (*domain.CategorizationAnalytics, error) {
	dept, err := scopedDepartment(actor, rng.DepartmentID)
	if err != nil {
		return nil, err
	}
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return nil, apperrors.NewValidationError("date range is inverted", map[string]any{"from": *rng.From, "to": *rng.To})
	}
	result, err := s.tickets.CategorizationAnalytics(ctx, repository.AnalyticsFilter{
		DepartmentID: dept,
		From:         rng.From,
		To:           rng.To,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// scopedDepartment pins managers and technicians to their department; admins may pick any.
func scopedDepartment(actor *domain.User, requested *string) (*string, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return trimmedPtr(requested), nil
	case domain.RoleManager, domain.RoleTechnician:
		if actor.DepartmentID == nil {
			return nil, apperrors.NewForbidden("no department assigned")
		}
		return actor.DepartmentID, nil
	}
	return nil, apperrors.NewForbidden("insufficient role")
}
