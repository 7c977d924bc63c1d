package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// ApprovalService runs the business approval workflow for tickets that need sign off before work starts.
type ApprovalService struct {
	tickets    repository.TicketRepository
	approvals  repository.ApprovalRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ApprovalDependencies bundles repositories for the approval service.
type ApprovalDependencies struct {
	TicketRepo   repository.TicketRepository
	ApprovalRepo repository.ApprovalRepository
	HistoryRepo  repository.TicketHistoryRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		tickets:    deps.TicketRepo,
		approvals:  deps.ApprovalRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// ListPending returns the approvals waiting on the actor.
func (s *ApprovalService) ListPending(ctx context.Context, actor *domain.User) ([]domain.PendingApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	pending, err := s.approvals.ListPendingByReviewer(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return pending, nil
}

// ApprovalOutcome is the decided approval plus the ticket state it produced.
type ApprovalOutcome struct {
	Approval *domain.BusinessApproval
	Ticket   *domain.Ticket
}

// Decide records the actor's decision. One rejection rejects the ticket; the ticket is approved once
// every approval on it is approved.
func (s *ApprovalService) Decide(ctx context.Context, actor *domain.User, ticketID string, decision domain.ApprovalStatus, comment string) (*ApprovalOutcome, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if decision != domain.ApprovalApproved && decision != domain.ApprovalRejected {
		return nil, apperrors.NewValidationError("invalid decision", map[string]any{"decision": decision})
	}
	comment = strings.TrimSpace(comment)
	if decision == domain.ApprovalRejected && comment == "" {
		return nil, apperrors.NewValidationError("a comment is required when rejecting", map[string]any{"comment": "is required"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	approval, err := s.approvals.GetByTicketAndReviewer(ctx, ticket.ID, actor.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewForbidden("you are not a reviewer of this ticket")
		}
		return nil, apperrors.MapError(err)
	}
	if approval.Status != domain.ApprovalPending {
		return nil, apperrors.NewConflict("approval already decided", map[string]any{"status": approval.Status})
	}
	if ticket.Status != domain.TicketStatusPendingApproval {
		return nil, apperrors.NewConflict("ticket is not awaiting approval", map[string]any{"status": ticket.Status})
	}

	approval.Status = decision
	approval.Comment = comment
	if err := s.approvals.Decide(ctx, approval); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewConflict("approval already decided", nil)
		}
		return nil, apperrors.MapError(err)
	}

	oldStatus := ticket.Status
	switch decision {
	case domain.ApprovalRejected:
		ticket.Status = domain.TicketStatusRejected
	default:
		all, err := s.approvals.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if allApproved(all) {
			ticket.Status = domain.TicketStatusApproved
		}
	}
	if ticket.Status != oldStatus {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticket.ID})
		}
	}

	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeApproval,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue: map[string]any{
			"decision": decision,
			"comment":  comment,
			"status":   ticket.Status,
		},
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventApprovalDecided, ticket.ID, actorOf(actor), events.ApprovalDecidedPayload{
		TicketNumber: ticket.TicketNumber,
		ApprovalID:   approval.ID,
		ReviewerID:   actor.ID,
		RequesterID:  ticket.RequesterID,
		Decision:     decision,
		Comment:      comment,
		TicketStatus: ticket.Status,
	}))
	if ticket.Status != oldStatus {
		publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actorOf(actor), events.TicketStatusChangedPayload{
			TicketNumber: ticket.TicketNumber,
			RequesterID:  ticket.RequesterID,
			OldStatus:    oldStatus,
			NewStatus:    ticket.Status,
			Comment:      comment,
		}))
	}
	return &ApprovalOutcome{Approval: approval, Ticket: ticket}, nil
}

func allApproved(approvals []domain.BusinessApproval) bool {
	if len(approvals) == 0 {
		return false
	}
	for _, a := range approvals {
		if a.Status != domain.ApprovalApproved {
			return false
		}
	}
	return true
}

func requireReviewer(user *domain.User) error {
	if err := requireActor(user); err != nil {
		return err
	}
	if user.Role != domain.RoleManager && user.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only managers review approvals")
	}
	return nil
}
