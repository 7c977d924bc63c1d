package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	historyRepo repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		historyRepo: deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// SelfAssignTicket lets a technician pick up a ticket from their department queue.
func (s *AssignmentService) SelfAssignTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleTechnician {
		return nil, apperrors.NewForbidden("only technicians may self assign")
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedToID != nil && *ticket.AssignedToID != actor.ID {
		return nil, apperrors.NewConflict("ticket already assigned", map[string]any{"assigned_to_id": *ticket.AssignedToID})
	}
	return s.assign(ctx, actor, ticket, actor)
}

// AssignTicket assigns a ticket to a technician (manager/admin).
func (s *AssignmentService) AssignTicket(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": assigneeID})
	}
	if assignee.Role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("assignee must be a technician", map[string]any{"user_id": assigneeID})
	}
	if !assignee.Active() {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"user_id": assigneeID})
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, actor, ticket, assignee)
}

// AutoAssignTicket hands the ticket to the least loaded technician of its department who still has capacity.
func (s *AssignmentService) AutoAssignTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.DepartmentID == nil {
		return nil, apperrors.NewConflict("ticket has no department to route to", map[string]any{"ticket_id": ticket.ID})
	}
	workloads, err := s.users.TechnicianWorkloads(ctx, ticket.DepartmentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	candidate := pickTechnician(workloads)
	if candidate == nil {
		return nil, apperrors.NewConflict("no technician with free capacity", map[string]any{"department_id": *ticket.DepartmentID})
	}
	return s.assign(ctx, actor, ticket, candidate)
}

// pickTechnician prefers the lowest open ticket count, then the lowest load relative to capacity.
// A capacity of zero means unlimited.
func pickTechnician(workloads []domain.TechnicianWorkload) *domain.User {
	eligible := make([]domain.TechnicianWorkload, 0, len(workloads))
	for _, w := range workloads {
		if !w.User.Active() {
			continue
		}
		if w.User.WorkloadCapacity > 0 && w.OpenTickets >= w.User.WorkloadCapacity {
			continue
		}
		eligible = append(eligible, w)
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].OpenTickets != eligible[j].OpenTickets {
			return eligible[i].OpenTickets < eligible[j].OpenTickets
		}
		return eligible[i].User.Name < eligible[j].User.Name
	})
	chosen := eligible[0].User
	return &chosen
}

func (s *AssignmentService) assign(ctx context.Context, actor *domain.User, ticket *domain.Ticket, assignee *domain.User) (*domain.Ticket, error) {
	switch {
	case ticket.Status == domain.TicketStatusPendingApproval:
		return nil, apperrors.NewConflict("ticket awaits business approval", map[string]any{"status": ticket.Status})
	case ticket.Status.Terminal() || ticket.Status == domain.TicketStatusResolved:
		return nil, apperrors.NewConflict("ticket can no longer be assigned", map[string]any{"status": ticket.Status})
	}
	if sameID(ticket.AssignedToID, assignee.ID) {
		return ticket, nil
	}

	oldAssignee := ticket.AssignedToID
	oldStatus := ticket.Status
	ticket.AssignedToID = strPtr(assignee.ID)
	if ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusApproved {
		ticket.Status = domain.TicketStatusAssigned
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}

	recordHistory(ctx, s.historyRepo, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue:    map[string]any{"assigned_to_id": oldAssignee},
		NewValue:    map[string]any{"assigned_to_id": ticket.AssignedToID},
	})
	publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketAssigned, ticket.ID, actorOf(actor), events.TicketAssignedPayload{
		TicketNumber:       ticket.TicketNumber,
		AssigneeID:         assignee.ID,
		PreviousAssigneeID: oldAssignee,
	}))
	if oldStatus != ticket.Status {
		recordHistory(ctx, s.historyRepo, s.logger, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actorID(actor),
			ChangeType:  domain.ChangeTypeStatus,
			OldValue:    map[string]any{"status": oldStatus},
			NewValue:    map[string]any{"status": ticket.Status},
		})
		publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actorOf(actor), events.TicketStatusChangedPayload{
			TicketNumber: ticket.TicketNumber,
			RequesterID:  ticket.RequesterID,
			OldStatus:    oldStatus,
			NewStatus:    ticket.Status,
		}))
	}
	return ticket, nil
}

func (s *AssignmentService) loadTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func requireAssignPriv(user *domain.User) error {
	if err := requireActor(user); err != nil {
		return err
	}
	if user.Role != domain.RoleManager && user.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("insufficient role for assignment")
	}
	return nil
}
