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

const defaultEscalationBatch = 500

// EscalationService flags tickets whose SLA due date has passed.
type EscalationService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	batchSize  int
	now        func() time.Time
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	BatchSize   int
}

// EscalationResult summarizes one pass.
type EscalationResult struct {
	Scanned   int `json:"scanned"`
	Escalated int `json:"escalated"`
	Failed    int `json:"failed"`
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultEscalationBatch
	}
	return &EscalationService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		batchSize:  batch,
		now:        nowUTC,
	}
}

// RunOnce escalates every overdue ticket found in one batch. Each ticket is escalated at most once; a
// ticket that fails is retried on the next pass.
func (s *EscalationService) RunOnce(ctx context.Context) (EscalationResult, error) {
	var result EscalationResult
	now := s.now()
	overdue, err := s.tickets.ListSLABreached(ctx, now, s.batchSize)
	if err != nil {
		return result, apperrors.MapError(err)
	}
	result.Scanned = len(overdue)

	for i := range overdue {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ticket := &overdue[i]
		marked, err := s.tickets.MarkEscalated(ctx, ticket.ID, now)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to escalate ticket", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if !marked {
			continue
		}
		ticket.IsEscalated = true
		ticket.EscalatedAt = &now
		result.Escalated++

		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangeType: domain.ChangeTypeEscalation,
			OldValue:   map[string]any{"is_escalated": false},
			NewValue: map[string]any{
				"is_escalated": true,
				"sla_due_date": ticket.SLADueDate,
				"escalated_at": now,
			},
		})
		publish(ctx, s.dispatcher, events.NewEvent(events.EventTicketEscalated, ticket.ID, events.SystemActor, events.TicketEscalatedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			Status:       ticket.Status,
			SLADueDate:   ticket.SLADueDate,
			DepartmentID: ticket.DepartmentID,
			AssigneeID:   ticket.AssignedToID,
		}))
		s.logger.Info("ticket escalated",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.TicketNumber),
			zap.Time("sla_due_date", ticket.SLADueDate))
	}
	return result, nil
}
