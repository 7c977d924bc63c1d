package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/mail"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher  events.Dispatcher
	users       repository.UserRepository
	mailer      mail.Mailer
	logger      *zap.Logger
	frontendURL string
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	UserRepo    repository.UserRepository
	Mailer      mail.Mailer
	Logger      *zap.Logger
	FrontendURL string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		users:       deps.UserRepo,
		mailer:      deps.Mailer,
		logger:      logger,
		frontendURL: strings.TrimRight(deps.FrontendURL, "/"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketPriorityChanged, n.handleTicketPriorityChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	n.dispatcher.Subscribe(events.EventApprovalRequested, n.handleApprovalRequested)
	n.dispatcher.Subscribe(events.EventApprovalDecided, n.handleApprovalDecided)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	return n.notify(ctx, event, []string{payload.RequesterID},
		fmt.Sprintf("[%s] Ticket received: %s", payload.TicketNumber, payload.Title),
		fmt.Sprintf("Your ticket %s has been received with status %s.\nTarget resolution: %s.",
			payload.TicketNumber, payload.Status, payload.SLADueDate.Format("02 Jan 2006 15:04 MST")))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Ticket %s moved from %s to %s.", payload.TicketNumber, payload.OldStatus, payload.NewStatus)
	if payload.Comment != "" {
		body += "\n\n" + payload.Comment
	}
	return n.notify(ctx, event, []string{payload.RequesterID},
		fmt.Sprintf("[%s] Status changed to %s", payload.TicketNumber, payload.NewStatus), body)
}

func (n *NotificationService) handleTicketPriorityChanged(_ context.Context, event events.Event) error {
	n.logger.Info("TicketPriorityChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	return n.notify(ctx, event, []string{payload.AssigneeID},
		fmt.Sprintf("[%s] Ticket assigned to you", payload.TicketNumber),
		fmt.Sprintf("Ticket %s has been assigned to you.", payload.TicketNumber))
}

func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCommentAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	var recipients []string
	if !payload.IsInternal {
		recipients = append(recipients, payload.RequesterID)
	}
	if payload.AssigneeID != nil {
		recipients = append(recipients, *payload.AssigneeID)
	}
	return n.notify(ctx, event, recipients,
		fmt.Sprintf("[%s] New comment", payload.TicketNumber),
		payload.BodyPreview)
}

func (n *NotificationService) handleApprovalRequested(ctx context.Context, event events.Event) error {
	n.logger.Info("ApprovalRequested", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.ApprovalRequestedPayload)
	if !ok {
		return nil
	}
	return n.notify(ctx, event, []string{payload.ReviewerID},
		fmt.Sprintf("[%s] Approval needed: %s", payload.TicketNumber, payload.Title),
		fmt.Sprintf("Ticket %s is waiting for your business approval.", payload.TicketNumber))
}

func (n *NotificationService) handleApprovalDecided(ctx context.Context, event events.Event) error {
	n.logger.Info("ApprovalDecided", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.ApprovalDecidedPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Your request %s was %s by a reviewer. Ticket status: %s.", payload.TicketNumber, payload.Decision, payload.TicketStatus)
	if payload.Comment != "" {
		body += "\n\n" + payload.Comment
	}
	return n.notify(ctx, event, []string{payload.RequesterID},
		fmt.Sprintf("[%s] Request %s", payload.TicketNumber, payload.Decision), body)
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.logger.Warn("TicketEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	var recipients []string
	if payload.DepartmentID != nil && n.users != nil {
		managers, err := n.users.ListByDepartmentRole(ctx, *payload.DepartmentID, domain.RoleManager)
		if err != nil {
			return err
		}
		for _, m := range managers {
			recipients = append(recipients, m.ID)
		}
	}
	if payload.AssigneeID != nil {
		recipients = append(recipients, *payload.AssigneeID)
	}
	return n.notify(ctx, event, recipients,
		fmt.Sprintf("[%s] SLA breached: %s", payload.TicketNumber, payload.Title),
		fmt.Sprintf("Ticket %s (%s priority, status %s) passed its SLA due date of %s and has been escalated.",
			payload.TicketNumber, payload.Priority, payload.Status, payload.SLADueDate.Format("02 Jan 2006 15:04 MST")))
}

// notify emails every distinct active recipient except the user who caused the event.
func (n *NotificationService) notify(ctx context.Context, event events.Event, userIDs []string, subject, body string) error {
	if n.mailer == nil || n.users == nil {
		return nil
	}
	seen := map[string]bool{}
	if event.Actor.UserID != nil {
		seen[*event.Actor.UserID] = true
	}
	var to []string
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		user, err := n.users.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return err
		}
		if user.Active() && user.Email != "" {
			to = append(to, user.Email)
		}
	}
	if len(to) == 0 {
		return nil
	}
	if n.frontendURL != "" {
		body += "\n\n" + n.frontendURL + "/tickets/" + event.TicketID
	}
	n.logger.Debug("sending notification email",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.Int("recipients", len(to)))
	return n.mailer.Send(ctx, mail.Message{To: to, Subject: subject, PlainBody: body})
}
