package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/mail"
)

type capturingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *capturingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func newNotificationFixture(users *fakeUsers) (*recordingDispatcher, *capturingMailer) {
	dispatcher := &recordingDispatcher{}
	mailer := &capturingMailer{}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:  dispatcher,
		UserRepo:    users,
		Mailer:      mailer,
		FrontendURL: "https://helpdesk.bsg.co.id/",
	})
	svc.RegisterHandlers()
	return dispatcher, mailer
}

func TestNotification_StatusChangeEmailsRequester(t *testing.T) {
	requester := user("req", domain.RoleRequester, "ops")
	tech := user("tech", domain.RoleTechnician, "ops")
	dispatcher, mailer := newNotificationFixture(newFakeUsers(requester, tech))

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketStatusChanged, "t-1", actorOf(tech),
		events.TicketStatusChangedPayload{
			TicketNumber: "BSG-1",
			RequesterID:  "req",
			OldStatus:    domain.TicketStatusInProgress,
			NewStatus:    domain.TicketStatusResolved,
			Comment:      "replaced cable",
		})))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"req@bsg.co.id"}, msg.To)
	assert.Equal(t, "[BSG-1] Status changed to resolved", msg.Subject)
	assert.Contains(t, msg.PlainBody, "replaced cable")
	assert.Contains(t, msg.PlainBody, "https://helpdesk.bsg.co.id/tickets/t-1")
}

func TestNotification_SkipsActorAndSuspendedUsers(t *testing.T) {
	requester := user("req", domain.RoleRequester, "ops")
	tech := user("tech", domain.RoleTechnician, "ops")
	tech.Status = domain.UserStatusSuspended
	dispatcher, mailer := newNotificationFixture(newFakeUsers(requester, tech))

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketCommentAdded, "t-1", actorOf(requester),
		events.TicketCommentAddedPayload{
			TicketNumber: "BSG-1",
			CommentID:    "c-1",
			RequesterID:  "req",
			AssigneeID:   strPtr("tech"),
			BodyPreview:  "any update?",
		})))

	assert.Empty(t, mailer.sent)
}

func TestNotification_InternalCommentsSkipRequester(t *testing.T) {
	requester := user("req", domain.RoleRequester, "ops")
	tech := user("tech", domain.RoleTechnician, "ops")
	mgr := user("mgr", domain.RoleManager, "ops")
	dispatcher, mailer := newNotificationFixture(newFakeUsers(requester, tech, mgr))

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketCommentAdded, "t-1", actorOf(mgr),
		events.TicketCommentAddedPayload{
			TicketNumber: "BSG-1",
			RequesterID:  "req",
			AssigneeID:   strPtr("tech"),
			IsInternal:   true,
			BodyPreview:  "check the firewall",
		})))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"tech@bsg.co.id"}, mailer.sent[0].To)
}

func TestNotification_EscalationReachesManagersAndAssignee(t *testing.T) {
	mgr := user("mgr", domain.RoleManager, "ops")
	tech := user("tech", domain.RoleTechnician, "ops")
	dispatcher, mailer := newNotificationFixture(newFakeUsers(mgr, tech))

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketEscalated, "t-1", events.SystemActor,
		events.TicketEscalatedPayload{
			TicketNumber: "BSG-1",
			Title:        "ATM offline",
			Priority:     domain.TicketPriorityUrgent,
			Status:       domain.TicketStatusInProgress,
			SLADueDate:   time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
			DepartmentID: strPtr("ops"),
			AssigneeID:   strPtr("tech"),
		})))

	require.Len(t, mailer.sent, 1)
	assert.ElementsMatch(t, []string{"mgr@bsg.co.id", "tech@bsg.co.id"}, mailer.sent[0].To)
	assert.Equal(t, "[BSG-1] SLA breached: ATM offline", mailer.sent[0].Subject)
}
