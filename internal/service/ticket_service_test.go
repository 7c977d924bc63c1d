package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

type fakeCatalog struct {
	repository.CatalogRepository
	items     map[string]*domain.ServiceItem
	templates map[string]*domain.ServiceTemplate
}

func (f *fakeCatalog) GetItem(ctx context.Context, id string) (*domain.ServiceItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (f *fakeCatalog) GetTemplate(ctx context.Context, id string) (*domain.ServiceTemplate, error) {
	tmpl, ok := f.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tmpl
	return &cp, nil
}

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTickets
	history    *fakeHistory
	comments   *fakeComments
	approvals  *fakeApprovals
	users      *fakeUsers
	catalog    *fakeCatalog
	dispatcher *recordingDispatcher
	now        time.Time

	requester  *domain.User
	manager    *domain.User
	technician *domain.User
	admin      *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		tickets:    newFakeTickets(),
		history:    &fakeHistory{},
		comments:   &fakeComments{},
		approvals:  &fakeApprovals{},
		dispatcher: &recordingDispatcher{},
		now:        time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		requester:  user("req", domain.RoleRequester, "ops"),
		manager:    user("mgr", domain.RoleManager, "ops"),
		technician: user("tech", domain.RoleTechnician, "ops"),
		admin:      user("admin", domain.RoleAdmin, ""),
	}
	f.users = newFakeUsers(f.requester, f.manager, f.technician, f.admin)
	f.tickets.approvals = f.approvals
	slaHours := 8
	f.catalog = &fakeCatalog{
		items: map[string]*domain.ServiceItem{
			"item-approval": {ID: "item-approval", Name: "New OLIBS user", RequiresApproval: true, SLAHours: &slaHours,
				DefaultPriority: domain.TicketPriorityHigh, IsActive: true},
			"item-plain": {ID: "item-plain", Name: "Printer", IsActive: true},
		},
		templates: map[string]*domain.ServiceTemplate{
			"tmpl-printer": {ID: "tmpl-printer", ServiceItemID: "item-plain", IsActive: true, Fields: []forms.Field{
				{Name: "location", Label: "Location", Type: forms.FieldText, Required: true},
			}},
		},
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		CommentRepo:    f.comments,
		AttachmentRepo: &fakeAttachments{},
		HistoryRepo:    f.history,
		ApprovalRepo:   f.approvals,
		UserRepo:       f.users,
		CatalogRepo:    f.catalog,
		Dispatcher:     f.dispatcher,
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *ticketFixture) seed(status domain.TicketStatus, assignee *string) *domain.Ticket {
	return f.tickets.put(domain.Ticket{
		ID:           "t-1",
		TicketNumber: "BSG-20240304-ABC123",
		Title:        "Cannot log in",
		RequesterID:  f.requester.ID,
		DepartmentID: strPtr("ops"),
		AssignedToID: assignee,
		Status:       status,
		Priority:     domain.TicketPriorityMedium,
		CreatedAt:    f.now.Add(-time.Hour),
		SLADueDate:   f.now.Add(71 * time.Hour),
	})
}

func TestCreateTicket_Defaults(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:       "  Cannot log in  ",
		Description: "OLIBS rejects my password",
	})
	require.NoError(t, err)

	assert.Equal(t, "Cannot log in", ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, f.now.Add(72*time.Hour), ticket.SLADueDate)
	require.NotNil(t, ticket.DepartmentID)
	assert.Equal(t, "ops", *ticket.DepartmentID)
	assert.True(t, strings.HasPrefix(ticket.TicketNumber, "BSG-20240304-"))
	assert.Len(t, ticket.TicketNumber, len("BSG-20240304-")+6)

	assert.Equal(t, []domain.TicketChangeType{domain.ChangeTypeCreated}, f.history.types())
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.dispatcher.types())
}

func TestCreateTicket_RequiresTitle(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{Title: "   "})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestCreateTicket_RequiresActor(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), nil, TicketCreateInput{Title: "x"})
	requireCode(t, err, "UNAUTHORIZED")
}

func TestCreateTicket_ServiceItemWithApproval(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:         "Create OLIBS user",
		ServiceItemID: strPtr("item-approval"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, f.now.Add(8*time.Hour), ticket.SLADueDate)

	require.Len(t, f.approvals.items, 1)
	assert.Equal(t, f.manager.ID, f.approvals.items[0].ReviewerID)
	assert.Equal(t, ticket.ID, f.approvals.items[0].TicketID)
	assert.Equal(t, domain.ApprovalPending, f.approvals.items[0].Status)
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventApprovalRequested}, f.dispatcher.types())

	payload, ok := f.dispatcher.events[1].Payload.(events.ApprovalRequestedPayload)
	require.True(t, ok)
	assert.Equal(t, f.approvals.items[0].ID, payload.ApprovalID)
}

func TestCreateTicket_ApprovalInsertFailureKeepsNothing(t *testing.T) {
	f := newTicketFixture(t)
	f.tickets.approvalErr = errors.New("db down")

	_, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:         "Create OLIBS user",
		ServiceItemID: strPtr("item-approval"),
	})
	requireCode(t, err, "INTERNAL_ERROR")

	assert.Empty(t, f.tickets.byID)
	assert.Empty(t, f.approvals.items)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.dispatcher.events)
}

func TestCreateTicket_ApprovalFallsBackToAdmins(t *testing.T) {
	f := newTicketFixture(t)
	f.manager.Status = domain.UserStatusSuspended

	_, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:         "Create OLIBS user",
		ServiceItemID: strPtr("item-approval"),
	})
	require.NoError(t, err)
	require.Len(t, f.approvals.items, 1)
	assert.Equal(t, f.admin.ID, f.approvals.items[0].ReviewerID)
}

func TestCreateTicket_TemplateFieldsValidated(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:             "Printer jam",
		ServiceTemplateID: strPtr("tmpl-printer"),
	})
	requireCode(t, err, "VALIDATION_FAILED")

	ticket, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:             "Printer jam",
		ServiceTemplateID: strPtr("tmpl-printer"),
		CustomFields:      map[string]any{"location": "Branch Manado"},
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.ServiceItemID)
	assert.Equal(t, "item-plain", *ticket.ServiceItemID)
	assert.Equal(t, "Branch Manado", ticket.CustomFields["location"])
}

func TestCreateTicket_RejectsBothTemplateKinds(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:             "x",
		ServiceTemplateID: strPtr("tmpl-printer"),
		BSGTemplateID:     strPtr("bsg-1"),
	})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestGetTicket_HiddenFromOtherRequesters(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusOpen, nil)

	other := user("other", domain.RoleRequester, "ops")
	_, err := f.svc.GetTicket(context.Background(), other, "t-1")
	requireCode(t, err, "NOT_FOUND")

	detail, err := f.svc.GetTicket(context.Background(), f.manager, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", detail.Ticket.ID)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.TicketStatus
		assignee *string
		actor    func(f *ticketFixture) *domain.User
		next     domain.TicketStatus
		code     string
	}{
		{
			name:   "requester cancels before work starts",
			status: domain.TicketStatusOpen,
			actor:  func(f *ticketFixture) *domain.User { return f.requester },
			next:   domain.TicketStatusCancelled,
		},
		{
			name:     "requester cannot resolve",
			status:   domain.TicketStatusInProgress,
			assignee: strPtr("tech"),
			actor:    func(f *ticketFixture) *domain.User { return f.requester },
			next:     domain.TicketStatusResolved,
			code:     "FORBIDDEN",
		},
		{
			name:   "skipping states is rejected",
			status: domain.TicketStatusOpen,
			actor:  func(f *ticketFixture) *domain.User { return f.admin },
			next:   domain.TicketStatusResolved,
			code:   "CONFLICT",
		},
		{
			name:     "assignee resolves",
			status:   domain.TicketStatusInProgress,
			assignee: strPtr("tech"),
			actor:    func(f *ticketFixture) *domain.User { return f.technician },
			next:     domain.TicketStatusResolved,
		},
		{
			name:   "assignment goes through its own endpoint",
			status: domain.TicketStatusOpen,
			actor:  func(f *ticketFixture) *domain.User { return f.admin },
			next:   domain.TicketStatusAssigned,
			code:   "VALIDATION_FAILED",
		},
		{
			name:   "terminal tickets stay closed",
			status: domain.TicketStatusClosed,
			actor:  func(f *ticketFixture) *domain.User { return f.admin },
			next:   domain.TicketStatusInProgress,
			code:   "CONFLICT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTicketFixture(t)
			f.seed(tt.status, tt.assignee)

			ticket, err := f.svc.UpdateStatus(context.Background(), tt.actor(f), "t-1", tt.next, "")
			if tt.code != "" {
				requireCode(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, ticket.Status)
			assert.Contains(t, f.dispatcher.types(), events.EventTicketStatusChanged)
		})
	}
}

func TestUpdateStatus_ResolveAndReopen(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusInProgress, strPtr("tech"))

	ticket, err := f.svc.UpdateStatus(context.Background(), f.technician, "t-1", domain.TicketStatusResolved, "replaced cable")
	require.NoError(t, err)
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, f.now, *ticket.ResolvedAt)

	ticket, err = f.svc.UpdateStatus(context.Background(), f.requester, "t-1", domain.TicketStatusInProgress, "still broken")
	require.NoError(t, err)
	assert.Nil(t, ticket.ResolvedAt)

	entries, err := f.svc.ListHistory(context.Background(), f.requester, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "replaced cable", entries[0].NewValue["comment"])
}

func TestUpdateTicket_PriorityRecomputesSLA(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusOpen, nil)

	urgent := domain.TicketPriorityUrgent
	ticket, err := f.svc.UpdateTicket(context.Background(), f.manager, "t-1", TicketUpdateInput{Priority: &urgent})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	assert.Equal(t, f.now.Add(3*time.Hour), ticket.SLADueDate)
	assert.Contains(t, f.dispatcher.types(), events.EventTicketPriorityChanged)
}

func TestUpdateTicket_RequesterLockedOutAfterAssignment(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusAssigned, strPtr("tech"))

	title := "new title"
	_, err := f.svc.UpdateTicket(context.Background(), f.requester, "t-1", TicketUpdateInput{Title: &title})
	requireCode(t, err, "CONFLICT")
}

func TestComments_InternalVisibility(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusInProgress, strPtr("tech"))
	ctx := context.Background()

	_, err := f.svc.AddComment(ctx, f.requester, "t-1", "note to self", true, nil)
	requireCode(t, err, "FORBIDDEN")

	_, err = f.svc.AddComment(ctx, f.technician, "t-1", "checked the switch", true, nil)
	require.NoError(t, err)
	public, err := f.svc.AddComment(ctx, f.technician, "t-1", "please restart", false, []CommentAttachmentInput{
		{StorageKey: "tickets/t-1/log.txt", FileName: "log.txt", MimeType: "text/plain", SizeBytes: 120},
	})
	require.NoError(t, err)
	require.Len(t, public.Attachments, 1)

	requesterView, err := f.svc.ListComments(ctx, f.requester, "t-1")
	require.NoError(t, err)
	require.Len(t, requesterView, 1)
	assert.Equal(t, "please restart", requesterView[0].Body)
	assert.Len(t, requesterView[0].Attachments, 1)

	staffView, err := f.svc.ListComments(ctx, f.manager, "t-1")
	require.NoError(t, err)
	assert.Len(t, staffView, 2)

	assert.Equal(t, []domain.TicketChangeType{domain.ChangeTypeComment, domain.ChangeTypeComment}, f.history.types())
	assert.Equal(t, true, f.history.entries[0].NewValue["is_internal"])
	assert.Equal(t, 1, f.history.entries[1].NewValue["attachments"])
	assert.Equal(t, []events.EventType{events.EventTicketCommentAdded, events.EventTicketCommentAdded}, f.dispatcher.types())

	requesterHistory, err := f.svc.ListHistory(ctx, f.requester, "t-1")
	require.NoError(t, err)
	assert.Empty(t, requesterHistory, "comment entries stay staff-only")
}

func TestAddComment_PreviewKeepsUTF8(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusInProgress, strPtr("tech"))

	body := strings.Repeat("é", 100) + strings.Repeat("日", 100)
	_, err := f.svc.AddComment(context.Background(), f.technician, "t-1", body, false, nil)
	require.NoError(t, err)

	payload, ok := f.dispatcher.events[0].Payload.(events.TicketCommentAddedPayload)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(payload.BodyPreview))
	assert.Equal(t, 140, utf8.RuneCountInString(payload.BodyPreview))
	assert.True(t, strings.HasSuffix(payload.BodyPreview, "..."))
}

func TestStringPreview(t *testing.T) {
	tests := []struct {
		body string
		max  int
		want string
	}{
		{"  short  ", 140, "short"},
		{"abcdef", 5, "ab..."},
		{"ééééé", 5, "ééééé"},
		{"éééééé", 5, "éé..."},
		{"日本語テキスト", 2, "日本"},
	}
	for _, tt := range tests {
		got := stringPreview(tt.body, tt.max)
		assert.Equal(t, tt.want, got, tt.body)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestDeleteTicket_AdminOnly(t *testing.T) {
	f := newTicketFixture(t)
	f.seed(domain.TicketStatusOpen, nil)

	requireCode(t, f.svc.DeleteTicket(context.Background(), f.manager, "t-1"), "FORBIDDEN")
	assert.Empty(t, f.history.entries)

	require.NoError(t, f.svc.DeleteTicket(context.Background(), f.admin, "t-1"))
	assert.Equal(t, []domain.TicketChangeType{domain.ChangeTypeDeleted}, f.history.types())
	assert.Equal(t, "admin", *f.history.entries[0].ChangedByID)
	assert.Equal(t, []events.EventType{events.EventTicketDeleted}, f.dispatcher.types())
	payload, ok := f.dispatcher.events[0].Payload.(events.TicketDeletedPayload)
	require.True(t, ok)
	assert.Equal(t, "BSG-20240304-ABC123", payload.TicketNumber)

	requireCode(t, f.svc.DeleteTicket(context.Background(), f.admin, "t-1"), "NOT_FOUND")
	assert.Len(t, f.history.entries, 1)
}

func TestCanAccessTicket(t *testing.T) {
	ticket := &domain.Ticket{RequesterID: "req", DepartmentID: strPtr("ops")}
	assigned := &domain.Ticket{RequesterID: "req", DepartmentID: strPtr("ops"), AssignedToID: strPtr("tech-2")}

	assert.True(t, canAccessTicket(user("req", domain.RoleRequester, "ops"), ticket))
	assert.False(t, canAccessTicket(user("other", domain.RoleRequester, "ops"), ticket))
	assert.True(t, canAccessTicket(user("mgr", domain.RoleManager, "ops"), ticket))
	assert.False(t, canAccessTicket(user("mgr", domain.RoleManager, "hr"), ticket))
	assert.True(t, canAccessTicket(user("tech", domain.RoleTechnician, "ops"), ticket))
	assert.False(t, canAccessTicket(user("tech", domain.RoleTechnician, "ops"), assigned))
	assert.True(t, canAccessTicket(user("tech-2", domain.RoleTechnician, "hr"), assigned))
	assert.True(t, canAccessTicket(user("admin", domain.RoleAdmin, ""), assigned))
}
