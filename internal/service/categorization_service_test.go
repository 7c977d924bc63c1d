package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
)

func TestCategorize(t *testing.T) {
	tickets := newFakeTickets()
	tickets.put(domain.Ticket{ID: "t-1", RequesterID: "req", DepartmentID: strPtr("ops"), Status: domain.TicketStatusResolved})
	history := &fakeHistory{}
	dispatcher := &recordingDispatcher{}
	svc := NewCategorizationService(tickets, history, dispatcher, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	mgr := user("mgr", domain.RoleManager, "ops")

	rc := domain.RootCauseSystemError
	ic := domain.IssueCategoryProblem
	ticket, err := svc.Categorize(ctx, mgr, "t-1", CategorizationInput{RootCause: &rc, IssueCategory: &ic})
	require.NoError(t, err)
	assert.Equal(t, rc, *ticket.RootCause)
	assert.Equal(t, ic, *ticket.IssueCategory)
	assert.Equal(t, "mgr", *ticket.CategorizedByID)
	assert.Equal(t, []domain.TicketChangeType{domain.ChangeTypeCategorization}, history.types())
	assert.Equal(t, []events.EventType{events.EventTicketCategorized}, dispatcher.types())
	payload, ok := dispatcher.events[0].Payload.(events.TicketCategorizedPayload)
	require.True(t, ok)
	assert.Equal(t, rc, *payload.RootCause)

	bad := domain.RootCause("gremlins")
	tests := []struct {
		name  string
		actor *domain.User
		id    string
		input CategorizationInput
		code  string
	}{
		{"requester", user("req", domain.RoleRequester, "ops"), "t-1", CategorizationInput{RootCause: &rc}, "FORBIDDEN"},
		{"empty input", mgr, "t-1", CategorizationInput{}, "VALIDATION_FAILED"},
		{"unknown root cause", mgr, "t-1", CategorizationInput{RootCause: &bad}, "VALIDATION_FAILED"},
		{"other department", user("mgr-2", domain.RoleManager, "hr"), "t-1", CategorizationInput{RootCause: &rc}, "NOT_FOUND"},
		{"missing ticket", mgr, "t-9", CategorizationInput{RootCause: &rc}, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Categorize(ctx, tt.actor, tt.id, tt.input)
			requireCode(t, err, tt.code)
		})
	}
	assert.Len(t, dispatcher.events, 1, "rejected calls publish nothing")
}

func TestScopedDepartment(t *testing.T) {
	dept, err := scopedDepartment(user("admin", domain.RoleAdmin, ""), strPtr(" hr "))
	require.NoError(t, err)
	assert.Equal(t, "hr", *dept)

	dept, err = scopedDepartment(user("admin", domain.RoleAdmin, ""), nil)
	require.NoError(t, err)
	assert.Nil(t, dept)

	dept, err = scopedDepartment(user("mgr", domain.RoleManager, "ops"), strPtr("hr"))
	require.NoError(t, err)
	assert.Equal(t, "ops", *dept)

	_, err = scopedDepartment(user("mgr", domain.RoleManager, ""), nil)
	requireCode(t, err, "FORBIDDEN")
	_, err = scopedDepartment(user("req", domain.RoleRequester, "ops"), nil)
	requireCode(t, err, "FORBIDDEN")
	_, err = scopedDepartment(nil, nil)
	requireCode(t, err, "UNAUTHORIZED")
}

func TestAnalytics_RejectsInvertedRange(t *testing.T) {
	svc := NewCategorizationService(newFakeTickets(), &fakeHistory{}, nil, nil)
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err := svc.Analytics(context.Background(), user("admin", domain.RoleAdmin, ""), AnalyticsRange{From: &from, To: &to})
	requireCode(t, err, "VALIDATION_FAILED")
}
