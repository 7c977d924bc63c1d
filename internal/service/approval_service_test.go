package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
)

type approvalFixture struct {
	svc        *ApprovalService
	tickets    *fakeTickets
	approvals  *fakeApprovals
	history    *fakeHistory
	dispatcher *recordingDispatcher
	first      *domain.User
	second     *domain.User
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	f := &approvalFixture{
		tickets:    newFakeTickets(),
		approvals:  &fakeApprovals{},
		history:    &fakeHistory{},
		dispatcher: &recordingDispatcher{},
		first:      user("mgr-1", domain.RoleManager, "ops"),
		second:     user("mgr-2", domain.RoleManager, "ops"),
	}
	f.tickets.put(domain.Ticket{
		ID:           "t-1",
		TicketNumber: "BSG-20240304-AAAAAA",
		RequesterID:  "req",
		DepartmentID: strPtr("ops"),
		Status:       domain.TicketStatusPendingApproval,
		Priority:     domain.TicketPriorityMedium,
	})
	ctx := context.Background()
	require.NoError(t, f.approvals.Create(ctx, &domain.BusinessApproval{TicketID: "t-1", ReviewerID: f.first.ID, Status: domain.ApprovalPending}))
	require.NoError(t, f.approvals.Create(ctx, &domain.BusinessApproval{TicketID: "t-1", ReviewerID: f.second.ID, Status: domain.ApprovalPending}))
	f.svc = NewApprovalService(ApprovalDependencies{
		TicketRepo:   f.tickets,
		ApprovalRepo: f.approvals,
		HistoryRepo:  f.history,
		Dispatcher:   f.dispatcher,
	})
	return f
}

func TestDecide_ApprovedOnceAllReviewersApprove(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	outcome, err := f.svc.Decide(ctx, f.first, "t-1", domain.ApprovalApproved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingApproval, outcome.Ticket.Status)
	assert.Equal(t, domain.ApprovalApproved, outcome.Approval.Status)
	assert.NotContains(t, f.dispatcher.types(), events.EventTicketStatusChanged)

	outcome, err = f.svc.Decide(ctx, f.second, "t-1", domain.ApprovalApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusApproved, outcome.Ticket.Status)
	assert.Contains(t, f.dispatcher.types(), events.EventTicketStatusChanged)

	stored, err := f.tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusApproved, stored.Status)
	assert.Equal(t, []domain.TicketChangeType{domain.ChangeTypeApproval, domain.ChangeTypeApproval}, f.history.types())
}

func TestDecide_RejectionNeedsComment(t *testing.T) {
	f := newApprovalFixture(t)
	_, err := f.svc.Decide(context.Background(), f.first, "t-1", domain.ApprovalRejected, "  ")
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestDecide_SingleRejectionRejectsTicket(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	outcome, err := f.svc.Decide(ctx, f.first, "t-1", domain.ApprovalRejected, "not budgeted")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, outcome.Ticket.Status)

	_, err = f.svc.Decide(ctx, f.second, "t-1", domain.ApprovalApproved, "")
	requireCode(t, err, "CONFLICT")
}

func TestDecide_Guards(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, user("tech", domain.RoleTechnician, "ops"), "t-1", domain.ApprovalApproved, "")
	requireCode(t, err, "FORBIDDEN")

	_, err = f.svc.Decide(ctx, user("mgr-3", domain.RoleManager, "ops"), "t-1", domain.ApprovalApproved, "")
	requireCode(t, err, "FORBIDDEN")

	_, err = f.svc.Decide(ctx, f.first, "missing", domain.ApprovalApproved, "")
	requireCode(t, err, "NOT_FOUND")

	_, err = f.svc.Decide(ctx, f.first, "t-1", domain.ApprovalPending, "")
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.Decide(ctx, f.first, "t-1", domain.ApprovalApproved, "")
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.first, "t-1", domain.ApprovalApproved, "")
	requireCode(t, err, "CONFLICT")
}

func TestAllApproved(t *testing.T) {
	assert.False(t, allApproved(nil))
	assert.True(t, allApproved([]domain.BusinessApproval{{Status: domain.ApprovalApproved}}))
	assert.False(t, allApproved([]domain.BusinessApproval{{Status: domain.ApprovalApproved}, {Status: domain.ApprovalPending}}))
}
