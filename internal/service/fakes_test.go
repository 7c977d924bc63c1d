package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// The fakes embed the repository interfaces so that only the methods a test exercises need bodies.

type fakeTickets struct {
	repository.TicketRepository
	mu       sync.Mutex
	byID     map[string]*domain.Ticket
	seq      int
	breached []domain.Ticket
	markErr  error

	// approvals receives the rows of CreateWithApprovals; approvalErr aborts it before anything is kept.
	approvals   *fakeApprovals
	approvalErr error
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{byID: map[string]*domain.Ticket{}}
}

func (f *fakeTickets) put(t domain.Ticket) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := t
	f.byID[t.ID] = &cp
	return &cp
}

func (f *fakeTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ticket.ID = "ticket-" + strconv.Itoa(f.seq)
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	f.byID[ticket.ID] = &cp
	return nil
}

func (f *fakeTickets) CreateWithApprovals(ctx context.Context, ticket *domain.Ticket, approvals []*domain.BusinessApproval) error {
	if f.approvalErr != nil {
		return f.approvalErr
	}
	if err := f.Create(ctx, ticket); err != nil {
		return err
	}
	for i, approval := range approvals {
		approval.TicketID = ticket.ID
		if f.approvals == nil {
			approval.ID = "approval-" + strconv.Itoa(i+1)
			continue
		}
		if err := f.approvals.Create(ctx, approval); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *ticket
	f.byID[ticket.ID] = &cp
	return nil
}

func (f *fakeTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) SoftDelete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeTickets) ListSLABreached(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	return f.breached, nil
}

func (f *fakeTickets) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok || t.IsEscalated {
		return false, nil
	}
	t.IsEscalated = true
	t.EscalatedAt = &at
	return true, nil
}

type fakeHistory struct {
	repository.TicketHistoryRepository
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (f *fakeHistory) Create(ctx context.Context, entry *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = "history-" + strconv.Itoa(len(f.entries)+1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistory) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketHistory
	for _, e := range f.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistory) types() []domain.TicketChangeType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TicketChangeType, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.ChangeType)
	}
	return out
}

type fakeComments struct {
	repository.TicketCommentRepository
	comments []domain.TicketComment
}

func (f *fakeComments) Create(ctx context.Context, comment *domain.TicketComment) error {
	comment.ID = "comment-" + strconv.Itoa(len(f.comments)+1)
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeComments) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	var out []domain.TicketComment
	for _, c := range f.comments {
		if c.TicketID == ticketID && (includeInternal || !c.IsInternal) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAttachments struct {
	repository.AttachmentRepository
	byComment map[string][]domain.AttachmentReference
}

func (f *fakeAttachments) Create(ctx context.Context, ref *domain.AttachmentReference) error {
	if f.byComment == nil {
		f.byComment = map[string][]domain.AttachmentReference{}
	}
	ref.ID = "att-" + strconv.Itoa(len(f.byComment)+1)
	f.byComment[ref.CommentID] = append(f.byComment[ref.CommentID], *ref)
	return nil
}

func (f *fakeAttachments) ListByComments(ctx context.Context, ids []string) (map[string][]domain.AttachmentReference, error) {
	out := map[string][]domain.AttachmentReference{}
	for _, id := range ids {
		if refs, ok := f.byComment[id]; ok {
			out[id] = refs
		}
	}
	return out, nil
}

type fakeApprovals struct {
	repository.ApprovalRepository
	items []*domain.BusinessApproval
}

func (f *fakeApprovals) Create(ctx context.Context, approval *domain.BusinessApproval) error {
	approval.ID = "approval-" + strconv.Itoa(len(f.items)+1)
	cp := *approval
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeApprovals) GetByTicketAndReviewer(ctx context.Context, ticketID, reviewerID string) (*domain.BusinessApproval, error) {
	for _, a := range f.items {
		if a.TicketID == ticketID && a.ReviewerID == reviewerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeApprovals) Decide(ctx context.Context, approval *domain.BusinessApproval) error {
	for _, a := range f.items {
		if a.ID == approval.ID {
			if a.Status != domain.ApprovalPending {
				return pgx.ErrNoRows
			}
			now := time.Now().UTC()
			a.Status = approval.Status
			a.Comment = approval.Comment
			a.DecidedAt = &now
			approval.DecidedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeApprovals) ListByTicket(ctx context.Context, ticketID string) ([]domain.BusinessApproval, error) {
	out := []domain.BusinessApproval{}
	for _, a := range f.items {
		if a.TicketID == ticketID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeUsers struct {
	repository.UserRepository
	byID      map[string]*domain.User
	workloads []domain.TechnicianWorkload
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, user *domain.User) error {
	user.ID = "user-" + strconv.Itoa(len(f.byID)+1)
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(ctx context.Context, user *domain.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.DepartmentID != nil && !sameID(u.DepartmentID, *filter.DepartmentID) {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) ListByDepartmentRole(ctx context.Context, departmentID string, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byID {
		if u.Role == role && u.Active() && sameID(u.DepartmentID, departmentID) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) TechnicianWorkloads(ctx context.Context, departmentID *string) ([]domain.TechnicianWorkload, error) {
	return f.workloads, nil
}

type fakeDepartments struct {
	repository.DepartmentRepository
	depts map[string]*domain.Department
	units map[string]*domain.Unit
}

func (f *fakeDepartments) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	d, ok := f.depts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDepartments) GetUnit(ctx context.Context, id string) (*domain.Unit, error) {
	u, ok := f.units[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	handlers := d.handlers[event.Type]
	d.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = map[events.EventType][]events.EventHandler{}
	}
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func user(id string, role domain.Role, dept string) *domain.User {
	u := &domain.User{
		ID:       id,
		Name:     id,
		Username: id,
		Email:    id + "@bsg.co.id",
		Role:     role,
		Status:   domain.UserStatusActive,
	}
	if dept != "" {
		u.DepartmentID = strPtr(dept)
	}
	return u
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	derr := apperrors.ToDomainError(err)
	require.Equal(t, code, derr.Code, derr.Message)
}
