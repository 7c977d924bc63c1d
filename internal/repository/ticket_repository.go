package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// TicketVisibility restricts listings to what a caller may see.
type TicketVisibility struct {
	Role         domain.Role
	UserID       string
	DepartmentID *string
}

// TicketFilter captures search parameters.
type TicketFilter struct {
	Visibility   *TicketVisibility
	RequesterID  *string
	DepartmentID *string
	AssigneeID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Escalated    *bool
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// AnalyticsFilter bounds categorization reports.
type AnalyticsFilter struct {
	DepartmentID *string
	From         *time.Time
	To           *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	CreateWithApprovals(ctx context.Context, ticket *domain.Ticket, approvals []*domain.BusinessApproval) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	SoftDelete(ctx context.Context, id string) error
	ListSLABreached(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)
	ListUncategorized(ctx context.Context, departmentID *string, limit, offset int) ([]domain.Ticket, int, error)
	CategorizationAnalytics(ctx context.Context, filter AnalyticsFilter) (*domain.CategorizationAnalytics, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, title, description, requester_id, department_id, unit_id, assigned_to_id,
               status, priority, service_item_id, service_template_id, bsg_template_id, custom_fields, asset_id,
               sla_due_date, is_escalated, escalated_at, root_cause, issue_category, categorized_by_id, categorized_at,
               created_at, updated_at, resolved_at, closed_at, deleted_at`

// nonTerminalStatuses are the states in which an SLA still runs.
var nonTerminalStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusPendingApproval,
	domain.TicketStatusApproved,
	domain.TicketStatusAssigned,
	domain.TicketStatusInProgress,
	domain.TicketStatusPending,
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket       domain.Ticket
		customFields []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.RequesterID,
		&ticket.DepartmentID,
		&ticket.UnitID,
		&ticket.AssignedToID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.ServiceItemID,
		&ticket.ServiceTemplateID,
		&ticket.BSGTemplateID,
		&customFields,
		&ticket.AssetID,
		&ticket.SLADueDate,
		&ticket.IsEscalated,
		&ticket.EscalatedAt,
		&ticket.RootCause,
		&ticket.IssueCategory,
		&ticket.CategorizedByID,
		&ticket.CategorizedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	if err := jsonScan(customFields, &ticket.CustomFields); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func customFieldsParam(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	return jsonParam(fields)
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return insertTicket(ctx, r.pool, ticket)
}

// CreateWithApprovals inserts the ticket and its approval requests in one transaction. Each approval gets
// the new ticket's id.
func (r *ticketRepository) CreateWithApprovals(ctx context.Context, ticket *domain.Ticket, approvals []*domain.BusinessApproval) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertTicket(ctx, tx, ticket); err != nil {
		return err
	}
	for _, approval := range approvals {
		approval.TicketID = ticket.ID
		if err := insertApproval(ctx, tx, approval); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func insertTicket(ctx context.Context, q querier, ticket *domain.Ticket) error {
	customFields, err := customFieldsParam(ticket.CustomFields)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (ticket_number, title, description, requester_id, department_id, unit_id, assigned_to_id,
            status, priority, service_item_id, service_template_id, bsg_template_id, custom_fields, asset_id, sla_due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.RequesterID,
		ticket.DepartmentID,
		ticket.UnitID,
		ticket.AssignedToID,
		ticket.Status,
		ticket.Priority,
		ticket.ServiceItemID,
		ticket.ServiceTemplateID,
		ticket.BSGTemplateID,
		customFields,
		ticket.AssetID,
		ticket.SLADueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	customFields, err := customFieldsParam(ticket.CustomFields)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET title=$1, description=$2, department_id=$3, unit_id=$4, assigned_to_id=$5, status=$6,
            priority=$7, custom_fields=$8, asset_id=$9, sla_due_date=$10, root_cause=$11, issue_category=$12,
            categorized_by_id=$13, categorized_at=$14, resolved_at=$15, closed_at=$16, updated_at=NOW()
        WHERE id=$17 AND deleted_at IS NULL
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.DepartmentID,
		ticket.UnitID,
		ticket.AssignedToID,
		ticket.Status,
		ticket.Priority,
		customFields,
		ticket.AssetID,
		ticket.SLADueDate,
		ticket.RootCause,
		ticket.IssueCategory,
		ticket.CategorizedByID,
		ticket.CategorizedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id=$1 AND deleted_at IS NULL`, id))
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_number=$1 AND deleted_at IS NULL`, number))
}

func applyVisibility(w *whereBuilder, v *TicketVisibility) {
	if v == nil {
		return
	}
	switch v.Role {
	case domain.RoleAdmin:
	case domain.RoleManager:
		if v.DepartmentID != nil {
			w.add("(department_id=%s OR requester_id=%s)", *v.DepartmentID, v.UserID)
		} else {
			w.add("requester_id=%s", v.UserID)
		}
	case domain.RoleTechnician:
		if v.DepartmentID != nil {
			w.add("(assigned_to_id=%s OR requester_id=%s OR (assigned_to_id IS NULL AND department_id=%s))",
				v.UserID, v.UserID, *v.DepartmentID)
		} else {
			w.add("(assigned_to_id=%s OR requester_id=%s)", v.UserID, v.UserID)
		}
	default:
		w.add("requester_id=%s", v.UserID)
	}
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	w := newWhere("deleted_at IS NULL")
	applyVisibility(w, filter.Visibility)
	if filter.RequesterID != nil {
		w.add("requester_id=%s", *filter.RequesterID)
	}
	if filter.DepartmentID != nil {
		w.add("department_id=%s", *filter.DepartmentID)
	}
	if filter.AssigneeID != nil {
		w.add("assigned_to_id=%s", *filter.AssigneeID)
	}
	addIn(w, "status", filter.Statuses)
	addIn(w, "priority", filter.Priorities)
	if filter.Escalated != nil {
		w.add("is_escalated=%s", *filter.Escalated)
	}
	if filter.CreatedFrom != nil {
		w.add("created_at >= %s", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		w.add("created_at <= %s", *filter.CreatedTo)
	}
	w.addSearch(filter.SearchTerm, "title", "description", "ticket_number")

	where := w.sql()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where +
		` ORDER BY created_at DESC` + w.page(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	return tickets, total, err
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "tickets", id)
}

// ListSLABreached returns live tickets past their due date that have not been escalated yet.
func (r *ticketRepository) ListSLABreached(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	w := newWhere("deleted_at IS NULL", "is_escalated = FALSE")
	w.add("sla_due_date < %s", now)
	addIn(w, "status", nonTerminalStatuses)
	if limit <= 0 {
		limit = 200
	}
	w.args = append(w.args, limit)
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + w.sql() +
		` ORDER BY sla_due_date ASC LIMIT $` + strconv.Itoa(len(w.args))
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// MarkEscalated flips the escalation flag once; false means another run already did.
func (r *ticketRepository) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET is_escalated=TRUE, escalated_at=$2, updated_at=NOW()
        WHERE id=$1 AND is_escalated=FALSE AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ListUncategorized(ctx context.Context, departmentID *string, limit, offset int) ([]domain.Ticket, int, error) {
	w := newWhere("deleted_at IS NULL", "(root_cause IS NULL OR issue_category IS NULL)")
	addIn(w, "status", []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed})
	if departmentID != nil {
		w.add("department_id=%s", *departmentID)
	}
	where := w.sql()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where +
		` ORDER BY resolved_at DESC NULLS LAST` + w.page(limit, offset)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	return tickets, total, err
}

func (r *ticketRepository) CategorizationAnalytics(ctx context.Context, filter AnalyticsFilter) (*domain.CategorizationAnalytics, error) {
	w := newWhere("t.deleted_at IS NULL")
	addIn(w, "t.status", []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed})
	if filter.DepartmentID != nil {
		w.add("t.department_id=%s", *filter.DepartmentID)
	}
	if filter.From != nil {
		w.add("t.created_at >= %s", *filter.From)
	}
	if filter.To != nil {
		w.add("t.created_at <= %s", *filter.To)
	}
	where := w.sql()

	result := &domain.CategorizationAnalytics{}
	totals := `SELECT COUNT(*), COUNT(*) FILTER (WHERE t.root_cause IS NOT NULL AND t.issue_category IS NOT NULL)
        FROM tickets t WHERE ` + where
	if err := r.pool.QueryRow(ctx, totals, w.args...).Scan(&result.Total, &result.Categorized); err != nil {
		return nil, err
	}
	result.Uncategorized = result.Total - result.Categorized

	var err error
	result.ByRootCause, err = r.countBy(ctx,
		`SELECT t.root_cause, '', COUNT(*) FROM tickets t WHERE `+where+
			` AND t.root_cause IS NOT NULL GROUP BY t.root_cause ORDER BY COUNT(*) DESC`, w.args)
	if err != nil {
		return nil, err
	}
	result.ByIssueCategory, err = r.countBy(ctx,
		`SELECT t.issue_category, '', COUNT(*) FROM tickets t WHERE `+where+
			` AND t.issue_category IS NOT NULL GROUP BY t.issue_category ORDER BY COUNT(*) DESC`, w.args)
	if err != nil {
		return nil, err
	}
	result.ByServiceItem, err = r.countBy(ctx,
		`SELECT si.id::text, si.name, COUNT(*) FROM tickets t JOIN service_items si ON si.id = t.service_item_id
        WHERE `+where+` GROUP BY si.id, si.name ORDER BY COUNT(*) DESC`, w.args)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ticketRepository) countBy(ctx context.Context, query string, args []any) ([]domain.CategoryCount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Key, &c.Label, &c.Count); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
