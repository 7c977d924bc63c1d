package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// ApprovalRepository persists business approvals.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *domain.BusinessApproval) error
	GetByTicketAndReviewer(ctx context.Context, ticketID, reviewerID string) (*domain.BusinessApproval, error)
	Decide(ctx context.Context, approval *domain.BusinessApproval) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.BusinessApproval, error)
	ListPendingByReviewer(ctx context.Context, reviewerID string) ([]domain.PendingApproval, error)
}

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository builds repository.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

const approvalColumns = `id, ticket_id, reviewer_id, status, comment, decided_at, created_at, updated_at`

func scanApproval(row rowScanner, extra ...any) (*domain.BusinessApproval, error) {
	var approval domain.BusinessApproval
	dest := []any{
		&approval.ID,
		&approval.TicketID,
		&approval.ReviewerID,
		&approval.Status,
		&approval.Comment,
		&approval.DecidedAt,
		&approval.CreatedAt,
		&approval.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) Create(ctx context.Context, approval *domain.BusinessApproval) error {
	return insertApproval(ctx, r.pool, approval)
}

func insertApproval(ctx context.Context, q querier, approval *domain.BusinessApproval) error {
	const query = `
        INSERT INTO business_approvals (ticket_id, reviewer_id, status, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		approval.TicketID,
		approval.ReviewerID,
		approval.Status,
		approval.Comment,
	).Scan(&approval.ID, &approval.CreatedAt, &approval.UpdatedAt)
}

func (r *approvalRepository) GetByTicketAndReviewer(ctx context.Context, ticketID, reviewerID string) (*domain.BusinessApproval, error) {
	return scanApproval(r.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM business_approvals WHERE ticket_id=$1 AND reviewer_id=$2`, ticketID, reviewerID))
}

// Decide records a decision on a still-pending approval; a decided row yields pgx.ErrNoRows.
func (r *approvalRepository) Decide(ctx context.Context, approval *domain.BusinessApproval) error {
	if approval.DecidedAt == nil {
		now := time.Now().UTC()
		approval.DecidedAt = &now
	}
	const query = `
        UPDATE business_approvals SET status=$1, comment=$2, decided_at=$3, updated_at=NOW()
        WHERE id=$4 AND status='pending'`
	cmd, err := r.pool.Exec(ctx, query, approval.Status, approval.Comment, approval.DecidedAt, approval.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *approvalRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.BusinessApproval, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+approvalColumns+` FROM business_approvals WHERE ticket_id=$1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BusinessApproval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *approval)
	}
	return result, rows.Err()
}

func (r *approvalRepository) ListPendingByReviewer(ctx context.Context, reviewerID string) ([]domain.PendingApproval, error) {
	const query = `
        SELECT a.id, a.ticket_id, a.reviewer_id, a.status, a.comment, a.decided_at, a.created_at, a.updated_at,
               t.ticket_number, t.title, t.priority, t.requester_id
        FROM business_approvals a
        JOIN tickets t ON t.id = a.ticket_id AND t.deleted_at IS NULL
        WHERE a.reviewer_id=$1 AND a.status='pending' AND t.status='pending_approval'
        ORDER BY a.created_at ASC`
	rows, err := r.pool.Query(ctx, query, reviewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PendingApproval
	for rows.Next() {
		var pending domain.PendingApproval
		approval, err := scanApproval(rows, &pending.TicketNumber, &pending.TicketTitle, &pending.Priority, &pending.RequesterID)
		if err != nil {
			return nil, err
		}
		pending.BusinessApproval = *approval
		result = append(result, pending)
	}
	return result, rows.Err()
}
