package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.AttachmentReference) error
	ListByComments(ctx context.Context, commentIDs []string) (map[string][]domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO comment_attachments (comment_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.CommentID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

// ListByComments returns attachments grouped by comment id.
func (r *attachmentRepository) ListByComments(ctx context.Context, commentIDs []string) (map[string][]domain.AttachmentReference, error) {
	result := make(map[string][]domain.AttachmentReference)
	if len(commentIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT id, comment_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM comment_attachments WHERE comment_id = ANY($1::uuid[]) ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, commentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var attachment domain.AttachmentReference
		if err := rows.Scan(
			&attachment.ID,
			&attachment.CommentID,
			&attachment.StorageKey,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[attachment.CommentID] = append(result[attachment.CommentID], attachment)
	}
	return result, rows.Err()
}
