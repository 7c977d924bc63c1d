package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// ArticleFilter narrows knowledge searches.
type ArticleFilter struct {
	SearchTerm *string
	CategoryID *string
	Tag        *string
	Statuses   []domain.ArticleStatus
	Limit      int
	Offset     int
}

// KnowledgeRepository persists knowledge categories, articles and reader feedback.
type KnowledgeRepository interface {
	CreateCategory(ctx context.Context, category *domain.KnowledgeCategory) error
	ListCategories(ctx context.Context) ([]domain.KnowledgeCategory, error)

	Create(ctx context.Context, article *domain.KnowledgeArticle) error
	Update(ctx context.Context, article *domain.KnowledgeArticle) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeArticle, error)
	GetBySlug(ctx context.Context, slug string) (*domain.KnowledgeArticle, error)
	Search(ctx context.Context, filter ArticleFilter) ([]domain.KnowledgeArticle, int, error)
	SoftDelete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	Popular(ctx context.Context, limit int) ([]domain.KnowledgeArticle, error)
	SetFeedback(ctx context.Context, feedback *domain.ArticleFeedback) (*domain.KnowledgeArticle, error)
}

type knowledgeRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeRepository builds repository.
func NewKnowledgeRepository(pool *pgxpool.Pool) KnowledgeRepository {
	return &knowledgeRepository{pool: pool}
}

func (r *knowledgeRepository) CreateCategory(ctx context.Context, category *domain.KnowledgeCategory) error {
	const query = `
        INSERT INTO knowledge_categories (parent_id, name, description)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, category.ParentID, category.Name, category.Description).
		Scan(&category.ID, &category.CreatedAt)
}

func (r *knowledgeRepository) ListCategories(ctx context.Context) ([]domain.KnowledgeCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, parent_id, name, description, created_at FROM knowledge_categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KnowledgeCategory
	for rows.Next() {
		var c domain.KnowledgeCategory
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

const articleColumns = `id, title, slug, summary, content, category_id, tags, status, author_id, view_count,
               helpful_count, not_helpful_count, published_at, created_at, updated_at`

func scanArticle(row rowScanner) (*domain.KnowledgeArticle, error) {
	var a domain.KnowledgeArticle
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Summary,
		&a.Content,
		&a.CategoryID,
		&a.Tags,
		&a.Status,
		&a.AuthorID,
		&a.ViewCount,
		&a.HelpfulCount,
		&a.NotHelpfulCount,
		&a.PublishedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanArticles(rows pgx.Rows) ([]domain.KnowledgeArticle, error) {
	var result []domain.KnowledgeArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *knowledgeRepository) Create(ctx context.Context, article *domain.KnowledgeArticle) error {
	if article.Tags == nil {
		article.Tags = []string{}
	}
	const query = `
        INSERT INTO knowledge_articles (title, slug, summary, content, category_id, tags, status, author_id, published_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Slug,
		article.Summary,
		article.Content,
		article.CategoryID,
		article.Tags,
		article.Status,
		article.AuthorID,
		article.PublishedAt,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
}

func (r *knowledgeRepository) Update(ctx context.Context, article *domain.KnowledgeArticle) error {
	if article.Tags == nil {
		article.Tags = []string{}
	}
	const query = `
        UPDATE knowledge_articles SET title=$1, slug=$2, summary=$3, content=$4, category_id=$5, tags=$6, status=$7,
            published_at=$8, updated_at=NOW()
        WHERE id=$9 AND deleted_at IS NULL
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Slug,
		article.Summary,
		article.Content,
		article.CategoryID,
		article.Tags,
		article.Status,
		article.PublishedAt,
		article.ID,
	).Scan(&article.UpdatedAt)
}

func (r *knowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeArticle, error) {
	return scanArticle(r.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles WHERE id=$1 AND deleted_at IS NULL`, id))
}

func (r *knowledgeRepository) GetBySlug(ctx context.Context, slug string) (*domain.KnowledgeArticle, error) {
	return scanArticle(r.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles WHERE slug=$1 AND deleted_at IS NULL`, slug))
}

func (r *knowledgeRepository) Search(ctx context.Context, filter ArticleFilter) ([]domain.KnowledgeArticle, int, error) {
	w := newWhere("deleted_at IS NULL")
	if filter.CategoryID != nil {
		w.add("category_id=%s", *filter.CategoryID)
	}
	if filter.Tag != nil && *filter.Tag != "" {
		w.add("%s = ANY(tags)", *filter.Tag)
	}
	addIn(w, "status", filter.Statuses)
	w.addSearch(filter.SearchTerm, "title", "summary", "content")

	where := w.sql()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_articles WHERE `+where, w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+articleColumns+` FROM knowledge_articles WHERE `+where+
		` ORDER BY updated_at DESC`+w.page(filter.Limit, filter.Offset), w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	articles, err := scanArticles(rows)
	return articles, total, err
}

func (r *knowledgeRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "knowledge_articles", id)
}

func (r *knowledgeRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE knowledge_articles SET view_count = view_count + 1 WHERE id=$1`, id)
	return err
}

func (r *knowledgeRepository) Popular(ctx context.Context, limit int) ([]domain.KnowledgeArticle, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `SELECT `+articleColumns+` FROM knowledge_articles
        WHERE deleted_at IS NULL AND status='published'
        ORDER BY view_count DESC, helpful_count DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// SetFeedback stores one vote per reader and keeps the article counters in step with it.
func (r *knowledgeRepository) SetFeedback(ctx context.Context, feedback *domain.ArticleFeedback) (*domain.KnowledgeArticle, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var previous bool
	err = tx.QueryRow(ctx, `SELECT helpful FROM article_feedback WHERE article_id=$1 AND user_id=$2 FOR UPDATE`,
		feedback.ArticleID, feedback.UserID).Scan(&previous)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `INSERT INTO article_feedback (article_id, user_id, helpful) VALUES ($1,$2,$3)`,
			feedback.ArticleID, feedback.UserID, feedback.Helpful); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE knowledge_articles SET
                helpful_count = helpful_count + CASE WHEN $2 THEN 1 ELSE 0 END,
                not_helpful_count = not_helpful_count + CASE WHEN $2 THEN 0 ELSE 1 END
            WHERE id=$1`, feedback.ArticleID, feedback.Helpful); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case previous != feedback.Helpful:
		if _, err := tx.Exec(ctx, `UPDATE article_feedback SET helpful=$3, created_at=NOW() WHERE article_id=$1 AND user_id=$2`,
			feedback.ArticleID, feedback.UserID, feedback.Helpful); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE knowledge_articles SET
                helpful_count = GREATEST(helpful_count + CASE WHEN $2 THEN 1 ELSE -1 END, 0),
                not_helpful_count = GREATEST(not_helpful_count + CASE WHEN $2 THEN -1 ELSE 1 END, 0)
            WHERE id=$1`, feedback.ArticleID, feedback.Helpful); err != nil {
			return nil, err
		}
	}

	article, err := scanArticle(tx.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles WHERE id=$1 AND deleted_at IS NULL`, feedback.ArticleID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return article, nil
}
