package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

const bsgTemplateFieldsTable = "bsg_template_fields"

// BSGTemplateFilter narrows template listings.
type BSGTemplateFilter struct {
	CategoryID *string
	SearchTerm *string
	ActiveOnly bool
}

// BSGTemplateRepository persists BSG templates, their fields and master data.
type BSGTemplateRepository interface {
	CreateCategory(ctx context.Context, category *domain.BSGTemplateCategory) error
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.BSGTemplateCategory, error)

	Create(ctx context.Context, template *domain.BSGTemplate) error
	Update(ctx context.Context, template *domain.BSGTemplate) error
	GetByID(ctx context.Context, id string) (*domain.BSGTemplate, error)
	List(ctx context.Context, filter BSGTemplateFilter) ([]domain.BSGTemplate, error)

	UpsertMasterData(ctx context.Context, entry *domain.BSGMasterData) error
	ListMasterData(ctx context.Context, dataType string, activeOnly bool) ([]domain.BSGMasterData, error)
}

type bsgTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewBSGTemplateRepository builds repository.
func NewBSGTemplateRepository(pool *pgxpool.Pool) BSGTemplateRepository {
	return &bsgTemplateRepository{pool: pool}
}

func (r *bsgTemplateRepository) CreateCategory(ctx context.Context, category *domain.BSGTemplateCategory) error {
	const query = `
        INSERT INTO bsg_template_categories (name, description, sort_order, is_active)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (name) DO UPDATE SET description=EXCLUDED.description, sort_order=EXCLUDED.sort_order,
            is_active=EXCLUDED.is_active
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.SortOrder,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt)
}

func (r *bsgTemplateRepository) ListCategories(ctx context.Context, activeOnly bool) ([]domain.BSGTemplateCategory, error) {
	const query = `
        SELECT id, name, description, sort_order, is_active, created_at
        FROM bsg_template_categories WHERE ($1 = FALSE OR is_active = TRUE)
        ORDER BY sort_order ASC, name ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BSGTemplateCategory
	for rows.Next() {
		var c domain.BSGTemplateCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Create inserts the template and its fields atomically.
func (r *bsgTemplateRepository) Create(ctx context.Context, template *domain.BSGTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO bsg_templates (category_id, template_number, name, description, requires_approval, sla_hours, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		template.CategoryID,
		template.TemplateNumber,
		template.Name,
		template.Description,
		template.RequiresApproval,
		template.SLAHours,
		template.IsActive,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt); err != nil {
		return err
	}
	if err := insertFields(ctx, tx, bsgTemplateFieldsTable, template.ID, template.Fields); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update rewrites the template row and, when Fields is non-nil, replaces its field set.
func (r *bsgTemplateRepository) Update(ctx context.Context, template *domain.BSGTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE bsg_templates SET category_id=$1, template_number=$2, name=$3, description=$4, requires_approval=$5,
            sla_hours=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, query,
		template.CategoryID,
		template.TemplateNumber,
		template.Name,
		template.Description,
		template.RequiresApproval,
		template.SLAHours,
		template.IsActive,
		template.ID,
	).Scan(&template.UpdatedAt); err != nil {
		return err
	}
	if template.Fields != nil {
		if err := replaceFields(ctx, tx, bsgTemplateFieldsTable, template.ID, template.Fields); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const bsgTemplateColumns = `id, category_id, template_number, name, description, requires_approval, sla_hours, is_active,
               created_at, updated_at`

func scanBSGTemplate(row rowScanner) (*domain.BSGTemplate, error) {
	var t domain.BSGTemplate
	if err := row.Scan(
		&t.ID,
		&t.CategoryID,
		&t.TemplateNumber,
		&t.Name,
		&t.Description,
		&t.RequiresApproval,
		&t.SLAHours,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *bsgTemplateRepository) GetByID(ctx context.Context, id string) (*domain.BSGTemplate, error) {
	t, err := scanBSGTemplate(r.pool.QueryRow(ctx, `SELECT `+bsgTemplateColumns+` FROM bsg_templates WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	fields, err := listFields(ctx, r.pool, bsgTemplateFieldsTable, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Fields = fields[t.ID]
	return t, nil
}

// List returns templates without their fields.
func (r *bsgTemplateRepository) List(ctx context.Context, filter BSGTemplateFilter) ([]domain.BSGTemplate, error) {
	w := newWhere()
	if filter.CategoryID != nil {
		w.add("category_id=%s", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		w.add("is_active=%s", true)
	}
	w.addSearch(filter.SearchTerm, "name", "description")
	rows, err := r.pool.Query(ctx, `SELECT `+bsgTemplateColumns+` FROM bsg_templates WHERE `+w.sql()+
		` ORDER BY template_number ASC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BSGTemplate
	for rows.Next() {
		t, err := scanBSGTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *bsgTemplateRepository) UpsertMasterData(ctx context.Context, entry *domain.BSGMasterData) error {
	metadata, err := jsonParam(entry.Metadata)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO bsg_master_data (data_type, code, name, metadata, sort_order, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (data_type, code) DO UPDATE SET name=EXCLUDED.name, metadata=EXCLUDED.metadata,
            sort_order=EXCLUDED.sort_order, is_active=EXCLUDED.is_active
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		entry.DataType,
		entry.Code,
		entry.Name,
		metadata,
		entry.SortOrder,
		entry.IsActive,
	).Scan(&entry.ID)
}

func (r *bsgTemplateRepository) ListMasterData(ctx context.Context, dataType string, activeOnly bool) ([]domain.BSGMasterData, error) {
	const query = `
        SELECT id, data_type, code, name, metadata, sort_order, is_active
        FROM bsg_master_data WHERE data_type=$1 AND ($2 = FALSE OR is_active = TRUE)
        ORDER BY sort_order ASC, name ASC`
	rows, err := r.pool.Query(ctx, query, dataType, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BSGMasterData
	for rows.Next() {
		var (
			entry    domain.BSGMasterData
			metadata []byte
		)
		if err := rows.Scan(&entry.ID, &entry.DataType, &entry.Code, &entry.Name, &metadata, &entry.SortOrder, &entry.IsActive); err != nil {
			return nil, err
		}
		if err := jsonScan(metadata, &entry.Metadata); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
