package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
)

const serviceTemplateFieldsTable = "service_template_fields"

// CatalogRepository persists the Catalog -> Item -> Template hierarchy.
type CatalogRepository interface {
	CreateCatalog(ctx context.Context, catalog *domain.ServiceCatalog) error
	UpdateCatalog(ctx context.Context, catalog *domain.ServiceCatalog) error
	DeleteCatalog(ctx context.Context, id string) error
	GetCatalog(ctx context.Context, id string) (*domain.ServiceCatalog, error)
	ListCatalogs(ctx context.Context, activeOnly bool) ([]domain.ServiceCatalog, error)

	CreateItem(ctx context.Context, item *domain.ServiceItem) error
	UpdateItem(ctx context.Context, item *domain.ServiceItem) error
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*domain.ServiceItem, error)
	ListItems(ctx context.Context, catalogID string, activeOnly bool) ([]domain.ServiceItem, error)

	CreateTemplate(ctx context.Context, template *domain.ServiceTemplate) error
	ReplaceTemplateFields(ctx context.Context, templateID string, fields []forms.Field) error
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, id string) (*domain.ServiceTemplate, error)
	ListTemplates(ctx context.Context, itemID string) ([]domain.ServiceTemplate, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository builds repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

const catalogColumns = `id, parent_id, department_id, name, description, is_active, created_at, updated_at`

func scanCatalog(row rowScanner) (*domain.ServiceCatalog, error) {
	var c domain.ServiceCatalog
	if err := row.Scan(&c.ID, &c.ParentID, &c.DepartmentID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *catalogRepository) CreateCatalog(ctx context.Context, catalog *domain.ServiceCatalog) error {
	const query = `
        INSERT INTO service_catalogs (parent_id, department_id, name, description, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		catalog.ParentID,
		catalog.DepartmentID,
		catalog.Name,
		catalog.Description,
		catalog.IsActive,
	).Scan(&catalog.ID, &catalog.CreatedAt, &catalog.UpdatedAt)
}

func (r *catalogRepository) UpdateCatalog(ctx context.Context, catalog *domain.ServiceCatalog) error {
	const query = `
        UPDATE service_catalogs SET parent_id=$1, department_id=$2, name=$3, description=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6 AND deleted_at IS NULL
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		catalog.ParentID,
		catalog.DepartmentID,
		catalog.Name,
		catalog.Description,
		catalog.IsActive,
		catalog.ID,
	).Scan(&catalog.UpdatedAt)
}

func (r *catalogRepository) DeleteCatalog(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "service_catalogs", id)
}

func (r *catalogRepository) GetCatalog(ctx context.Context, id string) (*domain.ServiceCatalog, error) {
	return scanCatalog(r.pool.QueryRow(ctx,
		`SELECT `+catalogColumns+` FROM service_catalogs WHERE id=$1 AND deleted_at IS NULL`, id))
}

func (r *catalogRepository) ListCatalogs(ctx context.Context, activeOnly bool) ([]domain.ServiceCatalog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+catalogColumns+` FROM service_catalogs
        WHERE deleted_at IS NULL AND ($1 = FALSE OR is_active = TRUE) ORDER BY name ASC`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceCatalog
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

const itemColumns = `id, catalog_id, name, description, requires_approval, sla_hours, default_priority, is_active,
               created_at, updated_at`

func scanItem(row rowScanner) (*domain.ServiceItem, error) {
	var item domain.ServiceItem
	if err := row.Scan(
		&item.ID,
		&item.CatalogID,
		&item.Name,
		&item.Description,
		&item.RequiresApproval,
		&item.SLAHours,
		&item.DefaultPriority,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogRepository) CreateItem(ctx context.Context, item *domain.ServiceItem) error {
	const query = `
        INSERT INTO service_items (catalog_id, name, description, requires_approval, sla_hours, default_priority, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		item.CatalogID,
		item.Name,
		item.Description,
		item.RequiresApproval,
		item.SLAHours,
		item.DefaultPriority,
		item.IsActive,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *catalogRepository) UpdateItem(ctx context.Context, item *domain.ServiceItem) error {
	const query = `
        UPDATE service_items SET catalog_id=$1, name=$2, description=$3, requires_approval=$4, sla_hours=$5,
            default_priority=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8 AND deleted_at IS NULL
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		item.CatalogID,
		item.Name,
		item.Description,
		item.RequiresApproval,
		item.SLAHours,
		item.DefaultPriority,
		item.IsActive,
		item.ID,
	).Scan(&item.UpdatedAt)
}

func (r *catalogRepository) DeleteItem(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "service_items", id)
}

func (r *catalogRepository) GetItem(ctx context.Context, id string) (*domain.ServiceItem, error) {
	return scanItem(r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM service_items WHERE id=$1 AND deleted_at IS NULL`, id))
}

func (r *catalogRepository) ListItems(ctx context.Context, catalogID string, activeOnly bool) ([]domain.ServiceItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM service_items
        WHERE catalog_id=$1 AND deleted_at IS NULL AND ($2 = FALSE OR is_active = TRUE) ORDER BY name ASC`,
		catalogID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

// CreateTemplate inserts the template and its fields atomically.
func (r *catalogRepository) CreateTemplate(ctx context.Context, template *domain.ServiceTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO service_templates (service_item_id, name, description, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		template.ServiceItemID,
		template.Name,
		template.Description,
		template.IsActive,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt); err != nil {
		return err
	}
	if err := insertFields(ctx, tx, serviceTemplateFieldsTable, template.ID, template.Fields); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *catalogRepository) ReplaceTemplateFields(ctx context.Context, templateID string, fields []forms.Field) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE service_templates SET updated_at=NOW() WHERE id=$1`, templateID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := replaceFields(ctx, tx, serviceTemplateFieldsTable, templateID, fields); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *catalogRepository) DeleteTemplate(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE service_templates SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const templateColumns = `id, service_item_id, name, description, is_active, created_at, updated_at`

func (r *catalogRepository) GetTemplate(ctx context.Context, id string) (*domain.ServiceTemplate, error) {
	var t domain.ServiceTemplate
	if err := r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM service_templates WHERE id=$1`, id).Scan(
		&t.ID, &t.ServiceItemID, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	fields, err := listFields(ctx, r.pool, serviceTemplateFieldsTable, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Fields = fields[t.ID]
	return &t, nil
}

func (r *catalogRepository) ListTemplates(ctx context.Context, itemID string) ([]domain.ServiceTemplate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateColumns+` FROM service_templates
        WHERE service_item_id=$1 AND is_active = TRUE ORDER BY name ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []domain.ServiceTemplate
		ids    []string
	)
	for rows.Next() {
		var t domain.ServiceTemplate
		if err := rows.Scan(&t.ID, &t.ServiceItemID, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	fields, err := listFields(ctx, r.pool, serviceTemplateFieldsTable, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Fields = fields[result[i].ID]
	}
	return result, nil
}
