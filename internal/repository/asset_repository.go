package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// AssetFilter narrows inventory listings.
type AssetFilter struct {
	Types          []domain.AssetType
	Statuses       []domain.AssetStatus
	DepartmentID   *string
	AssignedUserID *string
	SearchTerm     *string
	Limit          int
	Offset         int
}

// AssetRepository persists assets and their maintenance log.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Update(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	List(ctx context.Context, filter AssetFilter) ([]domain.Asset, int, error)
	ListAll(ctx context.Context) ([]domain.Asset, error)
	SoftDelete(ctx context.Context, id string) error
	AddMaintenance(ctx context.Context, record *domain.AssetMaintenance) error
	ListMaintenance(ctx context.Context, assetID string) ([]domain.AssetMaintenance, error)
	ListMaintenanceByAssets(ctx context.Context, assetIDs []string) (map[string][]domain.AssetMaintenance, error)
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository builds repository.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

const assetColumns = `id, asset_tag, name, asset_type, status, serial_number, manufacturer, model, location, department_id,
               assigned_user_id, purchase_date, purchase_cost, salvage_value, useful_life_months, warranty_expiry,
               notes, created_at, updated_at`

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	if err := row.Scan(
		&a.ID,
		&a.AssetTag,
		&a.Name,
		&a.Type,
		&a.Status,
		&a.SerialNumber,
		&a.Manufacturer,
		&a.Model,
		&a.Location,
		&a.DepartmentID,
		&a.AssignedUserID,
		&a.PurchaseDate,
		&a.PurchaseCost,
		&a.SalvageValue,
		&a.UsefulLifeMonths,
		&a.WarrantyExpiry,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAssets(rows pgx.Rows) ([]domain.Asset, error) {
	var result []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	const query = `
        INSERT INTO assets (asset_tag, name, asset_type, status, serial_number, manufacturer, model, location,
            department_id, assigned_user_id, purchase_date, purchase_cost, salvage_value, useful_life_months,
            warranty_expiry, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		asset.AssetTag,
		asset.Name,
		asset.Type,
		asset.Status,
		asset.SerialNumber,
		asset.Manufacturer,
		asset.Model,
		asset.Location,
		asset.DepartmentID,
		asset.AssignedUserID,
		asset.PurchaseDate,
		asset.PurchaseCost,
		asset.SalvageValue,
		asset.UsefulLifeMonths,
		asset.WarrantyExpiry,
		asset.Notes,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
}

func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	const query = `
        UPDATE assets SET asset_tag=$1, name=$2, asset_type=$3, status=$4, serial_number=$5, manufacturer=$6, model=$7,
            location=$8, department_id=$9, assigned_user_id=$10, purchase_date=$11, purchase_cost=$12,
            salvage_value=$13, useful_life_months=$14, warranty_expiry=$15, notes=$16, updated_at=NOW()
        WHERE id=$17 AND deleted_at IS NULL
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		asset.AssetTag,
		asset.Name,
		asset.Type,
		asset.Status,
		asset.SerialNumber,
		asset.Manufacturer,
		asset.Model,
		asset.Location,
		asset.DepartmentID,
		asset.AssignedUserID,
		asset.PurchaseDate,
		asset.PurchaseCost,
		asset.SalvageValue,
		asset.UsefulLifeMonths,
		asset.WarrantyExpiry,
		asset.Notes,
		asset.ID,
	).Scan(&asset.UpdatedAt)
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1 AND deleted_at IS NULL`, id))
}

func (r *assetRepository) List(ctx context.Context, filter AssetFilter) ([]domain.Asset, int, error) {
	w := newWhere("deleted_at IS NULL")
	addIn(w, "asset_type", filter.Types)
	addIn(w, "status", filter.Statuses)
	if filter.DepartmentID != nil {
		w.add("department_id=%s", *filter.DepartmentID)
	}
	if filter.AssignedUserID != nil {
		w.add("assigned_user_id=%s", *filter.AssignedUserID)
	}
	w.addSearch(filter.SearchTerm, "asset_tag", "name", "serial_number", "model")

	where := w.sql()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assets WHERE `+where, w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE `+where+
		` ORDER BY asset_tag ASC`+w.page(filter.Limit, filter.Offset), w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	assets, err := scanAssets(rows)
	return assets, total, err
}

// ListAll returns every live asset for inventory-wide aggregates.
func (r *assetRepository) ListAll(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE deleted_at IS NULL ORDER BY asset_tag ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

func (r *assetRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.pool, "assets", id)
}

func (r *assetRepository) AddMaintenance(ctx context.Context, record *domain.AssetMaintenance) error {
	const query = `
        INSERT INTO asset_maintenance (asset_id, maintenance_type, description, cost, performed_by_id, performed_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.AssetID,
		record.Type,
		record.Description,
		record.Cost,
		record.PerformedByID,
		record.PerformedAt,
	).Scan(&record.ID, &record.CreatedAt)
}

const maintenanceColumns = `id, asset_id, maintenance_type, description, cost, performed_by_id, performed_at, created_at`

func scanMaintenance(rows pgx.Rows) ([]domain.AssetMaintenance, error) {
	var result []domain.AssetMaintenance
	for rows.Next() {
		var m domain.AssetMaintenance
		if err := rows.Scan(&m.ID, &m.AssetID, &m.Type, &m.Description, &m.Cost, &m.PerformedByID, &m.PerformedAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *assetRepository) ListMaintenance(ctx context.Context, assetID string) ([]domain.AssetMaintenance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+maintenanceColumns+` FROM asset_maintenance WHERE asset_id=$1 ORDER BY performed_at DESC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMaintenance(rows)
}

// ListMaintenanceByAssets loads the maintenance logs of several assets in one query, newest first per asset.
func (r *assetRepository) ListMaintenanceByAssets(ctx context.Context, assetIDs []string) (map[string][]domain.AssetMaintenance, error) {
	out := make(map[string][]domain.AssetMaintenance, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+maintenanceColumns+` FROM asset_maintenance WHERE asset_id = ANY($1) ORDER BY asset_id, performed_at DESC`, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records, err := scanMaintenance(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range records {
		out[m.AssetID] = append(out[m.AssetID], m)
	}
	return out, nil
}
