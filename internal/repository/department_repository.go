package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// DepartmentRepository manages department and unit persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Department, error)

	CreateUnit(ctx context.Context, unit *domain.Unit) error
	UpdateUnit(ctx context.Context, unit *domain.Unit) error
	GetUnit(ctx context.Context, id string) (*domain.Unit, error)
	ListUnits(ctx context.Context, departmentID *string) ([]domain.Unit, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, description, department_type, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		dept.Name,
		dept.Description,
		dept.Type,
		dept.IsActive,
	).Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `
        UPDATE departments SET name=$1, description=$2, department_type=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		dept.Name,
		dept.Description,
		dept.Type,
		dept.IsActive,
		dept.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	const query = `
        SELECT id, name, description, department_type, is_active, created_at, updated_at
        FROM departments WHERE id=$1`
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&dept.ID,
		&dept.Name,
		&dept.Description,
		&dept.Type,
		&dept.IsActive,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context, activeOnly bool) ([]domain.Department, error) {
	const query = `
        SELECT id, name, description, department_type, is_active, created_at, updated_at
        FROM departments WHERE ($1 = FALSE OR is_active = TRUE) ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Description, &dept.Type, &dept.IsActive, &dept.CreatedAt, &dept.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func (r *departmentRepository) CreateUnit(ctx context.Context, unit *domain.Unit) error {
	const query = `
        INSERT INTO units (department_id, code, name, unit_type, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		unit.DepartmentID,
		unit.Code,
		unit.Name,
		unit.Type,
		unit.IsActive,
	).Scan(&unit.ID, &unit.CreatedAt, &unit.UpdatedAt)
}

func (r *departmentRepository) UpdateUnit(ctx context.Context, unit *domain.Unit) error {
	const query = `
        UPDATE units SET department_id=$1, code=$2, name=$3, unit_type=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query, unit.DepartmentID, unit.Code, unit.Name, unit.Type, unit.IsActive, unit.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) GetUnit(ctx context.Context, id string) (*domain.Unit, error) {
	const query = `
        SELECT id, department_id, code, name, unit_type, is_active, created_at, updated_at
        FROM units WHERE id=$1`
	var unit domain.Unit
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&unit.ID,
		&unit.DepartmentID,
		&unit.Code,
		&unit.Name,
		&unit.Type,
		&unit.IsActive,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *departmentRepository) ListUnits(ctx context.Context, departmentID *string) ([]domain.Unit, error) {
	const query = `
        SELECT id, department_id, code, name, unit_type, is_active, created_at, updated_at
        FROM units WHERE ($1::uuid IS NULL OR department_id=$1) ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Unit
	for rows.Next() {
		var unit domain.Unit
		if err := rows.Scan(&unit.ID, &unit.DepartmentID, &unit.Code, &unit.Name, &unit.Type, &unit.IsActive,
			&unit.CreatedAt, &unit.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, unit)
	}
	return result, rows.Err()
}
