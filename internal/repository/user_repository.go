package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role         *domain.Role
	DepartmentID *string
	UnitID       *string
	Status       *domain.UserStatus
	SearchTerm   *string
	Limit        int
	Offset       int
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	ListByDepartmentRole(ctx context.Context, departmentID string, role domain.Role) ([]domain.User, error)
	TechnicianWorkloads(ctx context.Context, departmentID *string) ([]domain.TechnicianWorkload, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, username, email, password_hash, role, department_id, unit_id, manager_id,
               status, workload_capacity, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.DepartmentID,
		&user.UnitID,
		&user.ManagerID,
		&user.Status,
		&user.WorkloadCapacity,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, username, email, password_hash, role, department_id, unit_id, manager_id, status, workload_capacity)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.DepartmentID,
		user.UnitID,
		user.ManagerID,
		user.Status,
		user.WorkloadCapacity,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, username=$2, email=$3, password_hash=$4, role=$5, department_id=$6,
            unit_id=$7, manager_id=$8, status=$9, workload_capacity=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.DepartmentID,
		user.UnitID,
		user.ManagerID,
		user.Status,
		user.WorkloadCapacity,
		user.ID,
	).Scan(&user.UpdatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username)=LOWER($1)`, username))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	w := newWhere()
	if filter.Role != nil {
		w.add("role=%s", *filter.Role)
	}
	if filter.DepartmentID != nil {
		w.add("department_id=%s", *filter.DepartmentID)
	}
	if filter.UnitID != nil {
		w.add("unit_id=%s", *filter.UnitID)
	}
	if filter.Status != nil {
		w.add("status=%s", *filter.Status)
	}
	w.addSearch(filter.SearchTerm, "name", "email", "username")
	where := w.sql()
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY name ASC` + w.page(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) ListByDepartmentRole(ctx context.Context, departmentID string, role domain.Role) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users
        WHERE department_id=$1 AND role=$2 AND status='active' ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, departmentID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) TechnicianWorkloads(ctx context.Context, departmentID *string) ([]domain.TechnicianWorkload, error) {
	const query = `
        SELECT u.id, u.name, u.username, u.email, u.password_hash, u.role, u.department_id, u.unit_id, u.manager_id,
               u.status, u.workload_capacity, u.created_at, u.updated_at,
               COUNT(t.id) FILTER (WHERE t.status IN ('assigned','in_progress','pending')) AS open_tickets
        FROM users u
        LEFT JOIN tickets t ON t.assigned_to_id = u.id AND t.deleted_at IS NULL
        WHERE u.role='technician' AND u.status='active' AND ($1::uuid IS NULL OR u.department_id=$1)
        GROUP BY u.id
        ORDER BY open_tickets ASC, u.name ASC`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianWorkload
	for rows.Next() {
		var wl domain.TechnicianWorkload
		u := &wl.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.DepartmentID,
			&u.UnitID, &u.ManagerID, &u.Status, &u.WorkloadCapacity, &u.CreatedAt, &u.UpdatedAt, &wl.OpenTickets); err != nil {
			return nil, err
		}
		result = append(result, wl)
	}
	return result, rows.Err()
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}
