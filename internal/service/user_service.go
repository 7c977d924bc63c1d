package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/auth"
	"github.com/bsg-enterprise/ticketing/internal/config"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// UserService manages accounts and the organization structure they belong to.
type UserService struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	logger      *zap.Logger
	bcryptCost  int
}

// OrgDependencies encapsulates repositories required for org management.
type OrgDependencies struct {
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	Logger         *zap.Logger
}

// UserListFilters define listing parameters.
type UserListFilters struct {
	Role         *domain.Role
	DepartmentID *string
	UnitID       *string
	Status       *domain.UserStatus
	SearchTerm   *string
	Limit        int
	Offset       int
}

// UserCreateInput describes an account created by an administrator.
type UserCreateInput struct {
	Name             string
	Username         string
	Email            string
	Password         string
	Role             domain.Role
	DepartmentID     *string
	UnitID           *string
	ManagerID        *string
	WorkloadCapacity int
}

// UserUpdateInput carries optional account changes.
type UserUpdateInput struct {
	Name             *string
	Username         *string
	Email            *string
	Role             *domain.Role
	DepartmentID     *string
	UnitID           *string
	ManagerID        *string
	WorkloadCapacity *int
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps OrgDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		logger:      logger,
		bcryptCost:  cfg.Auth.BcryptCost,
	}
}

// CreateUser adds an account with any role.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"password": "must be at least 8 characters"})
	}
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if err := checkUniqueUser(ctx, s.users, email, username, ""); err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:             strings.TrimSpace(input.Name),
		Username:         username,
		Email:            email,
		Role:             input.Role,
		DepartmentID:     trimmedPtr(input.DepartmentID),
		UnitID:           trimmedPtr(input.UnitID),
		ManagerID:        trimmedPtr(input.ManagerID),
		Status:           domain.UserStatusActive,
		WorkloadCapacity: input.WorkloadCapacity,
	}
	if err := s.checkPlacement(ctx, user); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)), zap.String("actor_id", actor.ID))
	return user, nil
}

// UpdateUser modifies an account.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, userID string, input UserUpdateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	email, username := user.Email, user.Username
	if input.Email != nil {
		email = normalizeEmail(*input.Email)
	}
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
	}
	if email != user.Email || username != user.Username {
		if err := checkUniqueUser(ctx, s.users, email, username, user.ID); err != nil {
			return nil, err
		}
		user.Email, user.Username = email, username
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		if user.ID == actor.ID && *input.Role != domain.RoleAdmin {
			return nil, apperrors.NewConflict("administrators cannot demote themselves", nil)
		}
		user.Role = *input.Role
	}
	if input.DepartmentID != nil {
		user.DepartmentID = trimmedPtr(input.DepartmentID)
	}
	if input.UnitID != nil {
		user.UnitID = trimmedPtr(input.UnitID)
	}
	if input.ManagerID != nil {
		user.ManagerID = trimmedPtr(input.ManagerID)
	}
	if input.WorkloadCapacity != nil {
		user.WorkloadCapacity = *input.WorkloadCapacity
	}
	if err := s.checkPlacement(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// SetUserStatus suspends or reactivates an account.
func (s *UserService) SetUserStatus(ctx context.Context, actor *domain.User, userID string, status domain.UserStatus) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != domain.UserStatusActive && status != domain.UserStatusSuspended {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	if userID == actor.ID && status == domain.UserStatusSuspended {
		return nil, apperrors.NewConflict("administrators cannot suspend themselves", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	if user.Status == status {
		return user, nil
	}
	user.Status = status
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	s.logger.Info("user status changed", zap.String("user_id", user.ID), zap.String("status", string(status)), zap.String("actor_id", actor.ID))
	return user, nil
}

// GetUser returns an account. Non-admins may only read their own.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && actor.ID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// ListUsers lists accounts. Managers are limited to their own department.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filters UserListFilters) ([]domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleManager:
		if actor.DepartmentID == nil {
			return []domain.User{}, nil
		}
		filters.DepartmentID = actor.DepartmentID
	default:
		return nil, apperrors.NewForbidden("insufficient role")
	}
	users, err := s.users.List(ctx, repository.UserFilter{
		Role:         filters.Role,
		DepartmentID: filters.DepartmentID,
		UnitID:       filters.UnitID,
		Status:       filters.Status,
		SearchTerm:   trimmedPtr(filters.SearchTerm),
		Limit:        filters.Limit,
		Offset:       filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListTechnicians returns active technicians with their open ticket counts.
func (s *UserService) ListTechnicians(ctx context.Context, actor *domain.User, departmentID *string) ([]domain.TechnicianWorkload, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if actor.Role == domain.RoleManager && departmentID == nil {
		departmentID = actor.DepartmentID
	}
	workloads, err := s.users.TechnicianWorkloads(ctx, trimmedPtr(departmentID))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return workloads, nil
}

// checkPlacement verifies the department, unit and manager references of an account.
func (s *UserService) checkPlacement(ctx context.Context, user *domain.User) error {
	if user.UnitID != nil {
		unit, err := s.departments.GetUnit(ctx, *user.UnitID)
		if err != nil {
			return apperrors.NotFoundOr(err, "unit", map[string]any{"unit_id": *user.UnitID})
		}
		if user.DepartmentID == nil {
			user.DepartmentID = strPtr(unit.DepartmentID)
		} else if *user.DepartmentID != unit.DepartmentID {
			return apperrors.NewValidationError("unit not part of department", map[string]any{"unit_id": unit.ID})
		}
	}
	if user.DepartmentID != nil {
		dept, err := s.departments.GetByID(ctx, *user.DepartmentID)
		if err != nil {
			return apperrors.NotFoundOr(err, "department", map[string]any{"department_id": *user.DepartmentID})
		}
		if !dept.IsActive {
			return apperrors.NewConflict("department inactive", map[string]any{"department_id": dept.ID})
		}
	}
	if user.ManagerID != nil {
		if *user.ManagerID == user.ID {
			return apperrors.NewValidationError("a user cannot manage themselves", map[string]any{"manager_id": *user.ManagerID})
		}
		manager, err := s.users.GetByID(ctx, *user.ManagerID)
		if err != nil {
			return apperrors.NotFoundOr(err, "manager", map[string]any{"manager_id": *user.ManagerID})
		}
		if manager.Role != domain.RoleManager && manager.Role != domain.RoleAdmin {
			return apperrors.NewValidationError("manager must have the manager role", map[string]any{"manager_id": manager.ID})
		}
	}
	if user.WorkloadCapacity < 0 {
		return apperrors.NewValidationError("workload capacity cannot be negative", map[string]any{"workload_capacity": user.WorkloadCapacity})
	}
	return nil
}

// CreateDepartment creates a new department.
func (s *UserService) CreateDepartment(ctx context.Context, actor *domain.User, name, description string, deptType domain.DepartmentType) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"name": "is required"})
	}
	if deptType == "" {
		deptType = domain.DepartmentBusiness
	}
	if deptType != domain.DepartmentBusiness && deptType != domain.DepartmentSupport {
		return nil, apperrors.NewValidationError("invalid department type", map[string]any{"department_type": deptType})
	}
	dept := &domain.Department{
		Name:        name,
		Description: strings.TrimSpace(description),
		Type:        deptType,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// DepartmentUpdateInput carries optional department changes.
type DepartmentUpdateInput struct {
	Name        *string
	Description *string
	Type        *domain.DepartmentType
	IsActive    *bool
}

// UpdateDepartment modifies department metadata.
func (s *UserService) UpdateDepartment(ctx context.Context, actor *domain.User, id string, input DepartmentUpdateInput) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "department", map[string]any{"department_id": id})
	}
	if input.Name != nil {
		dept.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		dept.Description = strings.TrimSpace(*input.Description)
	}
	if input.Type != nil {
		if *input.Type != domain.DepartmentBusiness && *input.Type != domain.DepartmentSupport {
			return nil, apperrors.NewValidationError("invalid department type", map[string]any{"department_type": *input.Type})
		}
		dept.Type = *input.Type
	}
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.NotFoundOr(err, "department", map[string]any{"department_id": id})
	}
	return dept, nil
}

// ListDepartments returns departments; only administrators see inactive ones.
func (s *UserService) ListDepartments(ctx context.Context, actor *domain.User, includeInactive bool) ([]domain.Department, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	activeOnly := !(includeInactive && actor.Role == domain.RoleAdmin)
	depts, err := s.departments.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// GetDepartment fetches a department.
func (s *UserService) GetDepartment(ctx context.Context, actor *domain.User, id string) (*domain.Department, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "department", map[string]any{"department_id": id})
	}
	return dept, nil
}

// UnitInput describes a unit to create or replace.
type UnitInput struct {
	DepartmentID string
	Code         string
	Name         string
	Type         domain.UnitType
	IsActive     *bool
}

// CreateUnit adds a branch, sub-branch or division to a department.
func (s *UserService) CreateUnit(ctx context.Context, actor *domain.User, input UnitInput) (*domain.Unit, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	unit := &domain.Unit{IsActive: true}
	if err := s.applyUnit(ctx, unit, input); err != nil {
		return nil, err
	}
	if err := s.departments.CreateUnit(ctx, unit); err != nil {
		return nil, apperrors.MapError(err)
	}
	return unit, nil
}

// UpdateUnit replaces a unit's attributes.
func (s *UserService) UpdateUnit(ctx context.Context, actor *domain.User, id string, input UnitInput) (*domain.Unit, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	unit, err := s.departments.GetUnit(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "unit", map[string]any{"unit_id": id})
	}
	if input.DepartmentID == "" {
		input.DepartmentID = unit.DepartmentID
	}
	if err := s.applyUnit(ctx, unit, input); err != nil {
		return nil, err
	}
	if err := s.departments.UpdateUnit(ctx, unit); err != nil {
		return nil, apperrors.NotFoundOr(err, "unit", map[string]any{"unit_id": id})
	}
	return unit, nil
}

// ListUnits lists units, optionally restricted to one department.
func (s *UserService) ListUnits(ctx context.Context, actor *domain.User, departmentID *string) ([]domain.Unit, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	units, err := s.departments.ListUnits(ctx, trimmedPtr(departmentID))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return units, nil
}

func (s *UserService) applyUnit(ctx context.Context, unit *domain.Unit, input UnitInput) error {
	switch input.Type {
	case domain.UnitBranch, domain.UnitSubBranch, domain.UnitDivision:
	default:
		return apperrors.NewValidationError("invalid unit type", map[string]any{"unit_type": input.Type})
	}
	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		return apperrors.NotFoundOr(err, "department", map[string]any{"department_id": input.DepartmentID})
	}
	if !dept.IsActive {
		return apperrors.NewConflict("department inactive", map[string]any{"department_id": dept.ID})
	}
	unit.DepartmentID = dept.ID
	unit.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	unit.Name = strings.TrimSpace(input.Name)
	unit.Type = input.Type
	if input.IsActive != nil {
		unit.IsActive = *input.IsActive
	}
	return nil
}
