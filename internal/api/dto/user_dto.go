package dto

import "github.com/bsg-enterprise/ticketing/internal/domain"

// CreateUserRequest is an admin-created account.
type CreateUserRequest struct {
	Name             string      `json:"name" validate:"required,max=120"`
	Username         string      `json:"username" validate:"required,min=3,max=60"`
	Email            string      `json:"email" validate:"required,email"`
	Password         string      `json:"password" validate:"required,min=8"`
	Role             domain.Role `json:"role" validate:"required,oneof=admin manager technician requester"`
	DepartmentID     *string     `json:"department_id"`
	UnitID           *string     `json:"unit_id"`
	ManagerID        *string     `json:"manager_id"`
	WorkloadCapacity int         `json:"workload_capacity" validate:"gte=0"`
}

// UpdateUserRequest carries optional account changes.
type UpdateUserRequest struct {
	Name             *string      `json:"name" validate:"omitempty,max=120"`
	Username         *string      `json:"username" validate:"omitempty,min=3,max=60"`
	Email            *string      `json:"email" validate:"omitempty,email"`
	Role             *domain.Role `json:"role" validate:"omitempty,oneof=admin manager technician requester"`
	DepartmentID     *string      `json:"department_id"`
	UnitID           *string      `json:"unit_id"`
	ManagerID        *string      `json:"manager_id"`
	WorkloadCapacity *int         `json:"workload_capacity" validate:"omitempty,gte=0"`
}

// UserStatusRequest suspends or reactivates an account.
type UserStatusRequest struct {
	Status domain.UserStatus `json:"status" validate:"required,oneof=active suspended"`
}

// DepartmentRequest creates a department.
type DepartmentRequest struct {
	Name        string                `json:"name" validate:"required,max=120"`
	Description string                `json:"description"`
	Type        domain.DepartmentType `json:"department_type"`
}

// DepartmentUpdateRequest modifies a department.
type DepartmentUpdateRequest struct {
	Name        *string                `json:"name" validate:"omitempty,max=120"`
	Description *string                `json:"description"`
	Type        *domain.DepartmentType `json:"department_type"`
	IsActive    *bool                  `json:"is_active"`
}

// UnitRequest creates or updates a branch, sub-branch or division.
type UnitRequest struct {
	DepartmentID string          `json:"department_id" validate:"required"`
	Code         string          `json:"code" validate:"required,max=20"`
	Name         string          `json:"name" validate:"required,max=120"`
	Type         domain.UnitType `json:"unit_type" validate:"required"`
	IsActive     *bool           `json:"is_active"`
}
