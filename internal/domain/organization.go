package domain

import "time"

// DepartmentType distinguishes ticket-raising business lines from support departments.
type DepartmentType string

const (
	DepartmentBusiness DepartmentType = "business"
	DepartmentSupport  DepartmentType = "support"
)

// Department represents a high-level organizational unit.
type Department struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        DepartmentType `json:"department_type"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UnitType classifies a unit inside a department.
type UnitType string

const (
	UnitBranch    UnitType = "branch"
	UnitSubBranch UnitType = "sub_branch"
	UnitDivision  UnitType = "division"
)

// Unit is a branch, sub-branch or division belonging to a department.
type Unit struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"department_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Type         UnitType  `json:"unit_type"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
