package domain

import "time"

// Role enumerates what a user may do in the service desk.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleRequester  Role = "requester"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleRequester:
		return true
	}
	return false
}

// IsStaff reports whether the role works tickets rather than only raising them.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleTechnician
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is anyone who signs in: bank employees raising tickets and the staff serving them.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Role             Role       `json:"role"`
	DepartmentID     *string    `json:"department_id"`
	UnitID           *string    `json:"unit_id"`
	ManagerID        *string    `json:"manager_id"`
	Status           UserStatus `json:"status"`
	WorkloadCapacity int        `json:"workload_capacity"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// TechnicianWorkload pairs a technician with their open ticket count.
type TechnicianWorkload struct {
	User        User `json:"user"`
	OpenTickets int  `json:"open_tickets"`
}
