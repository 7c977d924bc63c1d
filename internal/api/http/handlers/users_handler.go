package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/service"
)

// UsersHandler exposes user, department and unit administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// ListUsers handles GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page := parsePage(c)
	filters := service.UserListFilters{
		DepartmentID: optionalQuery(c, "department_id"),
		UnitID:       optionalQuery(c, "unit_id"),
		SearchTerm:   optionalQuery(c, "search"),
		Limit:        page.PageSize,
		Offset:       page.Offset(),
	}
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filters.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := domain.UserStatus(status)
		filters.Status = &s
	}
	users, err := h.users.ListUsers(c.UserContext(), actor, filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": users})
}

// ListTechnicians handles GET /api/users/technicians.
func (h *UsersHandler) ListTechnicians(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	workloads, err := h.users.ListTechnicians(c.UserContext(), actor, optionalQuery(c, "department_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workloads})
}

// GetUser handles GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// CreateUser handles POST /api/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.CreateUser(c.UserContext(), actor, service.UserCreateInput{
		Name:             req.Name,
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		Role:             req.Role,
		DepartmentID:     req.DepartmentID,
		UnitID:           req.UnitID,
		ManagerID:        req.ManagerID,
		WorkloadCapacity: req.WorkloadCapacity,
	})
	if err != nil {
		return err
	}
	return created(c, user)
}

// UpdateUser handles PUT /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateUser(c.UserContext(), actor, c.Params("id"), service.UserUpdateInput{
		Name:             req.Name,
		Username:         req.Username,
		Email:            req.Email,
		Role:             req.Role,
		DepartmentID:     req.DepartmentID,
		UnitID:           req.UnitID,
		ManagerID:        req.ManagerID,
		WorkloadCapacity: req.WorkloadCapacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// SetUserStatus handles PATCH /api/users/:id/status.
func (h *UsersHandler) SetUserStatus(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UserStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetUserStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// ListDepartments handles GET /api/departments.
func (h *UsersHandler) ListDepartments(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	includeInactive := c.QueryBool("include_inactive", false)
	depts, err := h.users.ListDepartments(c.UserContext(), actor, includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": depts})
}

// GetDepartment handles GET /api/departments/:id.
func (h *UsersHandler) GetDepartment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	dept, err := h.users.GetDepartment(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dept})
}

// CreateDepartment handles POST /api/departments.
func (h *UsersHandler) CreateDepartment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.users.CreateDepartment(c.UserContext(), actor, req.Name, req.Description, req.Type)
	if err != nil {
		return err
	}
	return created(c, dept)
}

// UpdateDepartment handles PUT /api/departments/:id.
func (h *UsersHandler) UpdateDepartment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.users.UpdateDepartment(c.UserContext(), actor, c.Params("id"), service.DepartmentUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dept})
}

// ListUnits handles GET /api/units.
func (h *UsersHandler) ListUnits(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	units, err := h.users.ListUnits(c.UserContext(), actor, optionalQuery(c, "department_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": units})
}

// CreateUnit handles POST /api/units.
func (h *UsersHandler) CreateUnit(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UnitRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	unit, err := h.users.CreateUnit(c.UserContext(), actor, unitInput(req))
	if err != nil {
		return err
	}
	return created(c, unit)
}

// UpdateUnit handles PUT /api/units/:id.
func (h *UsersHandler) UpdateUnit(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UnitRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	unit, err := h.users.UpdateUnit(c.UserContext(), actor, c.Params("id"), unitInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": unit})
}

func unitInput(req dto.UnitRequest) service.UnitInput {
	return service.UnitInput{
		DepartmentID: req.DepartmentID,
		Code:         req.Code,
		Name:         req.Name,
		Type:         req.Type,
		IsActive:     req.IsActive,
	}
}
