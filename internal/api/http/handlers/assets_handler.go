package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/service"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// AssetsHandler manages the IT asset register.
type AssetsHandler struct {
	assets *service.AssetService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assets *service.AssetService) *AssetsHandler {
	return &AssetsHandler{assets: assets}
}

// List GET /api/assets.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page := parsePage(c)
	filter := service.AssetListFilter{
		DepartmentID:   optionalQuery(c, "department_id"),
		AssignedUserID: optionalQuery(c, "assigned_user_id"),
		SearchTerm:     optionalQuery(c, "search"),
		Limit:          page.PageSize,
		Offset:         page.Offset(),
	}
	for _, raw := range splitCSV(c.Query("type")) {
		t := domain.AssetType(raw)
		if !t.Valid() {
			return apperrors.NewValidationError("invalid asset type filter", map[string]any{"type": raw})
		}
		filter.Types = append(filter.Types, t)
	}
	for _, raw := range splitCSV(c.Query("status")) {
		s := domain.AssetStatus(raw)
		if !s.Valid() {
			return apperrors.NewValidationError("invalid asset status filter", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	views, total, err := h.assets.List(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       views,
		"pagination": dto.Pagination{Page: page.Page, PageSize: page.PageSize, Total: total},
	})
}

// Summary GET /api/assets/summary.
func (h *AssetsHandler) Summary(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	summary, err := h.assets.Summary(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Get GET /api/assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	view, err := h.assets.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// Create POST /api/assets.
func (h *AssetsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Create(c.UserContext(), user, assetInput(req))
	if err != nil {
		return err
	}
	return created(c, asset)
}

// Update PUT /api/assets/:id.
func (h *AssetsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Update(c.UserContext(), user, c.Params("id"), assetInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": asset})
}

// Delete DELETE /api/assets/:id.
func (h *AssetsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.assets.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Assign PUT /api/assets/:id/assignee.
func (h *AssetsHandler) Assign(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssetAssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Assign(c.UserContext(), user, c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": asset})
}

// AddMaintenance POST /api/assets/:id/maintenance.
func (h *AssetsHandler) AddMaintenance(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.MaintenanceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	record, err := h.assets.AddMaintenance(c.UserContext(), user, c.Params("id"), service.MaintenanceInput{
		Type:        req.Type,
		Description: req.Description,
		Cost:        req.Cost,
		PerformedAt: req.PerformedAt,
	})
	if err != nil {
		return err
	}
	return created(c, record)
}

// ListMaintenance GET /api/assets/:id/maintenance.
func (h *AssetsHandler) ListMaintenance(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	records, err := h.assets.ListMaintenance(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": records})
}

func assetInput(req dto.AssetRequest) service.AssetInput {
	return service.AssetInput{
		AssetTag:         req.AssetTag,
		Name:             req.Name,
		Type:             req.Type,
		Status:           req.Status,
		SerialNumber:     req.SerialNumber,
		Manufacturer:     req.Manufacturer,
		Model:            req.Model,
		Location:         req.Location,
		DepartmentID:     req.DepartmentID,
		PurchaseDate:     req.PurchaseDate,
		PurchaseCost:     req.PurchaseCost,
		SalvageValue:     req.SalvageValue,
		UsefulLifeMonths: req.UsefulLifeMonths,
		WarrantyExpiry:   req.WarrantyExpiry,
		Notes:            req.Notes,
	}
}
