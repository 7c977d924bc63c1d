package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/service"
)

// CatalogHandler exposes the service catalog and the BSG template library.
type CatalogHandler struct {
	catalog *service.CatalogService
	bsg     *service.BSGTemplateService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService, bsg *service.BSGTemplateService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, bsg: bsg}
}

// ListCatalogs GET /api/service-catalog returns the catalog tree.
func (h *CatalogHandler) ListCatalogs(c *fiber.Ctx) error {
	tree, err := h.catalog.ListCatalogs(c.UserContext(), c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tree})
}

// GetCatalog GET /api/service-catalog/:id.
func (h *CatalogHandler) GetCatalog(c *fiber.Ctx) error {
	cat, err := h.catalog.GetCatalog(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cat})
}

// CreateCatalog POST /api/service-catalog.
func (h *CatalogHandler) CreateCatalog(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CatalogRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.catalog.CreateCatalog(c.UserContext(), user, catalogInput(req))
	if err != nil {
		return err
	}
	return created(c, cat)
}

// UpdateCatalog PUT /api/service-catalog/:id.
func (h *CatalogHandler) UpdateCatalog(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CatalogRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.catalog.UpdateCatalog(c.UserContext(), user, c.Params("id"), catalogInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cat})
}

// DeleteCatalog DELETE /api/service-catalog/:id.
func (h *CatalogHandler) DeleteCatalog(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCatalog(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListItems GET /api/service-catalog/:id/items.
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	items, err := h.catalog.ListItems(c.UserContext(), c.Params("id"), c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetItem GET /api/service-catalog/items/:id.
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.catalog.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": item})
}

// CreateItem POST /api/service-catalog/:id/items.
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ServiceItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.CatalogID = c.Params("id")
	item, err := h.catalog.CreateItem(c.UserContext(), user, serviceItemInput(req))
	if err != nil {
		return err
	}
	return created(c, item)
}

// UpdateItem PUT /api/service-catalog/items/:id.
func (h *CatalogHandler) UpdateItem(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ServiceItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.catalog.UpdateItem(c.UserContext(), user, c.Params("id"), serviceItemInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": item})
}

// DeleteItem DELETE /api/service-catalog/items/:id.
func (h *CatalogHandler) DeleteItem(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteItem(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetTemplate GET /api/service-catalog/templates/:id.
func (h *CatalogHandler) GetTemplate(c *fiber.Ctx) error {
	tmpl, err := h.catalog.GetTemplate(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tmpl})
}

// CreateTemplate POST /api/service-catalog/templates.
func (h *CatalogHandler) CreateTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ServiceTemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tmpl, err := h.catalog.CreateTemplate(c.UserContext(), user, service.ServiceTemplateInput{
		ServiceItemID: req.ServiceItemID,
		Name:          req.Name,
		Description:   req.Description,
		Fields:        req.Fields,
	})
	if err != nil {
		return err
	}
	return created(c, tmpl)
}

// ReplaceTemplateFields PUT /api/service-catalog/templates/:id/fields.
func (h *CatalogHandler) ReplaceTemplateFields(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.TemplateFieldsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tmpl, err := h.catalog.ReplaceTemplateFields(c.UserContext(), user, c.Params("id"), req.Fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tmpl})
}

// DeleteTemplate DELETE /api/service-catalog/templates/:id.
func (h *CatalogHandler) DeleteTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteTemplate(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListBSGCategories GET /api/bsg-templates/categories.
func (h *CatalogHandler) ListBSGCategories(c *fiber.Ctx) error {
	categories, err := h.bsg.ListCategories(c.UserContext(), c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}

// CreateBSGCategory POST /api/bsg-templates/categories.
func (h *CatalogHandler) CreateBSGCategory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BSGCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.bsg.CreateCategory(c.UserContext(), user, req.Name, req.Description, req.SortOrder)
	if err != nil {
		return err
	}
	return created(c, category)
}

// ListBSGTemplates GET /api/bsg-templates.
func (h *CatalogHandler) ListBSGTemplates(c *fiber.Ctx) error {
	templates, err := h.bsg.ListTemplates(c.UserContext(), service.BSGTemplateListFilter{
		CategoryID:      optionalQuery(c, "category_id"),
		SearchTerm:      optionalQuery(c, "search"),
		IncludeInactive: c.QueryBool("include_inactive"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templates})
}

// GetBSGTemplate GET /api/bsg-templates/:id returns the template with master data options filled in.
func (h *CatalogHandler) GetBSGTemplate(c *fiber.Ctx) error {
	tmpl, err := h.bsg.GetTemplate(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tmpl})
}

// CreateBSGTemplate POST /api/bsg-templates.
func (h *CatalogHandler) CreateBSGTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BSGTemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tmpl, err := h.bsg.CreateTemplate(c.UserContext(), user, bsgTemplateInput(req))
	if err != nil {
		return err
	}
	return created(c, tmpl)
}

// UpdateBSGTemplate PUT /api/bsg-templates/:id.
func (h *CatalogHandler) UpdateBSGTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BSGTemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tmpl, err := h.bsg.UpdateTemplate(c.UserContext(), user, c.Params("id"), bsgTemplateInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tmpl})
}

// ValidateBSGValues POST /api/bsg-templates/:id/validate.
func (h *CatalogHandler) ValidateBSGValues(c *fiber.Ctx) error {
	var req dto.ValidateValuesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	values, err := h.bsg.ValidateValues(c.UserContext(), c.Params("id"), req.Values)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": values})
}

// ListMasterData GET /api/bsg-templates/master-data/:type.
func (h *CatalogHandler) ListMasterData(c *fiber.Ctx) error {
	entries, err := h.bsg.ListMasterData(c.UserContext(), c.Params("type"), c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// UpsertMasterData PUT /api/bsg-templates/master-data.
func (h *CatalogHandler) UpsertMasterData(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.MasterDataRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry := &domain.BSGMasterData{
		DataType:  req.DataType,
		Code:      req.Code,
		Name:      req.Name,
		Metadata:  req.Metadata,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive == nil || *req.IsActive,
	}
	if err := h.bsg.UpsertMasterData(c.UserContext(), user, entry); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entry})
}

func catalogInput(req dto.CatalogRequest) service.CatalogInput {
	return service.CatalogInput{
		ParentID:     req.ParentID,
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
		Description:  req.Description,
		IsActive:     req.IsActive,
	}
}

func serviceItemInput(req dto.ServiceItemRequest) service.ServiceItemInput {
	return service.ServiceItemInput{
		CatalogID:        req.CatalogID,
		Name:             req.Name,
		Description:      req.Description,
		RequiresApproval: req.RequiresApproval,
		SLAHours:         req.SLAHours,
		DefaultPriority:  req.DefaultPriority,
		IsActive:         req.IsActive,
	}
}

func bsgTemplateInput(req dto.BSGTemplateRequest) service.BSGTemplateInput {
	return service.BSGTemplateInput{
		CategoryID:       req.CategoryID,
		TemplateNumber:   req.TemplateNumber,
		Name:             req.Name,
		Description:      req.Description,
		RequiresApproval: req.RequiresApproval,
		SLAHours:         req.SLAHours,
		IsActive:         req.IsActive,
		Fields:           req.Fields,
	}
}
