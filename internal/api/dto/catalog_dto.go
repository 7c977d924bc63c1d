package dto

import (
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
)

// CatalogRequest creates or updates a catalog node.
type CatalogRequest struct {
	ParentID     *string `json:"parent_id"`
	DepartmentID *string `json:"department_id"`
	Name         string  `json:"name" validate:"required,max=120"`
	Description  string  `json:"description"`
	IsActive     *bool   `json:"is_active"`
}

// ServiceItemRequest creates or updates a service item.
type ServiceItemRequest struct {
	CatalogID        string                `json:"catalog_id"`
	Name             string                `json:"name" validate:"required,max=160"`
	Description      string                `json:"description"`
	RequiresApproval bool                  `json:"requires_approval"`
	SLAHours         *int                  `json:"sla_hours" validate:"omitempty,gt=0"`
	DefaultPriority  domain.TicketPriority `json:"default_priority" validate:"omitempty,oneof=low medium high urgent"`
	IsActive         *bool                 `json:"is_active"`
}

// ServiceTemplateRequest creates a template with its fields.
type ServiceTemplateRequest struct {
	ServiceItemID string        `json:"service_item_id" validate:"required"`
	Name          string        `json:"name" validate:"required,max=160"`
	Description   string        `json:"description"`
	Fields        []forms.Field `json:"fields" validate:"dive"`
}

// TemplateFieldsRequest replaces the field set of a template.
type TemplateFieldsRequest struct {
	Fields []forms.Field `json:"fields" validate:"dive"`
}

// BSGCategoryRequest creates a BSG template category.
type BSGCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

// BSGTemplateRequest creates or updates a numbered BSG template.
type BSGTemplateRequest struct {
	CategoryID       string        `json:"category_id" validate:"required"`
	TemplateNumber   int           `json:"template_number" validate:"gt=0"`
	Name             string        `json:"name" validate:"required,max=160"`
	Description      string        `json:"description"`
	RequiresApproval bool          `json:"requires_approval"`
	SLAHours         *int          `json:"sla_hours" validate:"omitempty,gt=0"`
	IsActive         *bool         `json:"is_active"`
	Fields           []forms.Field `json:"fields" validate:"omitempty,dive"`
}

// MasterDataRequest upserts a master data entry.
type MasterDataRequest struct {
	DataType  string         `json:"data_type" validate:"required,max=60"`
	Code      string         `json:"code" validate:"required,max=60"`
	Name      string         `json:"name"`
	Metadata  map[string]any `json:"metadata"`
	SortOrder int            `json:"sort_order"`
	IsActive  *bool          `json:"is_active"`
}

// ValidateValuesRequest is a field-value map checked against a template.
type ValidateValuesRequest struct {
	Values map[string]any `json:"values"`
}
