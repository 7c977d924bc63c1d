package domain

import (
	"time"

	"github.com/bsg-enterprise/ticketing/internal/forms"
)

// ServiceCatalog is a node in the Catalog -> Item -> Template taxonomy. Catalogs nest via ParentID.
type ServiceCatalog struct {
	ID           string           `json:"id"`
	ParentID     *string          `json:"parent_id"`
	DepartmentID *string          `json:"department_id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	IsActive     bool             `json:"is_active"`
	Children     []ServiceCatalog `json:"children,omitempty"`
	Items        []ServiceItem    `json:"items,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ServiceItem is an orderable service inside a catalog.
type ServiceItem struct {
	ID               string            `json:"id"`
	CatalogID        string            `json:"catalog_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	RequiresApproval bool              `json:"requires_approval"`
	SLAHours         *int              `json:"sla_hours"`
	DefaultPriority  TicketPriority    `json:"default_priority"`
	IsActive         bool              `json:"is_active"`
	Templates        []ServiceTemplate `json:"templates,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ServiceTemplate pre-configures the custom fields captured for a service item.
type ServiceTemplate struct {
	ID            string        `json:"id"`
	ServiceItemID string        `json:"service_item_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	IsActive      bool          `json:"is_active"`
	Fields        []forms.Field `json:"fields"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
