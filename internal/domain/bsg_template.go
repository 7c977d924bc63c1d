package domain

import (
	"time"

	"github.com/bsg-enterprise/ticketing/internal/forms"
)

// BSGTemplateCategory groups BSG templates in the request form picker.
type BSGTemplateCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// BSGTemplate is a numbered dynamic request form for core banking applications.
type BSGTemplate struct {
	ID               string        `json:"id"`
	CategoryID       string        `json:"category_id"`
	TemplateNumber   int           `json:"template_number"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	RequiresApproval bool          `json:"requires_approval"`
	SLAHours         *int          `json:"sla_hours"`
	IsActive         bool          `json:"is_active"`
	Fields           []forms.Field `json:"fields"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// BSGMasterData is a shared option list entry (branches, OLIBS menus, ...) backing master dropdowns.
type BSGMasterData struct {
	ID        string         `json:"id"`
	DataType  string         `json:"data_type"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	SortOrder int            `json:"sort_order"`
	IsActive  bool           `json:"is_active"`
}
