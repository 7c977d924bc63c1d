package dto

import (
	"time"

	"github.com/bsg-enterprise/ticketing/internal/domain"
)

// AssetRequest creates or replaces an asset.
type AssetRequest struct {
	AssetTag         string             `json:"asset_tag" validate:"required,max=60"`
	Name             string             `json:"name" validate:"required,max=160"`
	Type             domain.AssetType   `json:"asset_type" validate:"required,oneof=hardware software network peripheral other"`
	Status           domain.AssetStatus `json:"status" validate:"omitempty,oneof=active in_maintenance retired disposed"`
	SerialNumber     string             `json:"serial_number"`
	Manufacturer     string             `json:"manufacturer"`
	Model            string             `json:"model"`
	Location         string             `json:"location"`
	DepartmentID     *string            `json:"department_id"`
	PurchaseDate     *time.Time         `json:"purchase_date"`
	PurchaseCost     float64            `json:"purchase_cost" validate:"gte=0"`
	SalvageValue     float64            `json:"salvage_value" validate:"gte=0"`
	UsefulLifeMonths int                `json:"useful_life_months" validate:"gte=0"`
	WarrantyExpiry   *time.Time         `json:"warranty_expiry"`
	Notes            string             `json:"notes"`
}

// AssetAssignRequest assigns an asset; a null user unassigns it.
type AssetAssignRequest struct {
	UserID *string `json:"user_id"`
}

// MaintenanceRequest records a maintenance visit.
type MaintenanceRequest struct {
	Type        domain.MaintenanceType `json:"maintenance_type" validate:"required,oneof=preventive corrective inspection"`
	Description string                 `json:"description" validate:"max=5000"`
	Cost        float64                `json:"cost" validate:"gte=0"`
	PerformedAt *time.Time             `json:"performed_at"`
}
