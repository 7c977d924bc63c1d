package domain

import "time"

// AssetType classifies inventory items.
type AssetType string

const (
	AssetHardware   AssetType = "hardware"
	AssetSoftware   AssetType = "software"
	AssetNetwork    AssetType = "network"
	AssetPeripheral AssetType = "peripheral"
	AssetOther      AssetType = "other"
)

// Valid reports whether t is a known type.
func (t AssetType) Valid() bool {
	switch t {
	case AssetHardware, AssetSoftware, AssetNetwork, AssetPeripheral, AssetOther:
		return true
	}
	return false
}

// AssetStatus is the lifecycle state of an asset.
type AssetStatus string

const (
	AssetActive        AssetStatus = "active"
	AssetInMaintenance AssetStatus = "in_maintenance"
	AssetRetired       AssetStatus = "retired"
	AssetDisposed      AssetStatus = "disposed"
)

// Valid reports whether s is a known status.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetActive, AssetInMaintenance, AssetRetired, AssetDisposed:
		return true
	}
	return false
}

// Asset is a piece of bank equipment or licensed software tracked by IT.
type Asset struct {
	ID               string      `json:"id"`
	AssetTag         string      `json:"asset_tag"`
	Name             string      `json:"name"`
	Type             AssetType   `json:"asset_type"`
	Status           AssetStatus `json:"status"`
	SerialNumber     string      `json:"serial_number"`
	Manufacturer     string      `json:"manufacturer"`
	Model            string      `json:"model"`
	Location         string      `json:"location"`
	DepartmentID     *string     `json:"department_id"`
	AssignedUserID   *string     `json:"assigned_user_id"`
	PurchaseDate     *time.Time  `json:"purchase_date"`
	PurchaseCost     float64     `json:"purchase_cost"`
	SalvageValue     float64     `json:"salvage_value"`
	UsefulLifeMonths int         `json:"useful_life_months"`
	WarrantyExpiry   *time.Time  `json:"warranty_expiry"`
	Notes            string      `json:"notes"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// MaintenanceType classifies maintenance work.
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventive"
	MaintenanceCorrective MaintenanceType = "corrective"
	MaintenanceInspection MaintenanceType = "inspection"
)

// AssetMaintenance is one maintenance visit.
type AssetMaintenance struct {
	ID            string          `json:"id"`
	AssetID       string          `json:"asset_id"`
	Type          MaintenanceType `json:"maintenance_type"`
	Description   string          `json:"description"`
	Cost          float64         `json:"cost"`
	PerformedByID *string         `json:"performed_by_id"`
	PerformedAt   time.Time       `json:"performed_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AssetSummary aggregates the inventory for dashboards.
type AssetSummary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByType         map[string]int `json:"by_type"`
	TotalCost      float64        `json:"total_cost"`
	TotalBookValue float64        `json:"total_book_value"`
}
