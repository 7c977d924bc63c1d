package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// AssetService tracks IT inventory and derives depreciation and health figures.
type AssetService struct {
	assets repository.AssetRepository
	users  repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// AssetInput describes an asset to create or replace.
type AssetInput struct {
	AssetTag         string
	Name             string
	Type             domain.AssetType
	Status           domain.AssetStatus
	SerialNumber     string
	Manufacturer     string
	Model            string
	Location         string
	DepartmentID     *string
	PurchaseDate     *time.Time
	PurchaseCost     float64
	SalvageValue     float64
	UsefulLifeMonths int
	WarrantyExpiry   *time.Time
	Notes            string
}

// AssetListFilter narrows asset listings.
type AssetListFilter struct {
	Types          []domain.AssetType
	Statuses       []domain.AssetStatus
	DepartmentID   *string
	AssignedUserID *string
	SearchTerm     *string
	Limit          int
	Offset         int
}

// MaintenanceInput describes one maintenance visit.
type MaintenanceInput struct {
	Type        domain.MaintenanceType
	Description string
	Cost        float64
	PerformedAt *time.Time
}

// Depreciation is the straight-line valuation of an asset at a point in time.
type Depreciation struct {
	MonthlyAmount     float64 `json:"monthly_amount"`
	MonthsElapsed     int     `json:"months_elapsed"`
	AccumulatedAmount float64 `json:"accumulated_amount"`
	BookValue         float64 `json:"book_value"`
}

// HealthScore rates the condition of an asset from 0 to 100.
type HealthScore struct {
	Score   int      `json:"score"`
	Grade   string   `json:"grade"`
	Factors []string `json:"factors"`
}

// AssetView is an asset with its derived figures.
type AssetView struct {
	Asset        *domain.Asset             `json:"asset"`
	Depreciation Depreciation              `json:"depreciation"`
	Health       HealthScore               `json:"health"`
	Maintenance  []domain.AssetMaintenance `json:"maintenance,omitempty"`
}

// NewAssetService constructs the service.
func NewAssetService(assets repository.AssetRepository, users repository.UserRepository, logger *zap.Logger) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{assets: assets, users: users, logger: logger, now: nowUTC}
}

// Create registers an asset.
func (s *AssetService) Create(ctx context.Context, actor *domain.User, input AssetInput) (*domain.Asset, error) {
	if err := requireAssetManager(actor); err != nil {
		return nil, err
	}
	asset := &domain.Asset{}
	if err := applyAsset(asset, input); err != nil {
		return nil, err
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// Update replaces an asset's attributes. Assignment is changed through Assign.
func (s *AssetService) Update(ctx context.Context, actor *domain.User, id string, input AssetInput) (*domain.Asset, error) {
	if err := requireAssetManager(actor); err != nil {
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": id})
	}
	if err := applyAsset(asset, input); err != nil {
		return nil, err
	}
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": id})
	}
	return asset, nil
}

// Get returns an asset with its maintenance log and derived figures.
func (s *AssetService) Get(ctx context.Context, actor *domain.User, id string) (*AssetView, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": id})
	}
	records, err := s.assets.ListMaintenance(ctx, asset.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if records == nil {
		records = []domain.AssetMaintenance{}
	}
	now := s.now()
	return &AssetView{
		Asset:        asset,
		Depreciation: ComputeDepreciation(asset, now),
		Health:       ComputeHealth(asset, records, now),
		Maintenance:  records,
	}, nil
}

// List returns matching assets with their derived figures.
func (s *AssetService) List(ctx context.Context, actor *domain.User, filter AssetListFilter) ([]AssetView, int, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	assets, total, err := s.assets.List(ctx, repository.AssetFilter{
		Types:          filter.Types,
		Statuses:       filter.Statuses,
		DepartmentID:   trimmedPtr(filter.DepartmentID),
		AssignedUserID: trimmedPtr(filter.AssignedUserID),
		SearchTerm:     trimmedPtr(filter.SearchTerm),
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}
	maintenance, err := s.assets.ListMaintenanceByAssets(ctx, ids)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}

	now := s.now()
	views := make([]AssetView, 0, len(assets))
	for i := range assets {
		asset := &assets[i]
		records := maintenance[asset.ID]
		if records == nil {
			records = []domain.AssetMaintenance{}
		}
		views = append(views, AssetView{
			Asset:        asset,
			Depreciation: ComputeDepreciation(asset, now),
			Health:       ComputeHealth(asset, records, now),
		})
	}
	return views, total, nil
}

// Delete soft deletes an asset.
func (s *AssetService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAssetManager(actor); err != nil {
		return err
	}
	if err := s.assets.SoftDelete(ctx, id); err != nil {
		return apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": id})
	}
	return nil
}

// Assign hands an asset to a user; a nil userID returns it to the pool.
func (s *AssetService) Assign(ctx context.Context, actor *domain.User, id string, userID *string) (*domain.Asset, error) {
	if err := requireAssetManager(actor); err != nil {
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": id})
	}
	userID = trimmedPtr(userID)
	if userID != nil {
		if asset.Status == domain.AssetRetired || asset.Status == domain.AssetDisposed {
			return nil, apperrors.NewConflict("retired assets cannot be assigned", map[string]any{"status": asset.Status})
		}
		holder, err := s.users.GetByID(ctx, *userID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": *userID})
		}
		if !holder.Active() {
			return nil, apperrors.NewConflict("user inactive", map[string]any{"user_id": holder.ID})
		}
		if asset.DepartmentID == nil {
			asset.DepartmentID = holder.DepartmentID
		}
	}
	asset.AssignedUserID = userID
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": id})
	}
	return asset, nil
}

// AddMaintenance logs a maintenance visit.
func (s *AssetService) AddMaintenance(ctx context.Context, actor *domain.User, assetID string, input MaintenanceInput) (*domain.AssetMaintenance, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	switch input.Type {
	case domain.MaintenancePreventive, domain.MaintenanceCorrective, domain.MaintenanceInspection:
	default:
		return nil, apperrors.NewValidationError("invalid maintenance type", map[string]any{"maintenance_type": input.Type})
	}
	if input.Cost < 0 {
		return nil, apperrors.NewValidationError("cost cannot be negative", map[string]any{"cost": input.Cost})
	}
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": assetID})
	}
	performedAt := s.now()
	if input.PerformedAt != nil {
		if input.PerformedAt.After(performedAt) {
			return nil, apperrors.NewValidationError("performed_at cannot be in the future", nil)
		}
		performedAt = input.PerformedAt.UTC()
	}
	record := &domain.AssetMaintenance{
		AssetID:       assetID,
		Type:          input.Type,
		Description:   strings.TrimSpace(input.Description),
		Cost:          input.Cost,
		PerformedByID: actorID(actor),
		PerformedAt:   performedAt,
	}
	if err := s.assets.AddMaintenance(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

// ListMaintenance returns the maintenance log of an asset, newest first.
func (s *AssetService) ListMaintenance(ctx context.Context, actor *domain.User, assetID string) ([]domain.AssetMaintenance, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": assetID})
	}
	records, err := s.assets.ListMaintenance(ctx, assetID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// Summary aggregates the whole inventory.
func (s *AssetService) Summary(ctx context.Context, actor *domain.User) (*domain.AssetSummary, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	assets, err := s.assets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return summarize(assets, s.now()), nil
}

func summarize(assets []domain.Asset, now time.Time) *domain.AssetSummary {
	summary := &domain.AssetSummary{
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}
	for i := range assets {
		a := &assets[i]
		summary.Total++
		summary.ByStatus[string(a.Status)]++
		summary.ByType[string(a.Type)]++
		summary.TotalCost += a.PurchaseCost
		if a.Status != domain.AssetDisposed {
			summary.TotalBookValue += ComputeDepreciation(a, now).BookValue
		}
	}
	summary.TotalCost = roundMoney(summary.TotalCost)
	summary.TotalBookValue = roundMoney(summary.TotalBookValue)
	return summary
}

// ComputeDepreciation applies straight-line depreciation from the purchase date. The book value never
// drops below the salvage value.
func ComputeDepreciation(asset *domain.Asset, now time.Time) Depreciation {
	dep := Depreciation{BookValue: roundMoney(asset.PurchaseCost)}
	if asset.PurchaseDate == nil || asset.UsefulLifeMonths <= 0 || asset.PurchaseCost <= asset.SalvageValue {
		return dep
	}
	depreciable := asset.PurchaseCost - asset.SalvageValue
	dep.MonthlyAmount = depreciable / float64(asset.UsefulLifeMonths)
	dep.MonthsElapsed = monthsBetween(*asset.PurchaseDate, now)
	accumulated := dep.MonthlyAmount * float64(dep.MonthsElapsed)
	if accumulated > depreciable {
		accumulated = depreciable
	}
	dep.AccumulatedAmount = roundMoney(accumulated)
	dep.BookValue = roundMoney(math.Max(asset.PurchaseCost-accumulated, asset.SalvageValue))
	dep.MonthlyAmount = roundMoney(dep.MonthlyAmount)
	return dep
}

// ComputeHealth scores an asset from its age against useful life, warranty cover, corrective
// maintenance in the last year and time since the last maintenance visit. A nil records slice means the
// maintenance log was not loaded and is left out of the score.
func ComputeHealth(asset *domain.Asset, records []domain.AssetMaintenance, now time.Time) HealthScore {
	if asset.Status == domain.AssetRetired || asset.Status == domain.AssetDisposed {
		return HealthScore{Score: 0, Grade: healthGrade(0), Factors: []string{"asset is out of service"}}
	}
	score := 100.0
	factors := []string{}

	ageMonths := 0
	if asset.PurchaseDate != nil {
		ageMonths = monthsBetween(*asset.PurchaseDate, now)
		if asset.UsefulLifeMonths > 0 {
			ratio := float64(ageMonths) / float64(asset.UsefulLifeMonths)
			penalty := math.Min(ratio, 1) * 40
			if penalty > 0 {
				score -= penalty
				if ratio >= 1 {
					factors = append(factors, "beyond useful life")
				} else if ratio >= 0.75 {
					factors = append(factors, "nearing end of useful life")
				}
			}
		}
	}

	switch {
	case asset.WarrantyExpiry == nil:
		score -= 5
		factors = append(factors, "no warranty on record")
	case asset.WarrantyExpiry.Before(now):
		score -= 10
		factors = append(factors, "warranty expired")
	}

	yearAgo := now.AddDate(-1, 0, 0)
	corrective := 0
	var last *time.Time
	for i := range records {
		r := records[i]
		if r.Type == domain.MaintenanceCorrective && r.PerformedAt.After(yearAgo) {
			corrective++
		}
		if last == nil || r.PerformedAt.After(*last) {
			performed := r.PerformedAt
			last = &performed
		}
	}
	if corrective > 0 {
		score -= math.Min(float64(corrective)*10, 30)
		factors = append(factors, "recent corrective maintenance")
	}

	if records != nil {
		switch {
		case last == nil && ageMonths > 12:
			score -= 10
			factors = append(factors, "never maintained")
		case last != nil && last.Before(yearAgo):
			score -= 10
			factors = append(factors, "no maintenance in over a year")
		case last != nil && last.Before(now.AddDate(0, -6, 0)):
			score -= 5
			factors = append(factors, "no maintenance in six months")
		}
	}

	if asset.Status == domain.AssetInMaintenance {
		score -= 10
		factors = append(factors, "currently in maintenance")
	}

	final := int(math.Round(math.Max(0, math.Min(100, score))))
	return HealthScore{Score: final, Grade: healthGrade(final), Factors: factors}
}

func healthGrade(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	}
	return "poor"
}

// monthsBetween counts whole calendar months from start to end.
func monthsBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func applyAsset(asset *domain.Asset, input AssetInput) error {
	details := map[string]any{}
	tag := strings.ToUpper(strings.TrimSpace(input.AssetTag))
	name := strings.TrimSpace(input.Name)
	if tag == "" {
		details["asset_tag"] = "is required"
	}
	if name == "" {
		details["name"] = "is required"
	}
	if !input.Type.Valid() {
		details["asset_type"] = "unknown asset type"
	}
	status := input.Status
	if status == "" {
		status = domain.AssetActive
	}
	if !status.Valid() {
		details["status"] = "unknown status"
	}
	if input.PurchaseCost < 0 {
		details["purchase_cost"] = "cannot be negative"
	}
	if input.SalvageValue < 0 || input.SalvageValue > input.PurchaseCost {
		details["salvage_value"] = "must be between 0 and the purchase cost"
	}
	if input.UsefulLifeMonths < 0 {
		details["useful_life_months"] = "cannot be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid asset", details)
	}
	asset.AssetTag = tag
	asset.Name = name
	asset.Type = input.Type
	asset.Status = status
	asset.SerialNumber = strings.TrimSpace(input.SerialNumber)
	asset.Manufacturer = strings.TrimSpace(input.Manufacturer)
	asset.Model = strings.TrimSpace(input.Model)
	asset.Location = strings.TrimSpace(input.Location)
	asset.DepartmentID = trimmedPtr(input.DepartmentID)
	asset.PurchaseDate = input.PurchaseDate
	asset.PurchaseCost = input.PurchaseCost
	asset.SalvageValue = input.SalvageValue
	asset.UsefulLifeMonths = input.UsefulLifeMonths
	asset.WarrantyExpiry = input.WarrantyExpiry
	asset.Notes = strings.TrimSpace(input.Notes)
	if status == domain.AssetDisposed || status == domain.AssetRetired {
		asset.AssignedUserID = nil
	}
	return nil
}

func requireStaff(user *domain.User) error {
	if err := requireActor(user); err != nil {
		return err
	}
	if !user.Role.IsStaff() {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

func requireAssetManager(user *domain.User) error {
	if err := requireActor(user); err != nil {
		return err
	}
	if user.Role != domain.RoleAdmin && user.Role != domain.RoleManager {
		return apperrors.NewForbidden("only managers and administrators manage assets")
	}
	return nil
}
