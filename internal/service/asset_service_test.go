package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

type fakeAssets struct {
	repository.AssetRepository
	assets      []domain.Asset
	maintenance map[string][]domain.AssetMaintenance
	bulkLoads   int
}

func (f *fakeAssets) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	for _, a := range f.assets {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAssets) List(ctx context.Context, filter repository.AssetFilter) ([]domain.Asset, int, error) {
	out := append([]domain.Asset(nil), f.assets...)
	return out, len(out), nil
}

func (f *fakeAssets) ListMaintenance(ctx context.Context, assetID string) ([]domain.AssetMaintenance, error) {
	return f.maintenance[assetID], nil
}

func (f *fakeAssets) ListMaintenanceByAssets(ctx context.Context, ids []string) (map[string][]domain.AssetMaintenance, error) {
	f.bulkLoads++
	out := map[string][]domain.AssetMaintenance{}
	for _, id := range ids {
		if records, ok := f.maintenance[id]; ok {
			out[id] = records
		}
	}
	return out, nil
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestComputeDepreciation(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		asset domain.Asset
		want  Depreciation
	}{
		{
			name:  "no purchase date keeps cost",
			asset: domain.Asset{PurchaseCost: 1000, UsefulLifeMonths: 36},
			want:  Depreciation{BookValue: 1000},
		},
		{
			name:  "half way through useful life",
			asset: domain.Asset{PurchaseCost: 1300, SalvageValue: 100, UsefulLifeMonths: 24, PurchaseDate: datePtr(2023, 7, 1)},
			want:  Depreciation{MonthlyAmount: 50, MonthsElapsed: 12, AccumulatedAmount: 600, BookValue: 700},
		},
		{
			name:  "floored at salvage value",
			asset: domain.Asset{PurchaseCost: 1300, SalvageValue: 100, UsefulLifeMonths: 12, PurchaseDate: datePtr(2020, 1, 15)},
			want:  Depreciation{MonthlyAmount: 100, MonthsElapsed: 53, AccumulatedAmount: 1200, BookValue: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeDepreciation(&tt.asset, now))
		})
	}
}

func TestComputeHealth(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	fresh := domain.Asset{Status: domain.AssetActive, PurchaseDate: datePtr(2024, 6, 1), UsefulLifeMonths: 48, WarrantyExpiry: datePtr(2026, 6, 1)}
	score := ComputeHealth(&fresh, nil, now)
	assert.Equal(t, 99, score.Score)
	assert.Equal(t, "excellent", score.Grade)
	assert.Empty(t, score.Factors)

	retired := domain.Asset{Status: domain.AssetRetired}
	assert.Equal(t, 0, ComputeHealth(&retired, nil, now).Score)

	old := domain.Asset{Status: domain.AssetInMaintenance, PurchaseDate: datePtr(2018, 1, 1), UsefulLifeMonths: 48, WarrantyExpiry: datePtr(2020, 1, 1)}
	records := []domain.AssetMaintenance{
		{Type: domain.MaintenanceCorrective, PerformedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{Type: domain.MaintenanceCorrective, PerformedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	score = ComputeHealth(&old, records, now)
	assert.Equal(t, 20, score.Score)
	assert.Equal(t, "poor", score.Grade)
	assert.Contains(t, score.Factors, "beyond useful life")
	assert.Contains(t, score.Factors, "warranty expired")
	assert.Contains(t, score.Factors, "recent corrective maintenance")
	assert.Contains(t, score.Factors, "currently in maintenance")

	neglected := domain.Asset{Status: domain.AssetActive, PurchaseDate: datePtr(2022, 7, 1), WarrantyExpiry: datePtr(2025, 7, 1)}
	score = ComputeHealth(&neglected, []domain.AssetMaintenance{}, now)
	assert.Equal(t, 90, score.Score)
	assert.Equal(t, []string{"never maintained"}, score.Factors)
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 0, monthsBetween(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, monthsBetween(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, monthsBetween(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	summary := summarize([]domain.Asset{
		{Type: domain.AssetHardware, Status: domain.AssetActive, PurchaseCost: 1000},
		{Type: domain.AssetHardware, Status: domain.AssetRetired, PurchaseCost: 500},
		{Type: domain.AssetSoftware, Status: domain.AssetActive, PurchaseCost: 250.5},
	}, now)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.ByType[string(domain.AssetHardware)])
	assert.Equal(t, 1, summary.ByStatus[string(domain.AssetRetired)])
	assert.InDelta(t, 1750.5, summary.TotalCost, 0.001)
}

func TestAssetList_HealthMatchesDetail(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeAssets{
		assets: []domain.Asset{
			{ID: "a-1", Status: domain.AssetActive, UsefulLifeMonths: 48, PurchaseDate: datePtr(2021, 1, 1), WarrantyExpiry: datePtr(2025, 1, 1)},
			{ID: "a-2", Status: domain.AssetActive, UsefulLifeMonths: 48, PurchaseDate: datePtr(2021, 1, 1), WarrantyExpiry: datePtr(2025, 1, 1)},
		},
		maintenance: map[string][]domain.AssetMaintenance{
			"a-1": {
				{AssetID: "a-1", Type: domain.MaintenanceCorrective, PerformedAt: now.AddDate(0, -2, 0)},
				{AssetID: "a-1", Type: domain.MaintenanceCorrective, PerformedAt: now.AddDate(0, -8, 0)},
			},
		},
	}
	svc := NewAssetService(repo, nil, nil)
	svc.now = func() time.Time { return now }
	ctx := context.Background()
	tech := user("tech", domain.RoleTechnician, "ops")

	views, total, err := svc.List(ctx, tech, AssetListFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, 1, repo.bulkLoads)

	for _, view := range views {
		detail, err := svc.Get(ctx, tech, view.Asset.ID)
		require.NoError(t, err)
		assert.Equal(t, detail.Health, view.Health, view.Asset.ID)
	}
	assert.Contains(t, views[0].Health.Factors, "recent corrective maintenance")
	assert.Contains(t, views[1].Health.Factors, "never maintained")
	assert.Less(t, views[0].Health.Score, views[1].Health.Score)
}
