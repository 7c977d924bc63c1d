package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

type memoryCache struct {
	entries map[string][]byte
	hits    int
}

func (m *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

type catalogStore struct {
	repository.CatalogRepository
	catalogs  map[string]*domain.ServiceCatalog
	listCalls int
}

func (c *catalogStore) ListCatalogs(ctx context.Context, activeOnly bool) ([]domain.ServiceCatalog, error) {
	c.listCalls++
	var out []domain.ServiceCatalog
	for _, id := range []string{"root", "child", "grandchild", "other"} {
		if cat, ok := c.catalogs[id]; ok && (!activeOnly || cat.IsActive) {
			out = append(out, *cat)
		}
	}
	return out, nil
}

func (c *catalogStore) GetCatalog(ctx context.Context, id string) (*domain.ServiceCatalog, error) {
	cat, ok := c.catalogs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *cat
	return &cp, nil
}

func (c *catalogStore) UpdateCatalog(ctx context.Context, cat *domain.ServiceCatalog) error {
	cp := *cat
	c.catalogs[cat.ID] = &cp
	return nil
}

func newCatalogStore() *catalogStore {
	return &catalogStore{catalogs: map[string]*domain.ServiceCatalog{
		"root":       {ID: "root", Name: "IT Services", IsActive: true},
		"child":      {ID: "child", ParentID: strPtr("root"), Name: "Core Banking", IsActive: true},
		"grandchild": {ID: "grandchild", ParentID: strPtr("child"), Name: "OLIBS", IsActive: true},
		"other":      {ID: "other", Name: "Facilities", IsActive: false},
	}}
}

func TestBuildCatalogTree(t *testing.T) {
	store := newCatalogStore()
	flat, err := store.ListCatalogs(context.Background(), false)
	require.NoError(t, err)

	tree := buildCatalogTree(flat)
	require.Len(t, tree, 2)
	assert.Equal(t, "root", tree[0].ID)
	require.Len(t, tree[0].Children, 1)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "grandchild", tree[0].Children[0].Children[0].ID)

	orphan := buildCatalogTree([]domain.ServiceCatalog{{ID: "x", ParentID: strPtr("gone")}})
	require.Len(t, orphan, 1)
	assert.NotNil(t, buildCatalogTree(nil))
}

func TestListCatalogs_CachedUntilChanged(t *testing.T) {
	store := newCatalogStore()
	c := &memoryCache{}
	svc := NewCatalogService(CatalogDependencies{CatalogRepo: store, Cache: c})
	ctx := context.Background()

	first, err := svc.ListCatalogs(ctx, false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListCatalogs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first[0].Children[0].ID, second[0].Children[0].ID)
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, 1, c.hits)

	admin := user("admin", domain.RoleAdmin, "")
	_, err = svc.UpdateCatalog(ctx, admin, "other", CatalogInput{Name: "Facilities", IsActive: boolPtr(true)})
	require.NoError(t, err)

	third, err := svc.ListCatalogs(ctx, false)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, store.listCalls)
}

func TestUpdateCatalog_RejectsCycles(t *testing.T) {
	store := newCatalogStore()
	svc := NewCatalogService(CatalogDependencies{CatalogRepo: store})
	admin := user("admin", domain.RoleAdmin, "")
	ctx := context.Background()

	_, err := svc.UpdateCatalog(ctx, admin, "root", CatalogInput{Name: "IT Services", ParentID: strPtr("grandchild")})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.UpdateCatalog(ctx, admin, "root", CatalogInput{Name: "IT Services", ParentID: strPtr("root")})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.UpdateCatalog(ctx, admin, "root", CatalogInput{Name: "IT Services", ParentID: strPtr("missing")})
	requireCode(t, err, "NOT_FOUND")

	_, err = svc.UpdateCatalog(ctx, user("mgr", domain.RoleManager, "ops"), "root", CatalogInput{Name: "x"})
	requireCode(t, err, "FORBIDDEN")

	moved, err := svc.UpdateCatalog(ctx, admin, "other", CatalogInput{Name: "Facilities", ParentID: strPtr("grandchild")})
	require.NoError(t, err)
	assert.Equal(t, "grandchild", *moved.ParentID)
}

type bsgStore struct {
	repository.BSGTemplateRepository
	templates map[string]*domain.BSGTemplate
	master    map[string][]domain.BSGMasterData
	lookups   int
}

func (b *bsgStore) GetByID(ctx context.Context, id string) (*domain.BSGTemplate, error) {
	tmpl, ok := b.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tmpl
	return &cp, nil
}

func (b *bsgStore) ListMasterData(ctx context.Context, dataType string, activeOnly bool) ([]domain.BSGMasterData, error) {
	b.lookups++
	return b.master[dataType], nil
}

func newBSGStore() *bsgStore {
	return &bsgStore{
		templates: map[string]*domain.BSGTemplate{
			"olibs-limit": {ID: "olibs-limit", TemplateNumber: 12, Name: "OLIBS limit change", IsActive: true, Fields: []forms.Field{
				{Name: "branch", Label: "Branch", Type: forms.FieldMasterSelect, MasterDataType: "branch", Required: true},
				{Name: "origin", Label: "Origin branch", Type: forms.FieldMasterSelect, MasterDataType: "branch"},
				{Name: "amount", Label: "New limit", Type: forms.FieldCurrency, Required: true},
			}},
		},
		master: map[string][]domain.BSGMasterData{
			"branch": {
				{DataType: "branch", Code: "001", Name: "Kantor Pusat", IsActive: true},
				{DataType: "branch", Code: "014", Name: "Cabang Bitung", IsActive: true},
			},
		},
	}
}

func TestBSGTemplate_MasterOptions(t *testing.T) {
	store := newBSGStore()
	svc := NewBSGTemplateService(store, nil)

	tmpl, err := svc.GetTemplate(context.Background(), "olibs-limit")
	require.NoError(t, err)
	require.Len(t, tmpl.Fields[0].Options, 2)
	assert.Equal(t, forms.Option{Value: "014", Label: "Cabang Bitung"}, tmpl.Fields[0].Options[1])
	assert.Len(t, tmpl.Fields[1].Options, 2)
	assert.Equal(t, 1, store.lookups)
	assert.Empty(t, store.templates["olibs-limit"].Fields[0].Options)
}

func TestBSGTemplate_ValidateValues(t *testing.T) {
	svc := NewBSGTemplateService(newBSGStore(), nil)
	ctx := context.Background()

	values, err := svc.ValidateValues(ctx, "olibs-limit", map[string]any{"branch": "014", "amount": "2500000"})
	require.NoError(t, err)
	assert.Equal(t, "014", values["branch"])
	assert.Equal(t, 2500000.0, values["amount"])

	_, err = svc.ValidateValues(ctx, "olibs-limit", map[string]any{"branch": "999"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.ValidateValues(ctx, "missing", nil)
	requireCode(t, err, "NOT_FOUND")
}

func TestBSGTemplate_AdminOnlyWrites(t *testing.T) {
	svc := NewBSGTemplateService(newBSGStore(), nil)
	_, err := svc.CreateTemplate(context.Background(), user("mgr", domain.RoleManager, "ops"), BSGTemplateInput{Name: "x"})
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.CreateTemplate(context.Background(), user("admin", domain.RoleAdmin, ""), BSGTemplateInput{Name: "x"})
	requireCode(t, err, "VALIDATION_FAILED")
}

func boolPtr(b bool) *bool {
	return &b
}
