package seed

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/auth"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

type memUsers struct {
	repository.UserRepository
	byEmail map[string]*domain.User
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	u.ID = "user-" + strconv.Itoa(len(m.byEmail)+1)
	m.byEmail[u.Email] = u
	return nil
}

type memDepartments struct {
	repository.DepartmentRepository
	depts []domain.Department
	units []domain.Unit
}

func (m *memDepartments) List(context.Context, bool) ([]domain.Department, error) {
	return m.depts, nil
}

func (m *memDepartments) Create(_ context.Context, d *domain.Department) error {
	d.ID = "dept-" + strconv.Itoa(len(m.depts)+1)
	m.depts = append(m.depts, *d)
	return nil
}

func (m *memDepartments) ListUnits(_ context.Context, deptID *string) ([]domain.Unit, error) {
	var out []domain.Unit
	for _, u := range m.units {
		if deptID == nil || u.DepartmentID == *deptID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memDepartments) CreateUnit(_ context.Context, u *domain.Unit) error {
	u.ID = "unit-" + strconv.Itoa(len(m.units)+1)
	m.units = append(m.units, *u)
	return nil
}

type memCatalog struct {
	repository.CatalogRepository
	catalogs  []domain.ServiceCatalog
	items     []domain.ServiceItem
	templates []domain.ServiceTemplate
}

func (m *memCatalog) ListCatalogs(context.Context, bool) ([]domain.ServiceCatalog, error) {
	return append([]domain.ServiceCatalog(nil), m.catalogs...), nil
}

func (m *memCatalog) CreateCatalog(_ context.Context, c *domain.ServiceCatalog) error {
	c.ID = "cat-" + strconv.Itoa(len(m.catalogs)+1)
	m.catalogs = append(m.catalogs, *c)
	return nil
}

func (m *memCatalog) ListItems(_ context.Context, catalogID string, _ bool) ([]domain.ServiceItem, error) {
	var out []domain.ServiceItem
	for _, it := range m.items {
		if it.CatalogID == catalogID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memCatalog) CreateItem(_ context.Context, it *domain.ServiceItem) error {
	it.ID = "item-" + strconv.Itoa(len(m.items)+1)
	m.items = append(m.items, *it)
	return nil
}

func (m *memCatalog) ListTemplates(_ context.Context, itemID string) ([]domain.ServiceTemplate, error) {
	var out []domain.ServiceTemplate
	for _, t := range m.templates {
		if t.ServiceItemID == itemID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memCatalog) CreateTemplate(_ context.Context, t *domain.ServiceTemplate) error {
	t.ID = "tmpl-" + strconv.Itoa(len(m.templates)+1)
	m.templates = append(m.templates, *t)
	return nil
}

type memBSG struct {
	repository.BSGTemplateRepository
	categories []domain.BSGTemplateCategory
	templates  []domain.BSGTemplate
	master     map[string]domain.BSGMasterData
}

func (m *memBSG) ListCategories(context.Context, bool) ([]domain.BSGTemplateCategory, error) {
	return m.categories, nil
}

func (m *memBSG) CreateCategory(_ context.Context, c *domain.BSGTemplateCategory) error {
	c.ID = "bsgcat-" + strconv.Itoa(len(m.categories)+1)
	m.categories = append(m.categories, *c)
	return nil
}

func (m *memBSG) List(context.Context, repository.BSGTemplateFilter) ([]domain.BSGTemplate, error) {
	return m.templates, nil
}

func (m *memBSG) Create(_ context.Context, t *domain.BSGTemplate) error {
	t.ID = "bsg-" + strconv.Itoa(len(m.templates)+1)
	m.templates = append(m.templates, *t)
	return nil
}

func (m *memBSG) UpsertMasterData(_ context.Context, e *domain.BSGMasterData) error {
	m.master[e.DataType+"/"+e.Code] = *e
	return nil
}

func TestLoadSampleSeed(t *testing.T) {
	file, err := Load("../../configs/seed.yaml")
	require.NoError(t, err)

	require.Len(t, file.Departments, 3)
	assert.Len(t, file.Departments[2].Units, 3)
	require.NotNil(t, file.Admin)
	assert.Equal(t, "admin@bsg.local", file.Admin.Email)

	require.Len(t, file.BSGCategories, 2)
	olibs := file.BSGCategories[0].Templates[0]
	assert.Equal(t, 1, olibs.Number)
	assert.Equal(t, forms.FieldMasterSelect, olibs.Fields[0].Type)
	assert.Equal(t, "branch", olibs.Fields[0].MasterDataType)

	device := file.Catalogs[0].Items[0].Templates[0]
	require.NotNil(t, device.Fields[2].ShowWhen)
	assert.Equal(t, "symptom", device.Fields[2].ShowWhen.Field)
}

func TestParse_RejectsBrokenFields(t *testing.T) {
	_, err := Parse([]byte(`
bsg_categories:
  - name: OLIBS
    templates:
      - number: 5
        name: broken
        fields:
          - name: branch
            label: Branch
            field_type: dropdown_master
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master_data_type required")

	_, err = Parse([]byte("departments: [oops"))
	require.Error(t, err)
}

func TestSeeder_RunIsIdempotent(t *testing.T) {
	file, err := Load("../../configs/seed.yaml")
	require.NoError(t, err)

	users := &memUsers{byEmail: map[string]*domain.User{}}
	depts := &memDepartments{}
	catalog := &memCatalog{}
	bsg := &memBSG{master: map[string]domain.BSGMasterData{}}
	seeder := NewSeeder(Repositories{Users: users, Departments: depts, Catalog: catalog, BSG: bsg}, 4, nil)
	ctx := context.Background()

	res, err := seeder.Run(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Departments)
	assert.Equal(t, 3, res.Units)
	assert.Equal(t, 1, res.Users)
	assert.Equal(t, 2, res.Catalogs)
	assert.Equal(t, 3, res.Items)
	assert.Equal(t, 1, res.Templates)
	assert.Equal(t, 3, res.BSGTemplates)
	assert.Len(t, bsg.master, 3)

	admin := users.byEmail["admin@bsg.local"]
	require.NotNil(t, admin)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, auth.ComparePassword(admin.PasswordHash, "ChangeMe123!"))

	require.Len(t, catalog.catalogs, 2)
	require.NotNil(t, catalog.catalogs[1].ParentID)
	assert.Equal(t, catalog.catalogs[0].ID, *catalog.catalogs[1].ParentID)
	require.NotNil(t, catalog.catalogs[0].DepartmentID)

	again, err := seeder.Run(ctx, file)
	require.NoError(t, err)
	assert.Zero(t, again.Departments)
	assert.Zero(t, again.Units)
	assert.Zero(t, again.Users)
	assert.Zero(t, again.Catalogs)
	assert.Zero(t, again.Items)
	assert.Zero(t, again.Templates)
	assert.Zero(t, again.BSGTemplates)
}
