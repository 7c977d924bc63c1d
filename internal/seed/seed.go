// Package seed loads reference data (organization, catalog, BSG templates, master data) from YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bsg-enterprise/ticketing/internal/auth"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

// File is the seed document.
type File struct {
	Departments   []Department  `yaml:"departments"`
	Admin         *Admin        `yaml:"admin"`
	Catalogs      []Catalog     `yaml:"catalogs"`
	BSGCategories []BSGCategory `yaml:"bsg_categories"`
	MasterData    []MasterData  `yaml:"master_data"`
}

type Department struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Units       []Unit `yaml:"units"`
}

type Unit struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Admin is the bootstrap administrator account.
type Admin struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type Catalog struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Department  string    `yaml:"department"`
	Children    []Catalog `yaml:"children"`
	Items       []Item    `yaml:"items"`
}

type Item struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description"`
	RequiresApproval bool       `yaml:"requires_approval"`
	SLAHours         *int       `yaml:"sla_hours"`
	DefaultPriority  string     `yaml:"default_priority"`
	Templates        []Template `yaml:"templates"`
}

type Template struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Fields      []forms.Field `yaml:"fields"`
}

type BSGCategory struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	SortOrder   int           `yaml:"sort_order"`
	Templates   []BSGTemplate `yaml:"templates"`
}

type BSGTemplate struct {
	Number           int           `yaml:"number"`
	Name             string        `yaml:"name"`
	Description      string        `yaml:"description"`
	RequiresApproval bool          `yaml:"requires_approval"`
	SLAHours         *int          `yaml:"sla_hours"`
	Fields           []forms.Field `yaml:"fields"`
}

type MasterData struct {
	Type    string        `yaml:"type"`
	Entries []MasterEntry `yaml:"entries"`
}

type MasterEntry struct {
	Code     string         `yaml:"code"`
	Name     string         `yaml:"name"`
	Metadata map[string]any `yaml:"metadata"`
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a seed document and checks template field definitions.
func Parse(raw []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for _, cat := range file.BSGCategories {
		for _, tmpl := range cat.Templates {
			if errs := forms.CheckDefinitions(tmpl.Fields); len(errs) > 0 {
				return nil, fmt.Errorf("bsg template %d: %w", tmpl.Number, errs)
			}
		}
	}
	if err := checkCatalogTemplates(file.Catalogs); err != nil {
		return nil, err
	}
	return &file, nil
}

func checkCatalogTemplates(catalogs []Catalog) error {
	for _, cat := range catalogs {
		for _, item := range cat.Items {
			for _, tmpl := range item.Templates {
				if errs := forms.CheckDefinitions(tmpl.Fields); len(errs) > 0 {
					return fmt.Errorf("template %q: %w", tmpl.Name, errs)
				}
			}
		}
		if err := checkCatalogTemplates(cat.Children); err != nil {
			return err
		}
	}
	return nil
}

// Repositories are the stores the seeder writes through.
type Repositories struct {
	Users       repository.UserRepository
	Departments repository.DepartmentRepository
	Catalog     repository.CatalogRepository
	BSG         repository.BSGTemplateRepository
}

// Result counts created rows.
type Result struct {
	Departments  int
	Units        int
	Users        int
	Catalogs     int
	Items        int
	Templates    int
	BSGTemplates int
	MasterData   int
}

// Seeder applies a seed file. Rows that already exist by name, code or number are left alone.
type Seeder struct {
	repos      Repositories
	bcryptCost int
	logger     *zap.Logger
}

func NewSeeder(repos Repositories, bcryptCost int, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{repos: repos, bcryptCost: bcryptCost, logger: logger}
}

// Run applies file.
func (s *Seeder) Run(ctx context.Context, file *File) (Result, error) {
	var res Result
	deptIDs, err := s.seedDepartments(ctx, file.Departments, &res)
	if err != nil {
		return res, err
	}
	if file.Admin != nil {
		if err := s.seedAdmin(ctx, file.Admin, &res); err != nil {
			return res, err
		}
	}
	existing, err := s.repos.Catalog.ListCatalogs(ctx, false)
	if err != nil {
		return res, fmt.Errorf("list catalogs: %w", err)
	}
	for _, cat := range file.Catalogs {
		if err := s.seedCatalog(ctx, cat, nil, existing, deptIDs, &res); err != nil {
			return res, err
		}
	}
	if err := s.seedBSG(ctx, file.BSGCategories, &res); err != nil {
		return res, err
	}
	for _, group := range file.MasterData {
		for i, entry := range group.Entries {
			if err := s.repos.BSG.UpsertMasterData(ctx, &domain.BSGMasterData{
				DataType:  group.Type,
				Code:      entry.Code,
				Name:      entry.Name,
				Metadata:  entry.Metadata,
				SortOrder: i,
				IsActive:  true,
			}); err != nil {
				return res, fmt.Errorf("master data %s/%s: %w", group.Type, entry.Code, err)
			}
			res.MasterData++
		}
	}
	s.logger.Info("seed applied",
		zap.Int("departments", res.Departments),
		zap.Int("units", res.Units),
		zap.Int("catalogs", res.Catalogs),
		zap.Int("items", res.Items),
		zap.Int("bsg_templates", res.BSGTemplates),
		zap.Int("master_data", res.MasterData))
	return res, nil
}

func (s *Seeder) seedDepartments(ctx context.Context, depts []Department, res *Result) (map[string]string, error) {
	current, err := s.repos.Departments.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	ids := make(map[string]string, len(current))
	for _, d := range current {
		ids[strings.ToLower(d.Name)] = d.ID
	}

	for _, d := range depts {
		id, ok := ids[strings.ToLower(d.Name)]
		if !ok {
			deptType := domain.DepartmentType(d.Type)
			if deptType == "" {
				deptType = domain.DepartmentBusiness
			}
			dept := &domain.Department{Name: d.Name, Description: d.Description, Type: deptType, IsActive: true}
			if err := s.repos.Departments.Create(ctx, dept); err != nil {
				return nil, fmt.Errorf("create department %q: %w", d.Name, err)
			}
			id = dept.ID
			ids[strings.ToLower(d.Name)] = id
			res.Departments++
		}

		units, err := s.repos.Departments.ListUnits(ctx, &id)
		if err != nil {
			return nil, fmt.Errorf("list units of %q: %w", d.Name, err)
		}
		codes := make(map[string]struct{}, len(units))
		for _, u := range units {
			codes[u.Code] = struct{}{}
		}
		for _, u := range d.Units {
			if _, ok := codes[u.Code]; ok {
				continue
			}
			unitType := domain.UnitType(u.Type)
			if unitType == "" {
				unitType = domain.UnitBranch
			}
			if err := s.repos.Departments.CreateUnit(ctx, &domain.Unit{
				DepartmentID: id,
				Code:         u.Code,
				Name:         u.Name,
				Type:         unitType,
				IsActive:     true,
			}); err != nil {
				return nil, fmt.Errorf("create unit %q: %w", u.Code, err)
			}
			res.Units++
		}
	}
	return ids, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, admin *Admin, res *Result) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if _, err := s.repos.Users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if len(admin.Password) < 8 {
		return errors.New("admin password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(admin.Password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := s.repos.Users.Create(ctx, &domain.User{
		Name:         admin.Name,
		Username:     admin.Username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
	}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	res.Users++
	return nil
}

func (s *Seeder) seedCatalog(ctx context.Context, cat Catalog, parentID *string, existing []domain.ServiceCatalog, deptIDs map[string]string, res *Result) error {
	var node *domain.ServiceCatalog
	for i := range existing {
		if strings.EqualFold(existing[i].Name, cat.Name) && sameParent(existing[i].ParentID, parentID) {
			node = &existing[i]
			break
		}
	}
	if node == nil {
		node = &domain.ServiceCatalog{ParentID: parentID, Name: cat.Name, Description: cat.Description, IsActive: true}
		if cat.Department != "" {
			id, ok := deptIDs[strings.ToLower(cat.Department)]
			if !ok {
				return fmt.Errorf("catalog %q references unknown department %q", cat.Name, cat.Department)
			}
			node.DepartmentID = &id
		}
		if err := s.repos.Catalog.CreateCatalog(ctx, node); err != nil {
			return fmt.Errorf("create catalog %q: %w", cat.Name, err)
		}
		res.Catalogs++
	}

	items, err := s.repos.Catalog.ListItems(ctx, node.ID, false)
	if err != nil {
		return fmt.Errorf("list items of %q: %w", cat.Name, err)
	}
	for _, it := range cat.Items {
		if err := s.seedItem(ctx, node.ID, it, items, res); err != nil {
			return err
		}
	}
	for _, child := range cat.Children {
		if err := s.seedCatalog(ctx, child, &node.ID, existing, deptIDs, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedItem(ctx context.Context, catalogID string, it Item, existing []domain.ServiceItem, res *Result) error {
	var itemID string
	for _, e := range existing {
		if strings.EqualFold(e.Name, it.Name) {
			itemID = e.ID
			break
		}
	}
	if itemID == "" {
		priority := domain.TicketPriority(it.DefaultPriority)
		if priority == "" {
			priority = domain.TicketPriorityMedium
		}
		item := &domain.ServiceItem{
			CatalogID:        catalogID,
			Name:             it.Name,
			Description:      it.Description,
			RequiresApproval: it.RequiresApproval,
			SLAHours:         it.SLAHours,
			DefaultPriority:  priority,
			IsActive:         true,
		}
		if err := s.repos.Catalog.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("create item %q: %w", it.Name, err)
		}
		itemID = item.ID
		res.Items++
	}

	templates, err := s.repos.Catalog.ListTemplates(ctx, itemID)
	if err != nil {
		return fmt.Errorf("list templates of %q: %w", it.Name, err)
	}
	names := make(map[string]struct{}, len(templates))
	for _, t := range templates {
		names[strings.ToLower(t.Name)] = struct{}{}
	}
	for _, t := range it.Templates {
		if _, ok := names[strings.ToLower(t.Name)]; ok {
			continue
		}
		if err := s.repos.Catalog.CreateTemplate(ctx, &domain.ServiceTemplate{
			ServiceItemID: itemID,
			Name:          t.Name,
			Description:   t.Description,
			IsActive:      true,
			Fields:        t.Fields,
		}); err != nil {
			return fmt.Errorf("create template %q: %w", t.Name, err)
		}
		res.Templates++
	}
	return nil
}

func (s *Seeder) seedBSG(ctx context.Context, categories []BSGCategory, res *Result) error {
	if len(categories) == 0 {
		return nil
	}
	current, err := s.repos.BSG.ListCategories(ctx, false)
	if err != nil {
		return fmt.Errorf("list bsg categories: %w", err)
	}
	catIDs := make(map[string]string, len(current))
	for _, c := range current {
		catIDs[strings.ToLower(c.Name)] = c.ID
	}
	templates, err := s.repos.BSG.List(ctx, repository.BSGTemplateFilter{})
	if err != nil {
		return fmt.Errorf("list bsg templates: %w", err)
	}
	numbers := make(map[int]struct{}, len(templates))
	for _, t := range templates {
		numbers[t.TemplateNumber] = struct{}{}
	}

	for _, cat := range categories {
		id, ok := catIDs[strings.ToLower(cat.Name)]
		if !ok {
			category := &domain.BSGTemplateCategory{Name: cat.Name, Description: cat.Description, SortOrder: cat.SortOrder, IsActive: true}
			if err := s.repos.BSG.CreateCategory(ctx, category); err != nil {
				return fmt.Errorf("create bsg category %q: %w", cat.Name, err)
			}
			id = category.ID
			catIDs[strings.ToLower(cat.Name)] = id
		}
		for _, t := range cat.Templates {
			if _, ok := numbers[t.Number]; ok {
				continue
			}
			if err := s.repos.BSG.Create(ctx, &domain.BSGTemplate{
				CategoryID:       id,
				TemplateNumber:   t.Number,
				Name:             t.Name,
				Description:      t.Description,
				RequiresApproval: t.RequiresApproval,
				SLAHours:         t.SLAHours,
				IsActive:         true,
				Fields:           t.Fields,
			}); err != nil {
				return fmt.Errorf("create bsg template %d: %w", t.Number, err)
			}
			numbers[t.Number] = struct{}{}
			res.BSGTemplates++
		}
	}
	return nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
