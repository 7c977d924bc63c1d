package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/cache"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

const catalogCachePrefix = "catalog:"

// CatalogService manages the Catalog -> Item -> Template taxonomy with read-through caching.
type CatalogService struct {
	catalog repository.CatalogRepository
	bsg     repository.BSGTemplateRepository
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	CatalogRepo repository.CatalogRepository
	BSGRepo     repository.BSGTemplateRepository
	Cache       cache.Cache
	TTL         time.Duration
	Logger      *zap.Logger
}

// CatalogInput describes a catalog to create or update.
type CatalogInput struct {
	ParentID     *string
	DepartmentID *string
	Name         string
	Description  string
	IsActive     *bool
}

// ServiceItemInput describes a service item to create or update.
type ServiceItemInput struct {
	CatalogID        string
	Name             string
	Description      string
	RequiresApproval bool
	SLAHours         *int
	DefaultPriority  domain.TicketPriority
	IsActive         *bool
}

// ServiceTemplateInput describes a template with its fields.
type ServiceTemplateInput struct {
	ServiceItemID string
	Name          string
	Description   string
	Fields        []forms.Field
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Cache
	if c == nil {
		c = cache.Noop{}
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogService{
		catalog: deps.CatalogRepo,
		bsg:     deps.BSGRepo,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
	}
}

// ListCatalogs returns the catalog forest. Inactive nodes are only listed on request.
func (s *CatalogService) ListCatalogs(ctx context.Context, includeInactive bool) ([]domain.ServiceCatalog, error) {
	key := catalogCachePrefix + "tree:active"
	if includeInactive {
		key = catalogCachePrefix + "tree:all"
	}
	var tree []domain.ServiceCatalog
	if s.cached(ctx, key, &tree) {
		return tree, nil
	}
	flat, err := s.catalog.ListCatalogs(ctx, !includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tree = buildCatalogTree(flat)
	s.store(ctx, key, tree)
	return tree, nil
}

// GetCatalog returns one catalog with its active items.
func (s *CatalogService) GetCatalog(ctx context.Context, id string) (*domain.ServiceCatalog, error) {
	key := catalogCachePrefix + "catalog:" + id
	var cached domain.ServiceCatalog
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}
	cat, err := s.catalog.GetCatalog(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "service_catalog", map[string]any{"catalog_id": id})
	}
	items, err := s.catalog.ListItems(ctx, cat.ID, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	cat.Items = items
	s.store(ctx, key, cat)
	return cat, nil
}

// CreateCatalog adds a catalog node.
func (s *CatalogService) CreateCatalog(ctx context.Context, actor *domain.User, input CatalogInput) (*domain.ServiceCatalog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cat := &domain.ServiceCatalog{IsActive: true}
	if err := s.applyCatalog(ctx, cat, input); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateCatalog(ctx, cat); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return cat, nil
}

// UpdateCatalog replaces a catalog's attributes.
func (s *CatalogService) UpdateCatalog(ctx context.Context, actor *domain.User, id string, input CatalogInput) (*domain.ServiceCatalog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cat, err := s.catalog.GetCatalog(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "service_catalog", map[string]any{"catalog_id": id})
	}
	if err := s.applyCatalog(ctx, cat, input); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateCatalog(ctx, cat); err != nil {
		return nil, apperrors.NotFoundOr(err, "service_catalog", map[string]any{"catalog_id": id})
	}
	s.invalidate(ctx)
	return cat, nil
}

// DeleteCatalog soft deletes a catalog.
func (s *CatalogService) DeleteCatalog(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.catalog.DeleteCatalog(ctx, id); err != nil {
		return apperrors.NotFoundOr(err, "service_catalog", map[string]any{"catalog_id": id})
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) applyCatalog(ctx context.Context, cat *domain.ServiceCatalog, input CatalogInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"name": "is required"})
	}
	parentID := trimmedPtr(input.ParentID)
	if parentID != nil {
		if cat.ID != "" && *parentID == cat.ID {
			return apperrors.NewValidationError("a catalog cannot be its own parent", map[string]any{"parent_id": *parentID})
		}
		if err := s.checkNoCycle(ctx, cat.ID, *parentID); err != nil {
			return err
		}
	}
	cat.ParentID = parentID
	cat.DepartmentID = trimmedPtr(input.DepartmentID)
	cat.Name = name
	cat.Description = strings.TrimSpace(input.Description)
	if input.IsActive != nil {
		cat.IsActive = *input.IsActive
	}
	return nil
}

// checkNoCycle walks up from parentID and fails if it meets selfID.
func (s *CatalogService) checkNoCycle(ctx context.Context, selfID, parentID string) error {
	seen := map[string]bool{}
	current := &parentID
	for current != nil {
		if seen[*current] {
			break
		}
		seen[*current] = true
		if selfID != "" && *current == selfID {
			return apperrors.NewValidationError("catalog hierarchy would contain a cycle", map[string]any{"parent_id": parentID})
		}
		parent, err := s.catalog.GetCatalog(ctx, *current)
		if err != nil {
			return apperrors.NotFoundOr(err, "service_catalog", map[string]any{"catalog_id": *current})
		}
		current = parent.ParentID
	}
	return nil
}

// ListItems lists the items of a catalog.
func (s *CatalogService) ListItems(ctx context.Context, catalogID string, includeInactive bool) ([]domain.ServiceItem, error) {
	items, err := s.catalog.ListItems(ctx, catalogID, !includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// GetItem returns a service item with its active templates.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.ServiceItem, error) {
	key := catalogCachePrefix + "item:" + id
	var cached domain.ServiceItem
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}
	item, err := s.catalog.GetItem(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "service_item", map[string]any{"service_item_id": id})
	}
	templates, err := s.catalog.ListTemplates(ctx, item.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range templates {
		fields, err := withMasterOptions(ctx, s.bsg, templates[i].Fields)
		if err != nil {
			return nil, err
		}
		templates[i].Fields = fields
	}
	item.Templates = templates
	s.store(ctx, key, item)
	return item, nil
}

// CreateItem adds a service item to a catalog.
func (s *CatalogService) CreateItem(ctx context.Context, actor *domain.User, input ServiceItemInput) (*domain.ServiceItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	item := &domain.ServiceItem{IsActive: true}
	if err := s.applyItem(ctx, item, input); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateItem(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return item, nil
}

// UpdateItem replaces a service item's attributes.
func (s *CatalogService) UpdateItem(ctx context.Context, actor *domain.User, id string, input ServiceItemInput) (*domain.ServiceItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	item, err := s.catalog.GetItem(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "service_item", map[string]any{"service_item_id": id})
	}
	if input.CatalogID == "" {
		input.CatalogID = item.CatalogID
	}
	if err := s.applyItem(ctx, item, input); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateItem(ctx, item); err != nil {
		return nil, apperrors.NotFoundOr(err, "service_item", map[string]any{"service_item_id": id})
	}
	s.invalidate(ctx)
	return item, nil
}

// DeleteItem soft deletes a service item.
func (s *CatalogService) DeleteItem(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.catalog.DeleteItem(ctx, id); err != nil {
		return apperrors.NotFoundOr(err, "service_item", map[string]any{"service_item_id": id})
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) applyItem(ctx context.Context, item *domain.ServiceItem, input ServiceItemInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"name": "is required"})
	}
	if input.SLAHours != nil && *input.SLAHours <= 0 {
		return apperrors.NewValidationError("sla_hours must be positive", map[string]any{"sla_hours": *input.SLAHours})
	}
	priority := input.DefaultPriority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return apperrors.NewValidationError("invalid default priority", map[string]any{"default_priority": priority})
	}
	if _, err := s.catalog.GetCatalog(ctx, input.CatalogID); err != nil {
		return apperrors.NotFoundOr(err, "service_catalog", map[string]any{"catalog_id": input.CatalogID})
	}
	item.CatalogID = input.CatalogID
	item.Name = name
	item.Description = strings.TrimSpace(input.Description)
	item.RequiresApproval = input.RequiresApproval
	item.SLAHours = input.SLAHours
	item.DefaultPriority = priority
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
	return nil
}

// GetTemplate returns a template with its fields; master dropdowns carry their options.
func (s *CatalogService) GetTemplate(ctx context.Context, id string) (*domain.ServiceTemplate, error) {
	key := catalogCachePrefix + "template:" + id
	var cached domain.ServiceTemplate
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}
	tmpl, err := s.catalog.GetTemplate(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "service_template", map[string]any{"service_template_id": id})
	}
	fields, err := withMasterOptions(ctx, s.bsg, tmpl.Fields)
	if err != nil {
		return nil, err
	}
	tmpl.Fields = fields
	s.store(ctx, key, tmpl)
	return tmpl, nil
}

// CreateTemplate adds a template with its field definitions.
func (s *CatalogService) CreateTemplate(ctx context.Context, actor *domain.User, input ServiceTemplateInput) (*domain.ServiceTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"name": "is required"})
	}
	if err := checkFieldDefinitions(input.Fields); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetItem(ctx, input.ServiceItemID); err != nil {
		return nil, apperrors.NotFoundOr(err, "service_item", map[string]any{"service_item_id": input.ServiceItemID})
	}
	tmpl := &domain.ServiceTemplate{
		ServiceItemID: input.ServiceItemID,
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		IsActive:      true,
		Fields:        input.Fields,
	}
	if err := s.catalog.CreateTemplate(ctx, tmpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return tmpl, nil
}

// ReplaceTemplateFields swaps the field set of a template.
func (s *CatalogService) ReplaceTemplateFields(ctx context.Context, actor *domain.User, id string, fields []forms.Field) (*domain.ServiceTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkFieldDefinitions(fields); err != nil {
		return nil, err
	}
	if err := s.catalog.ReplaceTemplateFields(ctx, id, fields); err != nil {
		return nil, apperrors.NotFoundOr(err, "service_template", map[string]any{"service_template_id": id})
	}
	s.invalidate(ctx)
	return s.GetTemplate(ctx, id)
}

// DeleteTemplate deactivates a template.
func (s *CatalogService) DeleteTemplate(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.catalog.DeleteTemplate(ctx, id); err != nil {
		return apperrors.NotFoundOr(err, "service_template", map[string]any{"service_template_id": id})
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) cached(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *CatalogService) store(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, catalogCachePrefix); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

// buildCatalogTree nests catalogs under their parents. Orphans whose parent is not in the list become roots.
func buildCatalogTree(flat []domain.ServiceCatalog) []domain.ServiceCatalog {
	byParent := map[string][]domain.ServiceCatalog{}
	present := make(map[string]bool, len(flat))
	for _, c := range flat {
		present[c.ID] = true
	}
	var roots []domain.ServiceCatalog
	for _, c := range flat {
		if c.ParentID == nil || !present[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}
	var attach func(nodes []domain.ServiceCatalog, depth int) []domain.ServiceCatalog
	attach = func(nodes []domain.ServiceCatalog, depth int) []domain.ServiceCatalog {
		if depth > len(flat) {
			return nodes
		}
		for i := range nodes {
			nodes[i].Children = attach(byParent[nodes[i].ID], depth+1)
		}
		return nodes
	}
	result := attach(roots, 0)
	if result == nil {
		result = []domain.ServiceCatalog{}
	}
	return result
}
