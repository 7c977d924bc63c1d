package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// BSGTemplateService manages numbered core banking request forms and their master data.
type BSGTemplateService struct {
	repo   repository.BSGTemplateRepository
	logger *zap.Logger
}

// BSGTemplateInput describes a template to create or update. Nil Fields keeps the existing set on update.
type BSGTemplateInput struct {
	CategoryID       string
	TemplateNumber   int
	Name             string
	Description      string
	RequiresApproval bool
	SLAHours         *int
	IsActive         *bool
	Fields           []forms.Field
}

// BSGTemplateListFilter narrows template listings.
type BSGTemplateListFilter struct {
	CategoryID      *string
	SearchTerm      *string
	IncludeInactive bool
}

// NewBSGTemplateService constructs the service.
func NewBSGTemplateService(repo repository.BSGTemplateRepository, logger *zap.Logger) *BSGTemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BSGTemplateService{repo: repo, logger: logger}
}

// ListCategories returns template categories in display order.
func (s *BSGTemplateService) ListCategories(ctx context.Context, includeInactive bool) ([]domain.BSGTemplateCategory, error) {
	categories, err := s.repo.ListCategories(ctx, !includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// CreateCategory adds or refreshes a category by name.
func (s *BSGTemplateService) CreateCategory(ctx context.Context, actor *domain.User, name, description string, sortOrder int) (*domain.BSGTemplateCategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"name": "is required"})
	}
	category := &domain.BSGTemplateCategory{
		Name:        name,
		Description: strings.TrimSpace(description),
		SortOrder:   sortOrder,
		IsActive:    true,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListTemplates lists templates without their fields.
func (s *BSGTemplateService) ListTemplates(ctx context.Context, filter BSGTemplateListFilter) ([]domain.BSGTemplate, error) {
	templates, err := s.repo.List(ctx, repository.BSGTemplateFilter{
		CategoryID: trimmedPtr(filter.CategoryID),
		SearchTerm: trimmedPtr(filter.SearchTerm),
		ActiveOnly: !filter.IncludeInactive,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

// GetTemplate returns a template with its fields; master dropdowns carry their options.
func (s *BSGTemplateService) GetTemplate(ctx context.Context, id string) (*domain.BSGTemplate, error) {
	tmpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "bsg_template", map[string]any{"bsg_template_id": id})
	}
	fields, err := withMasterOptions(ctx, s.repo, tmpl.Fields)
	if err != nil {
		return nil, err
	}
	tmpl.Fields = fields
	return tmpl, nil
}

// CreateTemplate adds a template with its fields.
func (s *BSGTemplateService) CreateTemplate(ctx context.Context, actor *domain.User, input BSGTemplateInput) (*domain.BSGTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	tmpl := &domain.BSGTemplate{IsActive: true}
	if err := applyBSGTemplate(tmpl, input); err != nil {
		return nil, err
	}
	if tmpl.Fields == nil {
		tmpl.Fields = []forms.Field{}
	}
	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("bsg template created", zap.String("template_id", tmpl.ID), zap.Int("template_number", tmpl.TemplateNumber))
	return tmpl, nil
}

// UpdateTemplate replaces a template's attributes and, when given, its fields.
func (s *BSGTemplateService) UpdateTemplate(ctx context.Context, actor *domain.User, id string, input BSGTemplateInput) (*domain.BSGTemplate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	tmpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "bsg_template", map[string]any{"bsg_template_id": id})
	}
	existing := tmpl.Fields
	tmpl.Fields = nil
	if err := applyBSGTemplate(tmpl, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tmpl); err != nil {
		return nil, apperrors.NotFoundOr(err, "bsg_template", map[string]any{"bsg_template_id": id})
	}
	if tmpl.Fields == nil {
		tmpl.Fields = existing
	}
	return tmpl, nil
}

func applyBSGTemplate(tmpl *domain.BSGTemplate, input BSGTemplateInput) error {
	name := strings.TrimSpace(input.Name)
	details := map[string]any{}
	if name == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		details["category_id"] = "is required"
	}
	if input.TemplateNumber <= 0 {
		details["template_number"] = "must be positive"
	}
	if input.SLAHours != nil && *input.SLAHours <= 0 {
		details["sla_hours"] = "must be positive"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid template", details)
	}
	if input.Fields != nil {
		if err := checkFieldDefinitions(input.Fields); err != nil {
			return err
		}
	}
	tmpl.CategoryID = strings.TrimSpace(input.CategoryID)
	tmpl.TemplateNumber = input.TemplateNumber
	tmpl.Name = name
	tmpl.Description = strings.TrimSpace(input.Description)
	tmpl.RequiresApproval = input.RequiresApproval
	tmpl.SLAHours = input.SLAHours
	if input.IsActive != nil {
		tmpl.IsActive = *input.IsActive
	}
	tmpl.Fields = input.Fields
	return nil
}

// ValidateValues runs the form engine against a template without creating a ticket.
func (s *BSGTemplateService) ValidateValues(ctx context.Context, id string, values map[string]any) (map[string]any, error) {
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	return validateFieldValues(tmpl.Fields, values)
}

// ListMasterData returns the option list of one master data type.
func (s *BSGTemplateService) ListMasterData(ctx context.Context, dataType string, includeInactive bool) ([]domain.BSGMasterData, error) {
	dataType = strings.TrimSpace(dataType)
	if dataType == "" {
		return nil, apperrors.NewValidationError("data type is required", map[string]any{"type": "is required"})
	}
	entries, err := s.repo.ListMasterData(ctx, dataType, !includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// UpsertMasterData inserts or refreshes a master data entry keyed by type and code.
func (s *BSGTemplateService) UpsertMasterData(ctx context.Context, actor *domain.User, entry *domain.BSGMasterData) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	entry.DataType = strings.TrimSpace(entry.DataType)
	entry.Code = strings.TrimSpace(entry.Code)
	if entry.DataType == "" || entry.Code == "" {
		return apperrors.NewValidationError("data_type and code are required", nil)
	}
	if strings.TrimSpace(entry.Name) == "" {
		entry.Name = entry.Code
	}
	return apperrors.MapError(s.repo.UpsertMasterData(ctx, entry))
}
