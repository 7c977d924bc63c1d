package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/markdown"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// KnowledgeService manages self-service articles.
type KnowledgeService struct {
	repo     repository.KnowledgeRepository
	renderer markdown.Renderer
	logger   *zap.Logger
	now      func() time.Time
}

// ArticleInput carries article content. Nil pointers are left untouched on update.
type ArticleInput struct {
	Title      *string
	Summary    *string
	Content    *string
	CategoryID *string
	Tags       []string
}

// ArticleSearch describes a knowledge search.
type ArticleSearch struct {
	SearchTerm *string
	CategoryID *string
	Tag        *string
	Status     *domain.ArticleStatus
	Limit      int
	Offset     int
}

// ArticleView is an article with its content rendered to sanitized HTML.
type ArticleView struct {
	Article *domain.KnowledgeArticle
	HTML    string
}

// NewKnowledgeService constructs the service.
func NewKnowledgeService(repo repository.KnowledgeRepository, renderer markdown.Renderer, logger *zap.Logger) *KnowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}
	return &KnowledgeService{repo: repo, renderer: renderer, logger: logger, now: nowUTC}
}

// Search finds articles. Requesters only ever see published ones.
func (s *KnowledgeService) Search(ctx context.Context, actor *domain.User, search ArticleSearch) ([]domain.KnowledgeArticle, int, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	filter := repository.ArticleFilter{
		SearchTerm: trimmedPtr(search.SearchTerm),
		CategoryID: trimmedPtr(search.CategoryID),
		Tag:        trimmedPtr(search.Tag),
		Limit:      search.Limit,
		Offset:     search.Offset,
	}
	switch {
	case !actor.Role.IsStaff():
		filter.Statuses = []domain.ArticleStatus{domain.ArticlePublished}
	case search.Status != nil:
		if !search.Status.Valid() {
			return nil, 0, apperrors.NewValidationError("invalid status", map[string]any{"status": *search.Status})
		}
		filter.Statuses = []domain.ArticleStatus{*search.Status}
	}
	articles, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return articles, total, nil
}

// Get loads an article by id or slug, counts the view and renders it.
func (s *KnowledgeService) Get(ctx context.Context, actor *domain.User, idOrSlug string) (*ArticleView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	article, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if article.Status != domain.ArticlePublished && !actor.Role.IsStaff() {
		return nil, apperrors.NewNotFound("article", map[string]any{"article": idOrSlug})
	}
	if article.Status == domain.ArticlePublished {
		if err := s.repo.IncrementViews(ctx, article.ID); err != nil {
			s.logger.Warn("failed to count article view", zap.String("article_id", article.ID), zap.Error(err))
		} else {
			article.ViewCount++
		}
	}
	html, err := s.renderer.ToHTMLSanitized(article.Content)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &ArticleView{Article: article, HTML: html}, nil
}

func (s *KnowledgeService) lookup(ctx context.Context, idOrSlug string) (*domain.KnowledgeArticle, error) {
	var (
		article *domain.KnowledgeArticle
		err     error
	)
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		article, err = s.repo.GetByID(ctx, idOrSlug)
	} else {
		article, err = s.repo.GetBySlug(ctx, strings.ToLower(idOrSlug))
	}
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article": idOrSlug})
	}
	return article, nil
}

// Create drafts a new article.
func (s *KnowledgeService) Create(ctx context.Context, actor *domain.User, input ArticleInput) (*domain.KnowledgeArticle, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "is required"})
	}
	if input.Content == nil || strings.TrimSpace(*input.Content) == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"content": "is required"})
	}
	article := &domain.KnowledgeArticle{
		Status:   domain.ArticleDraft,
		AuthorID: actor.ID,
	}
	applyArticle(article, input)
	slug, err := s.uniqueSlug(ctx, article.Title)
	if err != nil {
		return nil, err
	}
	article.Slug = slug
	if err := s.repo.Create(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

// Update edits an article's content.
func (s *KnowledgeService) Update(ctx context.Context, actor *domain.User, id string, input ArticleInput) (*domain.KnowledgeArticle, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "is required"})
	}
	applyArticle(article, input)
	if err := s.repo.Update(ctx, article); err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	return article, nil
}

// SetStatus publishes, archives or returns an article to draft.
func (s *KnowledgeService) SetStatus(ctx context.Context, actor *domain.User, id string, status domain.ArticleStatus) (*domain.KnowledgeArticle, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	if article.Status == status {
		return article, nil
	}
	article.Status = status
	if status == domain.ArticlePublished && article.PublishedAt == nil {
		now := s.now()
		article.PublishedAt = &now
	}
	if err := s.repo.Update(ctx, article); err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	s.logger.Info("article status changed", zap.String("article_id", article.ID), zap.String("status", string(status)))
	return article, nil
}

// Delete soft deletes an article.
func (s *KnowledgeService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
		return apperrors.NewForbidden("insufficient role")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	return nil
}

// Feedback records whether the reader found a published article helpful. Repeating a vote changes it.
func (s *KnowledgeService) Feedback(ctx context.Context, actor *domain.User, id string, helpful bool) (*domain.KnowledgeArticle, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	if article.Status != domain.ArticlePublished {
		return nil, apperrors.NewConflict("feedback is only accepted on published articles", map[string]any{"status": article.Status})
	}
	updated, err := s.repo.SetFeedback(ctx, &domain.ArticleFeedback{ArticleID: article.ID, UserID: actor.ID, Helpful: helpful})
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", map[string]any{"article_id": id})
	}
	return updated, nil
}

// Popular returns the most read published articles.
func (s *KnowledgeService) Popular(ctx context.Context, limit int) ([]domain.KnowledgeArticle, error) {
	articles, err := s.repo.Popular(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return articles, nil
}

// ListCategories returns every knowledge category.
func (s *KnowledgeService) ListCategories(ctx context.Context) ([]domain.KnowledgeCategory, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// CreateCategory adds a knowledge category.
func (s *KnowledgeService) CreateCategory(ctx context.Context, actor *domain.User, name, description string, parentID *string) (*domain.KnowledgeCategory, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"name": "is required"})
	}
	category := &domain.KnowledgeCategory{
		ParentID:    trimmedPtr(parentID),
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

func (s *KnowledgeService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "article"
	}
	slug := base
	for attempt := 0; attempt < 5; attempt++ {
		_, err := s.repo.GetBySlug(ctx, slug)
		if isNotFound(err) {
			return slug, nil
		}
		if err != nil {
			return "", apperrors.MapError(err)
		}
		slug = base + "-" + uuid.NewString()[:6]
	}
	return "", apperrors.NewConflict("could not allocate a unique slug", map[string]any{"title": title})
}

func applyArticle(article *domain.KnowledgeArticle, input ArticleInput) {
	if input.Title != nil {
		article.Title = strings.TrimSpace(*input.Title)
	}
	if input.Summary != nil {
		article.Summary = strings.TrimSpace(*input.Summary)
	}
	if input.Content != nil {
		article.Content = *input.Content
	}
	if input.CategoryID != nil {
		article.CategoryID = trimmedPtr(input.CategoryID)
	}
	if input.Tags != nil {
		article.Tags = normalizeTags(input.Tags)
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 80 {
		slug = strings.TrimSuffix(slug[:80], "-")
	}
	return slug
}

func requireAuthor(user *domain.User) error {
	if err := requireActor(user); err != nil {
		return err
	}
	if !user.Role.IsStaff() {
		return apperrors.NewForbidden("only staff may manage knowledge articles")
	}
	return nil
}
