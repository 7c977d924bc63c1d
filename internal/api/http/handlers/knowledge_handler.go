package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/service"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// KnowledgeHandler serves the knowledge base.
type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
}

// NewKnowledgeHandler constructs handler.
func NewKnowledgeHandler(knowledge *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// Search GET /api/knowledge.
func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page := parsePage(c)
	search := service.ArticleSearch{
		SearchTerm: optionalQuery(c, "search"),
		CategoryID: optionalQuery(c, "category_id"),
		Tag:        optionalQuery(c, "tag"),
		Limit:      page.PageSize,
		Offset:     page.Offset(),
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.ArticleStatus(raw)
		if !status.Valid() {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": raw})
		}
		search.Status = &status
	}
	articles, total, err := h.knowledge.Search(c.UserContext(), user, search)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       articles,
		"pagination": dto.Pagination{Page: page.Page, PageSize: page.PageSize, Total: total},
	})
}

// Popular GET /api/knowledge/popular.
func (h *KnowledgeHandler) Popular(c *fiber.Ctx) error {
	articles, err := h.knowledge.Popular(c.UserContext(), parseInt(c.Query("limit"), 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articles})
}

// Get GET /api/knowledge/:id accepts an id or a slug.
func (h *KnowledgeHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	view, err := h.knowledge.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ArticleResponse{KnowledgeArticle: view.Article, HTML: view.HTML}})
}

// Create POST /api/knowledge.
func (h *KnowledgeHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ArticleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	article, err := h.knowledge.Create(c.UserContext(), user, articleInput(req))
	if err != nil {
		return err
	}
	return created(c, article)
}

// Update PUT /api/knowledge/:id.
func (h *KnowledgeHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ArticleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	article, err := h.knowledge.Update(c.UserContext(), user, c.Params("id"), articleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": article})
}

// SetStatus PATCH /api/knowledge/:id/status.
func (h *KnowledgeHandler) SetStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ArticleStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	article, err := h.knowledge.SetStatus(c.UserContext(), user, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": article})
}

// Delete DELETE /api/knowledge/:id.
func (h *KnowledgeHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.knowledge.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Feedback POST /api/knowledge/:id/feedback.
func (h *KnowledgeHandler) Feedback(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ArticleFeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	article, err := h.knowledge.Feedback(c.UserContext(), user, c.Params("id"), *req.Helpful)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": article})
}

// ListCategories GET /api/knowledge/categories.
func (h *KnowledgeHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.knowledge.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}

// CreateCategory POST /api/knowledge/categories.
func (h *KnowledgeHandler) CreateCategory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.KnowledgeCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.knowledge.CreateCategory(c.UserContext(), user, req.Name, req.Description, req.ParentID)
	if err != nil {
		return err
	}
	return created(c, category)
}

func articleInput(req dto.ArticleRequest) service.ArticleInput {
	return service.ArticleInput{
		Title:      req.Title,
		Summary:    req.Summary,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
	}
}
