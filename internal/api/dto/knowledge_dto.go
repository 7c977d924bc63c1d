package dto

import "github.com/bsg-enterprise/ticketing/internal/domain"

// ArticleRequest creates or edits a knowledge article.
type ArticleRequest struct {
	Title      *string  `json:"title" validate:"omitempty,max=255"`
	Summary    *string  `json:"summary" validate:"omitempty,max=1000"`
	Content    *string  `json:"content"`
	CategoryID *string  `json:"category_id"`
	Tags       []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// ArticleStatusRequest publishes, archives or drafts an article.
type ArticleStatusRequest struct {
	Status domain.ArticleStatus `json:"status" validate:"required,oneof=draft published archived"`
}

// ArticleFeedbackRequest records whether an article helped.
type ArticleFeedbackRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// KnowledgeCategoryRequest creates a knowledge category.
type KnowledgeCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

// ArticleResponse is an article with its rendered body.
type ArticleResponse struct {
	*domain.KnowledgeArticle
	HTML string `json:"html"`
}
