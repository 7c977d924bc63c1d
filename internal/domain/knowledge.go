package domain

import "time"

// ArticleStatus is the publication state of a knowledge article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleArchived  ArticleStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	return s == ArticleDraft || s == ArticlePublished || s == ArticleArchived
}

// KnowledgeCategory groups articles.
type KnowledgeCategory struct {
	ID          string    `json:"id"`
	ParentID    *string   `json:"parent_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// KnowledgeArticle is a self-service how-to or known-error write up, authored in markdown.
type KnowledgeArticle struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Summary         string        `json:"summary"`
	Content         string        `json:"content"`
	CategoryID      *string       `json:"category_id"`
	Tags            []string      `json:"tags"`
	Status          ArticleStatus `json:"status"`
	AuthorID        string        `json:"author_id"`
	ViewCount       int           `json:"view_count"`
	HelpfulCount    int           `json:"helpful_count"`
	NotHelpfulCount int           `json:"not_helpful_count"`
	PublishedAt     *time.Time    `json:"published_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ArticleFeedback records whether one reader found an article helpful.
type ArticleFeedback struct {
	ArticleID string
	UserID    string
	Helpful   bool
	CreatedAt time.Time
}
