package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

type fakeArticles struct {
	repository.KnowledgeRepository
	byID       map[string]*domain.KnowledgeArticle
	lastFilter repository.ArticleFilter
	views      int
}

func newFakeArticles() *fakeArticles {
	return &fakeArticles{byID: map[string]*domain.KnowledgeArticle{}}
}

func (f *fakeArticles) Create(ctx context.Context, article *domain.KnowledgeArticle) error {
	article.ID = "article-" + strconv.Itoa(len(f.byID)+1)
	cp := *article
	f.byID[article.ID] = &cp
	return nil
}

func (f *fakeArticles) Update(ctx context.Context, article *domain.KnowledgeArticle) error {
	if _, ok := f.byID[article.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *article
	f.byID[article.ID] = &cp
	return nil
}

func (f *fakeArticles) GetByID(ctx context.Context, id string) (*domain.KnowledgeArticle, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArticles) GetBySlug(ctx context.Context, slug string) (*domain.KnowledgeArticle, error) {
	for _, a := range f.byID {
		if a.Slug == slug {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeArticles) Search(ctx context.Context, filter repository.ArticleFilter) ([]domain.KnowledgeArticle, int, error) {
	f.lastFilter = filter
	return nil, 0, nil
}

func (f *fakeArticles) IncrementViews(ctx context.Context, id string) error {
	f.views++
	return nil
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Reset OLIBS Password":       "reset-olibs-password",
		"  VPN -- not connecting! ":  "vpn-not-connecting",
		"Kartu ATM terblokir (2024)": "kartu-atm-terblokir-2024",
		"Café & Tëller":              "caf-t-ller",
		"???":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"vpn", "network"}, normalizeTags([]string{" VPN", "network", "vpn", ""}))
	assert.Empty(t, normalizeTags(nil))
}

func TestKnowledge_CreateAndPublish(t *testing.T) {
	repo := newFakeArticles()
	svc := NewKnowledgeService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	tech := user("tech", domain.RoleTechnician, "ops")

	_, err := svc.Create(ctx, user("req", domain.RoleRequester, "ops"), ArticleInput{Title: strPtr("x"), Content: strPtr("y")})
	requireCode(t, err, "FORBIDDEN")
	_, err = svc.Create(ctx, tech, ArticleInput{Title: strPtr("VPN setup")})
	requireCode(t, err, "VALIDATION_FAILED")

	first, err := svc.Create(ctx, tech, ArticleInput{Title: strPtr("VPN setup"), Content: strPtr("# Steps"), Tags: []string{"VPN"}})
	require.NoError(t, err)
	assert.Equal(t, "vpn-setup", first.Slug)
	assert.Equal(t, domain.ArticleDraft, first.Status)
	assert.Equal(t, []string{"vpn"}, first.Tags)

	second, err := svc.Create(ctx, tech, ArticleInput{Title: strPtr("VPN Setup"), Content: strPtr("again")})
	require.NoError(t, err)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "vpn-setup-")

	published, err := svc.SetStatus(ctx, tech, first.ID, domain.ArticlePublished)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, svc.now(), *published.PublishedAt)
}

func TestKnowledge_RequesterSeesPublishedOnly(t *testing.T) {
	repo := newFakeArticles()
	svc := NewKnowledgeService(repo, nil, nil)
	ctx := context.Background()
	requester := user("req", domain.RoleRequester, "ops")

	draft := domain.ArticleDraft
	_, _, err := svc.Search(ctx, requester, ArticleSearch{Status: &draft})
	require.NoError(t, err)
	assert.Equal(t, []domain.ArticleStatus{domain.ArticlePublished}, repo.lastFilter.Statuses)

	_, _, err = svc.Search(ctx, user("tech", domain.RoleTechnician, "ops"), ArticleSearch{Status: &draft})
	require.NoError(t, err)
	assert.Equal(t, []domain.ArticleStatus{domain.ArticleDraft}, repo.lastFilter.Statuses)

	repo.byID["a-1"] = &domain.KnowledgeArticle{ID: "a-1", Slug: "draft-note", Status: domain.ArticleDraft, Content: "hidden"}
	repo.byID["a-2"] = &domain.KnowledgeArticle{ID: "a-2", Slug: "printer-jam", Status: domain.ArticlePublished, Content: "**Open** tray"}

	_, err = svc.Get(ctx, requester, "draft-note")
	requireCode(t, err, "NOT_FOUND")

	view, err := svc.Get(ctx, requester, "Printer-Jam")
	require.NoError(t, err)
	assert.Contains(t, view.HTML, "<strong>Open</strong>")
	assert.Equal(t, 1, view.Article.ViewCount)
	assert.Equal(t, 1, repo.views)
}

func TestKnowledge_FeedbackNeedsPublished(t *testing.T) {
	repo := newFakeArticles()
	repo.byID["a-1"] = &domain.KnowledgeArticle{ID: "a-1", Status: domain.ArticleDraft}
	svc := NewKnowledgeService(repo, nil, nil)

	_, err := svc.Feedback(context.Background(), user("req", domain.RoleRequester, "ops"), "a-1", true)
	requireCode(t, err, "CONFLICT")
}
