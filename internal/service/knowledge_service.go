package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// KnowledgeService manages knowledge-base documents and videos.
type KnowledgeService struct {
	articles repository.KnowledgeRepository
}

// NewKnowledgeService constructs the service.
func NewKnowledgeService(articles repository.KnowledgeRepository) *KnowledgeService {
	return &KnowledgeService{articles: articles}
}

// ArticleInput carries article fields.
type ArticleInput struct {
	Kind      domain.ArticleKind
	Title     string
	Summary   string
	Body      string
	VideoURL  string
	Tags      []string
	Audience  []string
	Published bool
}

// Create publishes a new article. Administrators only.
func (s *KnowledgeService) Create(ctx context.Context, p *auth.Principal, input ArticleInput) (*domain.Article, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	article := &domain.Article{AuthorID: p.UserID()}
	if err := applyArticle(article, input); err != nil {
		return nil, err
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

// Update replaces an article's content.
func (s *KnowledgeService) Update(ctx context.Context, p *auth.Principal, id string, input ArticleInput) (*domain.Article, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "article", map[string]any{"article_id": id})
	}
	if err := applyArticle(article, input); err != nil {
		return nil, err
	}
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, notFoundOr(err, "article", map[string]any{"article_id": id})
	}
	return article, nil
}

// Delete removes an article.
func (s *KnowledgeService) Delete(ctx context.Context, p *auth.Principal, id string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return notFoundOr(err, "article", map[string]any{"article_id": id})
	}
	return nil
}

// Get returns an article the caller is allowed to see.
func (s *KnowledgeService) Get(ctx context.Context, p *auth.Principal, id string) (*domain.Article, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "article", map[string]any{"article_id": id})
	}
	if !p.Role.CanAdminister() && (!article.Published || !article.VisibleTo(p.Role)) {
		return nil, apperrors.NewNotFound("article", map[string]any{"article_id": id})
	}
	return article, nil
}

// List returns articles visible to the caller. Administrators also see drafts
// and every audience.
func (s *KnowledgeService) List(ctx context.Context, p *auth.Principal, filter repository.ArticleFilter) ([]domain.Article, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.Role.CanAdminister() {
		role := p.Role
		filter.Audience = &role
		filter.PublishedOnly = true
	}
	articles, err := s.articles.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return articles, nil
}

func applyArticle(article *domain.Article, input ArticleInput) error {
	audience, err := domain.ParseRoles(input.Audience)
	if err != nil {
		return apperrors.NewValidationError("invalid audience", map[string]any{"audience": err.Error()})
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return apperrors.NewValidationError("title is required", map[string]any{"title": "required"})
	}

	switch input.Kind {
	case domain.ArticleKindDocument:
		if strings.TrimSpace(input.Body) == "" {
			return apperrors.NewValidationError("documents need a body", map[string]any{"body": "required"})
		}
	case domain.ArticleKindVideo:
		u, err := url.Parse(strings.TrimSpace(input.VideoURL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.NewValidationError("videos need an http(s) url", map[string]any{"video_url": "invalid"})
		}
	default:
		return apperrors.NewValidationError("invalid kind", map[string]any{"kind": input.Kind})
	}

	article.Kind = input.Kind
	article.Title = title
	article.Summary = strings.TrimSpace(input.Summary)
	article.Body = strings.TrimSpace(input.Body)
	article.VideoURL = strings.TrimSpace(input.VideoURL)
	article.Tags = normalizeTags(input.Tags)
	article.Audience = audience
	article.Published = input.Published
	return nil
}
