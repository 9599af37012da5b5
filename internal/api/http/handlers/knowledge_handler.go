package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	"github.com/helpdeskhq/helpdesk/internal/service"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// KnowledgeHandler serves the knowledge base.
type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
	validator *Validator
}

// NewKnowledgeHandler constructs handler.
func NewKnowledgeHandler(knowledge *service.KnowledgeService, validator *Validator) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge, validator: validator}
}

// Create POST /knowledge.
func (h *KnowledgeHandler) Create(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ArticleRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	article, err := h.knowledge.Create(c.UserContext(), p, articleInput(req))
	if err != nil {
		return err
	}
	return respondCreated(c, articleResponse(article))
}

// Update PUT /knowledge/:id.
func (h *KnowledgeHandler) Update(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ArticleRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	article, err := h.knowledge.Update(c.UserContext(), p, c.Params("id"), articleInput(req))
	if err != nil {
		return err
	}
	return respondData(c, articleResponse(article))
}

// Delete DELETE /knowledge/:id.
func (h *KnowledgeHandler) Delete(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.knowledge.Delete(c.UserContext(), p, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Get GET /knowledge/:id.
func (h *KnowledgeHandler) Get(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	article, err := h.knowledge.Get(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, articleResponse(article))
}

// List GET /knowledge?kind=&tag=&audience=&published=.
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	filter := repository.ArticleFilter{
		Tag:    optionalQuery(c, "tag"),
		Limit:  limit,
		Offset: offset,
	}
	if kind := strings.TrimSpace(c.Query("kind")); kind != "" {
		k := domain.ArticleKind(strings.ToUpper(kind))
		filter.Kind = &k
	}
	if audience := strings.TrimSpace(c.Query("audience")); audience != "" {
		role, err := domain.ParseRole(audience)
		if err != nil {
			return apperrors.NewValidationError("invalid audience", map[string]any{"audience": audience})
		}
		filter.Audience = &role
	}
	if published := parseBool(c.Query("published")); published != nil {
		filter.PublishedOnly = *published
	}
	articles, err := h.knowledge.List(c.UserContext(), p, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, articleResponse(&articles[i]))
	}
	return respondData(c, items)
}

func articleInput(req dto.ArticleRequest) service.ArticleInput {
	return service.ArticleInput{
		Kind:      req.Kind,
		Title:     req.Title,
		Summary:   req.Summary,
		Body:      req.Body,
		VideoURL:  req.VideoURL,
		Tags:      req.Tags,
		Audience:  req.Audience,
		Published: req.Published,
	}
}
