package dto

import (
	"time"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// ArticleRequest payload for creating or replacing a knowledge-base article.
type ArticleRequest struct {
	Kind      domain.ArticleKind `json:"kind" validate:"required,oneof=DOCUMENT VIDEO"`
	Title     string             `json:"title" validate:"required,max=200"`
	Summary   string             `json:"summary" validate:"max=500"`
	Body      string             `json:"body"`
	VideoURL  string             `json:"video_url" validate:"omitempty,url"`
	Tags      []string           `json:"tags" validate:"max=20,dive,max=40"`
	Audience  []string           `json:"audience" validate:"dive,required"`
	Published bool               `json:"published"`
}

// ArticleResponse is a knowledge-base article.
type ArticleResponse struct {
	ID        string             `json:"id"`
	Kind      domain.ArticleKind `json:"kind"`
	Title     string             `json:"title"`
	Summary   string             `json:"summary"`
	Body      string             `json:"body,omitempty"`
	VideoURL  string             `json:"video_url,omitempty"`
	Tags      []string           `json:"tags"`
	Audience  []string           `json:"audience"`
	Published bool               `json:"published"`
	AuthorID  string             `json:"author_id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
