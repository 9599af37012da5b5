package domain

import "time"

// ArticleKind distinguishes knowledge-base documents from videos.
type ArticleKind string

const (
	ArticleKindDocument ArticleKind = "DOCUMENT"
	ArticleKindVideo    ArticleKind = "VIDEO"
)

// Article is a knowledge-base page.
type Article struct {
	ID        string
	Kind      ArticleKind
	Title     string
	Summary   string
	Body      string
	VideoURL  string
	Tags      []string
	Audience  []Role
	Published bool
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VisibleTo reports whether role is in the article's audience. An empty audience
// means every role.
func (a *Article) VisibleTo(role Role) bool {
	if !role.Valid() {
		return false
	}
	if len(a.Audience) == 0 {
		return true
	}
	for _, r := range a.Audience {
		if r == role {
			return true
		}
	}
	return false
}
