package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/events"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

func requirePrincipal(p *auth.Principal) error {
	if p == nil || p.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !p.Role.Valid() {
		return apperrors.NewForbidden("no effective role")
	}
	return nil
}

func actorOf(p *auth.Principal) events.Actor {
	return events.Actor{UserID: p.UserID(), Role: p.Role}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments)
}

// notFoundOr turns store misses into a typed 404 for resource and maps everything else.
func notFoundOr(err error, resource string, details map[string]any) error {
	if isNotFound(err) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
