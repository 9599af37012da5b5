package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromLocals(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

// idParam returns a path id. Malformed ids cannot exist, so they are reported as not found.
func idParam(c *fiber.Ctx, name, resource string) (string, error) {
	raw := c.Params(name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperrors.NewNotFound(resource, map[string]any{name: raw})
	}
	return raw, nil
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	limit = parseInt(c.Query("page_size"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, (page - 1) * limit
}

func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid timestamp", map[string]any{"value": val, "format": "RFC3339"})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) *bool {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func roleLabel(role domain.Role) string {
	if !role.Valid() {
		return ""
	}
	return role.String()
}

func respondCreated(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func respondData(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}
