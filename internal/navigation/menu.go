// Package navigation holds the role-filtered menu served to front-ends.
package navigation

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

//go:embed menu.yaml
var defaultCatalog []byte

// Entry is one menu item. Entries without a path only group their children.
type Entry struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Path     string        `json:"path,omitempty"`
	Icon     string        `json:"icon,omitempty"`
	Roles    []domain.Role `json:"-"`
	Children []Entry       `json:"children,omitempty"`
}

type rawEntry struct {
	ID       string     `yaml:"id"`
	Title    string     `yaml:"title"`
	Path     string     `yaml:"path"`
	Icon     string     `yaml:"icon"`
	Roles    []string   `yaml:"roles"`
	Children []rawEntry `yaml:"children"`
}

// Catalog is the full, validated menu tree.
type Catalog struct {
	entries []Entry
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog. Unknown role labels fail the load.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Entries []rawEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode menu catalog: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, errors.New("menu catalog is empty")
	}

	seen := make(map[string]struct{})
	entries, err := convertEntries(doc.Entries, seen)
	if err != nil {
		return nil, err
	}
	return &Catalog{entries: entries}, nil
}

func convertEntries(raw []rawEntry, seen map[string]struct{}) ([]Entry, error) {
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			return nil, fmt.Errorf("menu entry %q has no id", r.Title)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate menu entry id %q", r.ID)
		}
		seen[r.ID] = struct{}{}

		roles, err := domain.ParseRoles(r.Roles)
		if err != nil {
			return nil, fmt.Errorf("menu entry %q: %w", r.ID, err)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("menu entry %q has no roles", r.ID)
		}
		if r.Path == "" && len(r.Children) == 0 {
			return nil, fmt.Errorf("menu entry %q needs a path or children", r.ID)
		}
		children, err := convertEntries(r.Children, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			ID:       r.ID,
			Title:    r.Title,
			Path:     r.Path,
			Icon:     r.Icon,
			Roles:    roles,
			Children: children,
		})
	}
	return out, nil
}

// MenuFor returns the entries visible to role. Groups left without visible
// children are dropped.
func (c *Catalog) MenuFor(role domain.Role) []Entry {
	if !role.Valid() {
		return []Entry{}
	}
	return filterEntries(c.entries, role)
}

func filterEntries(entries []Entry, role domain.Role) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !allowed(e.Roles, role) {
			continue
		}
		visible := e
		visible.Children = nil
		if len(e.Children) > 0 {
			visible.Children = filterEntries(e.Children, role)
			if len(visible.Children) == 0 && e.Path == "" {
				continue
			}
		}
		out = append(out, visible)
	}
	return out
}

// Allows reports whether some entry visible to role points at path.
func (c *Catalog) Allows(path string, role domain.Role) bool {
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}
	return containsPath(c.MenuFor(role), path)
}

func containsPath(entries []Entry, path string) bool {
	for _, e := range entries {
		if e.Path == path || containsPath(e.Children, path) {
			return true
		}
	}
	return false
}

func allowed(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
