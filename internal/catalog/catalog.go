// Package catalog holds the fixed set of style presets offered by the app.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cartoonify/internal/domain"
)

//go:embed styles.json
var defaultStyles []byte

// Catalog is an immutable, ordered set of style definitions.
type Catalog struct {
	styles []domain.StyleDefinition
	byID   map[domain.StyleID]int
}

// Default returns the catalog shipped with the binary.
func Default() *Catalog {
	c, err := Parse(defaultStyles)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded styles invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the default catalog when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a JSON array of style definitions. Ids are lower-cased and
// display names title-cased; duplicate or blank ids are rejected.
func Parse(raw []byte) (*Catalog, error) {
	var defs []domain.StyleDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(defs)
}

// New builds a catalog from definitions in display order.
func New(defs []domain.StyleDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("catalog: at least one style is required")
	}
	title := cases.Title(language.English)
	c := &Catalog{
		styles: make([]domain.StyleDefinition, 0, len(defs)),
		byID:   make(map[domain.StyleID]int, len(defs)),
	}
	for _, def := range defs {
		id := domain.StyleID(strings.ToLower(strings.TrimSpace(string(def.ID))))
		if id == "" {
			return nil, errors.New("catalog: style id is required")
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate style id %q", id)
		}
		name := strings.TrimSpace(def.DisplayName)
		if name == "" {
			name = string(id)
		}
		// Authored casing is kept; all-lowercase names from override files
		// are title-cased.
		if name == strings.ToLower(name) {
			name = title.String(name)
		}
		def.ID = id
		def.DisplayName = name
		def.PreviewRef = strings.TrimSpace(def.PreviewRef)
		c.byID[id] = len(c.styles)
		c.styles = append(c.styles, def)
	}
	return c, nil
}

// Lookup returns the style with the given id. Ids match case-insensitively.
func (c *Catalog) Lookup(id domain.StyleID) (domain.StyleDefinition, error) {
	key := domain.StyleID(strings.ToLower(strings.TrimSpace(string(id))))
	idx, ok := c.byID[key]
	if !ok {
		return domain.StyleDefinition{}, fmt.Errorf("%w: %q", domain.ErrUnknownStyle, id)
	}
	return c.styles[idx], nil
}

// All returns the styles in display order.
func (c *Catalog) All() []domain.StyleDefinition {
	return append([]domain.StyleDefinition(nil), c.styles...)
}

// Premium returns only the styles that require an entitlement.
func (c *Catalog) Premium() []domain.StyleDefinition {
	var out []domain.StyleDefinition
	for _, s := range c.styles {
		if s.IsPremium {
			out = append(out, s)
		}
	}
	return out
}
