package wheel

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Category is one segment of the wheel.
type Category struct {
	ID          string
	Label       string
	ShortLabel  string
	Description string
	Color       string
}

// Prompt is a free-text reflective question answered on the review step.
type Prompt struct {
	ID       string
	Question string
}

// Catalog is the fixed set of categories and prompts the exercise is built from.
// It is read once at start-up and never mutated.
type Catalog struct {
	HelperNote string
	Categories []Category
	Prompts    []Prompt

	categoryIdx map[string]int
	promptIdx   map[string]int
}

type catalogDocument struct {
	HelperNote string `yaml:"helper_note"`
	Categories []struct {
		ID          string `yaml:"id"`
		Label       string `yaml:"label"`
		ShortLabel  string `yaml:"short_label"`
		Description string `yaml:"description"`
		Color       string `yaml:"color"`
	} `yaml:"categories"`
	Prompts []struct {
		ID       string `yaml:"id"`
		Question string `yaml:"question"`
	} `yaml:"prompts"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the embedded eight-category catalog.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(bytes.NewReader(defaultCatalogYAML))
		if err != nil {
			panic(fmt.Sprintf("wheel: embedded catalog invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes a YAML catalog document and validates its identifiers.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var doc catalogDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("wheel: decode catalog: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, errors.New("wheel: catalog has no categories")
	}

	c := &Catalog{
		HelperNote:  strings.TrimSpace(doc.HelperNote),
		Categories:  make([]Category, 0, len(doc.Categories)),
		Prompts:     make([]Prompt, 0, len(doc.Prompts)),
		categoryIdx: make(map[string]int, len(doc.Categories)),
		promptIdx:   make(map[string]int, len(doc.Prompts)),
	}
	seen := make(map[string]struct{}, len(doc.Categories)+len(doc.Prompts))
	claim := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("wheel: %s id is required", kind)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("wheel: duplicate id %q", id)
		}
		seen[id] = struct{}{}
		return nil
	}

	for _, raw := range doc.Categories {
		id := strings.TrimSpace(raw.ID)
		if err := claim("category", id); err != nil {
			return nil, err
		}
		label := strings.TrimSpace(raw.Label)
		if label == "" {
			label = id
		}
		c.categoryIdx[id] = len(c.Categories)
		c.Categories = append(c.Categories, Category{
			ID:          id,
			Label:       label,
			ShortLabel:  strings.TrimSpace(raw.ShortLabel),
			Description: strings.TrimSpace(raw.Description),
			Color:       strings.TrimSpace(raw.Color),
		})
	}
	for _, raw := range doc.Prompts {
		id := strings.TrimSpace(raw.ID)
		if err := claim("prompt", id); err != nil {
			return nil, err
		}
		c.promptIdx[id] = len(c.Prompts)
		c.Prompts = append(c.Prompts, Prompt{ID: id, Question: strings.TrimSpace(raw.Question)})
	}
	return c, nil
}

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.Categories) }

// Category looks up a category by id.
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.categoryIdx[id]
	if !ok {
		return Category{}, false
	}
	return c.Categories[i], true
}

// Prompt looks up a reflective prompt by id.
func (c *Catalog) Prompt(id string) (Prompt, bool) {
	i, ok := c.promptIdx[id]
	if !ok {
		return Prompt{}, false
	}
	return c.Prompts[i], true
}

// HasCategory reports whether id names a category.
func (c *Catalog) HasCategory(id string) bool {
	_, ok := c.categoryIdx[id]
	return ok
}

// IsReflectionKey reports whether id may carry reflection text: every category
// accepts a note and every prompt accepts an answer.
func (c *Catalog) IsReflectionKey(id string) bool {
	if _, ok := c.categoryIdx[id]; ok {
		return true
	}
	_, ok := c.promptIdx[id]
	return ok
}
