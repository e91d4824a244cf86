// Package content renders the site's markdown copy to sanitised HTML.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// Kinds of markdown document.
const (
	KindPage     = "pages"
	KindGuidance = "guidance"
)

var ErrNotFound = errors.New("content: not found")

//go:embed pages guidance
var embedded embed.FS

// Page is one rendered markdown document.
type Page struct {
	Kind      string
	Slug      string
	Lang      string
	Title     string
	Summary   string
	HTML      template.HTML
	UpdatedAt time.Time
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

// Library loads documents laid out as <kind>/<lang>/<slug>.md and caches the
// rendered result.
type Library struct {
	fsys     fs.FS
	fallback string
	md       goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	cache map[string]Page
}

// New returns a Library over fsys. Documents missing in a language are looked
// up in fallback.
func New(fsys fs.FS, fallback string) *Library {
	return &Library{
		fsys:     fsys,
		fallback: fallback,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Typographer, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: newPolicy(),
		cache:  make(map[string]Page),
	}
}

// Default returns the Library of built-in copy.
func Default(fallback string) *Library {
	return New(embedded, fallback)
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")
	policy.AllowAttrs("class").OnElements("p", "span", "aside")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// Get returns the document kind/slug in lang, or in the fallback language.
func (l *Library) Get(kind, slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	langs := []string{lang}
	if l.fallback != "" && l.fallback != lang {
		langs = append(langs, l.fallback)
	}
	for _, candidate := range langs {
		if candidate == "" {
			continue
		}
		page, err := l.load(kind, slug, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return page, err
	}
	return Page{}, ErrNotFound
}

func (l *Library) load(kind, slug, lang string) (Page, error) {
	key := path.Join(kind, lang, slug)
	l.mu.RLock()
	page, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return page, nil
	}

	data, err := fs.ReadFile(l.fsys, key+".md")
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("content: read %s: %w", key, err)
	}

	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", key, err)
		}
	}
	rendered, err := l.Render(body)
	if err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", key, err)
	}

	page = Page{
		Kind:    kind,
		Slug:    slug,
		Lang:    lang,
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		HTML:    rendered,
	}
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(front.UpdatedAt)); err == nil {
		page.UpdatedAt = t
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}

	l.mu.Lock()
	l.cache[key] = page
	l.mu.Unlock()
	return page, nil
}

// Render converts markdown to HTML and strips anything outside the policy.
func (l *Library) Render(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	// Sanitised by the policy above.
	return template.HTML(l.policy.SanitizeBytes(buf.Bytes())), nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\r\n")
		}
	}
	return "", input
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.ToLower(strings.TrimSpace(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part != "" {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
