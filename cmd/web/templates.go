package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/format"
	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/wheel"
)

// pageTemplates maps a page name (pages/<name>.tmpl) to its parsed set. Every
// set shares the layouts and partials.
type pageTemplates map[string]*template.Template

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"now": time.Now,
		"t": func(lang, key string) string {
			if i18nBundle == nil {
				return key
			}
			return i18nBundle.T(lang, key)
		},
		"tf": func(lang, key string, args ...any) string {
			msg := key
			if i18nBundle != nil {
				msg = i18nBundle.T(lang, key)
			}
			return fmt.Sprintf(msg, args...)
		},
		"fmtDate":    format.FmtDate,
		"fmtPercent": format.FmtPercent,
		"fmtScore":   format.FmtScore,
		"scoreRange": func() []int {
			out := make([]int, 0, wheel.MaxScore-wheel.MinScore+1)
			for v := wheel.MinScore; v <= wheel.MaxScore; v++ {
				out = append(out, v)
			}
			return out
		},
	}
}

func parseTemplates() (pageTemplates, error) {
	// ParseGlob has no **, so walk the tree.
	var shared, pages []string
	if err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pages = append(pages, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found under %s", templatesDir)
	}

	root := template.New("_root").Funcs(templateFuncs())
	if len(shared) > 0 {
		if _, err := root.ParseFiles(shared...); err != nil {
			return nil, err
		}
	}
	out := make(pageTemplates, len(pages))
	for _, page := range pages {
		t, err := root.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFiles(page); err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(filepath.Base(page), ".tmpl")] = t
	}
	return out, nil
}

func templates() (pageTemplates, error) {
	if devMode {
		return parseTemplates()
	}
	if tmplCache == nil {
		return nil, fmt.Errorf("templates not initialised")
	}
	return tmplCache, nil
}

// render executes the base layout of page. In dev mode templates are reparsed
// on each request.
func render(w http.ResponseWriter, r *http.Request, page string, data any) {
	execute(w, r, page, "base", data)
}

// renderPartial executes a single named template from page's set, for HTMX swaps.
func renderPartial(w http.ResponseWriter, r *http.Request, page, name string, data any) {
	execute(w, r, page, name, data)
}

func execute(w http.ResponseWriter, r *http.Request, page, name string, data any) {
	logger := observability.FromContext(r.Context())
	set, err := templates()
	if err != nil {
		logger.Error("template parse failed", zap.Error(err))
		http.Error(w, "template parse error", http.StatusInternalServerError)
		return
	}
	t, ok := set[page]
	if !ok {
		logger.Error("template missing", zap.String("page", page))
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("template exec failed", zap.String("page", page), zap.String("template", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
