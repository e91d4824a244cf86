package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/content"
	"finitefield.org/wheel-of-life/internal/exports"
	mw "finitefield.org/wheel-of-life/internal/middleware"
	"finitefield.org/wheel-of-life/internal/platform/config"
	"finitefield.org/wheel-of-life/internal/platform/httpx"
	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/report"
	"finitefield.org/wheel-of-life/internal/seo"
	"finitefield.org/wheel-of-life/internal/state"
	"finitefield.org/wheel-of-life/internal/wheel"
)

const (
	maxStateBody   = 64 << 10
	archiveTimeout = 15 * time.Second
)

type app struct {
	cfg      config.Config
	catalog  *wheel.Catalog
	repo     *state.Repository
	reports  *report.Generator
	raster   raster.Rasterizer
	archiver exports.Archiver
	content  *content.Library
	sessions *mw.Sessions
	started  time.Time
}

func sessionID(r *http.Request) string {
	return mw.GetSession(r).ID
}

// HomeHandler renders the wizard step or, once every category is rated, the review.
func (a *app) HomeHandler(w http.ResponseWriter, r *http.Request) {
	s := a.repo.Load(r.Context(), sessionID(r))
	render(w, r, "home", a.wheelPage(r, s))
}

// AboutHandler renders the about page from the content library.
func (a *app) AboutHandler(w http.ResponseWriter, r *http.Request) {
	page, err := a.content.Get(content.KindPage, "about", mw.Lang(r))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		observability.FromContext(r.Context()).Error("about: load content", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	v := a.basePage(r, page.Title)
	if page.Summary != "" {
		v.Meta.Description = page.Summary
		v.Meta.OG.Description = page.Summary
	}
	v.Page = &page
	render(w, r, "about", v)
}

// ScoreHandler rates a category.
func (a *app) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	a.mutate(w, r, func(s wheel.State) (wheel.State, error) {
		v, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("value")))
		if err != nil {
			return s, wheel.ErrScoreOutOfRange
		}
		return s.SelectScore(a.catalog, r.PostFormValue("category"), v)
	})
}

// ReflectionHandler stores a category note or a prompt answer.
func (a *app) ReflectionHandler(w http.ResponseWriter, r *http.Request) {
	a.mutate(w, r, func(s wheel.State) (wheel.State, error) {
		return s.SetReflection(a.catalog, r.PostFormValue("id"), r.PostFormValue("text"))
	})
}

// NextHandler advances the wizard. It is refused while the active category is unrated.
func (a *app) NextHandler(w http.ResponseWriter, r *http.Request) {
	a.mutate(w, r, func(s wheel.State) (wheel.State, error) {
		return s.Next(a.catalog)
	})
}

// BackHandler returns to the previous step.
func (a *app) BackHandler(w http.ResponseWriter, r *http.Request) {
	a.mutate(w, r, func(s wheel.State) (wheel.State, error) {
		return s.Back(a.catalog), nil
	})
}

// ResetHandler discards the persisted state.
func (a *app) ResetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.repo.Reset(ctx, sessionID(r)); err != nil {
		observability.FromContext(ctx).Error("wheel: reset", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	a.respond(w, r, wheel.NewState())
}

// mutate applies op to the session state under the repository's per-session
// lock, then responds.
func (a *app) mutate(w http.ResponseWriter, r *http.Request, op func(wheel.State) (wheel.State, error)) {
	ctx := r.Context()
	next, err := a.repo.Update(ctx, sessionID(r), op)
	switch {
	case errors.Is(err, wheel.ErrCannotContinue):
		http.Error(w, "rate this area before continuing", http.StatusConflict)
		return
	case errors.Is(err, wheel.ErrUnknownCategory), errors.Is(err, wheel.ErrUnknownPrompt), errors.Is(err, wheel.ErrScoreOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		observability.FromContext(ctx).Error("wheel: update", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	a.respond(w, r, next)
}

// respond re-renders the wizard for HTMX and redirects plain form posts home.
func (a *app) respond(w http.ResponseWriter, r *http.Request, s wheel.State) {
	if mw.IsHTMX(r.Context()) {
		renderPartial(w, r, "home", "wizard", a.wheelPage(r, s))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func chartSize(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return chart.ClampSize(n)
}

// ChartSVGHandler serves the current chart as SVG.
func (a *app) ChartSVGHandler(w http.ResponseWriter, r *http.Request) {
	s := a.repo.Load(r.Context(), sessionID(r))
	layout := chart.Compute(a.catalog.Categories, s.Scores, float64(chartSize(r)))
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if err := layout.WriteSVG(w); err != nil {
		observability.FromContext(r.Context()).Warn("chart: write svg", zap.Error(err))
	}
}

// ChartPNGHandler serves the current chart rasterised with export padding.
func (a *app) ChartPNGHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := a.repo.Load(ctx, sessionID(r))
	layout := chart.Compute(a.catalog.Categories, s.Scores, float64(chartSize(r)), chart.WithExport())
	img, err := a.raster.Rasterize(ctx, layout)
	if err != nil {
		observability.FromContext(ctx).Warn("chart: rasterise", zap.Error(err))
		http.Error(w, "chart image unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	_, _ = w.Write(img.PNG)
}

// ReportHandler streams the review PDF and archives a copy.
func (a *app) ReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)
	id := sessionID(r)
	s := a.repo.Load(ctx, id)

	var buf bytes.Buffer
	if _, err := a.reports.Generate(ctx, &buf, s); err != nil {
		logger.Error("report: generate", zap.Error(err))
		http.Error(w, "could not generate report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())

	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if _, err := a.archiver.Archive(archiveCtx, id, report.FileName, buf.Bytes()); err != nil {
		logger.Warn("report: archive failed", zap.Error(err))
	}
}

// ExportStateHandler returns the persisted blob.
func (a *app) ExportStateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	blob, err := a.repo.Export(ctx, sessionID(r))
	if err != nil {
		observability.FromContext(ctx).Error("state: export", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Internal())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(blob)
}

// ImportStateHandler replaces the persisted blob. Values are normalised on the
// way in; only unreadable JSON is rejected.
func (a *app) ImportStateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStateBody))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "state body too large", http.StatusRequestEntityTooLarge))
		return
	}
	id := sessionID(r)
	if _, err := a.repo.Import(ctx, id, body); err != nil {
		if errors.Is(err, state.ErrCorrupt) {
			httpx.WriteError(ctx, w, httpx.BadRequest("state must be a JSON object"))
			return
		}
		observability.FromContext(ctx).Error("state: import", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Internal())
		return
	}
	a.ExportStateHandler(w, r)
}

// SitemapHandler serves the single-URL sitemap.
func (a *app) SitemapHandler(w http.ResponseWriter, r *http.Request) {
	out, err := seo.Sitemap(a.cfg.Site.URL+"/", a.started)
	if err != nil {
		observability.FromContext(r.Context()).Error("sitemap: render", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(out)
}

// HealthzHandler reports liveness.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// ReadyzHandler reports whether the state store answers.
func (a *app) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.repo.Ready(ctx); err != nil {
		observability.FromContext(ctx).Warn("readiness check failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "state store unavailable", http.StatusServiceUnavailable))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ready")
}
