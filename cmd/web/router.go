package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	mw "finitefield.org/wheel-of-life/internal/middleware"
	"finitefield.org/wheel-of-life/internal/platform/observability"
)

const requestTimeout = 30 * time.Second

// newRouter wires the middleware stack and every route.
func newRouter(a *app, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// RealIP trusts X-Forwarded-For; only run behind a proxy that sets it.
	r.Use(middleware.RealIP)
	r.Use(observability.TraceMiddleware(a.cfg.Firestore.ProjectID))
	r.Use(observability.InjectLogger(logger))
	r.Use(observability.RequestLogger)
	r.Use(observability.Recovery(logger))
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", HealthzHandler)
	r.Get("/readyz", a.ReadyzHandler)
	r.Get("/sitemap.xml", a.SitemapHandler)

	assets := http.StripPrefix("/assets", mw.AssetsWithCache(os.DirFS(filepath.Join(publicDir, "assets"))))
	r.Handle("/assets/*", assets)

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(a.sessions.Middleware)
		r.Use(mw.Locale(i18nBundle))
		r.Use(mw.CSRF(a.cfg.IsProduction()))

		r.Get("/", a.HomeHandler)
		r.Get("/about", a.AboutHandler)

		r.Route("/wheel", func(r chi.Router) {
			r.Post("/score", a.ScoreHandler)
			r.Post("/reflection", a.ReflectionHandler)
			r.Post("/next", a.NextHandler)
			r.Post("/back", a.BackHandler)
			r.Post("/reset", a.ResetHandler)
			r.Get("/chart.svg", a.ChartSVGHandler)
			r.Get("/chart.png", a.ChartPNGHandler)
			r.Get("/report.pdf", a.ReportHandler)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", a.ExportStateHandler)
			r.Put("/state", a.ImportStateHandler)
		})
	})
	return r
}
