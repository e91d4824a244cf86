package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/wheel-of-life/internal/content"
	"finitefield.org/wheel-of-life/internal/exports"
	"finitefield.org/wheel-of-life/internal/i18n"
	mw "finitefield.org/wheel-of-life/internal/middleware"
	"finitefield.org/wheel-of-life/internal/platform/config"
	pfirestore "finitefield.org/wheel-of-life/internal/platform/firestore"
	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/platform/secrets"
	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/report"
	"finitefield.org/wheel-of-life/internal/state"
	"finitefield.org/wheel-of-life/internal/wheel"
)

var (
	templatesDir = "templates"
	publicDir    = "public"
	localesDir   = "locales"
	// devMode reparses templates on every request; set from WHEEL_WEB_DEV or DEV.
	devMode    bool
	tmplCache  pageTemplates
	i18nBundle *i18n.Bundle
)

const shutdownTimeout = 10 * time.Second

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "", "HTTP listen address (default :$WHEEL_SERVER_PORT)")
	flag.StringVar(&templatesDir, "templates", templatesDir, "templates directory")
	flag.StringVar(&publicDir, "public", publicDir, "public assets directory")
	flag.StringVar(&localesDir, "locales", localesDir, "locale bundles directory")
	flag.Parse()

	devMode = os.Getenv("WHEEL_WEB_DEV") != "" || os.Getenv("DEV") != ""

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string) error {
	secretsProject, _ := config.Lookup("WHEEL_SECRETS_PROJECT_ID")
	if secretsProject == "" {
		secretsProject, _ = config.Lookup("WHEEL_FIRESTORE_PROJECT_ID")
	}
	fetcher, err := secrets.NewFetcher(ctx, secrets.WithProject(secretsProject))
	if err != nil {
		return fmt.Errorf("init secrets: %w", err)
	}
	defer fetcher.Close()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	i18nBundle, err = i18n.Load(os.DirFS(localesDir), cfg.Site.LocaleFallback, availableLocales(localesDir))
	if err != nil {
		return err
	}
	if !devMode {
		tc, err := parseTemplates()
		if err != nil {
			return fmt.Errorf("parse templates: %w", err)
		}
		tmplCache = tc
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	archiver, closeArchiver, err := openArchiver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchiver()

	rasterizer, err := raster.NewVectorRasterizer()
	if err != nil {
		return err
	}

	catalog := wheel.DefaultCatalog()
	a := &app{
		cfg:      cfg,
		catalog:  catalog,
		repo:     state.NewRepository(store, catalog, state.WithMetrics(metrics)),
		reports:  report.NewGenerator(catalog, rasterizer, report.WithMetrics(metrics)),
		raster:   rasterizer,
		archiver: archiver,
		content:  content.Default(cfg.Site.LocaleFallback),
		sessions: mw.NewSessions(cfg.Session.SigningKey, cfg.IsProduction(), logger),
		started:  time.Now().UTC(),
	}

	if addr == "" {
		addr = ":" + cfg.Server.Port
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(a, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store.Backend),
			zap.Bool("dev", devMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("web shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore builds the configured state store and its cleanup.
func openStore(ctx context.Context, cfg config.Config) (state.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := state.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect firestore: %w", err)
		}
		return state.NewFirestoreStore(provider, cfg.Store.Collection), func() { _ = provider.Close() }, nil
	default:
		return state.NewMemoryStore(), func() {}, nil
	}
}

// openArchiver returns the GCS archiver when a reports bucket is configured.
func openArchiver(ctx context.Context, cfg config.Config) (exports.Archiver, func(), error) {
	if cfg.Storage.ReportsBucket == "" {
		return exports.Noop{}, func() {}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	a, err := exports.NewGCSArchiver(client, cfg.Storage.ReportsBucket)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return a, func() { _ = client.Close() }, nil
}

// availableLocales lists the <lang>.json bundles in dir.
func availableLocales(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".json"))
	}
	return out
}
