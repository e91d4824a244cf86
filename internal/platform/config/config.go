// Package config loads the runtime configuration from defaults, a .env file,
// the process environment and explicit overrides, in increasing precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultEnvironment    = "local"
	defaultSiteURL        = "https://www.wheeloflifereview.co.uk"
	defaultStoreBackend   = BackendMemory
	defaultSQLitePath     = "wheel.db"
	defaultCollection     = "wheelStates"
	defaultLocaleFallback = "en"
	defaultLogLevel       = "info"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Config is the complete runtime configuration.
type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Site      SiteConfig
	Session   SessionConfig
	Store     StoreConfig
	Firestore FirestoreConfig
	Secrets   SecretsConfig
	Storage   StorageConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig holds public-facing site settings.
type SiteConfig struct {
	URL             string
	GAMeasurementID string
	LocaleFallback  string
}

// SessionConfig configures the anonymous session cookie.
type SessionConfig struct {
	SigningKey string
}

// StoreConfig selects where state blobs are kept.
type StoreConfig struct {
	Backend    string
	SQLitePath string
	Collection string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// SecretsConfig configures Secret Manager lookups.
type SecretsConfig struct {
	ProjectID string
}

// StorageConfig lists Cloud Storage buckets.
type StorageConfig struct {
	ReportsBucket string
}

// IsProduction reports whether the service runs in the prod environment.
func (c Config) IsProduction() bool { return c.Env == "prod" }

// SecretResolver resolves secret references such as sm://name.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists configuration fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError describes a secret reference that could not be resolved.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env path; "" disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies values that take precedence over the environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// Lookup returns the effective value of key after applying the same
// precedence as Load. It lets callers build the secret resolver from
// configuration before calling Load.
func Lookup(key string, opts ...Option) (string, error) {
	o := newOptions(opts)
	lookup, err := o.lookup()
	if err != nil {
		return "", err
	}
	v, _ := lookup(key)
	return v, nil
}

func newOptions(opts []Option) loaderOptions {
	o := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o loaderOptions) lookup() (func(string) (string, bool), error) {
	dotEnv, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if v, ok := o.envMap[key]; ok {
			return v, true
		}
		if o.useSystemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotEnv[key]
		return v, ok
	}, nil
}

// Load assembles and validates the configuration.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	o := newOptions(opts)
	lookup, err := o.lookup()
	if err != nil {
		return Config{}, err
	}

	port := stringWithDefault(lookup, "WHEEL_SERVER_PORT", "")
	if port == "" {
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	cfg := Config{
		Env:      strings.ToLower(stringWithDefault(lookup, "WHEEL_ENV", defaultEnvironment)),
		LogLevel: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Port:         port,
			ReadTimeout:  durationWithDefault(lookup, "WHEEL_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "WHEEL_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "WHEEL_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			URL:             strings.TrimRight(stringWithDefault(lookup, "WHEEL_SITE_URL", defaultSiteURL), "/"),
			GAMeasurementID: stringWithDefault(lookup, "WHEEL_GA_MEASUREMENT_ID", ""),
			LocaleFallback:  stringWithDefault(lookup, "WHEEL_LOCALE_FALLBACK", defaultLocaleFallback),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "WHEEL_SESSION_SIGNING_KEY", ""),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(stringWithDefault(lookup, "WHEEL_STORE_BACKEND", defaultStoreBackend)),
			SQLitePath: stringWithDefault(lookup, "WHEEL_STORE_SQLITE_PATH", defaultSQLitePath),
			Collection: stringWithDefault(lookup, "WHEEL_STORE_COLLECTION", defaultCollection),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "WHEEL_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "WHEEL_FIRESTORE_EMULATOR_HOST", ""),
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "WHEEL_SECRETS_PROJECT_ID", ""),
		},
		Storage: StorageConfig{
			ReportsBucket: stringWithDefault(lookup, "WHEEL_STORAGE_REPORTS_BUCKET", ""),
		},
	}
	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.Firestore.ProjectID
	}

	key, err := resolveSecret(ctx, cfg.Session.SigningKey, o.secret)
	if err != nil {
		return Config{}, err
	}
	cfg.Session.SigningKey = key

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var bad []string
	if cfg.Server.Port == "" {
		bad = append(bad, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		bad = append(bad, "Server.Port")
	}
	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(cfg.Store.SQLitePath) == "" {
			bad = append(bad, "Store.SQLitePath")
		}
	case BackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			bad = append(bad, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Store.Collection) == "" {
			bad = append(bad, "Store.Collection")
		}
	default:
		bad = append(bad, "Store.Backend")
	}
	if !strings.HasPrefix(cfg.Site.URL, "http://") && !strings.HasPrefix(cfg.Site.URL, "https://") {
		bad = append(bad, "Site.URL")
	}
	if cfg.IsProduction() && cfg.Session.SigningKey == "" {
		bad = append(bad, "Session.SigningKey")
	}
	if len(bad) > 0 {
		return &ValidationError{fields: bad}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !IsSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

// IsSecretReference reports whether value names a secret rather than holding one.
func IsSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
