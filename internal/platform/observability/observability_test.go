package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/wheel-of-life/internal/platform/requestctx"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("nonsense")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	debug, err := NewLogger("DEBUG")
	require.NoError(t, err)
	require.True(t, debug.Core().Enabled(zapcore.DebugLevel))
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLogger(logger), RequestLogger)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/missing/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/missing/7", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 3)
	require.Equal(t, zapcore.InfoLevel, done[0].Level)
	require.Equal(t, zapcore.WarnLevel, done[1].Level)
	require.Equal(t, "/missing/{id}", done[1].ContextMap()["route"])
	require.Equal(t, zapcore.ErrorLevel, done[2].Level)
	require.EqualValues(t, 2, done[0].ContextMap()["bytes"])
}

func TestRecoveryJSONAndPlain(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Recovery(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "internal_server_error", body["error"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	require.Equal(t, 2, logs.FilterMessage("panic recovered").Len())
}

func TestTraceMiddlewareContinuesCloudTrace(t *testing.T) {
	var got requestctx.TraceInfo
	h := TraceMiddleware("proj")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "105445aa7843bc8bf206b12000100000", got.TraceID)
	require.Equal(t, "proj", got.ProjectID)
	require.True(t, got.Sampled)
	require.True(t, strings.HasPrefix(rec.Header().Get(cloudTraceHeader), got.TraceID+"/"))
}

func TestParseCloudTraceContextRejectsGarbage(t *testing.T) {
	for _, header := range []string{"", "abc", "105445aa7843bc8bf206b12000100000", "105445aa7843bc8bf206b12000100000/x;o=1", "zz/1"} {
		_, _, ok := parseCloudTraceContext(header)
		require.False(t, ok, header)
	}
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "GET", SanitizeMethod("GE\nT"))
	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "abcdefgh", SanitizeSessionID("abcdefghijklmnop"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ReportGenerated(context.Background(), true)
	m.RasterFailed(context.Background())
	m.StoreFallback(context.Background(), "corrupt")

	registered, err := NewMetrics(nil)
	require.NoError(t, err)
	registered.ReportGenerated(context.Background(), false)
}
