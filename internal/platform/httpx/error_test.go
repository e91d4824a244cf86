package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/wheel-of-life/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rec := httptest.NewRecorder()

	WriteError(ctx, rec, BadRequest("bad\nblob").WithDetails(map[string]any{"field": "step", "status": 999}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_request", body["error"])
	require.Equal(t, "bad blob", body["message"])
	require.Equal(t, float64(400), body["status"])
	require.Equal(t, "trace-1", body["trace_id"])
	require.Equal(t, "step", body["field"])
	require.NotContains(t, body, "request_id")
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	err := NewError("boom", "exploded", 0)
	require.Equal(t, http.StatusInternalServerError, err.Status)
	require.Equal(t, "boom: exploded", err.Error())
}
