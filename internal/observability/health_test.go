package observability_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dirscan/internal/observability"
)

func TestHealthHandler_ReturnsOK(t *testing.T) {
	t.Parallel()

	handler := observability.HealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string

	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestDiagnosticsServer_ServesHealthAndMetrics(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(rw, "dirscan_up 1\n")
	})

	srv, err := observability.NewDiagnosticsServer(
		context.Background(), "127.0.0.1:0", metrics, discardLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, srv.Close(context.Background()))
	})

	code, body := getBody(t, "http://"+srv.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"ok"`)

	code, body = getBody(t, "http://"+srv.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dirscan_up 1\n", body)
}

func TestDiagnosticsServer_WithoutMetrics(t *testing.T) {
	t.Parallel()

	srv, err := observability.NewDiagnosticsServer(
		context.Background(), "127.0.0.1:0", nil, discardLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, srv.Close(context.Background()))
	})

	code, _ := getBody(t, "http://"+srv.Addr()+"/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDiagnosticsServer_BadAddress(t *testing.T) {
	t.Parallel()

	_, err := observability.NewDiagnosticsServer(
		context.Background(), "not-an-address", nil, discardLogger())
	require.Error(t, err)
}
