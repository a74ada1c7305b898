package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dirscan/internal/observability"
)

func TestInit_PrometheusServesScanMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true
	cfg.LogWriter = &bytes.Buffer{}

	providers, err := observability.Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.MetricsHandler)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	sm, err := observability.NewScanMetrics(providers.Meter)
	require.NoError(t, err)

	sm.RecordScan(context.Background(), observability.ScanResult{
		Format: "json",
		Status: observability.StatusOK,
		Files:  5,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	providers.MetricsHandler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, "target_info")
	assert.Contains(t, body, "dirscan_scan_files")
	assert.Contains(t, body, `service_name="dirscan"`)
}
