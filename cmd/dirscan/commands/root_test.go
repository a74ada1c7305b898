package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/dirscan/internal/observability"
	"github.com/Sumatoshi-tech/dirscan/pkg/version"
)

// initRecorder stands in for observability.Init and keeps the configs it saw.
type initRecorder struct {
	mu      sync.Mutex
	configs []observability.Config
}

func (r *initRecorder) init(_ context.Context, cfg observability.Config) (observability.Providers, error) {
	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()

	return observability.Providers{
		Tracer:   nooptrace.NewTracerProvider().Tracer("test"),
		Meter:    noopmetric.NewMeterProvider().Meter("test"),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Shutdown: func(context.Context) error { return nil },
	}, nil
}

func (r *initRecorder) last(t *testing.T) observability.Config {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.configs)

	return r.configs[len(r.configs)-1]
}

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the command tree against an explicit config file so the
// caller's $HOME and working directory do not leak in.
func runCLI(t *testing.T, rec *initRecorder, configYAML string, stdin io.Reader, args ...string) cmdResult {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "dirscan.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o600))

	if rec == nil {
		rec = &initRecorder{}
	}

	cmd := newRootCommandWithInit(rec.init)

	var stdout, stderr bytes.Buffer

	if stdin == nil {
		stdin = strings.NewReader("")
	}

	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	cmd.SetIn(stdin)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())

	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitError, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitUsage, ExitCode(newUsageError(errors.New("bad flag"))))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", nil, "version")
	require.NoError(t, res.err)
	assert.Equal(t, "dirscan "+version.String()+"\n", res.stdout)
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", nil, "scan", "--no-such-flag", ".")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsage, ExitCode(res.err))
}

func TestMissingArgumentIsUsageError(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", nil, "parse")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsage, ExitCode(res.err))
}

func TestVerbosityFlagsSetLogLevel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	rec := &initRecorder{}

	res := runCLI(t, rec, "", nil, "scan", "--silent", "-v", dir)
	require.NoError(t, res.err)
	assert.Equal(t, slog.LevelDebug, rec.last(t).LogLevel)
	assert.Equal(t, observability.ModeScan, rec.last(t).Mode)

	res = runCLI(t, rec, "", nil, "scan", "--silent", "-q", dir)
	require.NoError(t, res.err)
	assert.Equal(t, slog.LevelError, rec.last(t).LogLevel)
}

func TestLoggingConfigReachesObservability(t *testing.T) {
	t.Parallel()

	rec := &initRecorder{}

	cfg := "logging:\n  level: warn\n  format: json\ntelemetry:\n  sample_ratio: 0.25\n"

	res := runCLI(t, rec, cfg, nil, "scan", "--silent", t.TempDir())
	require.NoError(t, res.err)

	obsCfg := rec.last(t)
	assert.Equal(t, slog.LevelWarn, obsCfg.LogLevel)
	assert.True(t, obsCfg.LogJSON)
	assert.InDelta(t, 0.25, obsCfg.SampleRatio, 1e-9)
	assert.Equal(t, version.Version, obsCfg.ServiceVersion)
	assert.False(t, obsCfg.Prometheus)
}

func TestExecuteReportsErrors(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	code := Execute(context.Background(), []string{"scan"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr.String(), "Error:")
}
