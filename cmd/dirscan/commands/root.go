// Package commands implements the dirscan cobra commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dirscan/internal/config"
	"github.com/Sumatoshi-tech/dirscan/internal/observability"
	"github.com/Sumatoshi-tech/dirscan/pkg/version"
)

// Process exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Environment variables read alongside the config file, following the
// OpenTelemetry exporter conventions.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
)

const logFormatJSON = "json"

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func newUsageError(err error) error {
	return usageError{err: err}
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}

	return ExitError
}

// observabilityInit builds the telemetry providers for a command run.
type observabilityInit func(ctx context.Context, cfg observability.Config) (observability.Providers, error)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
	initFn     observabilityInit
}

// NewRootCommand assembles the dirscan command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithInit(observability.Init)
}

func newRootCommandWithInit(initFn observabilityInit) *cobra.Command {
	opts := &rootOptions{initFn: initFn}

	rootCmd := &cobra.Command{
		Use:   "dirscan",
		Short: "Summarize directory trees into per-directory rollups",
		Long: `dirscan walks a directory tree and records one summary per directory
(file count, total size, largest file, newest timestamps).

Commands:
  scan      Walk a directory and write rollup records
  parse     Re-aggregate recorded rollups at a chosen depth`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default .dirscan.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors and suppress progress and summary output")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newUsageError(err)
	})

	rootCmd.AddCommand(newScanCommand(opts))
	rootCmd.AddCommand(newParseCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the command tree with args and returns the exit status.
// Interrupts cancel the running command.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	return ExitCode(err)
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		argsErr := cobra.ExactArgs(n)(cmd, args)
		if argsErr != nil {
			return newUsageError(argsErr)
		}

		return nil
	}
}

// loadConfig reads the configuration file and applies the persistent
// verbosity flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, loadErr := config.LoadConfig(o.configPath)
	if loadErr != nil {
		return nil, loadErr
	}

	switch {
	case o.verbose:
		cfg.Logging.Level = "debug"
	case o.quiet:
		cfg.Logging.Level = "error"
	}

	return cfg, nil
}

// observabilityConfig derives the telemetry settings for one command run.
func observabilityConfig(cfg *config.Config, mode observability.AppMode, logWriter io.Writer) (observability.Config, error) {
	level, levelErr := observability.ParseLevel(cfg.Logging.Level)
	if levelErr != nil {
		return observability.Config{}, levelErr
	}

	endpoint := cfg.Telemetry.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(envOTLPEndpoint)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = endpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
	obsCfg.OTLPInsecure = cfg.Telemetry.Insecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = strings.EqualFold(cfg.Logging.Format, logFormatJSON)
	obsCfg.LogWriter = logWriter

	return obsCfg, nil
}

// startObservability initializes providers and returns a function that
// flushes them, logging rather than failing on shutdown errors.
func (o *rootOptions) startObservability(
	ctx context.Context, obsCfg observability.Config,
) (observability.Providers, func(), error) {
	providers, initErr := o.initFn(ctx, obsCfg)
	if initErr != nil {
		return observability.Providers{}, nil, fmt.Errorf("init observability: %w", initErr)
	}

	if providers.Logger == nil {
		providers.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	shutdown := func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return providers, shutdown, nil
}
