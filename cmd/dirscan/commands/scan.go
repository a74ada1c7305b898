package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/dirscan/internal/config"
	"github.com/Sumatoshi-tech/dirscan/internal/observability"
	"github.com/Sumatoshi-tech/dirscan/internal/progress"
	"github.com/Sumatoshi-tech/dirscan/pkg/codec"
	"github.com/Sumatoshi-tech/dirscan/pkg/grouper"
	"github.com/Sumatoshi-tech/dirscan/pkg/report"
	"github.com/Sumatoshi-tech/dirscan/pkg/walker"
)

// ScanCommand holds the flags of the scan command.
type ScanCommand struct {
	root *rootOptions

	threads      int
	ignoreHidden bool
	actualSize   bool
	output       string
	format       string
	groupDepth   int
	unsorted     bool
	compress     bool
	bufferSize   int
	silent       bool
	metricsAddr  string
}

// scanRun carries the collaborators of one scan.
type scanRun struct {
	walker   *walker.Walker
	grouper  *grouper.Grouper
	started  time.Time
	duration time.Duration
}

func newScanCommand(root *rootOptions) *cobra.Command {
	sc := &ScanCommand{root: root}

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Walk a directory and write one rollup record per directory",
		Long: `Walk the directory tree rooted at <path> and write one record per
directory with its file count, total size, largest file and newest
created/accessed/modified timestamps.

Records go to standard output unless --output names a file. A ".lz4"
output suffix or --compress wraps the stream in an lz4 frame.`,
		Args: exactArgs(1),
		RunE: sc.run,
	}

	cmd.Flags().IntVarP(&sc.threads, "threads", "t", walker.DefaultThreads(), "Concurrent directory listings")
	cmd.Flags().BoolVarP(&sc.ignoreHidden, "ignore-hidden", "i", false, "Skip files and directories starting with a dot")
	cmd.Flags().BoolVarP(&sc.actualSize, "actual-size", "a", false, "Count allocated disk space instead of file length")
	cmd.Flags().StringVarP(&sc.output, "output", "o", "", "Output file (default standard output)")
	cmd.Flags().StringVarP(&sc.format, "format", "f", config.DefaultScanFormat, "Record format: json, csv")
	cmd.Flags().IntVar(&sc.groupDepth, "group-depth", config.DefaultScanGroupDepth,
		"Fold directories below this many path components into their ancestor (0 = off)")
	cmd.Flags().BoolVar(&sc.unsorted, "unsorted", false, "Keep OS listing order instead of sorting children by name")
	cmd.Flags().BoolVar(&sc.compress, "compress", false, "Wrap the output in an lz4 frame")
	cmd.Flags().IntVar(&sc.bufferSize, "buffer-size", config.DefaultScanBufferSize, "Entries buffered between walker and grouper")
	cmd.Flags().BoolVar(&sc.silent, "silent", false, "Disable progress and summary output")
	cmd.Flags().StringVar(&sc.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address while scanning")

	return cmd
}

// applyFlags overrides configuration values with flags set on the command line.
func (sc *ScanCommand) applyFlags(cmd *cobra.Command, cfg *config.ScanConfig) {
	flags := cmd.Flags()

	if flags.Changed("threads") {
		cfg.Threads = sc.threads
	}

	if flags.Changed("ignore-hidden") {
		cfg.IgnoreHidden = sc.ignoreHidden
	}

	if flags.Changed("actual-size") {
		cfg.ActualSize = sc.actualSize
	}

	if flags.Changed("format") {
		cfg.Format = sc.format
	}

	if flags.Changed("group-depth") {
		cfg.GroupDepth = sc.groupDepth
	}

	if flags.Changed("unsorted") {
		cfg.Unsorted = sc.unsorted
	}

	if flags.Changed("compress") {
		cfg.Compress = sc.compress
	}

	if flags.Changed("buffer-size") {
		cfg.BufferSize = sc.bufferSize
	}

	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = sc.metricsAddr
	}
}

func (sc *ScanCommand) run(cmd *cobra.Command, args []string) error {
	root := args[0]

	cfg, loadErr := sc.root.loadConfig()
	if loadErr != nil {
		return loadErr
	}

	sc.applyFlags(cmd, &cfg.Scan)

	if sc.root.quiet {
		sc.silent = true
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return newUsageError(validateErr)
	}

	format, formatErr := cfg.Scan.CodecFormat()
	if formatErr != nil {
		return newUsageError(formatErr)
	}

	rootErr := checkScanRoot(root)
	if rootErr != nil {
		return rootErr
	}

	obsCfg, obsErr := observabilityConfig(cfg, observability.ModeScan, cmd.ErrOrStderr())
	if obsErr != nil {
		return obsErr
	}

	obsCfg.Prometheus = cfg.Scan.MetricsAddr != ""

	providers, shutdown, startErr := sc.root.startObservability(cmd.Context(), obsCfg)
	if startErr != nil {
		return startErr
	}
	defer shutdown()

	logger := providers.Logger

	ctx, span := providers.Tracer.Start(cmd.Context(), "dirscan.scan",
		trace.WithAttributes(
			attribute.String("dirscan.root", root),
			attribute.String("dirscan.format", string(format)),
		))
	defer span.End()

	metrics, metricsErr := observability.NewScanMetrics(providers.Meter)
	if metricsErr != nil {
		return metricsErr
	}

	if cfg.Scan.MetricsAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(ctx, cfg.Scan.MetricsAddr, providers.MetricsHandler, logger)
		if diagErr != nil {
			return diagErr
		}

		defer closeDiagnostics(ctx, diag, logger)

		logger.InfoContext(ctx, "serving diagnostics", "addr", diag.Addr())
	}

	out, outErr := sc.openOutput(cmd.OutOrStdout(), cfg.Scan.Compress)
	if outErr != nil {
		return outErr
	}

	run, scanErr := sc.scan(ctx, cmd, cfg, format, root, out, metrics, logger)
	if run == nil {
		return scanErr
	}

	status := observability.StatusOK
	if scanErr != nil {
		status = observability.StatusError

		span.RecordError(scanErr)
		span.SetStatus(codes.Error, scanErr.Error())
	}

	metrics.RecordScan(ctx, observability.ScanResult{
		Format:   string(format),
		Status:   status,
		Entries:  run.walker.Entries(),
		Files:    run.walker.Files(),
		Dirs:     run.walker.Dirs(),
		Bytes:    run.walker.Bytes(),
		Errors:   run.walker.Errors(),
		Records:  run.grouper.Emitted(),
		Duration: run.duration,
	})

	logger.DebugContext(ctx, "scan finished",
		"root", root,
		"records", run.grouper.Emitted(),
		"errors", run.walker.Errors(),
		"duration", run.duration,
	)

	if scanErr != nil {
		return scanErr
	}

	if sc.silent {
		return nil
	}

	return report.WriteSummary(cmd.ErrOrStderr(), report.ScanSummary{
		Root:      root,
		TotalSize: run.walker.Bytes(),
		Files:     run.walker.Files(),
		Dirs:      run.walker.Dirs(),
		Records:   run.grouper.Emitted(),
		Errors:    run.walker.Errors(),
		Duration:  run.duration,
	}, !color.NoColor)
}

// scan runs the walker and the grouper concurrently and closes every layer
// of the output. A broken pipe on the output ends the scan without error.
func (sc *ScanCommand) scan(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
	format codec.Format,
	root string,
	out *codec.Output,
	metrics *observability.ScanMetrics,
	logger *slog.Logger,
) (*scanRun, error) {
	writer, writerErr := codec.NewWriter(format, out)
	if writerErr != nil {
		return nil, errors.Join(writerErr, out.Close())
	}

	run := &scanRun{
		walker:  walker.New(cfg.Scan.WalkerConfig(logger)),
		grouper: grouper.New(writer, grouper.WithGroupDepth(cfg.Scan.GroupDepth)),
		started: time.Now(),
	}

	unregister, observeErr := metrics.Observe(run.walker)
	if observeErr != nil {
		return run, errors.Join(observeErr, out.Close())
	}

	defer func() {
		unregisterErr := unregister()
		if unregisterErr != nil {
			logger.WarnContext(ctx, "scan metrics", "error", unregisterErr)
		}
	}()

	if !sc.silent {
		reporter := progress.New(cmd.ErrOrStderr(), run.walker, cfg.Scan.ProgressInterval, !color.NoColor)
		reporter.Start(ctx)

		defer reporter.Stop()
	}

	entries := run.walker.NewChannel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return run.walker.Walk(groupCtx, root, entries)
	})
	group.Go(func() error {
		return run.grouper.Consume(groupCtx, entries)
	})

	runErr := group.Wait()
	run.duration = time.Since(run.started)

	closeErr := errors.Join(runErr, writer.Close(), out.Close())
	if codec.IsBrokenPipe(closeErr) {
		logger.DebugContext(ctx, "output closed by reader", "records", run.grouper.Emitted())

		return run, nil
	}

	if closeErr != nil {
		return run, fmt.Errorf("scan %s: %w", root, closeErr)
	}

	return run, nil
}

// openOutput opens the scan destination. Standard output goes through the
// command's writer.
func (sc *ScanCommand) openOutput(stdout io.Writer, compress bool) (*codec.Output, error) {
	compress = compress || codec.HasCompressedSuffix(sc.output)

	if sc.output == "" || sc.output == "-" {
		return codec.NewOutput(stdout, compress), nil
	}

	return codec.OpenOutput(sc.output, compress)
}

// checkScanRoot rejects roots that are not directories before any output
// is created.
func checkScanRoot(root string) error {
	info, statErr := os.Stat(root)
	if statErr != nil {
		return fmt.Errorf("scan root: %w", statErr)
	}

	if !info.IsDir() {
		return newUsageError(fmt.Errorf("%w: %s", walker.ErrNotDirectory, root))
	}

	return nil
}

func closeDiagnostics(ctx context.Context, diag *observability.DiagnosticsServer, logger *slog.Logger) {
	closeErr := diag.Close(context.WithoutCancel(ctx))
	if closeErr != nil {
		logger.WarnContext(ctx, "diagnostics server shutdown failed", "error", closeErr)
	}
}
