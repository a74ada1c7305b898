package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/dirscan/internal/config"
	"github.com/Sumatoshi-tech/dirscan/internal/observability"
	"github.com/Sumatoshi-tech/dirscan/pkg/codec"
	"github.com/Sumatoshi-tech/dirscan/pkg/report"
	"github.com/Sumatoshi-tech/dirscan/pkg/rollup"
)

// ParseCommand holds the flags of the parse command.
type ParseCommand struct {
	root *rootOptions

	depth   int
	prefix  string
	format  string
	sort    string
	limit   int
	output  string
	noColor bool
}

func newParseCommand(root *rootOptions) *cobra.Command {
	pc := &ParseCommand{root: root}

	cmd := &cobra.Command{
		Use:   "parse <input>",
		Short: "Re-aggregate recorded rollups by path prefix",
		Long: `Read records written by "dirscan scan" and total them for every
directory up to --depth components below --prefix.

Use "-" to read standard input. lz4-compressed input is detected
automatically; the record format follows the file name unless --format
is given.`,
		Args: exactArgs(1),
		RunE: pc.run,
	}

	cmd.Flags().IntVarP(&pc.depth, "depth", "d", config.DefaultParseDepth, "Path components below the prefix to report")
	cmd.Flags().StringVarP(&pc.prefix, "prefix", "p", config.DefaultParsePrefix, "Only include records under this path")
	cmd.Flags().StringVarP(&pc.format, "format", "f", config.DefaultParseFormat, "Input format: json, csv (default from file name)")
	cmd.Flags().StringVarP(&pc.sort, "sort", "s", config.DefaultParseSort, "Row order: name, files, size")
	cmd.Flags().IntVarP(&pc.limit, "limit", "l", config.DefaultParseLimit, "Maximum rows to print (0 = all)")
	cmd.Flags().StringVarP(&pc.output, "output", "o", config.DefaultParseOutput, "Output: table, json, yaml")
	cmd.Flags().BoolVar(&pc.noColor, "no-color", false, "Disable colored table output")

	return cmd
}

// applyFlags overrides configuration values with flags set on the command line.
func (pc *ParseCommand) applyFlags(cmd *cobra.Command, cfg *config.ParseConfig) {
	flags := cmd.Flags()

	if flags.Changed("depth") {
		cfg.Depth = pc.depth
	}

	if flags.Changed("prefix") {
		cfg.Prefix = pc.prefix
	}

	if flags.Changed("format") {
		cfg.Format = pc.format
	}

	if flags.Changed("sort") {
		cfg.Sort = pc.sort
	}

	if flags.Changed("limit") {
		cfg.Limit = pc.limit
	}

	if flags.Changed("output") {
		cfg.Output = pc.output
	}
}

func (pc *ParseCommand) run(cmd *cobra.Command, args []string) error {
	input := args[0]

	cfg, loadErr := pc.root.loadConfig()
	if loadErr != nil {
		return loadErr
	}

	pc.applyFlags(cmd, &cfg.Parse)

	validateErr := cfg.Validate()
	if validateErr != nil {
		return newUsageError(validateErr)
	}

	opts, optsErr := cfg.Parse.RollupOptions()
	if optsErr != nil {
		return newUsageError(optsErr)
	}

	format, formatErr := cfg.Parse.InputFormat(input)
	if formatErr != nil {
		return newUsageError(formatErr)
	}

	output, outputErr := report.ParseOutput(cfg.Parse.Output)
	if outputErr != nil {
		return newUsageError(outputErr)
	}

	obsCfg, obsErr := observabilityConfig(cfg, observability.ModeParse, cmd.ErrOrStderr())
	if obsErr != nil {
		return obsErr
	}

	providers, shutdown, startErr := pc.root.startObservability(cmd.Context(), obsCfg)
	if startErr != nil {
		return startErr
	}
	defer shutdown()

	ctx, span := providers.Tracer.Start(cmd.Context(), "dirscan.parse",
		trace.WithAttributes(
			attribute.String("dirscan.input", input),
			attribute.String("dirscan.format", string(format)),
			attribute.Int("dirscan.depth", opts.Depth),
		))
	defer span.End()

	metrics, metricsErr := observability.NewParseMetrics(providers.Meter)
	if metricsErr != nil {
		return metricsErr
	}

	started := time.Now()

	agg, parseErr := pc.aggregate(ctx, cmd.InOrStdin(), input, format, opts)

	result := observability.ParseResult{
		Format:   string(format),
		Status:   observability.StatusOK,
		Duration: time.Since(started),
	}

	if agg != nil {
		result.Records = agg.Records()
		result.Matched = agg.Matched()
	}

	if parseErr != nil {
		result.Status = observability.StatusError

		span.RecordError(parseErr)
		span.SetStatus(codes.Error, parseErr.Error())
		metrics.RecordParse(ctx, result)

		return parseErr
	}

	rows := agg.Rows()
	result.Rows = len(rows)
	metrics.RecordParse(ctx, result)

	providers.Logger.DebugContext(ctx, "parse finished",
		"input", input,
		"records", result.Records,
		"matched", result.Matched,
		"rows", result.Rows,
	)

	writeErr := report.WriteRows(cmd.OutOrStdout(), output, rows, report.Config{
		Color: !pc.noColor && !color.NoColor,
	})
	if codec.IsBrokenPipe(writeErr) {
		return nil
	}

	return writeErr
}

// aggregate reads every record of input into a rollup aggregator.
func (pc *ParseCommand) aggregate(
	ctx context.Context, stdin io.Reader, input string, format codec.Format, opts rollup.Options,
) (*rollup.Aggregator, error) {
	in, openErr := openInput(stdin, input)
	if openErr != nil {
		return nil, openErr
	}

	reader, readerErr := codec.NewReader(format, in)
	if readerErr != nil {
		return nil, errors.Join(readerErr, in.Close())
	}

	agg, newErr := rollup.New(opts)
	if newErr != nil {
		return nil, errors.Join(newErr, in.Close())
	}

	drainErr := agg.Drain(ctx, reader)
	closeErr := in.Close()

	if drainErr != nil {
		return agg, fmt.Errorf("parse %s: %w", input, drainErr)
	}

	return agg, closeErr
}

// openInput opens the parse source. "-" reads the command's standard input.
func openInput(stdin io.Reader, input string) (*codec.Input, error) {
	if input == "-" {
		return codec.NewInput(stdin)
	}

	return codec.OpenInput(input)
}
