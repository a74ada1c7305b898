// Package config loads dirscan settings from a YAML file, DIRSCAN_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/dirscan/pkg/codec"
	"github.com/Sumatoshi-tech/dirscan/pkg/report"
	"github.com/Sumatoshi-tech/dirscan/pkg/rollup"
)

// Config is the top-level configuration struct for dirscan.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Scan      ScanConfig      `mapstructure:"scan"`
	Parse     ParseConfig     `mapstructure:"parse"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ScanConfig holds settings for the scan command.
type ScanConfig struct {
	Threads          int           `mapstructure:"threads"`
	IgnoreHidden     bool          `mapstructure:"ignore_hidden"`
	ActualSize       bool          `mapstructure:"actual_size"`
	Format           string        `mapstructure:"format"`
	GroupDepth       int           `mapstructure:"group_depth"`
	Unsorted         bool          `mapstructure:"unsorted"`
	Compress         bool          `mapstructure:"compress"`
	BufferSize       int           `mapstructure:"buffer_size"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
}

// ParseConfig holds settings for the parse command. An empty Format means
// detect it from the input file name.
type ParseConfig struct {
	Depth  int    `mapstructure:"depth"`
	Prefix string `mapstructure:"prefix"`
	Format string `mapstructure:"format"`
	Sort   string `mapstructure:"sort"`
	Limit  int    `mapstructure:"limit"`
	Output string `mapstructure:"output"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings. An empty endpoint
// disables export.
type TelemetryConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Accepted logging values.
var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// sampleRatioMax is the upper bound for the trace sample ratio.
const sampleRatioMax = 1.0

// Sentinel errors for configuration validation.
var (
	// ErrInvalidThreads indicates a negative thread count.
	ErrInvalidThreads = errors.New("scan.threads must be non-negative")
	// ErrInvalidGroupDepth indicates a negative group depth.
	ErrInvalidGroupDepth = errors.New("scan.group_depth must be non-negative")
	// ErrInvalidBufferSize indicates a negative channel buffer.
	ErrInvalidBufferSize = errors.New("scan.buffer_size must be non-negative")
	// ErrInvalidProgressInterval indicates a negative progress interval.
	ErrInvalidProgressInterval = errors.New("scan.progress_interval must be non-negative")
	// ErrInvalidScanFormat indicates an unsupported scan output format.
	ErrInvalidScanFormat = errors.New("scan.format is not supported")
	// ErrInvalidParseDepth indicates a negative parse depth. Zero selects the default.
	ErrInvalidParseDepth = errors.New("parse.depth must be at least 1")
	// ErrInvalidParseFormat indicates an unsupported parse input format.
	ErrInvalidParseFormat = errors.New("parse.format is not supported")
	// ErrInvalidParseSort indicates an unsupported sort mode.
	ErrInvalidParseSort = errors.New("parse.sort is not supported")
	// ErrInvalidParseLimit indicates a negative limit.
	ErrInvalidParseLimit = errors.New("parse.limit must be non-negative")
	// ErrInvalidParseOutput indicates an unsupported output.
	ErrInvalidParseOutput = errors.New("parse.output is not supported")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("logging.format must be text or json")
	// ErrInvalidSampleRatio indicates a sample ratio out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	scanErr := c.validateScan()
	if scanErr != nil {
		return scanErr
	}

	parseErr := c.validateParse()
	if parseErr != nil {
		return parseErr
	}

	return c.validateObservability()
}

func (c *Config) validateScan() error {
	if c.Scan.Threads < 0 {
		return ErrInvalidThreads
	}

	if c.Scan.GroupDepth < 0 {
		return ErrInvalidGroupDepth
	}

	if c.Scan.BufferSize < 0 {
		return ErrInvalidBufferSize
	}

	if c.Scan.ProgressInterval < 0 {
		return ErrInvalidProgressInterval
	}

	if c.Scan.Format != "" {
		_, formatErr := codec.ParseFormat(c.Scan.Format)
		if formatErr != nil {
			return fmt.Errorf("%w: %w", ErrInvalidScanFormat, formatErr)
		}
	}

	return nil
}

func (c *Config) validateParse() error {
	if c.Parse.Depth < 0 {
		return ErrInvalidParseDepth
	}

	if c.Parse.Limit < 0 {
		return ErrInvalidParseLimit
	}

	if c.Parse.Format != "" {
		_, formatErr := codec.ParseFormat(c.Parse.Format)
		if formatErr != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParseFormat, formatErr)
		}
	}

	if c.Parse.Sort != "" {
		_, sortErr := rollup.ParseSortMode(c.Parse.Sort)
		if sortErr != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParseSort, sortErr)
		}
	}

	if c.Parse.Output != "" {
		_, outputErr := report.ParseOutput(c.Parse.Output)
		if outputErr != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParseOutput, outputErr)
		}
	}

	return nil
}

func (c *Config) validateObservability() error {
	if c.Logging.Level != "" && !oneOf(c.Logging.Level, logLevels) {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "" && !oneOf(c.Logging.Format, logFormats) {
		return ErrInvalidLogFormat
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}

	return false
}
