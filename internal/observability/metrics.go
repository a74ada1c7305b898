package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/dirscan/pkg/safeconv"
)

const (
	metricScanEntries  = "dirscan.scan.entries"
	metricScanFiles    = "dirscan.scan.files"
	metricScanDirs     = "dirscan.scan.directories"
	metricScanBytes    = "dirscan.scan.bytes"
	metricScanErrors   = "dirscan.scan.errors"
	metricScanRecords  = "dirscan.scan.records"
	metricScanDuration = "dirscan.scan.duration.seconds"

	metricScanProgressEntries = "dirscan.scan.progress.entries"
	metricScanProgressErrors  = "dirscan.scan.progress.errors"

	metricParseRecords  = "dirscan.parse.records"
	metricParseMatched  = "dirscan.parse.matched"
	metricParseRows     = "dirscan.parse.rows"
	metricParseDuration = "dirscan.parse.duration.seconds"

	attrFormat = "format"
	attrStatus = "status"

	// StatusOK marks a run that completed.
	StatusOK = "ok"
	// StatusError marks a run that failed.
	StatusError = "error"
)

// durationBucketBoundaries covers 10ms to 1h: small trees finish in
// milliseconds, large file servers take tens of minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600}

// ScanProgress is a live view of a running traversal.
type ScanProgress interface {
	Entries() int64
	Errors() int64
}

// ScanResult summarizes a finished scan.
type ScanResult struct {
	Format   string
	Status   string
	Entries  int64
	Files    int64
	Dirs     int64
	Bytes    uint64
	Errors   int64
	Records  uint64
	Duration time.Duration
}

// ScanMetrics holds the OTel instruments for the scan command.
type ScanMetrics struct {
	meter metric.Meter

	entries  metric.Int64Counter
	files    metric.Int64Counter
	dirs     metric.Int64Counter
	bytes    metric.Int64Counter
	errors   metric.Int64Counter
	records  metric.Int64Counter
	duration metric.Float64Histogram

	progressEntries metric.Int64ObservableGauge
	progressErrors  metric.Int64ObservableGauge
}

// NewScanMetrics creates scan metric instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		meter:    mt,
		entries:  b.counter(metricScanEntries, "Entries delivered by the walker", "{entry}"),
		files:    b.counter(metricScanFiles, "Files visited", "{file}"),
		dirs:     b.counter(metricScanDirs, "Directories visited", "{directory}"),
		bytes:    b.counter(metricScanBytes, "Bytes accounted to visited files", "By"),
		errors:   b.counter(metricScanErrors, "Entries that could not be read", "{error}"),
		records:  b.counter(metricScanRecords, "Records written", "{record}"),
		duration: b.histogram(metricScanDuration, "Scan duration in seconds", "s", durationBucketBoundaries...),

		progressEntries: b.observableGauge(metricScanProgressEntries, "Entries delivered by the running scan", "{entry}"),
		progressErrors:  b.observableGauge(metricScanProgressErrors, "Errors seen by the running scan", "{error}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// Observe reports src through the progress gauges until the returned
// function is called.
func (sm *ScanMetrics) Observe(src ScanProgress) (func() error, error) {
	reg, err := sm.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(sm.progressEntries, src.Entries())
		o.ObserveInt64(sm.progressErrors, src.Errors())

		return nil
	}, sm.progressEntries, sm.progressErrors)
	if err != nil {
		return nil, fmt.Errorf("register scan progress callback: %w", err)
	}

	return func() error {
		unregisterErr := reg.Unregister()
		if unregisterErr != nil {
			return fmt.Errorf("unregister scan progress callback: %w", unregisterErr)
		}

		return nil
	}, nil
}

// RecordScan records the totals of a finished scan.
func (sm *ScanMetrics) RecordScan(ctx context.Context, res ScanResult) {
	attrs := metric.WithAttributes(
		attribute.String(attrFormat, res.Format),
		attribute.String(attrStatus, res.Status),
	)

	sm.entries.Add(ctx, res.Entries, attrs)
	sm.files.Add(ctx, res.Files, attrs)
	sm.dirs.Add(ctx, res.Dirs, attrs)
	sm.bytes.Add(ctx, safeconv.Uint64ToInt64(res.Bytes), attrs)
	sm.errors.Add(ctx, res.Errors, attrs)
	sm.records.Add(ctx, safeconv.Uint64ToInt64(res.Records), attrs)
	sm.duration.Record(ctx, res.Duration.Seconds(), attrs)
}

// ParseResult summarizes a finished rollup.
type ParseResult struct {
	Format   string
	Status   string
	Records  int
	Matched  int
	Rows     int
	Duration time.Duration
}

// ParseMetrics holds the OTel instruments for the parse command.
type ParseMetrics struct {
	records  metric.Int64Counter
	matched  metric.Int64Counter
	rows     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewParseMetrics creates parse metric instruments from the given meter.
func NewParseMetrics(mt metric.Meter) (*ParseMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &ParseMetrics{
		records:  b.counter(metricParseRecords, "Records read from the input", "{record}"),
		matched:  b.counter(metricParseMatched, "Records under the prefix", "{record}"),
		rows:     b.counter(metricParseRows, "Rollup rows produced", "{row}"),
		duration: b.histogram(metricParseDuration, "Parse duration in seconds", "s", durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordParse records the totals of a finished rollup.
func (pm *ParseMetrics) RecordParse(ctx context.Context, res ParseResult) {
	attrs := metric.WithAttributes(
		attribute.String(attrFormat, res.Format),
		attribute.String(attrStatus, res.Status),
	)

	pm.records.Add(ctx, int64(res.Records), attrs)
	pm.matched.Add(ctx, int64(res.Matched), attrs)
	pm.rows.Add(ctx, int64(res.Rows), attrs)
	pm.duration.Record(ctx, res.Duration.Seconds(), attrs)
}
