package config

import "time"

// Scan defaults. Zero threads means twice the number of CPUs.
const (
	DefaultScanThreads          = 0
	DefaultScanIgnoreHidden     = false
	DefaultScanActualSize       = false
	DefaultScanFormat           = "json"
	DefaultScanGroupDepth       = 0
	DefaultScanUnsorted         = false
	DefaultScanCompress         = false
	DefaultScanBufferSize       = 4096
	DefaultScanProgressInterval = 250 * time.Millisecond
	DefaultScanMetricsAddr      = ""
)

// Parse defaults.
const (
	DefaultParseDepth  = 1
	DefaultParsePrefix = ""
	DefaultParseFormat = ""
	DefaultParseSort   = "name"
	DefaultParseLimit  = 0
	DefaultParseOutput = "table"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Telemetry defaults.
const (
	DefaultTelemetryEndpoint    = ""
	DefaultTelemetryInsecure    = false
	DefaultTelemetrySampleRatio = 1.0
)
