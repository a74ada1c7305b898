package config

import (
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/dirscan/pkg/codec"
	"github.com/Sumatoshi-tech/dirscan/pkg/rollup"
	"github.com/Sumatoshi-tech/dirscan/pkg/walker"
)

// WalkerConfig translates scan settings into a walker configuration.
// Unsorted scans give up the contiguous ordering the grouper relies on.
func (s ScanConfig) WalkerConfig(logger *slog.Logger) walker.Config {
	sizeMode := walker.SizeLogical
	if s.ActualSize {
		sizeMode = walker.SizeOnDisk
	}

	return walker.Config{
		Threads:      s.Threads,
		SkipHidden:   s.IgnoreHidden,
		SizeMode:     sizeMode,
		SortChildren: !s.Unsorted,
		BufferSize:   s.BufferSize,
		Logger:       logger,
	}
}

// CodecFormat resolves the scan output format, falling back to JSON.
func (s ScanConfig) CodecFormat() (codec.Format, error) {
	if s.Format == "" {
		return codec.FormatJSON, nil
	}

	format, parseErr := codec.ParseFormat(s.Format)
	if parseErr != nil {
		return "", fmt.Errorf("scan format: %w", parseErr)
	}

	return format, nil
}

// RollupOptions translates parse settings into rollup options. A zero depth
// selects DefaultParseDepth.
func (p ParseConfig) RollupOptions() (rollup.Options, error) {
	depth := p.Depth
	if depth == 0 {
		depth = DefaultParseDepth
	}

	sortName := p.Sort
	if sortName == "" {
		sortName = DefaultParseSort
	}

	sortMode, sortErr := rollup.ParseSortMode(sortName)
	if sortErr != nil {
		return rollup.Options{}, fmt.Errorf("parse sort: %w", sortErr)
	}

	opts := rollup.Options{
		Prefix: p.Prefix,
		Depth:  depth,
		Sort:   sortMode,
		Limit:  p.Limit,
	}

	validateErr := opts.Validate()
	if validateErr != nil {
		return rollup.Options{}, fmt.Errorf("parse options: %w", validateErr)
	}

	return opts, nil
}

// InputFormat resolves the parse input format. An unset format is detected
// from the input name; detection failure falls back to JSON.
func (p ParseConfig) InputFormat(input string) (codec.Format, error) {
	if p.Format != "" {
		format, parseErr := codec.ParseFormat(p.Format)
		if parseErr != nil {
			return "", fmt.Errorf("parse format: %w", parseErr)
		}

		return format, nil
	}

	format, ok := codec.DetectFormat(input)
	if !ok {
		return codec.FormatJSON, nil
	}

	return format, nil
}
