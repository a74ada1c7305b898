package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dirscan/internal/config"
	"github.com/Sumatoshi-tech/dirscan/pkg/codec"
	"github.com/Sumatoshi-tech/dirscan/pkg/rollup"
	"github.com/Sumatoshi-tech/dirscan/pkg/walker"
)

func TestWalkerConfig(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	sorted := config.ScanConfig{Threads: 4, IgnoreHidden: true, BufferSize: 64}.WalkerConfig(logger)
	assert.Equal(t, walker.Config{
		Threads:      4,
		SkipHidden:   true,
		SizeMode:     walker.SizeLogical,
		SortChildren: true,
		BufferSize:   64,
		Logger:       logger,
	}, sorted)

	onDisk := config.ScanConfig{ActualSize: true, Unsorted: true}.WalkerConfig(nil)
	assert.Equal(t, walker.SizeOnDisk, onDisk.SizeMode)
	assert.False(t, onDisk.SortChildren)
}

func TestCodecFormat(t *testing.T) {
	t.Parallel()

	format, err := config.ScanConfig{}.CodecFormat()
	require.NoError(t, err)
	assert.Equal(t, codec.FormatJSON, format)

	format, err = config.ScanConfig{Format: "CSV"}.CodecFormat()
	require.NoError(t, err)
	assert.Equal(t, codec.FormatCSV, format)

	_, err = config.ScanConfig{Format: "bin"}.CodecFormat()
	require.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestRollupOptions(t *testing.T) {
	t.Parallel()

	opts, err := config.ParseConfig{}.RollupOptions()
	require.NoError(t, err)
	assert.Equal(t, rollup.Options{Depth: config.DefaultParseDepth, Sort: rollup.SortName}, opts)

	opts, err = config.ParseConfig{Depth: 3, Prefix: "a", Sort: "files", Limit: 5}.RollupOptions()
	require.NoError(t, err)
	assert.Equal(t, rollup.Options{Prefix: "a", Depth: 3, Sort: rollup.SortFiles, Limit: 5}, opts)

	_, err = config.ParseConfig{Sort: "mtime"}.RollupOptions()
	require.ErrorIs(t, err, rollup.ErrUnknownSortMode)

	_, err = config.ParseConfig{Depth: -1}.RollupOptions()
	require.ErrorIs(t, err, rollup.ErrInvalidDepth)
}

func TestInputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cfg   config.ParseConfig
		input string
		want  codec.Format
	}{
		{"explicit wins", config.ParseConfig{Format: "json"}, "scan.csv", codec.FormatJSON},
		{"detected csv", config.ParseConfig{}, "scan.csv.lz4", codec.FormatCSV},
		{"detected jsonl", config.ParseConfig{}, "scan.jsonl", codec.FormatJSON},
		{"stdin falls back", config.ParseConfig{}, "-", codec.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.cfg.InputFormat(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := config.ParseConfig{Format: "xml"}.InputFormat("x")
	require.ErrorIs(t, err, codec.ErrUnknownFormat)
}
