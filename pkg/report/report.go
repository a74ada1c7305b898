// Package report renders rollup rows and scan summaries for the terminal or
// as structured JSON/YAML documents.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/dirscan/pkg/rollup"
)

// Output selects how rollup rows are rendered.
type Output string

// Supported outputs.
const (
	OutputTable Output = "table"
	OutputJSON  Output = "json"
	OutputYAML  Output = "yaml"
)

// Column titles.
const (
	colPrefix   = "Prefix"
	colFiles    = "Files"
	colSize     = "Size"
	colCreated  = "Created"
	colAccessed = "Accessed"
	colModified = "Modified"
)

// Unknown is shown for an absent timestamp.
const Unknown = "Unknown"

const jsonIndent = "  "

// ErrUnknownOutput is returned for an unsupported output name.
var ErrUnknownOutput = errors.New("unknown output")

// Outputs lists the supported output names.
func Outputs() []string {
	return []string{string(OutputTable), string(OutputJSON), string(OutputYAML)}
}

// ParseOutput resolves an output name.
func ParseOutput(name string) (Output, error) {
	switch out := Output(strings.ToLower(strings.TrimSpace(name))); out {
	case OutputTable, OutputJSON, OutputYAML:
		return out, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownOutput, name, strings.Join(Outputs(), ", "))
	}
}

// Config controls rendering.
type Config struct {
	// Color enables ANSI colors in table output.
	Color bool

	// Now anchors relative timestamps. When nil, time.Now is used.
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}

// RowView is the structured form of a rollup row. Absent timestamps are
// omitted.
type RowView struct {
	Path            string     `json:"path"                        yaml:"path"`
	Depth           int        `json:"depth"                       yaml:"depth"`
	FileCount       uint64     `json:"file_count"                  yaml:"file_count"`
	TotalSize       uint64     `json:"total_size"                  yaml:"total_size"`
	Size            string     `json:"size"                        yaml:"size"`
	LargestFileSize uint64     `json:"largest_file_size,omitempty" yaml:"largest_file_size,omitempty"`
	LatestCreated   *time.Time `json:"latest_created,omitempty"    yaml:"latest_created,omitempty"`
	LatestAccessed  *time.Time `json:"latest_accessed,omitempty"   yaml:"latest_accessed,omitempty"`
	LatestModified  *time.Time `json:"latest_modified,omitempty"   yaml:"latest_modified,omitempty"`
}

// NewRowView converts a rollup row.
func NewRowView(row rollup.Row) RowView {
	return RowView{
		Path:            row.Path,
		Depth:           row.Depth,
		FileCount:       row.Stat.FileCount,
		TotalSize:       row.Stat.TotalSize,
		Size:            humanize.IBytes(row.Stat.TotalSize),
		LargestFileSize: row.Stat.LargestFileSize,
		LatestCreated:   optionalTime(row.Stat.LatestCreated),
		LatestAccessed:  optionalTime(row.Stat.LatestAccessed),
		LatestModified:  optionalTime(row.Stat.LatestModified),
	}
}

func optionalTime(ts time.Time) *time.Time {
	if ts.IsZero() {
		return nil
	}

	utc := ts.UTC()

	return &utc
}

// WriteRows renders rows to w in the requested output.
func WriteRows(w io.Writer, out Output, rows []rollup.Row, cfg Config) error {
	switch out {
	case OutputTable:
		_, writeErr := io.WriteString(w, RenderTable(rows, cfg)+"\n")
		if writeErr != nil {
			return fmt.Errorf("write table: %w", writeErr)
		}

		return nil
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", jsonIndent)

		encodeErr := enc.Encode(views(rows))
		if encodeErr != nil {
			return fmt.Errorf("write json: %w", encodeErr)
		}

		return nil
	case OutputYAML:
		enc := yaml.NewEncoder(w)

		encodeErr := enc.Encode(views(rows))
		if encodeErr != nil {
			return fmt.Errorf("write yaml: %w", encodeErr)
		}

		closeErr := enc.Close()
		if closeErr != nil {
			return fmt.Errorf("write yaml: %w", closeErr)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, out)
	}
}

func views(rows []rollup.Row) []RowView {
	out := make([]RowView, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewRowView(row))
	}

	return out
}

// RenderTable formats rows as an aligned, borderless table.
func RenderTable(rows []rollup.Row, cfg Config) string {
	now := cfg.now()

	tbl := newTable(cfg.Color)
	tbl.AppendHeader(table.Row{colPrefix, colFiles, colSize, colCreated, colAccessed, colModified})

	for _, row := range rows {
		tbl.AppendRow(table.Row{
			row.Path,
			row.Stat.FileCount,
			humanize.IBytes(row.Stat.TotalSize),
			RelativeTime(row.Stat.LatestCreated, now),
			RelativeTime(row.Stat.LatestAccessed, now),
			RelativeTime(row.Stat.LatestModified, now),
		})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Name: colFiles, Align: text.AlignRight},
		{Name: colSize, Align: text.AlignRight},
	})

	return tbl.Render()
}

// RelativeTime humanizes ts against now, or returns Unknown when ts is absent.
func RelativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return Unknown
	}

	return humanize.RelTime(ts, now, "ago", "from now")
}

func newTable(colored bool) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false
	tbl.Style().Format.Header = text.FormatDefault

	if colored {
		tbl.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
	}

	return tbl
}
