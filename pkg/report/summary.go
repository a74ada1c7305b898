package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/dirscan/pkg/safeconv"
)

// Summary row labels.
const (
	labelRoot     = "Root"
	labelSize     = "Total Size"
	labelFiles    = "Files"
	labelDirs     = "Directories"
	labelRecords  = "Records"
	labelDuration = "Duration"
	labelErrors   = "Errors"
)

// durationPrecision is the rounding applied to the displayed scan duration.
const durationPrecision = time.Millisecond

// ScanSummary describes a finished scan.
type ScanSummary struct {
	Root      string
	TotalSize uint64
	Files     int64
	Dirs      int64
	Records   uint64
	Errors    int64
	Duration  time.Duration
}

// RenderSummary formats the scan summary as a two-column table. With colored
// set, a non-zero error count is highlighted.
func RenderSummary(s ScanSummary, colored bool) string {
	errorsCell := humanize.Comma(s.Errors)

	if s.Errors > 0 {
		errorsCell = paint(color.New(color.FgRed, color.Bold), colored).Sprint(errorsCell)
	}

	label := paint(color.New(color.FgCyan), colored)

	tbl := newTable(false)
	tbl.AppendRows([]table.Row{
		{label.Sprint(labelRoot), s.Root},
		{label.Sprint(labelSize), humanize.IBytes(s.TotalSize)},
		{label.Sprint(labelFiles), humanize.Comma(s.Files)},
		{label.Sprint(labelDirs), humanize.Comma(s.Dirs)},
		{label.Sprint(labelRecords), humanize.Comma(safeconv.Uint64ToInt64(s.Records))},
		{label.Sprint(labelDuration), s.Duration.Round(durationPrecision).String()},
		{label.Sprint(labelErrors), errorsCell},
	})

	return tbl.Render()
}

// WriteSummary renders the summary to w followed by a newline.
func WriteSummary(w io.Writer, s ScanSummary, colored bool) error {
	_, writeErr := fmt.Fprintln(w, RenderSummary(s, colored))
	if writeErr != nil {
		return fmt.Errorf("write summary: %w", writeErr)
	}

	return nil
}

// paint forces c on or off regardless of the terminal detection done by the
// color package.
func paint(c *color.Color, enabled bool) *color.Color {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c
}
