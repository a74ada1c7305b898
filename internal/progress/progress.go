// Package progress prints a periodic status line while a scan runs.
package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 250 * time.Millisecond

// clearLine erases the current terminal line before redrawing.
const clearLine = "\r\033[K"

// Source exposes the live counters of a running traversal.
type Source interface {
	Files() int64
	Dirs() int64
	Bytes() uint64
	Errors() int64
}

// Reporter redraws a single status line on w until stopped.
type Reporter struct {
	w        io.Writer
	src      Source
	interval time.Duration
	errColor *color.Color

	mu      sync.Mutex
	drawn   bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a reporter for src. A non-positive interval selects
// DefaultInterval.
func New(w io.Writer, src Source, interval time.Duration, colored bool) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}

	errColor := color.New(color.FgRed, color.Bold)
	if colored {
		errColor.EnableColor()
	} else {
		errColor.DisableColor()
	}

	return &Reporter{
		w:        w,
		src:      src,
		interval: interval,
		errColor: errColor,
	}
}

// Line formats the current counters.
func (r *Reporter) Line() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "scanning: %s files, %s directories, %s",
		humanize.Comma(r.src.Files()), humanize.Comma(r.src.Dirs()), humanize.IBytes(r.src.Bytes()))

	if errs := r.src.Errors(); errs > 0 {
		sb.WriteString(", ")
		sb.WriteString(r.errColor.Sprintf("%s errors", humanize.Comma(errs)))
	}

	return sb.String()
}

// Start begins redrawing in the background. Calling Start on a running
// reporter does nothing.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})

	go r.run(runCtx, r.stopped)
}

// Stop halts the reporter and erases the status line. It is safe to call
// more than once and without Start.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel, stopped := r.cancel, r.stopped
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-stopped

	if r.drawn {
		_, _ = io.WriteString(r.w, clearLine)
		r.drawn = false
	}
}

func (r *Reporter) run(ctx context.Context, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, writeErr := io.WriteString(r.w, clearLine+r.Line())
			if writeErr != nil {
				return
			}

			r.drawn = true
		}
	}
}
