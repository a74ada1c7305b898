// Package grouper turns an ordered stream of traversal entries into one
// dirstat.Stat per directory, holding at most one open group at a time.
//
// Entries that share a group key must arrive contiguously (depth-first, a
// directory's files before its subdirectories). When they do not, the same
// key is opened, emitted and reopened again, producing duplicate records for
// one logical directory. Nothing is lost or merged across the gap.
package grouper

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
)

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("grouper is closed")

// Entry is one traversal result.
type Entry struct {
	// Dir is the directory the entry is attributed to: the directory itself
	// for a directory entry, the parent directory for a file.
	Dir string

	// IsDir marks directory entries. They open groups but are never counted.
	IsDir bool

	// Sample holds the file metadata. Nil when it could not be read.
	Sample *dirstat.Sample
}

// Sink receives completed records.
type Sink interface {
	Write(stat dirstat.Stat) error
}

// Option configures a Grouper.
type Option func(*Grouper)

// WithGroupDepth groups entries by the first depth components of their
// directory instead of the full directory. Zero or negative disables it.
func WithGroupDepth(depth int) Option {
	return func(g *Grouper) {
		g.depth = depth
	}
}

// Grouper is the streaming group state machine. It is not safe for
// concurrent use; a single consumer owns it for its whole lifetime.
type Grouper struct {
	sink  Sink
	depth int

	open    bool
	closed  bool
	key     []string
	current dirstat.Stat

	emitted uint64
	files   uint64
}

// New creates a grouper writing completed records to sink.
func New(sink Sink, opts ...Option) *Grouper {
	g := &Grouper{sink: sink}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Add feeds one entry. Crossing a group boundary emits the previous record.
func (g *Grouper) Add(entry Entry) error {
	if g.closed {
		return ErrClosed
	}

	key := dirstat.Truncate(dirstat.Components(entry.Dir), g.depth)

	switch {
	case !g.open:
		g.openGroup(key, entry)
	case slices.Equal(key, g.key):
		g.accumulate(entry)
	default:
		flushErr := g.flush()
		if flushErr != nil {
			return flushErr
		}

		g.openGroup(key, entry)
	}

	return nil
}

// Close emits the open group, if any. It must be called once the producer is
// done, including when the producer failed. Calling it again is a no-op.
func (g *Grouper) Close() error {
	if g.closed {
		return nil
	}

	g.closed = true

	if !g.open {
		return nil
	}

	return g.flush()
}

// Consume reads entries in delivery order until the channel is closed or ctx
// is done, then closes the grouper.
func (g *Grouper) Consume(ctx context.Context, entries <-chan Entry) (err error) {
	defer func() {
		err = errors.Join(err, g.Close())
	}()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("consume entries: %w", ctx.Err())
		case entry, ok := <-entries:
			if !ok {
				return nil
			}

			addErr := g.Add(entry)
			if addErr != nil {
				return addErr
			}
		}
	}
}

// Emitted returns the number of records handed to the sink.
func (g *Grouper) Emitted() uint64 {
	return g.emitted
}

// Files returns the number of file entries counted so far.
func (g *Grouper) Files() uint64 {
	return g.files
}

func (g *Grouper) openGroup(key []string, entry Entry) {
	g.open = true
	g.key = key
	g.current = dirstat.Stat{Path: dirstat.JoinComponents(key)}
	g.accumulate(entry)
}

func (g *Grouper) accumulate(entry Entry) {
	if entry.IsDir || entry.Sample == nil {
		return
	}

	g.current.Accumulate(*entry.Sample)
	g.files++
}

// flush hands the open record to the sink. The group is closed before the
// write so a failing sink never sees the same record twice.
func (g *Grouper) flush() error {
	g.open = false

	writeErr := g.sink.Write(g.current)
	if writeErr != nil {
		return fmt.Errorf("emit %q: %w", g.current.Path, writeErr)
	}

	g.emitted++

	return nil
}
