// Package rollup re-aggregates a stream of directory records into a
// multi-level summary below a path prefix.
//
// Every record is fanned out into its cumulative ancestor chain: a record at
// a/b/c contributes to the buckets a, a/b and a/b/c (bounded by the configured
// depth). The rows of any single depth therefore partition the same set of
// files.
package rollup

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/dirscan/pkg/codec"
	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
)

// SortMode orders rollup rows.
type SortMode string

// Supported sort modes.
const (
	SortName  SortMode = "name"
	SortSize  SortMode = "size"
	SortFiles SortMode = "files"
)

// Sentinel errors.
var (
	ErrInvalidDepth    = errors.New("depth must be at least 1")
	ErrUnknownSortMode = errors.New("unknown sort mode")
)

// SortModes lists the accepted sort mode names.
func SortModes() []string {
	return []string{string(SortName), string(SortFiles), string(SortSize)}
}

// ParseSortMode resolves a sort mode name.
func ParseSortMode(name string) (SortMode, error) {
	switch mode := SortMode(strings.ToLower(strings.TrimSpace(name))); mode {
	case SortName, SortSize, SortFiles:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownSortMode, name, strings.Join(SortModes(), ", "))
	}
}

// Options configures an Aggregator.
type Options struct {
	// Prefix restricts the rollup to records below this path. Empty keeps all.
	Prefix string
	// Depth is the number of path components below Prefix to expand.
	Depth int
	Sort  SortMode
	// Limit truncates the sorted rows. Zero or negative keeps all.
	Limit int
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Depth < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidDepth, o.Depth)
	}

	if o.Sort != "" {
		_, sortErr := ParseSortMode(string(o.Sort))
		if sortErr != nil {
			return sortErr
		}
	}

	return nil
}

// Row is one aggregated bucket.
type Row struct {
	// Path is the prefix joined with the bucket key.
	Path string
	// Depth is the number of components below the prefix.
	Depth int
	Stat  dirstat.Stat
}

type bucket struct {
	key        []string
	stat       dirstat.Stat
	insertedAt int
}

// Aggregator accumulates records into buckets. It is not safe for concurrent
// use.
type Aggregator struct {
	opts    Options
	prefix  []string
	buckets map[string]*bucket
	order   []*bucket
	records int
	matched int
}

// New creates an Aggregator.
func New(opts Options) (*Aggregator, error) {
	validateErr := opts.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	if opts.Sort == "" {
		opts.Sort = SortName
	}

	return &Aggregator{
		opts:    opts,
		prefix:  dirstat.Components(opts.Prefix),
		buckets: make(map[string]*bucket),
	}, nil
}

// Add folds one record into every ancestor bucket it belongs to. Records
// outside the prefix are ignored.
func (a *Aggregator) Add(stat dirstat.Stat) {
	a.records++

	components := dirstat.Components(stat.Path)
	if !dirstat.HasPrefix(components, a.prefix) {
		return
	}

	a.matched++

	relative := dirstat.Truncate(dirstat.TrimPrefix(components, a.prefix), a.opts.Depth)

	for n := 1; n <= len(relative); n++ {
		key := relative[:n]
		id := dirstat.JoinComponents(key)

		b, ok := a.buckets[id]
		if !ok {
			b = &bucket{
				key:        slices.Clone(key),
				stat:       dirstat.Stat{Path: id},
				insertedAt: len(a.order),
			}
			a.buckets[id] = b
			a.order = append(a.order, b)
		}

		b.stat.Merge(stat)
	}
}

// Records returns how many records were offered to Add.
func (a *Aggregator) Records() int {
	return a.records
}

// Matched returns how many records fell under the prefix.
func (a *Aggregator) Matched() int {
	return a.matched
}

// Rows returns the sorted, limited buckets. It may be called repeatedly.
func (a *Aggregator) Rows() []Row {
	ordered := slices.Clone(a.order)

	slices.SortStableFunc(ordered, a.compare)

	if a.opts.Limit > 0 && len(ordered) > a.opts.Limit {
		ordered = ordered[:a.opts.Limit]
	}

	rows := make([]Row, 0, len(ordered))

	for _, b := range ordered {
		stat := b.stat
		stat.Path = dirstat.JoinComponents(append(slices.Clone(a.prefix), b.key...))

		rows = append(rows, Row{
			Path:  stat.Path,
			Depth: len(b.key),
			Stat:  stat,
		})
	}

	return rows
}

func (a *Aggregator) compare(x, y *bucket) int {
	switch a.opts.Sort {
	case SortSize:
		return cmp.Compare(y.stat.TotalSize, x.stat.TotalSize)
	case SortFiles:
		return cmp.Compare(y.stat.FileCount, x.stat.FileCount)
	default:
		return dirstat.CompareComponents(x.key, y.key)
	}
}

// Drain adds every record read from r. A decode error aborts the drain and
// leaves the records read so far in place.
func (a *Aggregator) Drain(ctx context.Context, r codec.Reader) error {
	for stat, readErr := range codec.All(r) {
		if readErr != nil {
			return fmt.Errorf("read records: %w", readErr)
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("rollup: %w", ctxErr)
		}

		a.Add(stat)
	}

	return nil
}

// Run drains r into a new Aggregator and returns its rows.
func Run(ctx context.Context, r codec.Reader, opts Options) ([]Row, error) {
	agg, newErr := New(opts)
	if newErr != nil {
		return nil, newErr
	}

	drainErr := agg.Drain(ctx, r)
	if drainErr != nil {
		return nil, drainErr
	}

	return agg.Rows(), nil
}
