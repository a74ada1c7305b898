// Package walker traverses a directory tree in parallel and delivers its
// entries in depth-first order.
//
// Directory listings run concurrently, bounded by Config.Threads. A single
// ordering goroutine replays the discovered tree depth-first and hands
// entries to the caller's channel, so the consumer sees a deterministic
// stream: each directory entry followed by its files and then, recursively,
// its subdirectories. A directory's subdirectories are listed only once the
// ordering goroutine reaches it, so read-ahead is limited to the children of
// the directories on the current path and stalls with the consumer.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/Sumatoshi-tech/dirscan/pkg/grouper"
)

// SizeMode selects how file sizes are measured.
type SizeMode int

// Size modes.
const (
	// SizeLogical is the apparent file length.
	SizeLogical SizeMode = iota
	// SizeOnDisk is the space allocated to the file.
	SizeOnDisk
)

// DefaultBufferSize is the output channel capacity used by callers that do
// not pick one.
const DefaultBufferSize = 4096

// hiddenPrefix marks hidden files and directories.
const hiddenPrefix = "."

// ErrNotDirectory is returned when the walk root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Config configures a Walker.
type Config struct {
	// Threads bounds concurrent directory listings. Zero or negative uses
	// twice the number of CPUs.
	Threads int

	// SkipHidden omits entries whose name starts with a dot, including the
	// whole subtree of hidden directories.
	SkipHidden bool

	SizeMode SizeMode

	// SortChildren yields each directory's files before its subdirectories,
	// both in name order. Without it children keep the order the OS lists
	// them in and files of one directory may be interleaved with subtrees.
	SortChildren bool

	// BufferSize is the capacity callers should give the output channel.
	// Zero uses DefaultBufferSize.
	BufferSize int

	// Logger receives per-entry errors at debug level.
	// When nil, a discard logger is used.
	Logger *slog.Logger
}

// DefaultThreads returns the default listing concurrency.
func DefaultThreads() int {
	return runtime.NumCPU() * 2
}

func (c Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}

	return DefaultThreads()
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Walker performs one traversal at a time. Its counters may be read
// concurrently while a walk is running.
type Walker struct {
	cfg    Config
	logger *slog.Logger
	sem    *semaphore.Weighted

	entries atomic.Int64
	files   atomic.Int64
	dirs    atomic.Int64
	bytes   atomic.Uint64
	errors  atomic.Int64
	listed  atomic.Int64
}

// New creates a Walker.
func New(cfg Config) *Walker {
	return &Walker{
		cfg:    cfg,
		logger: cfg.logger(),
		sem:    semaphore.NewWeighted(int64(cfg.threads())),
	}
}

// NewChannel returns an entry channel sized by the configured buffer size.
func (w *Walker) NewChannel() chan grouper.Entry {
	size := w.cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	return make(chan grouper.Entry, size)
}

// Entries returns the number of entries delivered so far.
func (w *Walker) Entries() int64 { return w.entries.Load() }

// Files returns the number of file entries delivered so far.
func (w *Walker) Files() int64 { return w.files.Load() }

// Dirs returns the number of directory entries delivered so far.
func (w *Walker) Dirs() int64 { return w.dirs.Load() }

// Bytes returns the total size of the readable files delivered so far.
func (w *Walker) Bytes() uint64 { return w.bytes.Load() }

// Errors returns the number of entries that could not be listed or stat'ed.
func (w *Walker) Errors() int64 { return w.errors.Load() }

// node is one discovered directory. children is written by the listing
// goroutine and read by the ordering goroutine after done is closed.
type node struct {
	path     string
	done     chan struct{}
	children []child
}

// child is either a file entry or a subdirectory.
type child struct {
	name  string
	entry grouper.Entry
	dir   *node
}

func newNode(path string) *node {
	return &node{path: path, done: make(chan struct{})}
}

// Walk traverses root and sends its entries to out, closing out on return.
// Entry-level failures are counted, not returned. The returned error is
// non-nil only when root is unusable or ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, root string, out chan<- grouper.Entry) error {
	defer close(out)

	root = filepath.Clean(root)

	info, statErr := os.Stat(root)
	if statErr != nil {
		return fmt.Errorf("walk %s: %w", root, statErr)
	}

	if !info.IsDir() {
		return fmt.Errorf("walk %s: %w", root, ErrNotDirectory)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	rootNode := newNode(root)
	w.spawn(ctx, &wg, rootNode)

	emitErr := w.emit(ctx, &wg, rootNode, out)
	if emitErr == nil && ctx.Err() != nil {
		// Listings skipped after cancellation leave the tree incomplete.
		emitErr = fmt.Errorf("walk: %w", ctx.Err())
	}

	// Stop outstanding listings before waiting for them.
	cancel()
	wg.Wait()

	return emitErr
}

func (w *Walker) spawn(ctx context.Context, wg *sync.WaitGroup, n *node) {
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer close(n.done)

		acquireErr := w.sem.Acquire(ctx, 1)
		if acquireErr != nil {
			return
		}

		n.children = w.list(n.path)

		w.sem.Release(1)
		w.listed.Add(1)
	}()
}

// list reads one directory and stats its files.
func (w *Walker) list(dir string) []child {
	dirEntries, readErr := w.readDir(dir)
	if readErr != nil {
		w.fail(dir, readErr)
	}

	children := make([]child, 0, len(dirEntries))

	for _, de := range dirEntries {
		name := de.Name()
		if w.cfg.SkipHidden && strings.HasPrefix(name, hiddenPrefix) {
			continue
		}

		path := joinPath(dir, name)

		if de.IsDir() {
			children = append(children, child{name: name, dir: newNode(path)})

			continue
		}

		entry := grouper.Entry{Dir: dir}

		sample, sampleErr := readSample(path, de, w.cfg.SizeMode)
		if sampleErr != nil {
			w.fail(path, sampleErr)
		} else {
			sanitized := sample.Sanitized()
			entry.Sample = &sanitized
		}

		children = append(children, child{name: name, entry: entry})
	}

	if w.cfg.SortChildren {
		slices.SortStableFunc(children, compareChildren)
	}

	return children
}

// joinPath appends name to dir without cleaning, so a walk rooted at "."
// yields "./sub" rather than "sub" and every path keeps the root as its
// first component.
func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir + name
	}

	return dir + string(filepath.Separator) + name
}

// readDir lists dir in name order when sorting, otherwise in OS order.
func (w *Walker) readDir(dir string) ([]fs.DirEntry, error) {
	if w.cfg.SortChildren {
		return os.ReadDir(dir)
	}

	f, openErr := os.Open(dir)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	return f.ReadDir(-1)
}

// compareChildren puts files before directories, each group by name.
func compareChildren(a, b child) int {
	aDir, bDir := a.dir != nil, b.dir != nil

	switch {
	case aDir == bDir:
		return strings.Compare(a.name, b.name)
	case aDir:
		return 1
	default:
		return -1
	}
}

func (w *Walker) fail(path string, err error) {
	w.errors.Add(1)
	w.logger.Debug("walk entry failed", "path", path, "error", err)
}

// emit replays the tree rooted at n depth-first. The subdirectories of n are
// listed once n itself has been listed.
func (w *Walker) emit(ctx context.Context, wg *sync.WaitGroup, n *node, out chan<- grouper.Entry) error {
	sendErr := w.send(ctx, out, grouper.Entry{Dir: n.path, IsDir: true})
	if sendErr != nil {
		return sendErr
	}

	w.dirs.Add(1)

	select {
	case <-n.done:
	case <-ctx.Done():
		return fmt.Errorf("walk: %w", ctx.Err())
	}

	children := n.children
	n.children = nil

	for _, c := range children {
		if c.dir != nil {
			w.spawn(ctx, wg, c.dir)
		}
	}

	for _, c := range children {
		if c.dir != nil {
			dirErr := w.emit(ctx, wg, c.dir, out)
			if dirErr != nil {
				return dirErr
			}

			continue
		}

		fileErr := w.send(ctx, out, c.entry)
		if fileErr != nil {
			return fileErr
		}

		w.files.Add(1)

		if c.entry.Sample != nil {
			w.bytes.Add(c.entry.Sample.Size)
		}
	}

	return nil
}

func (w *Walker) send(ctx context.Context, out chan<- grouper.Entry, entry grouper.Entry) error {
	select {
	case out <- entry:
		w.entries.Add(1)

		return nil
	case <-ctx.Done():
		return fmt.Errorf("walk: %w", ctx.Err())
	}
}
