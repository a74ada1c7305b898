package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dirscan/pkg/grouper"
)

// buildTree creates:
//
//	root/
//	  b.txt (2 bytes)
//	  a.txt (1 byte)
//	  .hidden (3 bytes)
//	  sub/
//	    c.txt (4 bytes)
//	    deeper/
//	      d.txt (5 bytes)
//	  .git/
//	    e.txt (6 bytes)
//	  empty/
func buildTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	files := []struct {
		name string
		size int
	}{
		{"b.txt", 2},
		{"a.txt", 1},
		{".hidden", 3},
		{filepath.Join("sub", "c.txt"), 4},
		{filepath.Join("sub", "deeper", "d.txt"), 5},
		{filepath.Join(".git", "e.txt"), 6},
	}

	for _, f := range files {
		path := filepath.Join(root, f.name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, f.size), 0o600))
	}

	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	return root
}

type seen struct {
	Dir   string
	IsDir bool
	Size  uint64
}

func collect(t *testing.T, w *Walker, root string) []seen {
	t.Helper()

	out := w.NewChannel()
	errCh := make(chan error, 1)

	go func() { errCh <- w.Walk(context.Background(), root, out) }()

	var got []seen

	for entry := range out {
		s := seen{Dir: entry.Dir, IsDir: entry.IsDir}
		if entry.Sample != nil {
			s.Size = entry.Sample.Size
		}

		got = append(got, s)
	}

	require.NoError(t, <-errCh)

	return got
}

func TestWalkSortedOrder(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	w := New(Config{Threads: 4, SortChildren: true})

	got := collect(t, w, root)

	sub := filepath.Join(root, "sub")
	deeper := filepath.Join(sub, "deeper")

	assert.Equal(t, []seen{
		{Dir: root, IsDir: true},
		{Dir: root, Size: 3},
		{Dir: root, Size: 1},
		{Dir: root, Size: 2},
		{Dir: filepath.Join(root, ".git"), IsDir: true},
		{Dir: filepath.Join(root, ".git"), Size: 6},
		{Dir: filepath.Join(root, "empty"), IsDir: true},
		{Dir: sub, IsDir: true},
		{Dir: sub, Size: 4},
		{Dir: deeper, IsDir: true},
		{Dir: deeper, Size: 5},
	}, got)

	assert.Equal(t, int64(len(got)), w.Entries())
	assert.Equal(t, int64(5), w.Dirs())
	assert.Equal(t, int64(6), w.Files())
	assert.Equal(t, uint64(21), w.Bytes())
	assert.Zero(t, w.Errors())
}

func TestWalkSkipHidden(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	w := New(Config{Threads: 1, SortChildren: true, SkipHidden: true})

	got := collect(t, w, root)

	for _, s := range got {
		assert.NotContains(t, s.Dir, ".git")
	}

	assert.Equal(t, int64(4), w.Files())
	assert.Equal(t, uint64(12), w.Bytes())
}

func TestWalkUnsortedDeliversEverything(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	w := New(Config{Threads: 3})

	got := collect(t, w, root)

	require.NotEmpty(t, got)
	assert.Equal(t, seen{Dir: root, IsDir: true}, got[0])
	assert.Len(t, got, 11)
	assert.Equal(t, uint64(21), w.Bytes())
}

func TestWalkFeedsGrouper(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	w := New(Config{Threads: 2, SortChildren: true})

	sink := &statSink{}
	g := grouper.New(sink)

	out := w.NewChannel()
	errCh := make(chan error, 1)

	go func() { errCh <- w.Walk(context.Background(), root, out) }()

	require.NoError(t, g.Consume(context.Background(), out))
	require.NoError(t, <-errCh)

	require.Len(t, sink.stats, 5)
	assert.Equal(t, root, sink.stats[0].Path)
	assert.Equal(t, uint64(3), sink.stats[0].FileCount)
	assert.Equal(t, uint64(6), sink.stats[0].TotalSize)
	assert.Equal(t, uint64(3), sink.stats[0].LargestFileSize)
	assert.Equal(t, filepath.Join(root, "empty"), sink.stats[2].Path)
	assert.Zero(t, sink.stats[2].FileCount)
	assert.False(t, sink.stats[0].LatestModified.IsZero())
}

func TestWalkRootNotDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	out := make(chan grouper.Entry, 1)

	err := New(Config{}).Walk(context.Background(), file, out)
	require.ErrorIs(t, err, ErrNotDirectory)

	_, open := <-out
	assert.False(t, open)
}

func TestWalkRootMissing(t *testing.T) {
	t.Parallel()

	out := make(chan grouper.Entry, 1)

	err := New(Config{}).Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), out)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalkCountsUnreadableDirectories(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := buildTree(t)
	locked := filepath.Join(root, "sub")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	w := New(Config{Threads: 2, SortChildren: true})
	got := collect(t, w, root)

	assert.Contains(t, got, seen{Dir: locked, IsDir: true})
	assert.Equal(t, int64(1), w.Errors())
}

func TestWalkCancelled(t *testing.T) {
	t.Parallel()

	root := buildTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered and never read: the walk can only end through ctx.
	out := make(chan grouper.Entry)

	err := New(Config{Threads: 1}).Walk(ctx, root, out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWalkSymlinksNotFollowed(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}

	root := buildTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link")))

	w := New(Config{Threads: 2, SortChildren: true})
	got := collect(t, w, root)

	for _, s := range got {
		assert.NotEqual(t, filepath.Join(root, "link"), s.Dir)
	}

	assert.Equal(t, int64(7), w.Files())
}

func TestDefaultThreads(t *testing.T) {
	t.Parallel()

	assert.Equal(t, runtime.NumCPU()*2, DefaultThreads())
	assert.Equal(t, DefaultThreads(), Config{}.threads())
	assert.Equal(t, 3, Config{Threads: 3}.threads())
}
