package grouper_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
	"github.com/Sumatoshi-tech/dirscan/pkg/grouper"
)

var errSinkBroken = errors.New("sink broken")

type recordingSink struct {
	stats   []dirstat.Stat
	failAt  int
	written int
}

func (s *recordingSink) Write(stat dirstat.Stat) error {
	s.written++
	if s.failAt > 0 && s.written >= s.failAt {
		return errSinkBroken
	}

	s.stats = append(s.stats, stat)

	return nil
}

func (s *recordingSink) paths() []string {
	out := make([]string, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, st.Path)
	}

	return out
}

func dirEntry(dir string) grouper.Entry {
	return grouper.Entry{Dir: dir, IsDir: true}
}

func fileEntry(dir string, size uint64) grouper.Entry {
	return grouper.Entry{Dir: dir, Sample: &dirstat.Sample{Size: size}}
}

func addAll(t *testing.T, g *grouper.Grouper, entries ...grouper.Entry) {
	t.Helper()

	for _, e := range entries {
		require.NoError(t, g.Add(e))
	}
}

func TestGrouper_SortedStreamEmitsOnePerDirectory(t *testing.T) {
	t.Parallel()

	root := "root"
	sub := filepath.Join(root, "sub")
	other := filepath.Join(root, "other")

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g,
		dirEntry(root),
		fileEntry(root, 1),
		fileEntry(root, 2),
		dirEntry(sub),
		fileEntry(sub, 10),
		dirEntry(other),
		fileEntry(other, 100),
		fileEntry(other, 200),
	)
	require.NoError(t, g.Close())

	require.Equal(t, []string{root, sub, other}, sink.paths())
	assert.Equal(t, uint64(2), sink.stats[0].FileCount)
	assert.Equal(t, uint64(3), sink.stats[0].TotalSize)
	assert.Equal(t, uint64(1), sink.stats[1].FileCount)
	assert.Equal(t, uint64(300), sink.stats[2].TotalSize)
	assert.Equal(t, uint64(200), sink.stats[2].LargestFileSize)
	assert.Equal(t, uint64(3), g.Emitted())
	assert.Equal(t, uint64(5), g.Files())
}

func TestGrouper_SingleEntryIsFlushedOnClose(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g, fileEntry("only", 5))
	assert.Empty(t, sink.stats, "nothing is emitted before the boundary or close")

	require.NoError(t, g.Close())
	require.Len(t, sink.stats, 1)
	assert.Equal(t, uint64(1), sink.stats[0].FileCount)
	assert.Equal(t, uint64(5), sink.stats[0].TotalSize)
}

func TestGrouper_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g, fileEntry("a", 1))
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	assert.Len(t, sink.stats, 1)
	assert.ErrorIs(t, g.Add(fileEntry("a", 1)), grouper.ErrClosed)
}

func TestGrouper_EmptyStreamEmitsNothing(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	require.NoError(t, g.Close())
	assert.Empty(t, sink.stats)
}

func TestGrouper_EmptyDirectoryGetsZeroRecord(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g, dirEntry("empty"), dirEntry("full"), fileEntry("full", 3))
	require.NoError(t, g.Close())

	require.Len(t, sink.stats, 2)
	assert.Equal(t, dirstat.Stat{Path: "empty"}, sink.stats[0])
	assert.Equal(t, uint64(1), sink.stats[1].FileCount)
}

func TestGrouper_OutOfOrderInputDuplicatesRows(t *testing.T) {
	t.Parallel()

	a := "a"
	b := filepath.Join("a", "b")

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g,
		fileEntry(a, 1),
		fileEntry(b, 10),
		fileEntry(a, 2),
	)
	require.NoError(t, g.Close())

	require.Equal(t, []string{a, b, a}, sink.paths())
	assert.Equal(t, uint64(1), sink.stats[0].TotalSize)
	assert.Equal(t, uint64(2), sink.stats[2].TotalSize)
}

func TestGrouper_GroupDepthFoldsSubdirectories(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink, grouper.WithGroupDepth(2))

	addAll(t, g,
		dirEntry(filepath.Join("r", "x")),
		fileEntry(filepath.Join("r", "x"), 1),
		dirEntry(filepath.Join("r", "x", "deep")),
		fileEntry(filepath.Join("r", "x", "deep"), 2),
		fileEntry(filepath.Join("r", "x", "deep", "deeper"), 4),
		dirEntry(filepath.Join("r", "y")),
		fileEntry(filepath.Join("r", "y"), 8),
	)
	require.NoError(t, g.Close())

	require.Equal(t, []string{filepath.Join("r", "x"), filepath.Join("r", "y")}, sink.paths())
	assert.Equal(t, uint64(3), sink.stats[0].FileCount)
	assert.Equal(t, uint64(7), sink.stats[0].TotalSize)
	assert.Equal(t, uint64(8), sink.stats[1].TotalSize)
}

func TestGrouper_MissingSampleIsNotCounted(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g,
		grouper.Entry{Dir: "d"},
		fileEntry("d", 4),
	)
	require.NoError(t, g.Close())

	require.Len(t, sink.stats, 1)
	assert.Equal(t, uint64(1), sink.stats[0].FileCount)
	assert.Equal(t, uint64(4), sink.stats[0].TotalSize)
}

func TestGrouper_PartialTimestampsStillCount(t *testing.T) {
	t.Parallel()

	modified := time.Date(2023, time.May, 4, 0, 0, 0, 0, time.UTC)

	sink := &recordingSink{}
	g := grouper.New(sink)

	addAll(t, g, grouper.Entry{Dir: "d", Sample: &dirstat.Sample{Size: 9, Modified: modified}})
	require.NoError(t, g.Close())

	require.Len(t, sink.stats, 1)
	assert.Equal(t, uint64(1), sink.stats[0].FileCount)
	assert.Equal(t, modified, sink.stats[0].LatestModified)
	assert.True(t, sink.stats[0].LatestAccessed.IsZero())
}

func TestGrouper_SinkErrorPropagates(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{failAt: 1}
	g := grouper.New(sink)

	addAll(t, g, fileEntry("a", 1))

	err := g.Add(fileEntry("b", 1))
	require.ErrorIs(t, err, errSinkBroken)

	// The failed record is not retried on close.
	require.NoError(t, g.Close())
	assert.Equal(t, 1, sink.written)
}

func TestGrouper_ConsumeFlushesWhenChannelCloses(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	entries := make(chan grouper.Entry, 4)
	entries <- dirEntry("a")
	entries <- fileEntry("a", 1)
	entries <- fileEntry("b", 2)
	close(entries)

	require.NoError(t, g.Consume(context.Background(), entries))
	assert.Equal(t, []string{"a", "b"}, sink.paths())
}

func TestGrouper_ConsumeFlushesOnCancellation(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	g := grouper.New(sink)

	entries := make(chan grouper.Entry, 1)
	entries <- fileEntry("a", 1)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- g.Consume(ctx, entries)
	}()

	require.Eventually(t, func() bool { return len(entries) == 0 }, time.Second, time.Millisecond)
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, sink.paths())
}
