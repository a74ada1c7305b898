package progress_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dirscan/internal/progress"
)

type counters struct {
	files, dirs, errors int64
	bytes               uint64
}

func (c counters) Files() int64  { return c.files }
func (c counters) Dirs() int64   { return c.dirs }
func (c counters) Bytes() uint64 { return c.bytes }
func (c counters) Errors() int64 { return c.errors }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.String()
}

func TestLine(t *testing.T) {
	t.Parallel()

	r := progress.New(&bytes.Buffer{}, counters{files: 12345, dirs: 12, bytes: 3 << 20}, 0, false)
	assert.Equal(t, "scanning: 12,345 files, 12 directories, 3.0 MiB", r.Line())

	r = progress.New(&bytes.Buffer{}, counters{files: 1, dirs: 1, bytes: 10, errors: 2}, 0, false)
	assert.Equal(t, "scanning: 1 files, 1 directories, 10 B, 2 errors", r.Line())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	var out syncBuffer

	r := progress.New(&out, counters{files: 3, dirs: 1, bytes: 100}, time.Millisecond, false)
	r.Start(context.Background())
	r.Start(context.Background())

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "3 files")
	}, time.Second, time.Millisecond)

	r.Stop()
	r.Stop()

	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K"))

	written := out.String()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, written, out.String())
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	r := progress.New(&out, counters{}, time.Millisecond, false)
	r.Stop()

	assert.Empty(t, out.String())
}

func TestContextCancelStopsRedraw(t *testing.T) {
	t.Parallel()

	var out syncBuffer

	ctx, cancel := context.WithCancel(context.Background())

	r := progress.New(&out, counters{files: 1}, time.Millisecond, false)
	r.Start(ctx)
	cancel()
	r.Stop()

	written := out.String()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, written, out.String())
}
