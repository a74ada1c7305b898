//go:build linux

package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
	"github.com/Sumatoshi-tech/dirscan/pkg/safeconv"
	"github.com/Sumatoshi-tech/dirscan/pkg/units"
)

const statxMask = unix.STATX_BASIC_STATS | unix.STATX_BTIME

// readSample stats path with statx, which also reports birth time on
// filesystems that record it. Kernels without statx fall back to lstat.
func readSample(path string, de fs.DirEntry, mode SizeMode) (dirstat.Sample, error) {
	var stx unix.Statx_t

	statxErr := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, statxMask, &stx)

	switch {
	case statxErr == nil:
		return statxSample(&stx, mode), nil
	case errors.Is(statxErr, unix.ENOSYS), errors.Is(statxErr, unix.EOPNOTSUPP):
		return lstatSample(path, de, mode)
	default:
		return dirstat.Sample{}, fmt.Errorf("statx: %w", statxErr)
	}
}

func statxSample(stx *unix.Statx_t, mode SizeMode) dirstat.Sample {
	var s dirstat.Sample

	if stx.Mask&unix.STATX_SIZE != 0 {
		s.Size = stx.Size
	}

	if mode == SizeOnDisk && stx.Mask&unix.STATX_BLOCKS != 0 {
		s.Size = stx.Blocks * units.StatBlockSize
	}

	if stx.Mask&unix.STATX_BTIME != 0 {
		s.Created = statxTime(stx.Btime)
	}

	if stx.Mask&unix.STATX_ATIME != 0 {
		s.Accessed = statxTime(stx.Atime)
	}

	if stx.Mask&unix.STATX_MTIME != 0 {
		s.Modified = statxTime(stx.Mtime)
	}

	return s
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

func lstatSample(path string, de fs.DirEntry, mode SizeMode) (dirstat.Sample, error) {
	var st unix.Stat_t

	lstatErr := unix.Lstat(path, &st)
	if lstatErr != nil {
		info, infoErr := entryInfo(de)
		if infoErr != nil {
			return dirstat.Sample{}, infoErr
		}

		return infoSample(info), nil
	}

	s := dirstat.Sample{
		Size:     safeconv.Int64ToUint64(st.Size),
		Accessed: time.Unix(st.Atim.Unix()),
		Modified: time.Unix(st.Mtim.Unix()),
	}

	if mode == SizeOnDisk {
		s.Size = safeconv.Int64ToUint64(int64(st.Blocks)) * units.StatBlockSize
	}

	return s, nil
}
