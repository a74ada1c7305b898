//go:build !linux

package walker

import (
	"io/fs"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
)

// readSample reports the logical size and modification time. Allocated size,
// access and birth times are not read on this platform, so SizeOnDisk falls
// back to the logical size.
func readSample(_ string, de fs.DirEntry, _ SizeMode) (dirstat.Sample, error) {
	info, infoErr := entryInfo(de)
	if infoErr != nil {
		return dirstat.Sample{}, infoErr
	}

	return infoSample(info), nil
}
