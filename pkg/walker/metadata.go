package walker

import (
	"fmt"
	"io/fs"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
	"github.com/Sumatoshi-tech/dirscan/pkg/safeconv"
)

// infoSample builds a sample from portable file info: logical size and
// modification time only.
func infoSample(info fs.FileInfo) dirstat.Sample {
	return dirstat.Sample{
		Size:     safeconv.Int64ToUint64(info.Size()),
		Modified: info.ModTime(),
	}
}

// entryInfo stats a directory entry without following symlinks.
func entryInfo(de fs.DirEntry) (fs.FileInfo, error) {
	info, infoErr := de.Info()
	if infoErr != nil {
		return nil, fmt.Errorf("stat: %w", infoErr)
	}

	return info, nil
}
