// Package dirstat defines the mergeable per-directory summary record and the
// pure operations used to build it from file samples and to combine records.
package dirstat

import "time"

// Stat summarizes every file attributed to a directory.
//
// A zero time.Time in any of the Latest fields means no sample has been seen
// for that field. Merging treats it as the identity element.
type Stat struct {
	// Path is the directory this record summarizes.
	Path string

	// FileCount is the number of files (never directories) rolled in.
	FileCount uint64

	// TotalSize is the sum of file sizes.
	TotalSize uint64

	// LargestFileSize is the biggest single file observed, zero if none.
	LargestFileSize uint64

	LatestCreated  time.Time
	LatestAccessed time.Time
	LatestModified time.Time
}

// Sample is the metadata of a single file as reported by the traversal.
// Each timestamp is independently optional; the zero value means it could not
// be read.
type Sample struct {
	Size     uint64
	Created  time.Time
	Accessed time.Time
	Modified time.Time
}

// FromSample returns a record for path holding exactly one file.
func FromSample(path string, sample Sample) Stat {
	stat := Stat{Path: path}
	stat.Accumulate(sample)

	return stat
}

// Accumulate folds one file into the record.
func (s *Stat) Accumulate(sample Sample) {
	s.FileCount++
	s.TotalSize += sample.Size
	s.LargestFileSize = max(s.LargestFileSize, sample.Size)
	s.LatestCreated = updateLatest(s.LatestCreated, sample.Created)
	s.LatestAccessed = updateLatest(s.LatestAccessed, sample.Accessed)
	s.LatestModified = updateLatest(s.LatestModified, sample.Modified)
}

// Merge folds other into s. The receiver keeps its Path.
func (s *Stat) Merge(other Stat) {
	s.FileCount += other.FileCount
	s.TotalSize += other.TotalSize
	s.LargestFileSize = max(s.LargestFileSize, other.LargestFileSize)
	s.LatestCreated = updateLatest(s.LatestCreated, other.LatestCreated)
	s.LatestAccessed = updateLatest(s.LatestAccessed, other.LatestAccessed)
	s.LatestModified = updateLatest(s.LatestModified, other.LatestModified)
}

// Merged returns the merge of a and b without modifying either. The result
// carries a's Path.
func Merged(a, b Stat) Stat {
	a.Merge(b)

	return a
}

// updateLatest returns ts when field is unset or older, field otherwise.
// An unset ts never replaces anything.
func updateLatest(field, ts time.Time) time.Time {
	if ts.IsZero() {
		return field
	}

	if field.IsZero() || field.Before(ts) {
		return ts
	}

	return field
}
