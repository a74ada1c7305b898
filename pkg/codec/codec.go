// Package codec reads and writes streams of dirstat.Stat records in one of
// two interchangeable encodings: line-delimited JSON and CSV with a header row.
package codec

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
)

// Format selects a record encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// File extensions per format.
const (
	jsonExtension = ".jsonl"
	csvExtension  = ".csv"
)

// Wire field names, shared by both encodings.
const (
	fieldFileCount       = "file_count"
	fieldTotalSize       = "total_size"
	fieldLargestFileSize = "largest_file_size"
	fieldPath            = "path"
	fieldLatestCreated   = "latest_created"
	fieldLatestAccessed  = "latest_accessed"
	fieldLatestModified  = "latest_modified"
)

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("unknown format")

// Writer appends records to a stream. Each Write hands the complete record,
// terminator included, to the underlying writer before returning.
type Writer interface {
	Write(stat dirstat.Stat) error
	// Close finishes the stream. It never closes the underlying writer.
	Close() error
}

// Reader yields records in stream order. Read returns io.EOF once the input is
// exhausted; any other error is final and is returned again by later calls.
type Reader interface {
	Read() (dirstat.Stat, error)
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatCSV)}
}

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
}

// DetectFormat guesses the format from a file name, looking through a
// compression suffix.
func DetectFormat(path string) (Format, bool) {
	name := strings.TrimSuffix(strings.ToLower(path), compressedExtension)

	switch filepath.Ext(name) {
	case jsonExtension, ".json":
		return FormatJSON, true
	case csvExtension:
		return FormatCSV, true
	default:
		return "", false
	}
}

// Extension returns the conventional file extension for the format.
func (f Format) Extension() string {
	if f == FormatCSV {
		return csvExtension
	}

	return jsonExtension
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

// NewWriter creates a record writer for the format.
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// NewReader creates a record reader for the format.
func NewReader(format Format, r io.Reader) (Reader, error) {
	switch format {
	case FormatJSON:
		return NewJSONReader(r), nil
	case FormatCSV:
		return NewCSVReader(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// All adapts a Reader to a range-over-func sequence. A decode error is yielded
// once and ends the sequence.
func All(r Reader) iter.Seq2[dirstat.Stat, error] {
	return func(yield func(dirstat.Stat, error) bool) {
		for {
			stat, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(dirstat.Stat{}, err)

				return
			}

			if !yield(stat, nil) {
				return
			}
		}
	}
}
