package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
)

// jsonRecord is the wire shape of one JSON line. Required fields are pointers
// so their absence can be told apart from zero.
type jsonRecord struct {
	FileCount       *uint64   `json:"file_count"`
	TotalSize       *uint64   `json:"total_size"`
	LargestFileSize uint64    `json:"largest_file_size,omitempty"`
	Path            *string   `json:"path"`
	LatestCreated   time.Time `json:"latest_created,omitzero"`
	LatestAccessed  time.Time `json:"latest_accessed,omitzero"`
	LatestModified  time.Time `json:"latest_modified,omitzero"`
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewJSONWriter creates a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// Write implements Writer.
func (jw *JSONWriter) Write(stat dirstat.Stat) error {
	fileCount, totalSize, path := stat.FileCount, stat.TotalSize, stat.Path

	rec := jsonRecord{
		FileCount:       &fileCount,
		TotalSize:       &totalSize,
		LargestFileSize: stat.LargestFileSize,
		Path:            &path,
		LatestCreated:   utc(stat.LatestCreated),
		LatestAccessed:  utc(stat.LatestAccessed),
		LatestModified:  utc(stat.LatestModified),
	}

	jw.buf.Reset()

	enc := json.NewEncoder(&jw.buf)
	enc.SetEscapeHTML(false)

	// Encode appends the line terminator.
	encodeErr := enc.Encode(rec)
	if encodeErr != nil {
		return fmt.Errorf("json encode: %w", encodeErr)
	}

	_, writeErr := jw.w.Write(jw.buf.Bytes())
	if writeErr != nil {
		return fmt.Errorf("json write: %w", writeErr)
	}

	return nil
}

// Close implements Writer. JSON lines need no trailer.
func (jw *JSONWriter) Close() error {
	return nil
}

// JSONReader reads records written by JSONWriter. Blank lines are skipped.
type JSONReader struct {
	r    *bufio.Reader
	line int
	err  error
}

// NewJSONReader creates a JSONReader on r.
func NewJSONReader(r io.Reader) *JSONReader {
	return &JSONReader{r: bufio.NewReader(r)}
}

// Read implements Reader.
func (jr *JSONReader) Read() (dirstat.Stat, error) {
	if jr.err != nil {
		return dirstat.Stat{}, jr.err
	}

	for {
		raw, readErr := jr.r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			jr.err = fmt.Errorf("json read: %w", readErr)

			return dirstat.Stat{}, jr.err
		}

		if len(raw) > 0 {
			jr.line++
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 {
			stat, decodeErr := jr.decode(trimmed)
			if decodeErr != nil {
				jr.err = decodeErr

				return dirstat.Stat{}, jr.err
			}

			return stat, nil
		}

		if readErr != nil {
			jr.err = io.EOF

			return dirstat.Stat{}, jr.err
		}
	}
}

func (jr *JSONReader) decode(line []byte) (dirstat.Stat, error) {
	var rec jsonRecord

	unmarshalErr := json.Unmarshal(line, &rec)
	if unmarshalErr != nil {
		return dirstat.Stat{}, &DecodeError{Format: FormatJSON, Line: jr.line, Err: unmarshalErr}
	}

	switch {
	case rec.FileCount == nil:
		return dirstat.Stat{}, jr.missing(fieldFileCount)
	case rec.TotalSize == nil:
		return dirstat.Stat{}, jr.missing(fieldTotalSize)
	case rec.Path == nil:
		return dirstat.Stat{}, jr.missing(fieldPath)
	}

	return dirstat.Stat{
		Path:            *rec.Path,
		FileCount:       *rec.FileCount,
		TotalSize:       *rec.TotalSize,
		LargestFileSize: rec.LargestFileSize,
		LatestCreated:   rec.LatestCreated,
		LatestAccessed:  rec.LatestAccessed,
		LatestModified:  rec.LatestModified,
	}, nil
}

func (jr *JSONReader) missing(field string) error {
	return &DecodeError{Format: FormatJSON, Line: jr.line, Err: fmt.Errorf("%w: %s", ErrMissingField, field)}
}

// utc normalizes a timestamp for the wire, keeping the zero value intact.
func utc(ts time.Time) time.Time {
	if ts.IsZero() {
		return ts
	}

	return ts.UTC()
}
