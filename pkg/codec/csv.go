package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Sumatoshi-tech/dirscan/pkg/dirstat"
)

// timeLayout is the textual timestamp format in CSV cells.
const timeLayout = time.RFC3339Nano

// csvHeader is the column order written by CSVWriter.
var csvHeader = []string{
	fieldFileCount,
	fieldTotalSize,
	fieldLargestFileSize,
	fieldPath,
	fieldLatestCreated,
	fieldLatestAccessed,
	fieldLatestModified,
}

// csvRequired are the columns a readable header must contain.
var csvRequired = []string{fieldFileCount, fieldTotalSize, fieldPath}

// CSVWriter writes a header row followed by one row per record. Absent values
// are written as empty cells.
type CSVWriter struct {
	w             *csv.Writer
	headerWritten bool
	row           []string
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		w:   csv.NewWriter(w),
		row: make([]string, len(csvHeader)),
	}
}

// Write implements Writer.
func (cw *CSVWriter) Write(stat dirstat.Stat) error {
	headerErr := cw.writeHeader()
	if headerErr != nil {
		return headerErr
	}

	cw.row[0] = strconv.FormatUint(stat.FileCount, 10)
	cw.row[1] = strconv.FormatUint(stat.TotalSize, 10)
	cw.row[2] = formatOptionalUint(stat.LargestFileSize)
	cw.row[3] = stat.Path
	cw.row[4] = formatTime(stat.LatestCreated)
	cw.row[5] = formatTime(stat.LatestAccessed)
	cw.row[6] = formatTime(stat.LatestModified)

	writeErr := cw.w.Write(cw.row)
	if writeErr != nil {
		return fmt.Errorf("csv write: %w", writeErr)
	}

	return cw.flush()
}

// Close implements Writer. A stream with no records still gets its header.
func (cw *CSVWriter) Close() error {
	return cw.writeHeader()
}

func (cw *CSVWriter) writeHeader() error {
	if cw.headerWritten {
		return nil
	}

	cw.headerWritten = true

	writeErr := cw.w.Write(csvHeader)
	if writeErr != nil {
		return fmt.Errorf("csv write header: %w", writeErr)
	}

	return cw.flush()
}

func (cw *CSVWriter) flush() error {
	cw.w.Flush()

	flushErr := cw.w.Error()
	if flushErr != nil {
		return fmt.Errorf("csv flush: %w", flushErr)
	}

	return nil
}

// CSVReader reads records written by CSVWriter. Columns are matched by header
// name, so their order does not matter and unknown columns are ignored.
type CSVReader struct {
	r       *csv.Reader
	columns map[string]int
	err     error
}

// NewCSVReader creates a CSVReader on r.
func NewCSVReader(r io.Reader) *CSVReader {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	return &CSVReader{r: reader}
}

// Read implements Reader.
func (cr *CSVReader) Read() (dirstat.Stat, error) {
	if cr.err != nil {
		return dirstat.Stat{}, cr.err
	}

	if cr.columns == nil {
		headerErr := cr.readHeader()
		if headerErr != nil {
			cr.err = headerErr

			return dirstat.Stat{}, cr.err
		}
	}

	row, readErr := cr.r.Read()
	if readErr != nil {
		cr.err = cr.wrapReadErr(readErr)

		return dirstat.Stat{}, cr.err
	}

	stat, parseErr := cr.parseRow(row)
	if parseErr != nil {
		cr.err = parseErr

		return dirstat.Stat{}, cr.err
	}

	return stat, nil
}

func (cr *CSVReader) readHeader() error {
	header, readErr := cr.r.Read()
	if readErr != nil {
		return cr.wrapReadErr(readErr)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}

	for _, name := range csvRequired {
		if _, ok := columns[name]; !ok {
			return &DecodeError{Format: FormatCSV, Line: 1, Err: fmt.Errorf("%w: %s", ErrMissingField, name)}
		}
	}

	cr.columns = columns

	return nil
}

func (cr *CSVReader) parseRow(row []string) (dirstat.Stat, error) {
	line, _ := cr.r.FieldPos(0)

	var (
		stat dirstat.Stat
		err  error
	)

	stat.Path = cr.cell(row, fieldPath)

	stat.FileCount, err = parseRequiredUint(cr.cell(row, fieldFileCount), fieldFileCount)
	if err != nil {
		return dirstat.Stat{}, &DecodeError{Format: FormatCSV, Line: line, Err: err}
	}

	stat.TotalSize, err = parseRequiredUint(cr.cell(row, fieldTotalSize), fieldTotalSize)
	if err != nil {
		return dirstat.Stat{}, &DecodeError{Format: FormatCSV, Line: line, Err: err}
	}

	stat.LargestFileSize, err = parseOptionalUint(cr.cell(row, fieldLargestFileSize))
	if err != nil {
		return dirstat.Stat{}, &DecodeError{Format: FormatCSV, Line: line, Err: err}
	}

	timestamps := []struct {
		field string
		dst   *time.Time
	}{
		{fieldLatestCreated, &stat.LatestCreated},
		{fieldLatestAccessed, &stat.LatestAccessed},
		{fieldLatestModified, &stat.LatestModified},
	}

	for _, ts := range timestamps {
		*ts.dst, err = parseTime(cr.cell(row, ts.field))
		if err != nil {
			return dirstat.Stat{}, &DecodeError{Format: FormatCSV, Line: line, Err: fmt.Errorf("%s: %w", ts.field, err)}
		}
	}

	return stat, nil
}

// cell returns the named column of row, or "" when the header lacks it.
func (cr *CSVReader) cell(row []string, name string) string {
	idx, ok := cr.columns[name]
	if !ok {
		return ""
	}

	return row[idx]
}

func (cr *CSVReader) wrapReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &DecodeError{Format: FormatCSV, Line: parseErr.Line, Err: parseErr.Err}
	}

	return fmt.Errorf("csv read: %w", err)
}

func parseRequiredUint(cell, field string) (uint64, error) {
	if cell == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	v, err := strconv.ParseUint(cell, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}

	return v, nil
}

func parseOptionalUint(cell string) (uint64, error) {
	if cell == "" {
		return 0, nil
	}

	v, err := strconv.ParseUint(cell, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fieldLargestFileSize, err)
	}

	return v, nil
}

func formatOptionalUint(v uint64) string {
	if v == 0 {
		return ""
	}

	return strconv.FormatUint(v, 10)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}

	return ts.UTC().Format(timeLayout)
}

func parseTime(cell string) (time.Time, error) {
	if cell == "" {
		return time.Time{}, nil
	}

	ts, err := time.Parse(timeLayout, cell)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}

	return ts, nil
}
