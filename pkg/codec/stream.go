package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/dirscan/pkg/units"
)

// compressedExtension marks lz4-framed streams.
const compressedExtension = ".lz4"

// outputBufferSize matches the write buffer used for scan output files.
const outputBufferSize = units.MiB

// stdioPath selects standard input or output.
const stdioPath = "-"

// lz4Magic is the little-endian lz4 frame magic number 0x184D2204.
var lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}

// HasCompressedSuffix reports whether path names an lz4 stream.
func HasCompressedSuffix(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), compressedExtension)
}

// Output is a buffered destination for a record stream. Close flushes every
// layer and closes the file it opened; standard output is flushed, not closed.
type Output struct {
	io.Writer

	buf  *bufio.Writer
	lz   *lz4.Writer
	file *os.File
}

// OpenOutput opens path for writing ("" or "-" is standard output). When
// compress is set the stream is wrapped in an lz4 frame.
func OpenOutput(path string, compress bool) (*Output, error) {
	out := &Output{}

	var dst io.Writer = os.Stdout

	if path != "" && path != stdioPath {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output file: %w", err)
		}

		out.file = file
		dst = file
	}

	return out.wrap(dst, compress), nil
}

// NewOutput wraps an arbitrary writer the same way OpenOutput wraps files.
func NewOutput(w io.Writer, compress bool) *Output {
	return (&Output{}).wrap(w, compress)
}

func (o *Output) wrap(dst io.Writer, compress bool) *Output {
	o.buf = bufio.NewWriterSize(dst, outputBufferSize)
	o.Writer = o.buf

	if compress {
		o.lz = lz4.NewWriter(o.buf)
		o.Writer = o.lz
	}

	return o
}

// Close implements io.Closer.
func (o *Output) Close() error {
	var errs []error

	if o.lz != nil {
		lzErr := o.lz.Close()
		if lzErr != nil {
			errs = append(errs, fmt.Errorf("finish lz4 frame: %w", lzErr))
		}
	}

	flushErr := o.buf.Flush()
	if flushErr != nil {
		errs = append(errs, fmt.Errorf("flush output: %w", flushErr))
	}

	if o.file != nil {
		closeErr := o.file.Close()
		if closeErr != nil {
			errs = append(errs, fmt.Errorf("close output: %w", closeErr))
		}
	}

	return errors.Join(errs...)
}

// Input is a source for a record stream, transparently decompressing lz4.
type Input struct {
	io.Reader

	file *os.File
}

// OpenInput opens path for reading ("-" is standard input). lz4 frames are
// detected by their magic number, not by file name.
func OpenInput(path string) (*Input, error) {
	if path == stdioPath {
		return NewInput(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}

	in, err := NewInput(file)
	if err != nil {
		file.Close()

		return nil, err
	}

	in.file = file

	return in, nil
}

// NewInput wraps r, sniffing for an lz4 frame.
func NewInput(r io.Reader) (*Input, error) {
	br := bufio.NewReader(r)

	head, peekErr := br.Peek(len(lz4Magic))
	if peekErr != nil && !errors.Is(peekErr, io.EOF) {
		return nil, fmt.Errorf("sniff input: %w", peekErr)
	}

	if bytes.Equal(head, lz4Magic) {
		return &Input{Reader: lz4.NewReader(br)}, nil
	}

	return &Input{Reader: br}, nil
}

// Close implements io.Closer.
func (i *Input) Close() error {
	if i.file == nil {
		return nil
	}

	closeErr := i.file.Close()
	if closeErr != nil {
		return fmt.Errorf("close input: %w", closeErr)
	}

	return nil
}
