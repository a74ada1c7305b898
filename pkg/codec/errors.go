package codec

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrMissingField is wrapped by a DecodeError when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// DecodeError reports malformed content. The stream cannot be resumed past it.
type DecodeError struct {
	Format Format
	Line   int
	Err    error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode: line %d: %v", e.Format, e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsBrokenPipe reports whether err means the reading end of the output went
// away. Callers treat it as the end of the stream rather than a failure.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}
