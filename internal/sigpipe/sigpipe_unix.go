//go:build unix

package sigpipe

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// Ignore stops SIGPIPE from terminating the process.
func Ignore() {
	signal.Ignore(unix.SIGPIPE)
}
