//go:build !unix

package sigpipe

// Ignore does nothing on platforms without SIGPIPE.
func Ignore() {}
