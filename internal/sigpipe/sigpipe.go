// Package sigpipe keeps a write to a closed pipe from killing the process,
// so the failed write surfaces as an EPIPE error the caller can handle.
package sigpipe
