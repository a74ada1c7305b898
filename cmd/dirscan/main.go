// Package main provides the entry point for the dirscan CLI tool.
package main

import (
	"context"
	"os"

	"github.com/Sumatoshi-tech/dirscan/cmd/dirscan/commands"
	"github.com/Sumatoshi-tech/dirscan/internal/sigpipe"
	"github.com/Sumatoshi-tech/dirscan/pkg/version"
)

func main() {
	version.InitBinaryVersion()
	sigpipe.Ignore()

	os.Exit(commands.Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
