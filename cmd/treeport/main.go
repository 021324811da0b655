// Package main is the entry point for the treeport CLI.
//
// All functionality lives in internal/cli; this file only injects
// build-time version information and hands control to cobra.
package main

import (
	"github.com/shinji-kodama/treeport/internal/cli"
)

// version, commit and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
