// Package command provides CLI command definitions for tabsess-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command and global flags
//   - session.go: Editing-session subcommand group
//   - dataset.go: Dataset subcommand group
//   - system.go: System subcommand group
//
// Commands follow a consistent pattern of parsing flags, calling the
// server over HTTP, and formatting output.
package command
