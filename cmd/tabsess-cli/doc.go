// Package main provides the entry point for tabsess-cli.
//
// The CLI tool provides command-line access to a TabSess server for:
//
//   - Dataset registration and inspection
//   - Editing-session management (open, status, close)
//   - Applying transformations and walking undo/redo history
//   - Health and readiness checks
//
// Usage:
//
//	tabsess-cli [command] [flags]
//	tabsess-cli --user alice dataset register --file people.csv
//	tabsess-cli --user alice session open --dataset tsds-...
//	tabsess-cli --user alice session apply tses-... --type sort_rows -p column=age
package main
