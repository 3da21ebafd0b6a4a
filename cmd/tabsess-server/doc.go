// Package main provides the entry point for tabsess-server.
//
// The server is the core TabSess service that provides:
//
//   - HTTP/HTTPS API for dataset and editing-session management
//   - TTL-bounded session state with undo/redo history
//   - Pluggable cache backends (in-memory or BadgerDB)
//   - Prometheus metrics and structured logging
//
// Usage:
//
//	tabsess-server [flags]
//	tabsess-server --config /path/to/config.yaml
//
// The server loads configuration, initializes infrastructure
// components, and starts the HTTP listener.
package main
