// Package tlsroots provides TLS certificate management for TabSess.
//
// This package handles TLS certificate loading and management:
//
//   - roots.go: System certificates + custom CA loading
//   - watcher.go: Certificate hot-reload via fsnotify
//
// The Watcher's GetCertificate method plugs directly into
// tls.Config, so the HTTPS listener picks up rotated certificates
// without a restart.
package tlsroots
