// Package httpserver provides the HTTP/HTTPS server for TabSess.
//
// It uses the Go standard library net/http for implementation,
// providing RESTful API endpoints for dataset registration and
// editing sessions. Request-scoped concerns (recovery, request IDs,
// per-client rate limiting, access logging, instrumentation) live in
// the middleware chain; the handlers themselves stay thin adapters
// over the application services.
package httpserver
