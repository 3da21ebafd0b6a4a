// Package metric provides Prometheus metrics for TabSess.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: instrument definitions, registry and HTTP handler
//
// Metrics include:
//
//   - Request latency histograms
//   - Session count gauges
//   - Transformation and history-seek counters
//   - Snapshot size distribution
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
