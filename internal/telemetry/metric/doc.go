// Package metric provides Prometheus metrics for fergando-md.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: the Registry and its recorders
//   - collector.go: a collector reporting live session state on scrape
//
// Metrics include:
//
//   - Connection attempts, disconnects by reason and reconnect delays
//   - Routed events by kind and dropped messages by cause
//   - Command dispatch results
//   - Credential persistence results
//
// All recorders are safe to call on a nil *Registry, so components can
// run without metrics in tests.
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
