// Package httpserver runs the daemon's small HTTP surface on net/http:
//
//   - GET /: plain-text liveness page
//   - GET /health, /ready, /status: JSON probes and session snapshot
//   - GET /metrics: Prometheus exposition
//
// Requests get an id (X-Request-ID) that also tags their log lines.
package httpserver
