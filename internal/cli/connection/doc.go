// Package connection is the CLI's HTTP client for a running daemon's
// status endpoints.
package connection
