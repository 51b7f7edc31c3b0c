// Package handler serves the liveness and status endpoints of the daemon.
package handler
