// Package domain defines the core domain models for fergando-md.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Credentials: device identity and mutable key material
//   - ConnectionState: the session state machine's states
//   - DisconnectReason: classification of transport close status codes
//   - InboundEvent: the typed event stream produced by a transport
//   - Command: a parsed command invocation from a message body
//   - BackoffState: reconnect attempt bookkeeping
//   - Errors: domain-specific error definitions
package domain
