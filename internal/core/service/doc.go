// Package service provides the session lifecycle services for fergando-md.
//
// Services orchestrate the domain models and define interfaces for their
// collaborators (transport, credential storage, pairing presentation),
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - SessionManager: the supervised connection state machine
//   - ReconnectPolicy: pure backoff and termination decisions
//   - EventRouter: ordered classification and dispatch of inbound events
//   - Dispatcher: the command table
//
// There is exactly one SessionManager per process. It is constructed by the
// entry point and passed to collaborators explicitly.
package service
