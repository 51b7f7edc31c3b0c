package domain

import "time"

// ConnectionState is the state of the single logical session.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAwaitingAuthentication
	StateOpen
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingAuthentication:
		return "awaiting_authentication"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions can happen.
func (s ConnectionState) IsTerminal() bool {
	return s == StateClosing
}

// BackoffState tracks consecutive reconnect failures.
// It is reset to zero on every transition into StateOpen.
type BackoffState struct {
	Attempt     int
	LastAttempt time.Time
}

// Reset zeroes the attempt counter.
func (b *BackoffState) Reset() {
	b.Attempt = 0
	b.LastAttempt = time.Time{}
}
