package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ReasonKind classifies why a connection ended.
type ReasonKind int

const (
	ReasonUnknown ReasonKind = iota
	ReasonLoggedOut
	ReasonReplaced
	ReasonTransientNetwork
	ReasonRateLimited
)

func (k ReasonKind) String() string {
	switch k {
	case ReasonLoggedOut:
		return "logged_out"
	case ReasonReplaced:
		return "replaced"
	case ReasonTransientNetwork:
		return "transient_network"
	case ReasonRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Transport status codes reported when a connection closes.
const (
	StatusUnspecified         = 0
	StatusLoggedOut           = 401
	StatusForbidden           = 403
	StatusTimedOut            = 408
	StatusMultideviceMismatch = 411
	StatusConnectionClosed    = 428
	StatusRateLimited         = 429
	StatusConnectionReplaced  = 440
	StatusBadSession          = 500
	StatusUnavailable         = 503
	StatusRestartRequired     = 515
)

// DisconnectReason describes why a connection ended.
// Code is the raw transport status and is only meaningful for ReasonUnknown
// and for diagnostics.
type DisconnectReason struct {
	Kind ReasonKind
	Code int
}

func (r DisconnectReason) String() string {
	if r.Kind == ReasonUnknown {
		return "unknown(" + strconv.Itoa(r.Code) + ")"
	}
	return r.Kind.String()
}

// IsTerminal reports whether the reason must never be retried.
func (r DisconnectReason) IsTerminal() bool {
	return r.Kind == ReasonLoggedOut || r.Kind == ReasonReplaced
}

// ClassifyStatus maps a transport status code to a DisconnectReason.
func ClassifyStatus(code int) DisconnectReason {
	switch code {
	case StatusLoggedOut, StatusForbidden, StatusMultideviceMismatch:
		return DisconnectReason{Kind: ReasonLoggedOut, Code: code}
	case StatusConnectionReplaced:
		return DisconnectReason{Kind: ReasonReplaced, Code: code}
	case StatusRateLimited:
		return DisconnectReason{Kind: ReasonRateLimited, Code: code}
	case StatusUnspecified, StatusTimedOut, StatusConnectionClosed,
		StatusUnavailable, StatusRestartRequired:
		return DisconnectReason{Kind: ReasonTransientNetwork, Code: code}
	default:
		return DisconnectReason{Kind: ReasonUnknown, Code: code}
	}
}

// CloseError carries the status code a transport reported on close.
type CloseError struct {
	Code  int
	Cause error
}

func (e *CloseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection closed (status %d): %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("connection closed (status %d)", e.Code)
}

func (e *CloseError) Unwrap() error {
	return e.Cause
}

// ClassifyError maps a transport error to a DisconnectReason.
// Errors without a status code are treated as transient network failures.
func ClassifyError(err error) DisconnectReason {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ClassifyStatus(ce.Code)
	}
	return DisconnectReason{Kind: ReasonTransientNetwork}
}

// Err returns the terminal domain error for the reason, or nil.
func (r DisconnectReason) Err() error {
	switch r.Kind {
	case ReasonLoggedOut:
		return ErrLoggedOut.WithDetails(r.String())
	case ReasonReplaced:
		return ErrReplaced.WithDetails(r.String())
	default:
		return nil
	}
}
