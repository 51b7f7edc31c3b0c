package service

import (
	"context"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

// CredentialStore persists the session's credentials.
type CredentialStore interface {
	// Load returns the stored credentials, or domain.ErrCredentialsAbsent
	// when there is no prior session.
	Load(ctx context.Context) (*domain.Credentials, error)

	// Save durably replaces the stored credentials. A crash during Save
	// must leave either the old or the new credentials, never a mix.
	Save(ctx context.Context, creds *domain.Credentials) error

	// Clear removes the stored credentials (explicit logout).
	Clear(ctx context.Context) error
}

// Transport opens authenticated connections. It is the opaque protocol
// capability; the core never looks beneath it.
type Transport interface {
	Connect(ctx context.Context, creds *domain.Credentials) (Conn, error)
}

// Conn is one physical transport connection.
type Conn interface {
	// Events returns the ordered event stream. It is closed when the
	// connection ends; Err then reports why.
	Events() <-chan domain.InboundEvent

	// Send delivers a message and returns its id. Safe for concurrent use.
	Send(ctx context.Context, jid string, msg domain.OutboundMessage) (string, error)

	// AckCredentials acknowledges a persisted credential update.
	AckCredentials(ctx context.Context, seq uint64) error

	// Close flushes and closes the connection.
	Close(ctx context.Context) error

	// Err returns the close cause after Events is closed.
	Err() error
}

// Sender sends outbound messages through the current session.
type Sender interface {
	Send(ctx context.Context, jid string, msg domain.OutboundMessage) (string, error)
}

// PairingPresenter shows a pairing secret to an operator.
type PairingPresenter interface {
	PresentQR(ctx context.Context, payload string) error
	PresentCode(ctx context.Context, code string) error
}

// SessionInfo describes an established session.
type SessionInfo struct {
	Self       string
	IsNewLogin bool
	Generation uint64
}

// EstablishedNotifier is told once per physical connection that the
// session is open.
type EstablishedNotifier interface {
	SessionEstablished(ctx context.Context, info SessionInfo)
}

// FatalReporter is told once when the session can no longer continue.
type FatalReporter interface {
	ReportFatal(reason domain.DisconnectReason, err error)
}

// StatusObserver receives delivery/read receipts.
type StatusObserver interface {
	ObserveReceipts(ctx context.Context, receipts []domain.Receipt)
}

// EstablishedFunc adapts a function to EstablishedNotifier.
type EstablishedFunc func(ctx context.Context, info SessionInfo)

func (f EstablishedFunc) SessionEstablished(ctx context.Context, info SessionInfo) {
	f(ctx, info)
}

// FatalFunc adapts a function to FatalReporter.
type FatalFunc func(reason domain.DisconnectReason, err error)

func (f FatalFunc) ReportFatal(reason domain.DisconnectReason, err error) {
	f(reason, err)
}
