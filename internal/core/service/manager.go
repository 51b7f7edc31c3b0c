package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/telemetry/metric"
)

// ManagerDeps are the collaborators of a SessionManager.
type ManagerDeps struct {
	Transport Transport
	Store     CredentialStore
	Policy    *ReconnectPolicy
	Router    *EventRouter

	// Optional.
	Presenter PairingPresenter
	Notifier  EstablishedNotifier
	Fatal     FatalReporter
	Logger    *slog.Logger
	Metrics   *metric.Registry
}

// SessionManager owns the single logical session: it loads credentials,
// keeps one transport connection alive and decides what to do when it ends.
type SessionManager struct {
	transport Transport
	store     CredentialStore
	policy    *ReconnectPolicy
	router    *EventRouter
	presenter PairingPresenter
	notifier  EstablishedNotifier
	fatal     FatalReporter
	logger    *slog.Logger
	metrics   *metric.Registry
	now       func() time.Time

	startMu sync.Mutex

	mu           sync.Mutex
	state        domain.ConnectionState
	started      bool
	shuttingDown bool
	creds        *domain.Credentials
	self         string
	conn         Conn
	open         bool
	generation   uint64
	notifiedGen  uint64
	closeStatus  int
	hasStatus    bool
	backoff      domain.BackoffState
	waiting      bool
	termErr      error

	kick       chan struct{}
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	lifeCtx    context.Context
	lifeCancel context.CancelFunc
	notifyWG   sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
}

// NewSessionManager creates a manager in the Disconnected state.
func NewSessionManager(deps ManagerDeps) (*SessionManager, error) {
	if deps.Transport == nil {
		return nil, errors.New("session manager: transport is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session manager: credential store is required")
	}
	if deps.Router == nil {
		return nil, errors.New("session manager: event router is required")
	}
	if deps.Policy == nil {
		deps.Policy = NewReconnectPolicy(DefaultPolicyConfig())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	m := &SessionManager{
		transport: deps.Transport,
		store:     deps.Store,
		policy:    deps.Policy,
		router:    deps.Router,
		presenter: deps.Presenter,
		notifier:  deps.Notifier,
		fatal:     deps.Fatal,
		logger:    deps.Logger.With("component", "session"),
		metrics:   deps.Metrics,
		now:       time.Now,
		state:     domain.StateDisconnected,
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	m.router.bind(m)
	return m, nil
}

// Start loads the stored credentials and launches the supervision loop.
//
// Calling Start again while the session is connecting or open is a no-op;
// while a reconnect wait is pending it cuts the wait short. After the
// session has terminated Start returns ErrSessionTerminated.
func (m *SessionManager) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.mu.Lock()
	if m.state == domain.StateClosing || m.shuttingDown {
		m.mu.Unlock()
		return domain.ErrSessionTerminated
	}
	if m.started {
		if m.waiting {
			select {
			case m.kick <- struct{}{}:
			default:
			}
		}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	switch {
	case err == nil:
		m.logger.Info("credentials loaded",
			"registered", creds.IsRegistered(),
			"revision", creds.Revision,
			"keys", creds.KeyCount())
	case errors.Is(err, domain.ErrCredentialsAbsent):
		creds = domain.NewCredentials()
		m.logger.Info("no stored credentials, pairing required")
	default:
		return fmt.Errorf("load credentials: %w", err)
	}

	life, lifeCancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx, loopCancel := context.WithCancel(life)

	m.mu.Lock()
	// Shutdown may have completed while Load was running.
	if m.shuttingDown {
		m.mu.Unlock()
		loopCancel()
		lifeCancel()
		return domain.ErrSessionTerminated
	}
	m.creds = creds
	m.self = creds.Identity.Me
	m.started = true
	m.lifeCtx, m.lifeCancel = life, lifeCancel
	m.loopCancel = loopCancel
	m.loopDone = make(chan struct{})
	m.mu.Unlock()

	go m.run(loopCtx)
	return nil
}

func (m *SessionManager) run(ctx context.Context) {
	defer close(m.loopDone)

	for {
		reason, ok := m.connectOnce(ctx)
		if !ok || ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		state := m.backoff
		m.mu.Unlock()

		dec, next := m.policy.Decide(reason, state, m.now())
		m.logger.Info("reconnect decision",
			"reason", reason.String(),
			"action", dec.Action.String(),
			"attempt", dec.Attempt,
			"delay", dec.Delay)

		if dec.Stop() {
			m.terminate(ctx, dec)
			return
		}

		m.mu.Lock()
		m.backoff = next
		m.mu.Unlock()
		m.metrics.ReconnectDelay(dec.Delay)

		if !m.wait(ctx, dec.Delay) {
			return
		}
	}
}

// connectOnce runs one physical connection to completion. It reports false
// when the loop was cancelled by Shutdown.
func (m *SessionManager) connectOnce(ctx context.Context) (domain.DisconnectReason, bool) {
	m.mu.Lock()
	m.state = domain.StateConnecting
	creds := m.creds.Clone()
	m.mu.Unlock()

	m.metrics.ConnectAttempt()
	m.logger.Info("connecting", "registered", creds.IsRegistered())

	conn, err := m.transport.Connect(ctx, creds)
	if err != nil {
		if ctx.Err() != nil {
			return domain.DisconnectReason{}, false
		}
		reason := domain.ClassifyError(err)
		m.metrics.Disconnect(reason.Kind.String())
		m.logger.Warn("connect failed", "reason", reason.String(), "error", err)
		m.setState(domain.StateDisconnected)
		return reason, true
	}

	m.mu.Lock()
	m.conn = conn
	m.open = false
	m.generation++
	m.hasStatus = false
	m.closeStatus = 0
	life := m.lifeCtx
	m.mu.Unlock()

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return domain.DisconnectReason{}, false
		case ev, ok := <-events:
			if !ok {
				return m.connectionEnded(ctx, conn), true
			}
			m.router.Route(life, ev)
		}
	}
}

func (m *SessionManager) connectionEnded(ctx context.Context, conn Conn) domain.DisconnectReason {
	cause := conn.Err()

	m.mu.Lock()
	wasOpen := m.open
	status, hasStatus := m.closeStatus, m.hasStatus
	m.conn = nil
	m.open = false
	m.state = domain.StateDisconnected
	m.mu.Unlock()

	var reason domain.DisconnectReason
	var ce *domain.CloseError
	switch {
	case errors.As(cause, &ce):
		reason = domain.ClassifyStatus(ce.Code)
	case hasStatus:
		reason = domain.ClassifyStatus(status)
	default:
		reason = domain.ClassifyError(cause)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Close(closeCtx); err != nil {
		m.logger.Debug("close after disconnect", "error", err)
	}

	m.metrics.Disconnect(reason.Kind.String())
	m.logger.Warn("connection closed", "reason", reason.String(), "was_open", wasOpen, "error", cause)
	return reason
}

// wait sleeps for d unless Shutdown or Start interrupts it.
func (m *SessionManager) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-m.kick:
	default:
	}

	m.mu.Lock()
	m.waiting = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.waiting = false
		m.mu.Unlock()
	}()

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	case <-m.kick:
		m.logger.Info("reconnect wait cut short")
	}
	return true
}

func (m *SessionManager) terminate(ctx context.Context, dec Decision) {
	err := dec.Reason.Err()

	m.mu.Lock()
	m.state = domain.StateClosing
	m.termErr = err
	m.mu.Unlock()

	m.metrics.Fatal(dec.Reason.Kind.String())
	m.logger.Error("session terminated", "reason", dec.Reason.String(), "action", dec.Action.String())
	if m.fatal != nil {
		m.fatal.ReportFatal(dec.Reason, err)
	}

	if cerr := m.store.Clear(ctx); cerr != nil {
		m.logger.Error("failed to clear credentials", "error", cerr)
	} else {
		m.logger.Info("credentials cleared")
	}
	m.closeDone()
}

// handleConnectionUpdate is called by the router for every connection update,
// in stream order.
func (m *SessionManager) handleConnectionUpdate(ctx context.Context, u domain.ConnectionUpdate) {
	switch u.Phase {
	case domain.PhaseConnecting:
		m.logger.Debug("transport connecting")

	case domain.PhasePairing:
		m.mu.Lock()
		ok := m.state == domain.StateConnecting || m.state == domain.StateAwaitingAuthentication
		if ok {
			m.state = domain.StateAwaitingAuthentication
		}
		m.mu.Unlock()
		if !ok {
			m.logger.Debug("pairing update outside authentication ignored")
			return
		}
		m.present(ctx, u)

	case domain.PhaseOpen:
		m.mu.Lock()
		if m.state == domain.StateClosing || m.conn == nil {
			m.mu.Unlock()
			return
		}
		m.state = domain.StateOpen
		m.open = true
		m.backoff.Reset()
		if u.Me != "" {
			m.self = u.Me
		}
		fire := m.notifiedGen != m.generation
		if fire {
			m.notifiedGen = m.generation
		}
		info := SessionInfo{Self: m.self, IsNewLogin: u.IsNewLogin, Generation: m.generation}
		m.mu.Unlock()

		if !fire {
			m.logger.Debug("duplicate open ignored", "generation", info.Generation)
			return
		}
		m.metrics.Established()
		m.logger.Info("session established", "self", info.Self, "new_login", info.IsNewLogin, "generation", info.Generation)
		m.notifyEstablished(ctx, info)

	case domain.PhaseClosed:
		m.mu.Lock()
		m.closeStatus = u.StatusCode
		m.hasStatus = true
		m.mu.Unlock()
	}
}

func (m *SessionManager) present(ctx context.Context, u domain.ConnectionUpdate) {
	if m.presenter == nil {
		m.logger.Warn("pairing required but no presenter configured")
		return
	}
	var err error
	switch {
	case u.PairingCode != "":
		err = m.presenter.PresentCode(ctx, u.PairingCode)
	case u.QR != "":
		err = m.presenter.PresentQR(ctx, u.QR)
	default:
		return
	}
	if err != nil {
		m.logger.Warn("pairing presentation failed", "error", err)
	}
}

func (m *SessionManager) notifyEstablished(ctx context.Context, info SessionInfo) {
	if m.notifier == nil {
		return
	}
	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()
		defer func() {
			if p := recover(); p != nil {
				m.logger.Error("established notifier panicked", "panic", p)
			}
		}()
		m.notifier.SessionEstablished(ctx, info)
	}()
}

// applyCredentialUpdate mutates the live credentials, persists them and then
// acknowledges the update. A failed save leaves the session running.
func (m *SessionManager) applyCredentialUpdate(ctx context.Context, u domain.CredentialUpdate) {
	m.mu.Lock()
	if m.creds == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	if u.Patch.IsEmpty() {
		m.mu.Unlock()
		m.logger.Debug("empty credential update, nothing to persist", "seq", u.Seq)
		m.ackCredentials(ctx, conn, u.Seq)
		return
	}
	m.creds.Apply(u.Patch)
	if m.creds.Identity.Me != "" && m.self == "" {
		m.self = m.creds.Identity.Me
	}
	snapshot := m.creds.Clone()
	m.mu.Unlock()

	err := m.store.Save(ctx, snapshot)
	m.metrics.CredentialSave(err == nil)
	if err != nil {
		m.logger.Error("credentials not persisted, continuing",
			"seq", u.Seq, "revision", snapshot.Revision, "error", err)
	} else {
		m.logger.Debug("credentials persisted", "seq", u.Seq, "revision", snapshot.Revision)
	}

	m.ackCredentials(ctx, conn, u.Seq)
}

func (m *SessionManager) ackCredentials(ctx context.Context, conn Conn, seq uint64) {
	if conn == nil {
		return
	}
	if err := conn.AckCredentials(ctx, seq); err != nil {
		m.logger.Warn("credential ack failed", "seq", seq, "error", err)
	}
}

// Send delivers msg through the open connection.
func (m *SessionManager) Send(ctx context.Context, jid string, msg domain.OutboundMessage) (string, error) {
	m.mu.Lock()
	conn, open := m.conn, m.open
	m.mu.Unlock()
	if conn == nil || !open {
		return "", domain.ErrNotConnected
	}
	return conn.Send(ctx, jid, msg)
}

// Shutdown stops the supervision loop, waits for in-flight command handlers
// and closes the active connection cleanly.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		select {
		case <-m.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.shuttingDown = true
	started := m.started
	m.state = domain.StateClosing
	cancel, loopDone := m.loopCancel, m.loopDone
	m.mu.Unlock()

	if !started {
		m.closeDone()
		return nil
	}
	m.logger.Info("shutting down session")

	cancel()
	select {
	case <-loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	drained := make(chan struct{})
	go func() {
		m.router.Wait()
		m.notifyWG.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("in-flight handlers still running at shutdown")
	}

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.open = false
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(ctx)
	}
	m.lifeCancel()
	m.closeDone()
	return err
}

func (m *SessionManager) closeDone() {
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *SessionManager) setState(s domain.ConnectionState) {
	m.mu.Lock()
	if m.state != domain.StateClosing {
		m.state = s
	}
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *SessionManager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Self returns the account JID once known.
func (m *SessionManager) Self() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.self
}

// Done is closed when the session has stopped for good.
func (m *SessionManager) Done() <-chan struct{} {
	return m.done
}

// Err returns the terminal cause, or nil after a clean shutdown.
func (m *SessionManager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.termErr
}

// Ready reports whether the session is open.
func (m *SessionManager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == domain.StateOpen
}

// Snapshot reports the live session state for metrics and status output.
func (m *SessionManager) Snapshot() metric.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := metric.SessionSnapshot{
		State:        int(m.state),
		StateName:    m.state.String(),
		Generation:   m.generation,
		BackoffTries: m.backoff.Attempt,
	}
	if m.creds != nil {
		s.Revision = m.creds.Revision
		s.KeyCount = m.creds.KeyCount()
		s.Registered = m.creds.IsRegistered()
	}
	return s
}
