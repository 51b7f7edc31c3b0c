package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// callLog records the order of calls across mocks.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// mockStore is an in-memory CredentialStore.
type mockStore struct {
	mu      sync.Mutex
	creds   *domain.Credentials
	loadErr error
	saveErr error
	loads   int
	saves   int
	clears  int
	log     *callLog

	// When set, Load closes loading and blocks until release is closed.
	loading chan struct{}
	release chan struct{}
}

func (s *mockStore) Load(ctx context.Context) (*domain.Credentials, error) {
	if s.release != nil {
		close(s.loading)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.creds == nil {
		return nil, domain.ErrCredentialsAbsent
	}
	return s.creds.Clone(), nil
}

func (s *mockStore) Save(ctx context.Context, creds *domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.log.add("save:%d", creds.Revision)
	if s.saveErr != nil {
		return s.saveErr
	}
	s.creds = creds.Clone()
	return nil
}

func (s *mockStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.creds = nil
	return nil
}

func (s *mockStore) counts() (loads, saves, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads, s.saves, s.clears
}

type sentMessage struct {
	JID  string
	Text string
}

// mockConn is a scripted connection; tests push events and end it.
type mockConn struct {
	events chan domain.InboundEvent

	mu      sync.Mutex
	sent    []sentMessage
	acks    []uint64
	closed  bool
	err     error
	endOnce sync.Once
	log     *callLog
}

func newMockConn() *mockConn {
	return &mockConn{events: make(chan domain.InboundEvent, 32)}
}

func (c *mockConn) Events() <-chan domain.InboundEvent { return c.events }

func (c *mockConn) Send(ctx context.Context, jid string, msg domain.OutboundMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{JID: jid, Text: msg.Text})
	return fmt.Sprintf("out-%d", len(c.sent)), nil
}

func (c *mockConn) AckCredentials(ctx context.Context, seq uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks = append(c.acks, seq)
	c.log.add("ack:%d", seq)
	return nil
}

func (c *mockConn) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.end(nil)
	return nil
}

func (c *mockConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *mockConn) push(ev domain.InboundEvent) { c.events <- ev }

// end closes the event stream with cause err.
func (c *mockConn) end(err error) {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.events)
	})
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *mockConn) sentMessages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

func (c *mockConn) ackedSeqs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.acks...)
}

type connectResult struct {
	conn *mockConn
	err  error
}

// mockTransport hands out scripted connections in order.
type mockTransport struct {
	results chan connectResult

	mu       sync.Mutex
	connects int
	creds    []*domain.Credentials
}

func newMockTransport() *mockTransport {
	return &mockTransport{results: make(chan connectResult, 16)}
}

func (t *mockTransport) Connect(ctx context.Context, creds *domain.Credentials) (Conn, error) {
	t.mu.Lock()
	t.connects++
	t.creds = append(t.creds, creds)
	t.mu.Unlock()

	select {
	case r := <-t.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *mockTransport) next(c *mockConn) { t.results <- connectResult{conn: c} }

func (t *mockTransport) fail(err error) { t.results <- connectResult{err: err} }

func (t *mockTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

// recorder collects notifications, pairing secrets and fatal reports.
type recorder struct {
	mu          sync.Mutex
	established []SessionInfo
	qrs         []string
	codes       []string
	fatal       []domain.DisconnectReason
	receipts    []domain.Receipt
}

func (r *recorder) SessionEstablished(ctx context.Context, info SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.established = append(r.established, info)
}

func (r *recorder) PresentQR(ctx context.Context, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qrs = append(r.qrs, payload)
	return nil
}

func (r *recorder) PresentCode(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	return nil
}

func (r *recorder) ReportFatal(reason domain.DisconnectReason, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fatal = append(r.fatal, reason)
}

func (r *recorder) ObserveReceipts(ctx context.Context, receipts []domain.Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, receipts...)
}

func (r *recorder) establishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.established)
}

func (r *recorder) fatalReasons() []domain.DisconnectReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DisconnectReason(nil), r.fatal...)
}

// mockSender records replies sent through a Request.
type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *mockSender) Send(ctx context.Context, jid string, msg domain.OutboundMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, sentMessage{JID: jid, Text: msg.Text})
	return "id", nil
}

func (s *mockSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func textMessage(id, chat, body string) domain.Message {
	return domain.Message{
		ID:      id,
		Chat:    chat,
		Payload: &domain.MessagePayload{Conversation: &body},
	}
}
