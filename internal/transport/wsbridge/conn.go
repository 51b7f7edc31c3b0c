package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

// ErrClosed is returned by operations on a connection that has ended.
var ErrClosed = errors.New("wsbridge: connection closed")

const eventBuffer = 64

type conn struct {
	ws      *websocket.Conn
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	events chan domain.InboundEvent

	// writeMu serialises data frames; control frames go through WriteControl.
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan error

	closing   chan struct{}
	closeOnce sync.Once
	readDone  chan struct{}

	errMu sync.Mutex
	err   error
}

var _ service.Conn = (*conn)(nil)

func newConn(ws *websocket.Conn, cfg Config, limiter *rate.Limiter, logger *slog.Logger) *conn {
	return &conn{
		ws:       ws,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
		events:   make(chan domain.InboundEvent, eventBuffer),
		pending:  make(map[string]chan error),
		closing:  make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

func (c *conn) start() {
	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})
	go c.readLoop()
	go c.pingLoop()
}

func (c *conn) Events() <-chan domain.InboundEvent { return c.events }

func (c *conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Send queues a text message on the bridge and waits for its result.
func (c *conn) Send(ctx context.Context, jid string, msg domain.OutboundMessage) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	id := ulid.Make().String()
	result := make(chan error, 1)
	c.pendingMu.Lock()
	c.pending[id] = result
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write(frameSend, sendData{ID: id, JID: jid, Text: msg.Text, Mentions: msg.Mentions}); err != nil {
		return "", err
	}

	select {
	case err := <-result:
		if err != nil {
			return "", err
		}
		return id, nil
	case <-c.readDone:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *conn) AckCredentials(ctx context.Context, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write(frameCredsAck, credsAckData{Seq: seq})
}

// Close sends a normal close frame and waits for the bridge to answer, or
// for ctx to expire, before dropping the socket.
func (c *conn) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.closing)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown")
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			c.logger.Debug("close frame not sent", "error", err)
		}
	})

	select {
	case <-c.readDone:
	case <-ctx.Done():
	}
	_ = c.ws.Close()
	<-c.readDone
	return nil
}

func (c *conn) write(typ string, data any) error {
	payload, err := encodeFrame(typ, data)
	if err != nil {
		return fmt.Errorf("wsbridge: %w", err)
	}
	select {
	case <-c.closing:
		return ErrClosed
	case <-c.readDone:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("wsbridge: write %s: %w", typ, err)
	}
	return nil
}

func (c *conn) readLoop() {
	defer func() {
		close(c.events)
		close(c.readDone)
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.setErr(c.classify(err))
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Debug("dropping undecodable frame", "error", err, "bytes", len(data))
			continue
		}
		if f.Type == frameSendResult {
			c.resolve(f)
			continue
		}
		ev, ok, err := decodeEvent(f)
		if err != nil {
			c.logger.Debug("dropping malformed frame", "type", f.Type, "error", err)
			continue
		}
		if !ok {
			c.logger.Debug("dropping unknown frame", "type", f.Type)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.closing:
			// Keep reading until the bridge answers the close frame.
		}
	}
}

func (c *conn) resolve(f frame) {
	var d sendResultData
	if err := json.Unmarshal(f.Data, &d); err != nil {
		c.logger.Debug("dropping malformed send result", "error", err)
		return
	}
	// The first result wins; repeats for the same id are dropped so the
	// read loop never blocks on a send nobody waits for.
	c.pendingMu.Lock()
	result, ok := c.pending[d.ID]
	delete(c.pending, d.ID)
	c.pendingMu.Unlock()
	if !ok {
		c.logger.Debug("dropping send result for unknown id", "id", d.ID)
		return
	}
	var err error
	if d.Error != "" {
		err = fmt.Errorf("wsbridge: send rejected: %s", d.Error)
	}
	select {
	case result <- err:
	default:
	}
}

// classify converts a read error into the connection's close cause. A close
// we asked for yields nil.
func (c *conn) classify(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code >= closeCodeBase {
			return &domain.CloseError{Code: ce.Code - closeCodeBase, Cause: err}
		}
		if c.isClosing() {
			return nil
		}
		if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
			return &domain.CloseError{Code: domain.StatusConnectionClosed, Cause: err}
		}
		return fmt.Errorf("wsbridge: %w", err)
	}
	if c.isClosing() {
		return nil
	}
	return fmt.Errorf("wsbridge: read: %w", err)
}

func (c *conn) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *conn) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
	if err != nil {
		c.logger.Debug("bridge connection ended", "error", err)
	}
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		case <-c.readDone:
			return
		}
	}
}
