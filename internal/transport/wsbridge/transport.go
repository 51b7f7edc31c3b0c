package wsbridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

// Pairing methods requested in the hello frame.
const (
	PairingQR   = "qr"
	PairingCode = "code"
)

// Config configures the bridge transport.
type Config struct {
	// URL is the bridge websocket endpoint (ws:// or wss://).
	URL string

	// Header is sent with the upgrade request.
	Header http.Header

	// TLSConfig is used for wss:// endpoints. Nil uses system roots.
	TLSConfig *tls.Config

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration

	// ReadTimeout is refreshed by every frame and pong.
	ReadTimeout time.Duration

	// SendRate limits outbound messages per second; zero disables limiting.
	SendRate  float64
	SendBurst int

	// PairingMethod is PairingQR or PairingCode. PairingPhone is required
	// for PairingCode.
	PairingMethod string
	PairingPhone  string

	MaxMessageSize int64
}

// DefaultConfig returns the default transport settings.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://127.0.0.1:8765/bridge",
		HandshakeTimeout: 20 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		SendRate:         1,
		SendBurst:        5,
		PairingMethod:    PairingQR,
		MaxMessageSize:   4 << 20,
	}
}

// Transport dials the bridge. The send limiter is shared by all
// connections so a reconnect does not reset the budget.
type Transport struct {
	cfg     Config
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ service.Transport = (*Transport)(nil)

// New creates a transport.
func New(cfg Config, logger *slog.Logger) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("wsbridge: url is required")
	}
	if cfg.PairingMethod == "" {
		cfg.PairingMethod = PairingQR
	}
	if cfg.PairingMethod == PairingCode && cfg.PairingPhone == "" {
		return nil, errors.New("wsbridge: pairing by code needs a phone number")
	}
	if cfg.PairingMethod != PairingQR && cfg.PairingMethod != PairingCode {
		return nil, fmt.Errorf("wsbridge: unknown pairing method %q", cfg.PairingMethod)
	}
	defaults := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst < 1 {
		burst = 1
	}

	return &Transport{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  cfg.TLSConfig,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "wsbridge"),
	}, nil
}

// Connect dials the bridge and sends the hello frame with a snapshot of
// creds. A rejected upgrade is reported as a *domain.CloseError carrying the
// HTTP status, so 401 and 403 end the session.
func (t *Transport) Connect(ctx context.Context, creds *domain.Credentials) (service.Conn, error) {
	t.logger.Debug("dialing bridge", "url", t.cfg.URL)

	ws, resp, err := t.dialer.DialContext(ctx, t.cfg.URL, t.cfg.Header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, &domain.CloseError{Code: resp.StatusCode, Cause: err}
		}
		return nil, fmt.Errorf("wsbridge: dial: %w", err)
	}

	hello := helloData{
		Credentials:   creds,
		PairingMethod: t.cfg.PairingMethod,
	}
	if t.cfg.PairingMethod == PairingCode {
		hello.PairingPhone = t.cfg.PairingPhone
	}
	data, err := encodeFrame(frameHello, hello)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("wsbridge: %w", err)
	}
	_ = ws.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		ws.Close()
		return nil, fmt.Errorf("wsbridge: send hello: %w", err)
	}

	c := newConn(ws, t.cfg, t.limiter, t.logger)
	c.start()
	return c, nil
}
