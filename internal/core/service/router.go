package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/telemetry/metric"
)

// Mode restricts who may issue commands.
type Mode string

const (
	ModePublic  Mode = "public"
	ModePrivate Mode = "private"
)

// Drop causes, used as log fields and metric labels.
const (
	dropNoPayload       = "no_payload"
	dropStatusBroadcast = "status_broadcast"
	dropDuplicate       = "duplicate"
	dropEmptyBody       = "empty_body"
	dropNoPrefix        = "no_prefix"
	dropNotOwner        = "not_owner"
	dropMalformed       = "malformed"
)

// RouterConfig configures an EventRouter.
type RouterConfig struct {
	Prefix string
	Mode   Mode

	// Owners are phone numbers or JIDs allowed to command the bot in
	// private mode.
	Owners []string

	DedupWindow  time.Duration
	DedupMaxSize int
}

// routerSession is the part of SessionManager the router forwards to.
type routerSession interface {
	Sender
	Self() string
	handleConnectionUpdate(ctx context.Context, u domain.ConnectionUpdate)
	applyCredentialUpdate(ctx context.Context, u domain.CredentialUpdate)
}

// EventRouter consumes one connection's event stream in order and routes
// each event to the session, the dispatcher or the status observer.
type EventRouter struct {
	cfg        RouterConfig
	owners     map[string]struct{}
	dispatcher *Dispatcher
	observer   StatusObserver
	recent     *recentMessages

	logger  *slog.Logger
	metrics *metric.Registry

	mu      sync.RWMutex
	session routerSession

	inflight sync.WaitGroup
}

// NewEventRouter creates a router. observer may be nil.
func NewEventRouter(cfg RouterConfig, dispatcher *Dispatcher, observer StatusObserver, logger *slog.Logger, metrics *metric.Registry) *EventRouter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePublic
	}
	owners := make(map[string]struct{}, len(cfg.Owners))
	for _, o := range cfg.Owners {
		if u := domain.UserPart(o); u != "" {
			owners[u] = struct{}{}
		}
	}
	return &EventRouter{
		cfg:        cfg,
		owners:     owners,
		dispatcher: dispatcher,
		observer:   observer,
		recent:     newRecentMessages(cfg.DedupWindow, cfg.DedupMaxSize),
		logger:     logger.With("component", "router"),
		metrics:    metrics,
	}
}

func (r *EventRouter) bind(s routerSession) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

func (r *EventRouter) boundSession() routerSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// Route processes one event. It returns only after credential updates have
// been persisted; command handlers run on their own goroutines.
// A panic while routing drops the event and never escapes.
func (r *EventRouter) Route(ctx context.Context, ev domain.InboundEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.dropEvent(ev, fmt.Errorf("panic: %v", p))
		}
	}()

	if ev == nil {
		r.dropEvent(ev, domain.ErrMalformedEvent)
		return
	}
	r.metrics.EventRouted(ev.Kind().String())

	switch e := ev.(type) {
	case domain.ConnectionUpdate:
		if s := r.boundSession(); s != nil {
			s.handleConnectionUpdate(ctx, e)
		}
	case domain.CredentialUpdate:
		if s := r.boundSession(); s != nil {
			s.applyCredentialUpdate(ctx, e)
		}
	case domain.MessageBatch:
		for i := range e.Messages {
			r.routeMessage(ctx, e.Messages[i])
		}
	case domain.StatusUpdate:
		r.routeReceipts(ctx, e.Receipts)
	default:
		r.dropEvent(ev, domain.ErrMalformedEvent)
	}
}

func (r *EventRouter) dropEvent(ev domain.InboundEvent, err error) {
	r.metrics.MessageDropped(dropMalformed)
	r.logger.Debug("dropped inbound event", "type", fmt.Sprintf("%T", ev), "error", err)
}

func (r *EventRouter) drop(msg domain.Message, cause string) {
	r.metrics.MessageDropped(cause)
	r.logger.Debug("message not dispatched", "id", msg.ID, "chat", msg.Chat, "cause", cause)
}

func (r *EventRouter) routeMessage(ctx context.Context, msg domain.Message) {
	defer func() {
		if p := recover(); p != nil {
			r.drop(msg, dropMalformed)
		}
	}()

	if msg.Payload == nil {
		r.drop(msg, dropNoPayload)
		return
	}
	if msg.IsStatusBroadcast() {
		r.drop(msg, dropStatusBroadcast)
		return
	}
	if !r.recent.firstSeen(msg) {
		r.drop(msg, dropDuplicate)
		return
	}

	body := msg.Body()
	if body == "" {
		r.drop(msg, dropEmptyBody)
		return
	}
	cmd, ok := domain.ParseCommand(body, r.cfg.Prefix)
	if !ok {
		r.drop(msg, dropNoPrefix)
		return
	}

	var (
		self string
		out  Sender
	)
	if s := r.boundSession(); s != nil {
		self = s.Self()
		out = s
	}
	if !r.allowed(msg, self) {
		r.drop(msg, dropNotOwner)
		return
	}

	req := NewRequest(cmd, msg, self, out)
	r.logger.Info("command received", "command", cmd.Name, "from", req.From, "chat", msg.Chat, "request_id", req.ID)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		_ = r.dispatcher.Dispatch(ctx, req)
	}()
}

// allowed applies the command mode. Own messages are always allowed.
func (r *EventRouter) allowed(msg domain.Message, self string) bool {
	if r.cfg.Mode != ModePrivate || msg.FromMe {
		return true
	}
	from := domain.UserPart(msg.Sender(self))
	if self != "" && from == domain.UserPart(self) {
		return true
	}
	_, ok := r.owners[from]
	return ok
}

func (r *EventRouter) routeReceipts(ctx context.Context, receipts []domain.Receipt) {
	for _, rc := range receipts {
		r.metrics.Receipt(rc.Status.String())
	}
	if r.observer != nil && len(receipts) > 0 {
		r.observer.ObserveReceipts(ctx, receipts)
	}
}

// Wait blocks until all in-flight command handlers have returned.
func (r *EventRouter) Wait() {
	r.inflight.Wait()
}
