package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/telemetry/logger"
	"github.com/Niro-Programe/Fergando-MD/internal/telemetry/metric"
)

// Replies sent by the dispatcher itself.
const (
	ReplyUnknownCommand = "unknown command"
	ReplyCommandFailed  = "command failed, please try again later"
)

// Request is a parsed command together with where it came from.
type Request struct {
	// ID correlates log lines for one dispatch.
	ID string

	Command domain.Command
	Message domain.Message

	// From is the resolved sender JID.
	From string

	// Self is the bot's own JID.
	Self string

	out Sender
}

// NewRequest builds a request replying through out.
func NewRequest(cmd domain.Command, msg domain.Message, self string, out Sender) *Request {
	return &Request{
		ID:      ulid.Make().String(),
		Command: cmd,
		Message: msg,
		From:    msg.Sender(self),
		Self:    self,
		out:     out,
	}
}

// Reply sends text back to the chat the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	return r.ReplyMessage(ctx, domain.OutboundMessage{Text: text})
}

// ReplyMessage is Reply for messages with mentions.
func (r *Request) ReplyMessage(ctx context.Context, msg domain.OutboundMessage) error {
	if r.out == nil {
		return domain.ErrNotConnected
	}
	_, err := r.out.Send(ctx, r.Message.Chat, msg)
	return err
}

// Handler handles one command.
type Handler interface {
	Handle(ctx context.Context, req *Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) error

func (f HandlerFunc) Handle(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// Dispatcher maps command names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	logger  *slog.Logger
	metrics *metric.Registry
}

// NewDispatcher creates an empty command table.
func NewDispatcher(logger *slog.Logger, metrics *metric.Registry) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
		metrics:  metrics,
	}
}

// Register adds a handler. Names are case-insensitive.
func (d *Dispatcher) Register(name string, h Handler) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || strings.ContainsAny(key, " \t\r\n") {
		return domain.ErrInvalidCommandName.WithDetails(fmt.Sprintf("name=%q", name))
	}
	if h == nil {
		return domain.ErrInvalidCommandName.WithDetails(fmt.Sprintf("name=%q: nil handler", name))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[key]; ok {
		return domain.ErrDuplicateCommand.WithDetails("name=" + key)
	}
	d.handlers[key] = h
	return nil
}

// RegisterFunc registers a function handler.
func (d *Dispatcher) RegisterFunc(name string, fn func(ctx context.Context, req *Request) error) error {
	return d.Register(name, HandlerFunc(fn))
}

// Names returns the registered command names in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) lookup(name string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[strings.ToLower(name)]
	return h, ok
}

// Dispatch runs the handler for req.Command. Handler errors and panics are
// answered with a generic failure reply and returned as ErrCommandFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (err error) {
	name := req.Command.Name
	ctx = logger.WithRequestID(ctx, req.ID)
	log := d.logger.With("command", name, "chat", req.Message.Chat)

	h, ok := d.lookup(name)
	if !ok {
		d.metrics.CommandDispatched("unknown", "unknown", 0)
		log.DebugContext(ctx, "unknown command")
		if rerr := req.Reply(ctx, ReplyUnknownCommand); rerr != nil {
			log.WarnContext(ctx, "reply failed", "error", rerr)
		}
		return domain.ErrUnknownCommand.WithDetails(fmt.Sprintf("name=%q", name))
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = domain.ErrCommandFailed.WithCause(fmt.Errorf("panic: %v", p))
		}
		elapsed := time.Since(start)
		if err == nil {
			d.metrics.CommandDispatched(name, "ok", elapsed)
			log.DebugContext(ctx, "command handled", "duration", elapsed)
			return
		}
		d.metrics.CommandDispatched(name, "error", elapsed)
		log.ErrorContext(ctx, "command failed", "error", err, "duration", elapsed)
		if rerr := req.Reply(ctx, ReplyCommandFailed); rerr != nil {
			log.WarnContext(ctx, "reply failed", "error", rerr)
		}
		if !domain.IsDomainError(err, domain.ErrCommandFailed.Code) {
			err = domain.ErrCommandFailed.WithCause(err)
		}
	}()

	return h.Handle(ctx, req)
}
