package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

// Settings describes the running bot to its users.
type Settings struct {
	Name   string
	Prefix string
	Mode   string
	Owners []string
}

// Welcomer sends a status message to the bot's own chat every time a
// session is established.
type Welcomer struct {
	settings Settings
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	sender service.Sender
}

var _ service.EstablishedNotifier = (*Welcomer)(nil)

// NewWelcomer creates a welcomer. Bind must be called before the first
// session opens.
func NewWelcomer(settings Settings, logger *slog.Logger) *Welcomer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Welcomer{settings: settings, timeout: 30 * time.Second, logger: logger.With("component", "welcome")}
}

// Bind sets the sender used for the welcome message.
func (w *Welcomer) Bind(s service.Sender) {
	w.mu.Lock()
	w.sender = s
	w.mu.Unlock()
}

func (w *Welcomer) SessionEstablished(ctx context.Context, info service.SessionInfo) {
	w.mu.RLock()
	sender := w.sender
	w.mu.RUnlock()
	if sender == nil || info.Self == "" {
		w.logger.Warn("welcome skipped", "self", info.Self, "bound", sender != nil)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	to := domain.UserJID(domain.UserPart(info.Self))
	if _, err := sender.Send(ctx, to, domain.OutboundMessage{Text: w.Message(info.Self)}); err != nil {
		w.logger.Warn("welcome not sent", "error", err, "generation", info.Generation)
		return
	}
	w.logger.Info("welcome sent", "generation", info.Generation, "new_login", info.IsNewLogin)
}

// Message renders the welcome text for self.
func (w *Welcomer) Message(self string) string {
	return fmt.Sprintf("%s connected successfully!\n\n• Prefix: %s\n• Mode: %s\n• Number: %s",
		w.settings.Name, w.settings.Prefix, w.settings.Mode, domain.UserPart(self))
}
