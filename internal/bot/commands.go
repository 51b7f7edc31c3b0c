package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

// Register adds the built-in commands to d.
func Register(d *service.Dispatcher, settings Settings) error {
	builtins := map[string]service.HandlerFunc{
		"ping":  ping,
		"jid":   jid,
		"owner": owner(settings.Owners),
	}
	for name, h := range builtins {
		if err := d.Register(name, h); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

func ping(ctx context.Context, req *service.Request) error {
	return req.Reply(ctx, "Pong! 🏓")
}

func jid(ctx context.Context, req *service.Request) error {
	return req.Reply(ctx, req.Message.Chat)
}

func owner(owners []string) service.HandlerFunc {
	return func(ctx context.Context, req *service.Request) error {
		if len(owners) == 0 {
			return req.Reply(ctx, "No owner is configured for this bot.")
		}
		var b strings.Builder
		mentions := make([]string, 0, len(owners))
		for _, o := range owners {
			user := domain.UserPart(o)
			fmt.Fprintf(&b, "👨‍💻 *Owner*: +%s\n", user)
			mentions = append(mentions, domain.UserJID(user))
		}
		b.WriteString("\nContact for bot support")
		return req.ReplyMessage(ctx, domain.OutboundMessage{Text: b.String(), Mentions: mentions})
	}
}
