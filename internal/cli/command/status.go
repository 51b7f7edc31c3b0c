package command

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Niro-Programe/Fergando-MD/internal/cli/connection"
	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/server/config"
	"github.com/Niro-Programe/Fergando-MD/internal/server/httpserver/handler"
	"github.com/Niro-Programe/Fergando-MD/internal/storage"
)

// StoredStatus describes the credentials on disk.
type StoredStatus struct {
	Backend    string `json:"backend" yaml:"backend"`
	Path       string `json:"path" yaml:"path"`
	Encrypted  bool   `json:"encrypted" yaml:"encrypted"`
	Present    bool   `json:"present" yaml:"present"`
	Registered bool   `json:"registered" yaml:"registered"`
	Account    string `json:"account" yaml:"account"`
	PushName   string `json:"push_name" yaml:"push_name"`
	Revision   uint64 `json:"revision" yaml:"revision"`
	Keys       int    `json:"keys" yaml:"keys"`
}

// StatusCommand reports the stored credentials, or with --live the state
// of a running daemon.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pairing and session status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "live",
				Usage: "Query the running daemon over HTTP instead of reading the store",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Daemon HTTP address (defaults to http.addr)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for --live",
				Value: 5 * time.Second,
			},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	flags, cfg, err := configFromContext(c)
	if err != nil {
		return err
	}

	if c.Bool("live") {
		addr := c.String("addr")
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		client := connection.NewHTTPClient(addr, c.Duration("timeout"))
		var live handler.StatusResponse
		if err := client.GetData(c.Context, "/status", &live); err != nil {
			return err
		}
		return render(c, flags.Output, live)
	}

	st, err := storedStatus(c.Context, cfg)
	if err != nil {
		return err
	}
	return render(c, flags.Output, st)
}

func storedStatus(ctx context.Context, cfg *config.Config) (*StoredStatus, error) {
	store, err := storage.Open(storageConfig(cfg), nil, nil)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	st := &StoredStatus{
		Backend:   cfg.Session.Storage.Backend,
		Path:      cfg.Session.Storage.Path,
		Encrypted: cfg.Session.Storage.Passphrase != "",
	}
	creds, err := store.Load(ctx)
	if errors.Is(err, domain.ErrCredentialsAbsent) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.Present = true
	st.Registered = creds.IsRegistered()
	st.Account = creds.Identity.Me
	st.PushName = creds.Identity.PushName
	st.Revision = creds.Revision
	st.Keys = creds.KeyCount()
	return st, nil
}
