package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Niro-Programe/Fergando-MD/internal/storage"
)

// LogoutCommand deletes the stored credentials so the next run pairs a new
// device. It does not unlink the device on the phone.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Delete stored credentials",
		Action: func(c *cli.Context) error {
			_, cfg, err := configFromContext(c)
			if err != nil {
				return err
			}
			store, err := storage.Open(storageConfig(cfg), nil, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(c.Context); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "credentials removed from %s\n", cfg.Session.Storage.Path)
			return nil
		},
	}
}
