package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Niro-Programe/Fergando-MD/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the merged configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration and exit",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	flags, cfg, err := configFromContext(c)
	if err != nil {
		return err
	}
	return render(c, flags.Output, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	flags, _, err := configFromContext(c)
	if err != nil {
		return err
	}
	source := flags.ConfigFile
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(c.App.Writer, "configuration OK (%s)\n", source)
	return nil
}
