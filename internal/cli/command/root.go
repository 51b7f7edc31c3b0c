package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Niro-Programe/Fergando-MD/internal/cli/output"
	"github.com/Niro-Programe/Fergando-MD/internal/infra/buildinfo"
	"github.com/Niro-Programe/Fergando-MD/internal/infra/confloader"
	"github.com/Niro-Programe/Fergando-MD/internal/server/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    buildinfo.Name,
		Usage:   "WhatsApp multi-device bot daemon",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			RunCommand(),
			StatusCommand(),
			LogoutCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		DefaultCommand:  "run",
		HideHelpCommand: true,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"FERGANDO_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	Output     output.Format
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		Output:     format,
	}, nil
}

// loadConfig builds the effective configuration: defaults, file, env.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// configFromContext parses the global flags and loads the configuration.
func configFromContext(c *cli.Context) (*GlobalFlags, *config.Config, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(flags.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	return flags, cfg, nil
}

// render writes data to the app's writer in the selected format.
func render(c *cli.Context, format output.Format, data any) error {
	return output.NewFormatter(format).Format(c.App.Writer, data)
}
