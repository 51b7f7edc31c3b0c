// Package command defines the fergando-md command line on urfave/cli/v2.
//
//	fergando-md [--config FILE] run
//	fergando-md status [--live]
//	fergando-md logout
//	fergando-md config show|validate
//	fergando-md version
//
// Every command loads the same configuration: defaults, then the YAML file,
// then FERGANDO_* environment variables.
package command
