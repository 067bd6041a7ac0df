package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration and where each value came from",
				Action: configShowAction,
			},
			{
				Name:      "validate",
				Usage:     "Validate the configuration",
				ArgsUsage: "[FILE]",
				Action:    configValidateAction,
			},
		},
	}
}

func configShowAction(c *cli.Context) error {
	env, err := newRunEnv(c, nil)
	if err != nil {
		return err
	}
	return env.finish(runConfigShow(env))
}

// runConfigShow lists every key with the layer it came from in table
// mode, and the nested configuration otherwise.
func runConfigShow(env *runEnv) error {
	if env.format == output.FormatTable {
		return env.print(env.settings)
	}
	return env.print(env.cfg)
}

func configValidateAction(c *cli.Context) error {
	if file := c.Args().First(); file != "" {
		if err := c.Set("config", file); err != nil {
			return err
		}
	}
	env, err := newRunEnv(c, nil)
	if err != nil {
		return err
	}
	env.printf("configuration is valid\n")
	return env.finish(nil)
}
