package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/storage/snapshot"
)

// LocateCommand returns the locate command.
func LocateCommand() *cli.Command {
	return &cli.Command{
		Name:      "locate",
		Usage:     "List the persistence files a conversion would touch",
		ArgsUsage: "[PATH]",
		Flags:     []cli.Flag{pathFlag()},
		Action:    locateAction,
	}
}

func locateAction(c *cli.Context) error {
	env, err := newRunEnv(c, pathOverrides(c))
	if err != nil {
		return err
	}
	return env.finish(runLocate(env))
}

func runLocate(env *runEnv) error {
	base, err := env.requirePath()
	if err != nil {
		return err
	}
	files, err := snapshot.Locate(base)
	if err != nil {
		return err
	}
	return env.print(files)
}
