package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/cli/output"
	"github.com/yndnr/ptb-migrate/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show build information",
		Action: versionAction,
	}
}

func versionAction(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}

	info := buildinfo.Get()
	if format.Structured() {
		return output.NewFormatter(format, false).Format(c.App.Writer, info)
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s %s (%s)\n", c.App.Name, buildinfo.String(), info.GoVersion)
	return err
}
