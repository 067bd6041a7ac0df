package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/core/service"
	"github.com/yndnr/ptb-migrate/internal/migrate"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Report what a conversion would change, without writing",
		ArgsUsage: "[PATH]",
		Flags:     []cli.Flag{pathFlag()},
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	env, err := newRunEnv(c, pathOverrides(c))
	if err != nil {
		return err
	}
	return env.finish(runInspect(env))
}

// inspectRow is a table row of an inspected file.
type inspectRow struct {
	Path      string         `json:"path"`
	Category  string         `json:"category"`
	Protocol  int            `json:"protocol"`
	Migrated  bool           `json:"migrated"`
	Objects   int            `json:"objects"`
	Legacy    map[string]int `json:"legacy"`
	Sentinels int            `json:"sentinels"`
	Unknown   []string       `json:"unknown"`
	Root      string         `json:"root" table:"wide"`
	Size      int64          `json:"size" table:"wide"`
	Digest    string         `json:"digest" table:"wide"`
}

func runInspect(env *runEnv) error {
	base, err := env.requirePath()
	if err != nil {
		return err
	}
	store, err := env.newStore()
	if err != nil {
		return err
	}

	results, err := service.NewInspector(store, migrate.New()).Inspect(env.ctx, base)
	if err != nil {
		return err
	}
	if env.format.Structured() {
		return env.print(results)
	}
	return env.print(inspectRows(results))
}

func inspectRows(results []service.FileInspection) []inspectRow {
	rows := make([]inspectRow, 0, len(results))
	for _, r := range results {
		objects := 0
		for _, n := range r.Classes {
			objects += n
		}
		rows = append(rows, inspectRow{
			Path:      r.Path,
			Category:  string(r.Category),
			Protocol:  r.Protocol,
			Migrated:  r.Migrated(),
			Objects:   objects,
			Legacy:    r.LegacyFields,
			Sentinels: r.Sentinels,
			Unknown:   r.Unknown,
			Root:      r.Root,
			Size:      r.Size,
			Digest:    r.Digest,
		})
	}
	return rows
}
