package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/internal/core/service"
	"github.com/yndnr/ptb-migrate/internal/migrate"
)

// ConvertCommand returns the convert command.
func ConvertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert v13 persistence files in place",
		ArgsUsage: "[PATH]",
		Description: "Converts the PicklePersistence files of a bot so that " +
			"python-telegram-bot v20 can load them. PATH is the filepath the " +
			"bot passes to PicklePersistence: a single file, or the base name " +
			"of the per-category files.",
		Flags: []cli.Flag{
			pathFlag(),
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Convert in memory without writing anything",
			},
			&cli.BoolFlag{
				Name:  "no-backup",
				Usage: "Do not copy files aside before overwriting them",
			},
			&cli.StringFlag{
				Name:  "backup-dir",
				Usage: "Directory for backups (default: next to each file)",
			},
			&cli.IntFlag{
				Name:  "keep",
				Usage: "Backups kept per file, -1 for all",
			},
			&cli.IntFlag{
				Name:  "protocol",
				Usage: "Pickle protocol of the output, 3 to 5",
			},
		},
		Action: convertAction,
	}
}

func convertOverrides(c *cli.Context) map[string]any {
	m := pathOverrides(c)
	if c.Bool("no-backup") {
		m["backup.enabled"] = false
	}
	if c.IsSet("backup-dir") {
		m["backup.dir"] = c.String("backup-dir")
	}
	if c.IsSet("keep") {
		m["backup.keep"] = c.Int("keep")
	}
	if c.IsSet("protocol") {
		m["pickle.protocol"] = c.Int("protocol")
	}
	return m
}

func convertAction(c *cli.Context) error {
	env, err := newRunEnv(c, convertOverrides(c))
	if err != nil {
		return err
	}
	return env.finish(runConvert(env, c.Bool("dry-run")))
}

// convertRow is a table row of a converted file.
type convertRow struct {
	Path      string         `json:"path"`
	Category  string         `json:"category"`
	Objects   int            `json:"objects"`
	Renamed   map[string]int `json:"renamed"`
	Sentinels int            `json:"sentinels"`
	Size      int64          `json:"size" table:"wide"`
	Digest    string         `json:"digest" table:"wide"`
}

func runConvert(env *runEnv, dryRun bool) error {
	base, err := env.requirePath()
	if err != nil {
		return err
	}
	store, err := env.newStore()
	if err != nil {
		return err
	}

	// Progress lines go to stderr when stdout carries the report.
	progress := env.stdout
	if env.format.Structured() {
		progress = env.stderr
	}

	conv := service.NewConverter(store,
		migrate.New(migrate.WithProtocol(env.cfg.Pickle.Protocol)),
		service.WithBackup(env.cfg.Backup.Enabled),
		service.WithDryRun(dryRun),
		service.WithProgress(progress),
		service.WithMetrics(env.metrics),
	)

	report, err := conv.Run(env.ctx, base)
	if err != nil {
		return err
	}

	if env.format.Structured() {
		return env.print(report)
	}
	if dryRun {
		fmt.Fprintln(env.stdout, "Dry run, no file was changed:")
		fmt.Fprintln(env.stdout)
		return env.print(convertRows(report))
	}
	return nil
}

func convertRows(report *domain.RunReport) []convertRow {
	rows := make([]convertRow, 0, len(report.Files))
	for _, f := range report.Files {
		rows = append(rows, convertRow{
			Path:      f.Path,
			Category:  f.Category,
			Objects:   f.Objects,
			Renamed:   f.Renamed,
			Sentinels: f.Sentinels,
			Size:      f.OutputSize,
			Digest:    f.OutputDigest,
		})
	}
	return rows
}
