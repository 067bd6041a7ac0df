package command

import (
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/storage/snapshot"
)

// BackupCommand returns the backup subcommand group.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Backups taken by convert",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List the backups of each persistence file",
				ArgsUsage: "[PATH]",
				Flags:     []cli.Flag{pathFlag(), backupDirFlag()},
				Action:    backupListAction,
			},
			{
				Name:      "restore",
				Usage:     "Restore each persistence file from its newest backup",
				ArgsUsage: "[PATH]",
				Flags:     []cli.Flag{pathFlag(), backupDirFlag()},
				Action:    backupRestoreAction,
			},
		},
	}
}

func backupDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "backup-dir",
		Usage: "Directory holding the backups (default: next to each file)",
	}
}

func backupOverrides(c *cli.Context) map[string]any {
	m := pathOverrides(c)
	if c.IsSet("backup-dir") {
		m["backup.dir"] = c.String("backup-dir")
	}
	return m
}

// backupRow is a table row of a backup.
type backupRow struct {
	File     string `json:"file" yaml:"file"`
	Backup   string `json:"backup" yaml:"backup"`
	Size     int64  `json:"size" yaml:"size"`
	Restored bool   `json:"restored,omitempty" yaml:"restored,omitempty" table:"-"`
}

func backupListAction(c *cli.Context) error {
	env, err := newRunEnv(c, backupOverrides(c))
	if err != nil {
		return err
	}
	return env.finish(runBackupList(env))
}

func runBackupList(env *runEnv) error {
	base, err := env.requirePath()
	if err != nil {
		return err
	}
	store, err := env.newStore()
	if err != nil {
		return err
	}
	files, err := snapshot.Locate(base)
	if err != nil {
		return err
	}

	rows := make([]backupRow, 0)
	for _, f := range files {
		backups, err := store.List(f.Path)
		if err != nil {
			return err
		}
		for _, b := range backups {
			rows = append(rows, backupRow{File: f.Path, Backup: b.Path, Size: b.Size})
		}
	}
	return env.print(rows)
}

func backupRestoreAction(c *cli.Context) error {
	env, err := newRunEnv(c, backupOverrides(c))
	if err != nil {
		return err
	}
	return env.finish(runBackupRestore(env))
}

// runBackupRestore copies the newest backup of every located file over
// it. Files without a backup are left alone.
func runBackupRestore(env *runEnv) error {
	base, err := env.requirePath()
	if err != nil {
		return err
	}
	store, err := env.newStore()
	if err != nil {
		return err
	}
	files, err := snapshot.Locate(base)
	if err != nil {
		return err
	}

	rows := make([]backupRow, 0, len(files))
	for _, f := range files {
		if err := env.ctx.Err(); err != nil {
			return err
		}
		backups, err := store.List(f.Path)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			env.log.Warn("no backup to restore", "path", f.Path)
			rows = append(rows, backupRow{File: f.Path})
			continue
		}

		newest := backups[len(backups)-1]
		data, _, err := store.Read(newest.Path)
		if err != nil {
			return err
		}
		info, err := store.Write(f.Path, data)
		if err != nil {
			return err
		}
		env.log.Info("file restored", "path", f.Path, "backup", newest.Path, "checksum", info.Checksum)
		rows = append(rows, backupRow{File: f.Path, Backup: newest.Path, Size: info.Size, Restored: true})
	}

	if env.format.Structured() {
		return env.print(rows)
	}
	for _, r := range rows {
		if r.Restored {
			env.printf("Restored %s from %s\n", filepath.Base(r.File), filepath.Base(r.Backup))
		} else {
			env.printf("No backup for %s\n", filepath.Base(r.File))
		}
	}
	return nil
}
