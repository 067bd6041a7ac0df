package command

import (
	"context"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ptb-migrate/internal/cli/output"
	"github.com/yndnr/ptb-migrate/internal/config"
	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/internal/infra/confloader"
	"github.com/yndnr/ptb-migrate/internal/infra/shutdown"
	"github.com/yndnr/ptb-migrate/internal/storage/snapshot"
	"github.com/yndnr/ptb-migrate/internal/telemetry/logger"
	"github.com/yndnr/ptb-migrate/internal/telemetry/metric"
)

// runEnv is the state of one command invocation.
type runEnv struct {
	cfg      *config.Config
	settings []confloader.Setting
	flags    *GlobalFlags
	format   output.Format
	ctx      context.Context
	log      logger.Logger
	metrics  *metric.Registry
	signals  *shutdown.Handler
	stdout   io.Writer
	stderr   io.Writer
	start    time.Time
}

// newRunEnv loads the configuration with the command's overrides on top
// of the global flag overrides, then sets up logging, the run ID,
// signal handling and, when configured, the metrics textfile.
func newRunEnv(c *cli.Context, overrides map[string]any) (*runEnv, error) {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}

	merged := flags.overrides(c)
	maps.Copy(merged, overrides)
	cfg, settings, err := config.LoadWithSources(flags.Config, merged)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}

	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	signals := shutdown.NewHandler(parent, shutdown.DefaultTimeout)
	ctx := logger.WithRunID(logger.WithLogger(signals.Context(), log), domain.NewRunID())

	env := &runEnv{
		cfg:      cfg,
		settings: settings,
		flags:    flags,
		format:   format,
		ctx:      ctx,
		log:      logger.L(ctx),
		signals:  signals,
		stdout:   c.App.Writer,
		stderr:   c.App.ErrWriter,
		start:    time.Now(),
	}

	if path := cfg.Metrics.Textfile; path != "" {
		env.metrics = metric.NewRegistry()
		signals.OnShutdown(func(context.Context) error {
			return env.metrics.WriteTextfile(path)
		})
	}

	env.log.Debug("command started", "command", c.Command.Name, "config", flags.Config)
	return env, nil
}

// finish records the outcome and runs the shutdown hooks. It returns err,
// noting the signal when the run was interrupted.
func (e *runEnv) finish(err error) error {
	if e.metrics != nil {
		if err != nil {
			e.metrics.RecordFailure(domain.GetErrorCode(err))
		}
		now := time.Now()
		e.metrics.ObserveRun(now.Sub(e.start), now)
	}
	if cerr := e.signals.Close(); cerr != nil {
		e.log.Warn("shutdown hook failed", "error", cerr)
	}
	if err != nil {
		if sig := e.signals.Signal(); sig != nil {
			return fmt.Errorf("interrupted by %s: %w", sig, err)
		}
	}
	return err
}

// print writes data to stdout in the selected format.
func (e *runEnv) print(data any) error {
	return output.NewFormatter(e.format, e.flags.Wide).Format(e.stdout, data)
}

// requirePath checks that a persistence path was given.
func (e *runEnv) requirePath() (string, error) {
	if e.cfg.Persistence.Path == "" {
		return "", domain.ErrInvalidConfig.WithDetails("persistence.path is required")
	}
	return e.cfg.Persistence.Path, nil
}

// newStore creates the snapshot manager from the backup settings.
func (e *runEnv) newStore() (*snapshot.Manager, error) {
	return snapshot.NewManager(snapshot.Config{
		BackupDir:      e.cfg.Backup.Dir,
		RetentionCount: e.cfg.Backup.Keep,
	})
}

// pathFlag is the persistence path, also accepted as the first argument.
func pathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Usage:   "PicklePersistence filepath of the bot",
	}
}

// pathOverrides returns the persistence path override from --path or
// the first argument.
func pathOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("path") {
		m["persistence.path"] = c.String("path")
	} else if arg := c.Args().First(); arg != "" {
		m["persistence.path"] = arg
	}
	return m
}

// printf writes human-readable text to stdout.
func (e *runEnv) printf(format string, args ...any) {
	fmt.Fprintf(e.stdout, format, args...)
}
