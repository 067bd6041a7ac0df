// Package service provides the conversion services of ptb-migrate.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/internal/migrate"
	"github.com/yndnr/ptb-migrate/internal/storage/snapshot"
	"github.com/yndnr/ptb-migrate/internal/telemetry/logger"
	"github.com/yndnr/ptb-migrate/internal/telemetry/metric"
)

// SnapshotStore reads and replaces persistence files.
type SnapshotStore interface {
	// Read returns the content of path.
	Read(path string) ([]byte, *snapshot.Info, error)

	// Write atomically replaces path with data.
	Write(path string, data []byte) (*snapshot.Info, error)

	// Backup copies path aside and returns the copy.
	Backup(path string) (*snapshot.Info, error)
}

// LocateFunc resolves a base path to persistence files.
type LocateFunc func(base string) ([]snapshot.File, error)

// Converter migrates the persistence files of a bot in place.
type Converter struct {
	store    SnapshotStore
	migrator *migrate.Migrator
	locate   LocateFunc
	metrics  *metric.Registry
	progress io.Writer
	backup   bool
	dryRun   bool
	now      func() time.Time
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithBackup enables a backup of each file before it is overwritten.
func WithBackup(enabled bool) ConverterOption {
	return func(c *Converter) {
		c.backup = enabled
	}
}

// WithDryRun converts into memory only. Files are neither backed up nor
// written.
func WithDryRun(enabled bool) ConverterOption {
	return func(c *Converter) {
		c.dryRun = enabled
	}
}

// WithProgress sets where progress lines are printed.
func WithProgress(w io.Writer) ConverterOption {
	return func(c *Converter) {
		c.progress = w
	}
}

// WithMetrics records per-file counts in r.
func WithMetrics(r *metric.Registry) ConverterOption {
	return func(c *Converter) {
		c.metrics = r
	}
}

// WithLocator replaces snapshot.Locate.
func WithLocator(fn LocateFunc) ConverterOption {
	return func(c *Converter) {
		c.locate = fn
	}
}

// NewConverter creates a Converter.
func NewConverter(store SnapshotStore, migrator *migrate.Migrator, opts ...ConverterOption) *Converter {
	c := &Converter{
		store:    store,
		migrator: migrator,
		locate:   snapshot.Locate,
		progress: io.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run converts every persistence file found for base, in category
// order. The first failure aborts the run; files converted before it
// stay converted. The returned report lists the files that completed.
func (c *Converter) Run(ctx context.Context, base string) (*domain.RunReport, error) {
	start := c.now()
	report := &domain.RunReport{
		RunID:  logger.RunIDFromContext(ctx),
		Base:   base,
		DryRun: c.dryRun,
	}
	log := logger.L(ctx).With("base", base)

	files, err := c.locate(base)
	if err != nil {
		return report, err
	}
	log.Debug("persistence files located", "count", len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fr, err := c.convert(ctx, f)
		if err != nil {
			log.Error("conversion failed", "path", f.Path, "error", err)
			return report, err
		}
		report.Files = append(report.Files, *fr)
	}

	report.Duration = c.now().Sub(start)
	fmt.Fprint(c.progress, "\nDone. Run your bot to make sure everything works.\n")
	log.Info("conversion finished", "files", len(report.Files), "duration", report.Duration)
	return report, nil
}

func (c *Converter) convert(ctx context.Context, f snapshot.File) (*domain.FileReport, error) {
	log := logger.L(ctx).With("path", f.Path, "category", string(f.Category))

	fmt.Fprintf(c.progress, "Loading data from %s...\n\n", filepath.Base(f.Path))
	data, in, err := c.store.Read(f.Path)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(c.progress, "Converting data...\n\n")
	var out bytes.Buffer
	stats, err := c.migrator.Migrate(bytes.NewReader(data), &out)
	if err != nil {
		return nil, err
	}

	fr := &domain.FileReport{
		Path:         f.Path,
		Category:     string(f.Category),
		Objects:      stats.Objects,
		Renamed:      stats.Renamed,
		Sentinels:    stats.Sentinels,
		InputSize:    in.Size,
		InputDigest:  in.Checksum,
		OutputSize:   int64(out.Len()),
		OutputDigest: snapshot.Digest(out.Bytes()),
	}
	if len(fr.Renamed) == 0 {
		fr.Renamed = nil
	}

	if c.dryRun {
		log.Info("dry run, file left unchanged", "objects", fr.Objects, "sentinels", fr.Sentinels)
		return fr, nil
	}

	if c.backup {
		b, err := c.store.Backup(f.Path)
		if err != nil {
			return nil, err
		}
		fr.BackupPath = b.Path
		log.Debug("backup written", "backup", b.Path)
	}

	if _, err := c.store.Write(f.Path, out.Bytes()); err != nil {
		return nil, err
	}
	fr.Written = true

	if c.metrics != nil {
		c.metrics.RecordFile(fr.Category, fr.Objects, fr.Renamed, fr.Sentinels, fr.OutputSize)
	}
	log.Info("file converted",
		"objects", fr.Objects,
		"renamed", fr.RenamedTotal(),
		"sentinels", fr.Sentinels,
		"input_protocol", stats.Protocol,
		"output_size", fr.OutputSize,
	)
	return fr, nil
}
