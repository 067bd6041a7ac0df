// Package service provides the conversion services of ptb-migrate.
package service

import (
	"bytes"
	"context"

	"github.com/yndnr/ptb-migrate/internal/migrate"
	"github.com/yndnr/ptb-migrate/internal/storage/snapshot"
	"github.com/yndnr/ptb-migrate/internal/telemetry/logger"
)

// FileInspection is the inspection of one persistence file.
type FileInspection struct {
	snapshot.File      `yaml:",inline"`
	migrate.Inspection `yaml:",inline"`

	Size   int64  `json:"size" yaml:"size"`
	Digest string `json:"digest" yaml:"digest"`
}

// Inspector reports what a conversion would change.
type Inspector struct {
	store    SnapshotStore
	migrator *migrate.Migrator
	locate   LocateFunc
}

// NewInspector creates an Inspector.
func NewInspector(store SnapshotStore, migrator *migrate.Migrator) *Inspector {
	return &Inspector{
		store:    store,
		migrator: migrator,
		locate:   snapshot.Locate,
	}
}

// Inspect decodes every persistence file of base without modifying it.
func (i *Inspector) Inspect(ctx context.Context, base string) ([]FileInspection, error) {
	files, err := i.locate(base)
	if err != nil {
		return nil, err
	}

	results := make([]FileInspection, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		data, info, err := i.store.Read(f.Path)
		if err != nil {
			return results, err
		}
		in, err := i.migrator.Inspect(bytes.NewReader(data))
		if err != nil {
			return results, err
		}
		logger.L(ctx).Debug("file inspected", "path", f.Path, "migrated", in.Migrated())
		results = append(results, FileInspection{
			File:       f,
			Inspection: *in,
			Size:       info.Size,
			Digest:     info.Checksum,
		})
	}
	return results, nil
}
