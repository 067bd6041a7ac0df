// Package domain defines the core domain models for ptb-migrate.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunIDPrefix is the prefix for run IDs.
const RunIDPrefix = "pmrun-"

// NewRunID returns a new run identifier.
// Format: pmrun-{ulid_lowercase}.
func NewRunID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return RunIDPrefix + strings.ToLower(id.String())
}

// FileReport describes the migration of one persistence file.
type FileReport struct {
	// Path is the converted file.
	Path string `json:"path" yaml:"path"`

	// Category is the persistence category derived from the file suffix.
	Category string `json:"category" yaml:"category"`

	// Objects is the number of telegram objects whose state was migrated.
	Objects int `json:"objects" yaml:"objects"`

	// Renamed counts renamed fields by their legacy name.
	Renamed map[string]int `json:"renamed,omitempty" yaml:"renamed,omitempty"`

	// Sentinels is the number of bot placeholders replaced.
	Sentinels int `json:"sentinels" yaml:"sentinels"`

	// InputSize and OutputSize are in bytes.
	InputSize  int64 `json:"input_size" yaml:"input_size"`
	OutputSize int64 `json:"output_size" yaml:"output_size"`

	// InputDigest and OutputDigest are hex BLAKE2b-256 digests.
	InputDigest  string `json:"input_digest" yaml:"input_digest"`
	OutputDigest string `json:"output_digest,omitempty" yaml:"output_digest,omitempty"`

	// BackupPath is empty when no backup was taken.
	BackupPath string `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`

	// Written is false for dry runs.
	Written bool `json:"written" yaml:"written"`
}

// RenamedTotal returns the number of renamed fields across all names.
func (r *FileReport) RenamedTotal() int {
	n := 0
	for _, c := range r.Renamed {
		n += c
	}
	return n
}

// RunReport summarizes one invocation of the converter.
type RunReport struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Base     string        `json:"base" yaml:"base"`
	DryRun   bool          `json:"dry_run" yaml:"dry_run"`
	Files    []FileReport  `json:"files" yaml:"files"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}
