// Package config provides ptb-migrate configuration.
package config

import (
	"github.com/yndnr/ptb-migrate/internal/storage/snapshot"
	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

// Default configuration values.
const (
	DefaultBackupEnabled  = true
	DefaultBackupKeep     = snapshot.DefaultRetentionCount
	DefaultPickleProtocol = pickle.DefaultProtocol

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Backup: BackupSection{
			Enabled: DefaultBackupEnabled,
			Keep:    DefaultBackupKeep,
		},
		Pickle: PickleSection{
			Protocol: DefaultPickleProtocol,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
