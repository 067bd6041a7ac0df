// Package config provides ptb-migrate configuration.
package config

// Config is the root configuration for ptb-migrate.
type Config struct {
	Persistence PersistenceSection `koanf:"persistence" yaml:"persistence" json:"persistence"`
	Backup      BackupSection      `koanf:"backup" yaml:"backup" json:"backup"`
	Pickle      PickleSection      `koanf:"pickle" yaml:"pickle" json:"pickle"`
	Log         LogSection         `koanf:"log" yaml:"log" json:"log"`
	Metrics     MetricsSection     `koanf:"metrics" yaml:"metrics" json:"metrics"`
}

// PersistenceSection locates the data to convert.
type PersistenceSection struct {
	// Path is the PicklePersistence filepath of the bot: a single file,
	// or the base name of the per-category files.
	Path string `koanf:"path" yaml:"path" json:"path"`
}

// BackupSection configures copies taken before a file is overwritten.
type BackupSection struct {
	Enabled bool `koanf:"enabled" yaml:"enabled" json:"enabled"`
	// Dir receives backups. Empty keeps them next to each file.
	Dir string `koanf:"dir" yaml:"dir" json:"dir"`
	// Keep is the number of backups retained per file, -1 for all.
	Keep int `koanf:"keep" yaml:"keep" json:"keep"`
}

// PickleSection configures the output encoding.
type PickleSection struct {
	// Protocol is the pickle protocol written, 3 to 5.
	Protocol int `koanf:"protocol" yaml:"protocol" json:"protocol"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// MetricsSection configures metric export.
type MetricsSection struct {
	// Textfile is written in Prometheus text format after each run.
	Textfile string `koanf:"textfile" yaml:"textfile" json:"textfile"`
}
