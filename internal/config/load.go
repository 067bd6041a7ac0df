// Package config provides ptb-migrate configuration.
package config

import (
	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/internal/infra/confloader"
)

// Load builds the configuration from defaults, the optional YAML file at
// path, the environment and overrides, then verifies it. Override keys
// are dotted paths such as "backup.dir".
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg, _, err := LoadWithSources(path, overrides)
	return cfg, err
}

// LoadWithSources is Load that also reports every effective value and
// the layer it came from.
func LoadWithSources(path string, overrides map[string]any) (*Config, []confloader.Setting, error) {
	cfg := Default()

	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := l.Load(cfg); err != nil {
		return nil, nil, domain.ErrInvalidConfig.WithCause(err)
	}

	if err := Verify(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, l.Settings(), nil
}
