// Package config provides ptb-migrate configuration.
package config

import (
	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/internal/telemetry/logger"
	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyPickle(&cfg.Pickle); err != nil {
		return err
	}
	if err := verifyBackup(&cfg.Backup); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyPickle(cfg *PickleSection) error {
	if cfg.Protocol < pickle.MinEncodeProtocol || cfg.Protocol > pickle.HighestProtocol {
		return domain.ErrInvalidConfig.WithDetailsf(
			"pickle.protocol must be between %d and %d, got %d",
			pickle.MinEncodeProtocol, pickle.HighestProtocol, cfg.Protocol)
	}
	return nil
}

func verifyBackup(cfg *BackupSection) error {
	if cfg.Keep == 0 || cfg.Keep < -1 {
		return domain.ErrInvalidConfig.WithDetailsf("backup.keep must be positive or -1, got %d", cfg.Keep)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return domain.ErrInvalidConfig.WithDetailsf("log.level %q", cfg.Level)
	}
	switch cfg.Format {
	case "", "text", "console", "json":
		return nil
	default:
		return domain.ErrInvalidConfig.WithDetailsf("log.format must be text or json, got %q", cfg.Format)
	}
}
