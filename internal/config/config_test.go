package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/internal/infra/confloader"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Backup.Enabled {
		t.Error("backups should be enabled by default")
	}
	if cfg.Backup.Keep != DefaultBackupKeep {
		t.Errorf("Backup.Keep = %d, want %d", cfg.Backup.Keep, DefaultBackupKeep)
	}
	if cfg.Pickle.Protocol != 4 {
		t.Errorf("Pickle.Protocol = %d, want 4", cfg.Pickle.Protocol)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Persistence.Path != "" {
		t.Errorf("Persistence.Path = %q, want empty", cfg.Persistence.Path)
	}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"protocol 3", func(c *Config) { c.Pickle.Protocol = 3 }, false},
		{"protocol 5", func(c *Config) { c.Pickle.Protocol = 5 }, false},
		{"protocol 2", func(c *Config) { c.Pickle.Protocol = 2 }, true},
		{"protocol 6", func(c *Config) { c.Pickle.Protocol = 6 }, true},
		{"keep all backups", func(c *Config) { c.Backup.Keep = -1 }, false},
		{"keep zero", func(c *Config) { c.Backup.Keep = 0 }, true},
		{"keep negative", func(c *Config) { c.Backup.Keep = -3 }, true},
		{"debug level", func(c *Config) { c.Log.Level = "debug" }, false},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"json format", func(c *Config) { c.Log.Format = "json" }, false},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Verify(cfg)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Errorf("Verify() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestLoad_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptb-migrate.yaml")
	content := `
persistence:
  path: /srv/bot/data
backup:
  dir: /srv/backups
pickle:
  protocol: 5
log:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PTBMIGRATE_LOG_LEVEL", "debug")
	t.Setenv("PTBMIGRATE_BACKUP_DIR", "/env/backups")

	cfg, err := Load(path, map[string]any{"backup.enabled": false})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Persistence.Path != "/srv/bot/data" {
		t.Errorf("Persistence.Path = %q", cfg.Persistence.Path)
	}
	if cfg.Pickle.Protocol != 5 {
		t.Errorf("Pickle.Protocol = %d, want 5", cfg.Pickle.Protocol)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Backup.Dir != "/env/backups" {
		t.Errorf("Backup.Dir = %q, want env value", cfg.Backup.Dir)
	}
	if cfg.Backup.Enabled {
		t.Error("override should disable backups")
	}
	if cfg.Backup.Keep != DefaultBackupKeep {
		t.Errorf("Backup.Keep = %d, want default", cfg.Backup.Keep)
	}
}

func TestLoadWithSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptb-migrate.yaml")
	if err := os.WriteFile(path, []byte("pickle:\n  protocol: 5\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PTBMIGRATE_LOG_LEVEL", "debug")

	_, settings, err := LoadWithSources(path, map[string]any{"backup.enabled": false})
	if err != nil {
		t.Fatalf("LoadWithSources() error = %v", err)
	}

	got := make(map[string]confloader.Source, len(settings))
	for _, s := range settings {
		got[s.Key] = s.Source
	}
	want := map[string]confloader.Source{
		"backup.dir":       confloader.SourceDefault,
		"backup.enabled":   confloader.SourceOverride,
		"backup.keep":      confloader.SourceDefault,
		"log.format":       confloader.SourceDefault,
		"log.level":        confloader.SourceEnv,
		"metrics.textfile": confloader.SourceDefault,
		"persistence.path": confloader.SourceDefault,
		"pickle.protocol":  confloader.SourceFile,
	}
	if len(got) != len(want) {
		t.Errorf("got %d settings, want %d: %v", len(got), len(want), got)
	}
	for key, src := range want {
		if got[key] != src {
			t.Errorf("%s source = %q, want %q", key, got[key], src)
		}
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pickle.Protocol != DefaultPickleProtocol {
		t.Errorf("Pickle.Protocol = %d", cfg.Pickle.Protocol)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Load("", map[string]any{"pickle.protocol": 2})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("PTBMIGRATE_PICKLE_PROTOCOL", "four")
		_, err := Load("", nil)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
		}
	})
}
