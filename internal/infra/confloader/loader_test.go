package confloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testConfig struct {
	Persistence struct {
		Path string `koanf:"path" yaml:"path"`
	} `koanf:"persistence" yaml:"persistence"`
	Backup struct {
		Enabled bool   `koanf:"enabled" yaml:"enabled"`
		Dir     string `koanf:"dir" yaml:"dir"`
		Keep    int    `koanf:"keep" yaml:"keep"`
	} `koanf:"backup" yaml:"backup"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
		WithOverrides(map[string]any{"backup.dir": "/tmp"}),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q, want %q", l.filePath, "/path/to/config.yaml")
	}
	if l.overrides["backup.dir"] != "/tmp" {
		t.Errorf("overrides = %v", l.overrides)
	}
}

func TestLoader_Load_File(t *testing.T) {
	path := writeConfig(t, `
persistence:
  path: "/srv/bot/data"
backup:
  enabled: true
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Persistence.Path != "/srv/bot/data" {
		t.Errorf("Path = %q, want /srv/bot/data", cfg.Persistence.Path)
	}
	if !cfg.Backup.Enabled {
		t.Error("backup.enabled should be true")
	}
}

func TestLoader_Load_FileErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"not found", func(t *testing.T) string { return "/nonexistent/config.yaml" }},
		{"invalid yaml", func(t *testing.T) string { return writeConfig(t, "backup: [unclosed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg testConfig
			if err := NewLoader(WithConfigFile(tt.path(t))).Load(&cfg); err == nil {
				t.Error("Load() should return an error")
			}
		})
	}
}

func TestLoader_Load_Env(t *testing.T) {
	t.Setenv("PTBMIGRATE_BACKUP_DIR", "/var/backups")
	t.Setenv("PTBMIGRATE_BACKUP_ENABLED", "false")

	var cfg testConfig
	cfg.Backup.Enabled = true
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backup.Dir != "/var/backups" {
		t.Errorf("Dir = %q, want /var/backups", cfg.Backup.Dir)
	}
	if cfg.Backup.Enabled {
		t.Error("backup.enabled should be false")
	}
}

func TestLoader_Load_EnvCustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_BACKUP_KEEP", "9")

	var cfg testConfig
	if err := NewLoader(WithEnvPrefix("MYAPP_")).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backup.Keep != 9 {
		t.Errorf("Keep = %d, want 9", cfg.Backup.Keep)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
persistence:
  path: "from-file"
backup:
  dir: "from-file"
  keep: 2
`)
	t.Setenv("PTBMIGRATE_PERSISTENCE_PATH", "from-env")
	t.Setenv("PTBMIGRATE_BACKUP_DIR", "from-env")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"backup.dir": "from-flag"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Persistence.Path != "from-env" {
		t.Errorf("Path = %q, want from-env (env should override file)", cfg.Persistence.Path)
	}
	if cfg.Backup.Dir != "from-flag" {
		t.Errorf("Dir = %q, want from-flag (overrides should win)", cfg.Backup.Dir)
	}
	if cfg.Backup.Keep != 2 {
		t.Errorf("Keep = %d, want 2 from file", cfg.Backup.Keep)
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
backup:
  dir: "/b"
`)

	var cfg testConfig
	cfg.Backup.Enabled = true
	cfg.Backup.Keep = 5
	cfg.Persistence.Path = "default"

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Backup.Enabled || cfg.Backup.Keep != 5 || cfg.Persistence.Path != "default" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Backup.Dir != "/b" {
		t.Errorf("Dir = %q, want /b", cfg.Backup.Dir)
	}
}

func TestLoader_Settings(t *testing.T) {
	path := writeConfig(t, `
backup:
  keep: 2
unrelated: true
`)
	t.Setenv("PTBMIGRATE_PERSISTENCE_PATH", "from-env")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"backup.enabled": false}),
	)

	var cfg testConfig
	cfg.Backup.Enabled = true
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []Setting{
		{Key: "backup.dir", Value: "", Source: SourceDefault},
		{Key: "backup.enabled", Value: false, Source: SourceOverride},
		{Key: "backup.keep", Value: 2, Source: SourceFile},
		{Key: "persistence.path", Value: "from-env", Source: SourceEnv},
	}
	if diff := cmp.Diff(want, l.Settings()); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Settings_BeforeLoad(t *testing.T) {
	if got := NewLoader().Settings(); len(got) != 0 {
		t.Errorf("Settings() = %v, want none", got)
	}
}
