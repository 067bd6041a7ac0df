// Package confloader provides configuration loading mechanism.
package confloader

import (
	"fmt"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "PTBMIGRATE_"

// Source names the layer a configuration value was taken from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceFile     Source = "file"
	SourceEnv      Source = "env"
	SourceOverride Source = "flag"
)

// Setting is one effective configuration value.
type Setting struct {
	Key    string `json:"key" yaml:"key"`
	Value  any    `json:"value" yaml:"value"`
	Source Source `json:"source" yaml:"source"`
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any

	// sources records the layer that last set each key; known holds the
	// keys of the target.
	sources map[string]Source
	known   map[string]bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values that win over every other source. Keys are
// dotted paths.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		sources:   make(map[string]Source),
		known:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load layers the configuration sources and unmarshals the result into
// target. Later layers win:
//  1. Values already set in target
//  2. Configuration file (YAML)
//  3. Environment variables
//  4. Overrides
//
// The first layer is read by marshalling target as YAML, so target's
// yaml tags must match its koanf tags.
func (l *Loader) Load(target any) error {
	defaults, err := yaml.Marshal(target)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	if err := l.layer(SourceDefault, bytesProvider(defaults), koanfyaml.Parser()); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	for key := range l.sources {
		l.known[key] = true
	}

	if l.filePath != "" {
		if err := l.layer(SourceFile, file.Provider(l.filePath), koanfyaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}

	if err := l.layer(SourceEnv, env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := l.layer(SourceOverride, mapProvider(l.overrides), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// layer loads one source into its own koanf instance, records which keys
// it set and merges it over the previous layers.
func (l *Loader) layer(src Source, p koanf.Provider, parser koanf.Parser) error {
	lk := koanf.New(".")
	if err := lk.Load(p, parser); err != nil {
		return err
	}
	for _, key := range lk.Keys() {
		l.sources[key] = src
	}
	return l.k.Merge(lk)
}

// envKey maps PTBMIGRATE_BACKUP_DIR to backup.dir.
func (l *Loader) envKey(s string) string {
	s = strings.TrimPrefix(s, l.envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// Settings returns the loaded values sorted by key, with the layer each
// one came from. Keys unknown to the target are left out.
func (l *Loader) Settings() []Setting {
	all := l.k.All()
	settings := make([]Setting, 0, len(all))
	for _, key := range l.k.Keys() {
		if !l.known[key] {
			continue
		}
		settings = append(settings, Setting{Key: key, Value: all[key], Source: l.sources[key]})
	}
	return settings
}
