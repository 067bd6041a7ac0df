// Package config provides ptb-migrate configuration.
//
// This package defines the configuration structure and validation:
//
//   - spec.go: Config struct definition
//   - default.go: Default configuration values
//   - verify.go: Range checks on loaded values
//   - load.go: Layered loading through internal/infra/confloader
//
// Sources, lowest priority first: defaults, YAML file, PTBMIGRATE_*
// environment variables, explicitly set command-line flags.
package config
