// Package buildinfo provides build information for ptb-migrate.
//
// Values are injected at build time via ldflags:
//
//   - Version: Semantic version (e.g., "v1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//
// GoVersion defaults to the version of the running toolchain.
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/ptb-migrate/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
