// Package command provides the ptb-migrate command line.
//
// Commands are defined with urfave/cli/v2:
//
//   - root.go: application, global flags, error printing
//   - env.go: per-run configuration, logging, metrics and signals
//   - convert.go: in-place migration of a persistence
//   - locate.go: lists the files a conversion would touch
//   - inspect.go: read-only report on stored classes and legacy fields
//   - backup.go: lists and restores backups taken by convert
//   - config.go: effective configuration
//   - version.go: build information
//
// Each action loads configuration, calls a service and formats the
// result with the output package.
package command
