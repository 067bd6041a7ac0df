// Package output formats ptb-migrate command results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned columns, with wide mode for extra columns
//   - json.go: indented JSON
//   - yaml.go: YAML via gopkg.in/yaml.v3
//
// Table output is for people; json and yaml are stable for scripts.
package output
