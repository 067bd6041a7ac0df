// Package confloader provides configuration loading mechanism.
//
// This package implements a layered configuration loader on top of
// koanf.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags that were set explicitly)
//  2. Environment variables
//  3. Configuration file (YAML)
//  4. Values already present in the target struct
//
// Each layer is loaded on its own and merged over the previous ones, so
// Settings can report where every effective value came from.
package confloader
