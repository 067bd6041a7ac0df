// Package service provides the conversion services of ptb-migrate.
//
// Services orchestrate the storage layer and the migrate package. They
// define interfaces for their storage dependencies so tests can run
// against in-memory fakes.
//
// This package contains:
//
//   - Converter: locate, back up, migrate and atomically rewrite the
//     persistence files of one base path
//   - Inspector: report the classes, legacy fields and placeholders a
//     conversion would touch, without writing anything
package service
