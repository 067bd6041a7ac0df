// Package domain defines the core domain models for ptb-migrate.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - FileReport and RunReport: results of a conversion run
//   - Run IDs: ULID based identifiers attached to logs and reports
//   - Errors: coded DomainError definitions shared by all layers
package domain
