// Package main provides the entry point for ptb-migrate.
//
// ptb-migrate converts the PicklePersistence files of a
// python-telegram-bot v13 bot so that v20 can load them:
//
//	ptb-migrate convert path/to/persistence
//	ptb-migrate inspect path/to/persistence
//	ptb-migrate -o json convert --dry-run path/to/persistence
//
// Each file is copied aside before it is overwritten.
package main
