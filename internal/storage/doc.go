// Package storage persists campaigns, conversation sessions and coach messages.
//
// Drivers:
//   - "memory": process-local maps (tests, dry runs)
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// Group sessions are created through EnsureGroupSession, a conditional create
// keyed by mode, so concurrent callers converge on one session per group tag.
package storage
