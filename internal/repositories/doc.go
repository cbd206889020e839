// Package repositories implements SQLite persistence for domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [AccountRepository] : Account persistence keyed by external identity, with session-token lookups
//
// Sequence numbers provide stable, human-readable ordering (e.g., account #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
