// Package store provides SQLite-backed storage for conversation snapshots.
//
// A snapshot is the full message list of one conversation as fetched from
// the monitoring service. Snapshots are content-addressed (see
// message.SnapshotID), so refetching an unchanged conversation adds only a
// fetch record. Stored snapshots can be reconstructed offline.
//
// Tables:
//   - snapshots: one row per distinct message set
//   - snapshot_messages: the JSON-encoded messages of each snapshot
//   - fetches: one row per save, keyed by UUIDv7
//
// # Deterministic Query Results
//
// Every read has an explicit ORDER BY with an id tie-breaker.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
