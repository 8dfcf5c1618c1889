// Package message defines the audited message model consumed by the
// reconstruction core.
//
// Messages are immutable snapshots of what the monitoring service recorded:
// who sent them, who processed them, when, and with which headers. This
// package imports nothing internal except headers, so every other package
// can depend on it.
//
// Key conventions:
//   - A zero time.Time means the timestamp was absent
//   - SendingEndpoint is nil for messages with no recorded sender
//   - JSON tags use snake_case; durations encode as nanoseconds
//
// Snapshot identity is content-addressed: SnapshotID hashes the canonical
// JSON form of a conversation's messages with domain separation, so the
// same set of messages always yields the same id.
package message
