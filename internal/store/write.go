package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/busscope/internal/message"
)

// SaveResult describes the outcome of SaveSnapshot.
type SaveResult struct {
	SnapshotID string
	FetchID    string
	// Inserted is false when an identical snapshot was already stored.
	Inserted bool
}

// SaveSnapshot stores the messages of one conversation and records the
// fetch. Saving identical content again is a no-op apart from a new fetch
// row; the stored message order is the order of the first save.
func (s *Store) SaveSnapshot(ctx context.Context, conversationID, source string, msgs []message.Message) (SaveResult, error) {
	snapshotID, err := message.SnapshotID(conversationID, msgs)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: %w", err)
	}

	payloads := make([]string, len(msgs))
	for i, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return SaveResult{}, fmt.Errorf("save snapshot: marshal message %s: %w", m.ID, err)
		}
		payloads[i] = string(b)
	}

	now := formatTime(s.now())
	result := SaveResult{SnapshotID: snapshotID, FetchID: s.idGen.Generate()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, conversation_id, message_count, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, snapshotID, conversationID, len(msgs), now)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: insert snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: rows affected: %w", err)
	}
	result.Inserted = affected == 1

	if result.Inserted {
		for i, m := range msgs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO snapshot_messages (snapshot_id, seq, message_id, payload)
				VALUES (?, ?, ?, ?)
			`, snapshotID, i, m.ID, payloads[i]); err != nil {
				return SaveResult{}, fmt.Errorf("save snapshot: insert message %s: %w", m.ID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fetches (id, snapshot_id, source, fetched_at)
		VALUES (?, ?, ?, ?)
	`, result.FetchID, snapshotID, source, now); err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: insert fetch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: commit: %w", err)
	}
	return result, nil
}

// formatTime renders t for storage. Fixed-width nanoseconds keep text
// ordering equal to time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
