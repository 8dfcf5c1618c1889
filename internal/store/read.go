package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/busscope/internal/message"
)

// Snapshot describes one stored message set.
type Snapshot struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Fetch records one save of a snapshot.
type Fetch struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// LoadSnapshot returns a snapshot and its messages in saved order.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (Snapshot, []message.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, message_count, created_at
		FROM snapshots
		WHERE id = ?
	`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	msgs, err := s.readMessages(ctx, id)
	if err != nil {
		return Snapshot{}, nil, err
	}
	return snap, msgs, nil
}

// LatestSnapshot returns the most recently fetched snapshot of a
// conversation. Returns sql.ErrNoRows (wrapped) if none exists.
func (s *Store) LatestSnapshot(ctx context.Context, conversationID string) (Snapshot, []message.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.conversation_id, s.message_count, s.created_at
		FROM snapshots s
		JOIN fetches f ON f.snapshot_id = s.id
		WHERE s.conversation_id = ?
		ORDER BY f.fetched_at DESC, f.id COLLATE BINARY DESC
		LIMIT 1
	`, conversationID)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("latest snapshot for %s: %w", conversationID, err)
	}

	msgs, err := s.readMessages(ctx, snap.ID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	return snap, msgs, nil
}

// ListSnapshots returns snapshots ordered by creation, oldest first. An
// empty conversationID lists every conversation.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListSnapshots(ctx context.Context, conversationID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, message_count, created_at
		FROM snapshots
		WHERE ? = '' OR conversation_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, conversationID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// ListFetches returns the fetches of one snapshot, oldest first.
func (s *Store) ListFetches(ctx context.Context, snapshotID string) ([]Fetch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, snapshot_id, source, fetched_at
		FROM fetches
		WHERE snapshot_id = ?
		ORDER BY fetched_at ASC, id COLLATE BINARY ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	fetches := []Fetch{}
	for rows.Next() {
		var (
			f         Fetch
			fetchedAt string
		)
		if err := rows.Scan(&f.ID, &f.SnapshotID, &f.Source, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		if f.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, fmt.Errorf("parse fetched_at: %w", err)
		}
		fetches = append(fetches, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetches: %w", err)
	}
	return fetches, nil
}

func (s *Store) readMessages(ctx context.Context, snapshotID string) ([]message.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM snapshot_messages
		WHERE snapshot_id = ?
		ORDER BY seq ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot messages: %w", err)
	}
	defer rows.Close()

	msgs := []message.Message{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot message: %w", err)
		}
		var m message.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot messages: %w", err)
	}
	return msgs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var (
		snap      Snapshot
		createdAt string
	)
	if err := row.Scan(&snap.ID, &snap.ConversationID, &snap.MessageCount, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse created_at: %w", err)
	}
	snap.CreatedAt = t
	return snap, nil
}
