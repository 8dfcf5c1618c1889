package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/testutil"
)

// createTestStore creates a store in a temp dir with sequential fetch ids
// and a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewDeterministicClockAt(testutil.Epoch, time.Millisecond)
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDGenerator("fetch")),
		WithClock(clock.Next),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestConversation returns a three message conversation.
func createTestConversation() []message.Message {
	return testutil.Messages(
		testutil.Msg("M1", "Sales@host1").
			Processed(testutil.At(time.Second), 5*time.Millisecond),
		testutil.Msg("M2", "Billing@host2").
			From("Sales@host1").
			RelatedTo("M1").
			Sent(testutil.At(1500*time.Millisecond)).
			Processed(testutil.At(2*time.Second), 7*time.Millisecond),
		testutil.Msg("M3", "Billing@host2").
			From("Billing@host2").
			RelatedTo("M2").
			Timeout(),
	)
}
