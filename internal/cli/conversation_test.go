package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/testutil"
)

func threeStep() []message.Message {
	return testutil.Messages(
		testutil.Msg("M1", "EndpointA@Host1").
			Processed(testutil.At(time.Second), 10*time.Millisecond),
		testutil.Msg("M2", "EndpointB@Host2").From("EndpointA@Host1").RelatedTo("M1").
			Sent(testutil.At(1500*time.Millisecond)).
			Processed(testutil.At(2*time.Second), 20*time.Millisecond),
		testutil.Msg("M3", "EndpointB@Host2").From("EndpointB@Host2").RelatedTo("M2").Version("7.2.0").
			Sent(testutil.At(2500*time.Millisecond)).
			Processed(testutil.At(3*time.Second), 30*time.Millisecond),
	)
}

func writeMessages(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "conversation.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

type conversationEnvelope struct {
	Status string             `json:"status"`
	Data   ConversationResult `json:"data"`
	Error  *CLIError          `json:"error"`
}

func decodeConversation(t *testing.T, out string) conversationEnvelope {
	t.Helper()
	var env conversationEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func TestRenderConversation_Golden(t *testing.T) {
	model, err := sequence.Build(threeStep())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderConversation(&buf, ConversationResult{
		ConversationID: "conv-1",
		Source:         "file:conversation.json",
		ModelView:      model.View(),
	}))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "conversation_three_step", buf.Bytes())
}

func TestRenderConversation_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderConversation(&buf, ConversationResult{ConversationID: "c", Source: "s"}))
	assert.Contains(t, buf.String(), "=== Routes ===\n  (none)\n")
}

func TestConversation_FromFile(t *testing.T) {
	path := writeMessages(t, threeStep())

	out, _, err := execute(t, "--format", "json", "conversation", "--file", path)
	require.NoError(t, err)

	env := decodeConversation(t, out)
	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, "conv-1", env.Data.ConversationID)
	assert.Equal(t, "file:"+path, env.Data.Source)
	assert.Equal(t, 3, env.Data.Stats.Messages)
	require.Len(t, env.Data.Routes, 3)
	assert.Equal(t, sequence.Local, env.Data.Routes[2].Type)
	assert.Equal(t, []string{"M2@EndpointB"}, env.Data.Handlers[0].Outgoing)
}

func TestConversation_FileShapes(t *testing.T) {
	msgs := threeStep()

	for name, v := range map[string]any{
		"array":    msgs,
		"messages": map[string]any{"messages": msgs},
		"envelope": map[string]any{"status": "ok", "data": map[string]any{"messages": msgs}},
	} {
		t.Run(name, func(t *testing.T) {
			loaded, err := loadMessagesFile(writeMessages(t, v))
			require.NoError(t, err)
			require.Len(t, loaded, 3)
			assert.Equal(t, "M3", loaded[2].ID)
			assert.Equal(t, "7.2.0", loaded[2].Version())
		})
	}
}

func TestConversation_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, stderr, err := execute(t, "conversation", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E_INPUT]")
}

func TestConversation_RequiresID(t *testing.T) {
	_, _, err := execute(t, "conversation")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConversation_SourcesAreExclusive(t *testing.T) {
	_, _, err := execute(t, "conversation", "c", "--file", "x.json", "--latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestConversation_StructuralError(t *testing.T) {
	path := writeMessages(t, testutil.Messages(
		testutil.Msg("M1", "A"),
		testutil.Msg("M2", "B").From("A").RelatedTo("M1"),
		testutil.Msg("M2", "B").From("A").RelatedTo("M1"),
	))

	out, _, err := execute(t, "--format", "json", "conversation", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decodeConversation(t, out)
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeStructural, env.Error.Code)
	assert.Contains(t, env.Error.Message, "DUPLICATE_INCOMING")
}

func TestConversation_SaveThenLatest(t *testing.T) {
	path := writeMessages(t, threeStep())
	db := filepath.Join(t.TempDir(), "busscope.db")

	out, _, err := execute(t, "--format", "json", "conversation", "conv-1", "--file", path, "--save", "--db", db)
	require.NoError(t, err)
	saved := decodeConversation(t, out)
	require.NotEmpty(t, saved.Data.SnapshotID)

	out, _, err = execute(t, "--format", "json", "conversation", "conv-1", "--latest", "--db", db)
	require.NoError(t, err)
	latest := decodeConversation(t, out)
	assert.Equal(t, saved.Data.SnapshotID, latest.Data.SnapshotID)
	assert.Equal(t, "snapshot", latest.Data.Source)
	assert.Equal(t, saved.Data.Routes, latest.Data.Routes)

	out, _, err = execute(t, "--format", "json", "conversation", "--snapshot", saved.Data.SnapshotID, "--db", db)
	require.NoError(t, err)
	bySnapshot := decodeConversation(t, out)
	assert.Equal(t, "conv-1", bySnapshot.Data.ConversationID)
	assert.Equal(t, saved.Data.Handlers, bySnapshot.Data.Handlers)

	out, _, err = execute(t, "snapshots", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "conv-1 3 messages")
}

func TestConversation_LatestNotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "busscope.db")

	_, stderr, err := execute(t, "conversation", "nope", "--latest", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E_NOT_FOUND]")
}

func TestConversation_SnapshotNeedsDatabase(t *testing.T) {
	_, stderr, err := execute(t, "conversation", "--snapshot", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "snapshot database is required")
}

const upstreamConversation = `[
  {
    "id": "audit-1",
    "message_id": "S1",
    "message_type": "Shop.Sales.PlaceOrder, Shop.Sales",
    "receiving_endpoint": {"name": "Sales", "host": "h1", "host_id": "id-h1"},
    "processed_at": "2025-03-01T10:00:01Z",
    "processing_time": "00:00:00.0250000",
    "conversation_id": "conv-9",
    "status": "successful",
    "message_intent": "Send",
    "headers": []
  },
  {
    "id": "audit-2",
    "message_id": "E1",
    "message_type": "Shop.Sales.OrderPlaced, Shop.Sales",
    "sending_endpoint": {"name": "Sales", "host": "h1", "host_id": "id-h1"},
    "receiving_endpoint": {"name": "Billing", "host": "h2", "host_id": "id-h2"},
    "time_sent": "2025-03-01T10:00:01.5Z",
    "processed_at": "2025-03-01T10:00:02Z",
    "processing_time": "00:00:00.0100000",
    "conversation_id": "conv-9",
    "status": "successful",
    "message_intent": "Publish",
    "headers": [{"key": "NServiceBus.RelatedTo", "value": "S1"}]
  }
]`

func TestConversation_FromService(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations/conv-9" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamConversation))
	}))
	defer srv.Close()

	out, _, err := execute(t, "--url", srv.URL+"/api", "conversation", "conv-9")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "page=1")
	assert.Contains(t, gotQuery, "per_page=100")
	assert.Contains(t, out, "Conversation: conv-9")
	assert.Contains(t, out, "  PlaceOrder(S1) [Command] (external) -> S1@Sales\n")
	assert.Contains(t, out, "  OrderPlaced(E1) [Event] S1@Sales -> E1@Billing\n")
}

func TestConversation_ServiceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, stderr, err := execute(t, "--url", srv.URL+"/api", "conversation", "conv-9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E_NOT_FOUND]")
}
