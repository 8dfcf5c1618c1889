package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestRun_ThreeStepConversation(t *testing.T) {
	s := &Scenario{
		Name:           "three_step",
		Description:    "command, command, local",
		ConversationID: DefaultConversationID,
		Messages: []MessageSpec{
			{ID: "M1", To: "EndpointA@Host1", Processed: time.Second},
			{ID: "M2", From: "EndpointA@Host1", To: "EndpointB@Host2", RelatedTo: "M1", Processed: 2 * time.Second},
			{ID: "M3", From: "EndpointB@Host2", To: "EndpointB@Host2", RelatedTo: "M2", Processed: 3 * time.Second},
		},
		Expect: Expect{
			Handlers:  []string{"M1@EndpointA", "M2@EndpointB", "M3@EndpointB"},
			Endpoints: []string{"EndpointA", "EndpointB"},
			Arrows:    map[string]string{"M1": "Command", "M3": "Local"},
			Routes:    []string{"(external) -> M1@EndpointA", "M2@EndpointB->M3@EndpointB"},
			Orphans:   intPtr(0),
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.ErrorCode)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Seq: 1, Route: "M1(M1)", Message: "M1", Type: "Command", To: "M1@EndpointA"}, result.Trace[0])
	assert.Equal(t, "M2@EndpointB", result.Trace[2].From)
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := &Scenario{
		Name:           "mismatch",
		Description:    "wrong expectations",
		ConversationID: DefaultConversationID,
		Messages: []MessageSpec{
			{ID: "M1", To: "A", Processed: time.Second},
			{ID: "M2", From: "A", To: "B", RelatedTo: "M1", Processed: 2 * time.Second},
		},
		Expect: Expect{
			Handlers: []string{"M2@B", "M1@A"},
			Arrows:   map[string]string{"M2": "Event"},
			Orphans:  intPtr(1),
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "handlers")
	assert.Contains(t, result.Errors[1], "Event arrow for M2")
	assert.Contains(t, result.Errors[2], "1 orphan roots")
}

func TestRun_StructuralError(t *testing.T) {
	s := &Scenario{
		Name:           "dup",
		Description:    "same handler twice",
		ConversationID: DefaultConversationID,
		Messages: []MessageSpec{
			{ID: "M1", To: "A"},
			{ID: "M2", From: "A", To: "B", RelatedTo: "M1", Processed: time.Second},
			{ID: "M2", From: "A", To: "B", RelatedTo: "M1", Processed: 2 * time.Second},
		},
		Expect: Expect{Error: "DUPLICATE_INCOMING"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "DUPLICATE_INCOMING", result.ErrorCode)
	assert.Empty(t, result.Handlers)
	assert.Empty(t, result.Trace)
}

func TestRun_UnexpectedStructuralError(t *testing.T) {
	s := &Scenario{
		Name:           "dup_unexpected",
		Description:    "rejection nobody asked for",
		ConversationID: DefaultConversationID,
		Messages: []MessageSpec{
			{ID: "M1", To: "A"},
			{ID: "M2", From: "A", To: "B", RelatedTo: "M1"},
			{ID: "M2", From: "A", To: "B", RelatedTo: "M1"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rejected with DUPLICATE_INCOMING")
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/saga_timeout.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
