package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/testutil"
)

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: minimal
description: one message
messages:
  - id: M1
    to: A@h1
`))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, DefaultConversationID, s.ConversationID)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "A@h1", s.Messages[0].To)
	assert.Nil(t, s.Expect.Orphans)
}

func TestParseScenario_Durations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: durations
description: offsets parse as durations
messages:
  - id: M1
    to: A
    sent: 1500ms
    processed: 2s
    processing_time: 20ms
expect:
  orphans: 0
`))
	require.NoError(t, err)

	m := s.Messages[0]
	assert.Equal(t, 1500*time.Millisecond, m.Sent)
	assert.Equal(t, 2*time.Second, m.Processed)
	assert.Equal(t, 20*time.Millisecond, m.ProcessingTime)
	require.NotNil(t, s.Expect.Orphans)
	assert.Equal(t, 0, *s.Expect.Orphans)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: misspelled field
messages:
  - id: M1
    to: A
    relatedto: M0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nmessages: [{id: M1, to: A}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nmessages: [{id: M1, to: A}]\n",
			want: "description is required",
		},
		{
			name: "no messages",
			yaml: "name: n\ndescription: d\n",
			want: "messages list is required",
		},
		{
			name: "missing id",
			yaml: "name: n\ndescription: d\nmessages: [{to: A}]\n",
			want: "messages[0]: id is required",
		},
		{
			name: "missing receiver",
			yaml: "name: n\ndescription: d\nmessages: [{id: M1}]\n",
			want: "messages[0]: to is required",
		},
		{
			name: "negative offset",
			yaml: "name: n\ndescription: d\nmessages: [{id: M1, to: A, processed: -1s}]\n",
			want: "must not be negative",
		},
		{
			name: "unknown arrow type",
			yaml: "name: n\ndescription: d\nmessages: [{id: M1, to: A}]\nexpect: {arrows: {M1: Reply}}\n",
			want: "expect.arrows[M1]",
		},
		{
			name: "negative orphans",
			yaml: "name: n\ndescription: d\nmessages: [{id: M1, to: A}]\nexpect: {orphans: -1}\n",
			want: "expect.orphans",
		},
		{
			name: "error with handlers",
			yaml: "name: n\ndescription: d\nmessages: [{id: M1, to: A}]\nexpect: {error: DUPLICATE_INCOMING, handlers: [M1@A]}\n",
			want: "cannot be combined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_ReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: only\n"), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestBuildMessages(t *testing.T) {
	s := &Scenario{
		Name:           "build",
		Description:    "expansion",
		ConversationID: "conv-9",
		Messages: []MessageSpec{
			{
				ID:             "M2",
				To:             "B@h2",
				From:           "A@h1",
				RelatedTo:      "M1",
				Intent:         "publish",
				Version:        "8.0.1",
				Sent:           time.Second,
				Processed:      2 * time.Second,
				ProcessingTime: 5 * time.Millisecond,
				Headers:        map[string]string{"Z-Last": "z", "A-First": "a"},
			},
			{ID: "T1", To: "B", From: "B", Timeout: true, Type: "Shop.Policy+Expired, Shop"},
		},
	}

	msgs := s.BuildMessages()
	require.Len(t, msgs, 2)

	m := msgs[0]
	assert.Equal(t, "M2", m.ID)
	assert.Equal(t, "conv-9", m.ConversationID)
	assert.Equal(t, "B", m.ReceivingEndpoint.Name)
	assert.Equal(t, "h2", m.ReceivingEndpoint.Host)
	require.NotNil(t, m.SendingEndpoint)
	assert.Equal(t, "A", m.SendingEndpoint.Name)
	assert.Equal(t, message.IntentPublish, m.Intent)
	assert.Equal(t, "8.0.1", m.Version())
	parent, ok := m.RelatedTo()
	require.True(t, ok)
	assert.Equal(t, "M1", parent)
	assert.Equal(t, testutil.At(time.Second), m.TimeSent)
	assert.Equal(t, testutil.At(2*time.Second), m.ProcessedAt)
	assert.Equal(t, 5*time.Millisecond, m.ProcessingTime)
	assert.Equal(t, "a", m.Headers.Get("A-First", ""))
	assert.Equal(t, "z", m.Headers.Get("Z-Last", ""))

	timeout := msgs[1]
	assert.True(t, timeout.IsSagaTimeout())
	assert.Equal(t, "Policy.Expired", timeout.Name())
	assert.True(t, timeout.ProcessedAt.IsZero())
	assert.True(t, timeout.TimeSent.IsZero())
}
