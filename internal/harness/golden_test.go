package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	s := &Scenario{Name: "snap", ConversationID: "conv-7"}
	r := sampleResult()
	r.Orphans = 1

	data, err := Snapshot(s, r)
	require.NoError(t, err)

	want := `{"conversation_id":"conv-7","endpoints":["A","B"],"handlers":["M1@A","M2@B"],"orphans":1,"scenario_name":"snap",` +
		`"trace":[{"message":"M1","route":"M1(M1)","seq":1,"to":"M1@A","type":"Command"},` +
		`{"from":"M1@A","message":"M2","route":"M2(M2)","seq":2,"to":"M2@B","type":"Event"}]}` + "\n"
	assert.Equal(t, want, string(data))
}

func TestSnapshot_ErrorCode(t *testing.T) {
	r := NewResult()
	r.ErrorCode = "DUPLICATE_INCOMING"

	data, err := Snapshot(&Scenario{Name: "e", ConversationID: "c"}, r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error_code":"DUPLICATE_INCOMING"`)
	assert.Contains(t, string(data), `"trace":[]`)
}

func TestSnapshot_ExcludesErrors(t *testing.T) {
	r := sampleResult()
	r.AddError("mismatch")

	data, err := Snapshot(&Scenario{Name: "x", ConversationID: "c"}, r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mismatch")
	assert.NotContains(t, string(data), "pass")
}
