package headers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_PrefixAndCaseInsensitive(t *testing.T) {
	h := New([]KeyValue{
		{Key: "NServiceBus.RelatedTo", Value: "msg-1"},
		{Key: "version", Value: "1.2.3"},
		{Key: "ExceptionInfo.StackTrace", Value: "at Foo()"},
	})

	tests := []struct {
		key  string
		want string
	}{
		{"RelatedTo", "msg-1"},
		{"relatedto", "msg-1"},
		{"NServiceBus.RelatedTo", "msg-1"},
		{"nservicebus.relatedto", "msg-1"},
		{"Version", "1.2.3"},
		{"NServiceBus.Version", "1.2.3"},
		{"ExceptionInfo.StackTrace", "at Foo()"},
		{"exceptioninfo.stacktrace", "at Foo()"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := h.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGet_Default(t *testing.T) {
	h := New([]KeyValue{{Key: "A", Value: "1"}})

	assert.Equal(t, "fallback", h.Get("Missing", "fallback"))
	assert.Equal(t, "", h.Get("Missing", ""))
	assert.Equal(t, "1", h.Get("a", "fallback"))

	_, ok := h.Lookup("Missing")
	assert.False(t, ok)
}

func TestGet_FirstDuplicateWins(t *testing.T) {
	h := New([]KeyValue{
		{Key: "RelatedTo", Value: "first"},
		{Key: "NServiceBus.RelatedTo", Value: "second"},
		{Key: "RELATEDTO", Value: "third"},
	})

	assert.Equal(t, "first", h.Get(RelatedTo, ""))
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"RelatedTo", "NServiceBus.RelatedTo", "RELATEDTO"}, h.Keys())
}

func TestBool_MalformedIsFalse(t *testing.T) {
	tests := []struct {
		name  string
		pairs []KeyValue
		want  bool
	}{
		{"exact true", []KeyValue{{Key: IsSagaTimeout, Value: "true"}}, true},
		{"prefixed true", []KeyValue{{Key: "NServiceBus.IsSagaTimeoutMessage", Value: "true"}}, true},
		{"false", []KeyValue{{Key: IsSagaTimeout, Value: "false"}}, false},
		{"capitalized", []KeyValue{{Key: IsSagaTimeout, Value: "True"}}, false},
		{"garbage", []KeyValue{{Key: IsSagaTimeout, Value: "yes please"}}, false},
		{"absent", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.pairs).Bool(IsSagaTimeout))
		})
	}
}

func TestZeroValue(t *testing.T) {
	var h Headers

	assert.False(t, h.Has(RelatedTo))
	assert.Equal(t, "x", h.Get(RelatedTo, "x"))
	assert.Empty(t, h.Keys())
	assert.Empty(t, h.Resolve())
}

func TestResolve_KnownKeysOnly(t *testing.T) {
	h := New([]KeyValue{
		{Key: "NServiceBus.Version", Value: "2.0"},
		{Key: "NServiceBus.ConversationId", Value: "conv-1"},
		{Key: "Custom.Header", Value: "ignored"},
	})

	resolved := h.Resolve()
	assert.Equal(t, map[string]string{
		Version:        "2.0",
		ConversationID: "conv-1",
	}, resolved)
	assert.True(t, h.Has("Custom.Header"))
}

func TestFromMap_SortedPairs(t *testing.T) {
	h := FromMap(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []string{"a", "b"}, h.Keys())
}

func TestJSON_RoundTripPreservesOrder(t *testing.T) {
	raw := `[{"key":"Z","value":"1"},{"key":"A","value":"2"}]`

	var h Headers
	require.NoError(t, json.Unmarshal([]byte(raw), &h))
	assert.Equal(t, "2", h.Get("a", ""))

	out, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}
