package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busscope/internal/testutil"
)

func TestTryRegister_Dedup(t *testing.T) {
	endpoints := NewEndpointRegistry()
	sales := endpoints.ResolveOrCreate("Sales", "h", "h", "")
	billing := endpoints.ResolveOrCreate("Billing", "h", "h", "")
	r := NewHandlerRegistry()

	first, created := r.TryRegister(&Handler{ID: "M1", Endpoint: sales})
	require.True(t, created)

	again, created := r.TryRegister(&Handler{ID: "M1", Endpoint: sales})
	assert.False(t, created)
	assert.Same(t, first, again)

	other, created := r.TryRegister(&Handler{ID: "M1", Endpoint: billing})
	assert.True(t, created)
	assert.NotSame(t, first, other)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []*Handler{first}, sales.Handlers())
	assert.Equal(t, []*Handler{other}, billing.Handlers())
}

func TestSetIncoming_SecondArrowFails(t *testing.T) {
	h := &Handler{ID: "M2", Endpoint: &EndpointIdentity{Name: "Sales"}}
	m1 := testutil.Msg("M2", "Sales").Build()
	m2 := testutil.Msg("M2", "Sales").Build()
	first := &Arrow{Message: &m1, To: h}
	second := &Arrow{Message: &m2, To: h}

	require.NoError(t, h.SetIncoming(first))

	err := h.SetIncoming(second)
	require.Error(t, err)
	assert.True(t, IsStructuralError(err))
	assert.True(t, IsDuplicateIncomingError(err))
	assert.Same(t, first, h.Incoming())

	var me *ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "M2", me.HandlerID)
	assert.Equal(t, "Sales", me.Endpoint)
	assert.Contains(t, err.Error(), "DUPLICATE_INCOMING")
}

func TestUpdateEstimate_KeepsMinimum(t *testing.T) {
	h := &Handler{ID: "M1"}

	h.UpdateEstimate(time.Time{})
	assert.True(t, h.EstimatedProcessedAt.IsZero())

	h.UpdateEstimate(testutil.At(5 * time.Second))
	h.UpdateEstimate(testutil.At(3 * time.Second))
	h.UpdateEstimate(testutil.At(9 * time.Second))
	assert.Equal(t, testutil.At(3*time.Second), h.EstimatedProcessedAt)
}

func TestHandledAt_Fallbacks(t *testing.T) {
	h := &Handler{}
	assert.True(t, h.HandledAt().IsZero())

	h.EstimatedProcessedAt = testutil.At(time.Second)
	assert.Equal(t, testutil.At(time.Second), h.HandledAt())

	h.ProcessedAt = testutil.At(2 * time.Second)
	assert.Equal(t, testutil.At(2*time.Second), h.HandledAt())
}

func TestArrowType_Text(t *testing.T) {
	for _, at := range []ArrowType{Command, Event, Local, Timeout} {
		text, err := at.MarshalText()
		require.NoError(t, err)

		var back ArrowType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, at, back)
	}
	assert.Equal(t, "ArrowType(9)", ArrowType(9).String())

	_, err := ParseArrowType("Reply")
	assert.Error(t, err)
}
