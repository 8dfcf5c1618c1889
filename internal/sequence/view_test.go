package sequence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelView(t *testing.T) {
	model, err := Build(threeStepConversation())
	require.NoError(t, err)

	v := model.View()

	require.Len(t, v.Endpoints, 2)
	assert.Equal(t, EndpointView{
		Name:     "EndpointB",
		Hosts:    "Host2",
		HostIDs:  "id-Host2",
		Versions: "7.2.0",
		Handlers: []string{"M2@EndpointB", "M3@EndpointB"},
	}, v.Endpoints[1])

	require.Len(t, v.Handlers, 3)
	assert.Equal(t, "M1@EndpointA", v.Handlers[0].Key)
	assert.Equal(t, []string{"M2@EndpointB"}, v.Handlers[0].Outgoing)
	assert.Equal(t, "M1", v.Handlers[0].Incoming)
	assert.Equal(t, 10.0, v.Handlers[0].ProcessingTimeMS)

	require.Len(t, v.Routes, 3)
	assert.Equal(t, RouteView{
		Name:      "M3(M3)",
		MessageID: "M3",
		Message:   "M3",
		Type:      Local,
		From:      "M2@EndpointB",
		To:        "M3@EndpointB",
	}, v.Routes[2])
	assert.Empty(t, v.Routes[0].From)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Local"`)
	assert.Contains(t, string(data), `"type":"Command"`)
}
