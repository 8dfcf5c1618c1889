package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under the project testdata and compares
// each against testdata/golden. Regenerate with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "file name and scenario name should agree")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "expectations failed:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestScenarios_SagaTimeoutShape(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/saga_timeout.yaml")
	require.NoError(t, err)
	assert.Equal(t, "conv-42", scenario.ConversationID)

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Trace, 4)
	timeout := result.Trace[2]
	assert.Equal(t, "T1", timeout.Message)
	assert.Equal(t, "Timeout", timeout.Type)
	assert.Equal(t, "E1@Shipping", timeout.From)
	assert.Equal(t, "ShippingPolicy.Expired(T1)", timeout.Route)
}
