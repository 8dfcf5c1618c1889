package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/busscope/internal/message"
)

// Snapshot renders the comparable part of a result as canonical JSON
// followed by a newline. Errors are not included; they follow from the
// expectations, not the model.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"route":   ev.Route,
			"message": ev.Message,
			"type":    ev.Type,
			"to":      ev.To,
		}
		if ev.From != "" {
			m["from"] = ev.From
		}
		trace[i] = m
	}

	snap := map[string]any{
		"scenario_name":   scenario.Name,
		"conversation_id": scenario.ConversationID,
		"handlers":        toAny(result.Handlers),
		"endpoints":       toAny(result.Endpoints),
		"orphans":         result.Orphans,
		"trace":           trace,
	}
	if result.ErrorCode != "" {
		snap["error_code"] = result.ErrorCode
	}

	data, err := message.MarshalCanonical(snap)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// RunWithGolden executes a scenario and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
