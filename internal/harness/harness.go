package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/store"
	"github.com/roach88/busscope/internal/testutil"
)

// Harness executes scenarios against a private snapshot store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// messages are saved as a snapshot and read back before the model is
// built, so the stored form is what gets reconstructed.
//
// A returned error means the scenario could not be executed at all;
// expectation mismatches are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClockAt(testutil.Epoch, time.Millisecond)
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("fetch")),
		store.WithClock(clock.Next),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	msgs := scenario.BuildMessages()

	saved, err := h.store.SaveSnapshot(ctx, scenario.ConversationID, "scenario:"+scenario.Name, msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	_, loaded, err := h.store.LoadSnapshot(ctx, saved.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(loaded) != len(msgs) {
		return nil, fmt.Errorf("snapshot round trip lost messages: saved %d, loaded %d", len(msgs), len(loaded))
	}

	result := NewResult()
	model, err := sequence.Build(loaded)
	if err != nil {
		var me *sequence.ModelError
		if !errors.As(err, &me) {
			return nil, fmt.Errorf("failed to build model: %w", err)
		}
		result.ErrorCode = string(me.Code)
		h.logger.Info("scenario rejected", "scenario", scenario.Name, "code", me.Code)
	} else {
		fillResult(result, model)
		h.logger.Info("scenario built",
			"scenario", scenario.Name,
			"handlers", len(result.Handlers),
			"routes", len(result.Trace),
		)
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// fillResult copies the parts of the model the expectations look at.
func fillResult(r *Result, m *sequence.Model) {
	view := m.View()
	for _, h := range view.Handlers {
		r.Handlers = append(r.Handlers, h.Key)
	}
	for _, e := range view.Endpoints {
		r.Endpoints = append(r.Endpoints, e.Name)
	}
	for i, rt := range view.Routes {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:     i + 1,
			Route:   rt.Name,
			Message: rt.MessageID,
			Type:    rt.Type.String(),
			From:    rt.From,
			To:      rt.To,
		})
	}
	r.Orphans = view.Stats.OrphanRoots
}
