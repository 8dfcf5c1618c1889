package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// External labels an arrow without a sending handler in route expectations.
const External = "(external)"

// AssertionError is returned when an expectation fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Expectation kind for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, formatRoute(ev))
		}
	}
	return buf.String()
}

// EvaluateExpectations checks every set expectation and returns one
// message per failure.
func EvaluateExpectations(r *Result, exp Expect) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	add(assertError(r, exp))
	if r.ErrorCode != "" {
		// Nothing else to compare against a rejected model.
		return errs
	}

	if exp.Handlers != nil {
		add(assertSequence(r, "handlers", exp.Handlers, r.Handlers))
	}
	if exp.Endpoints != nil {
		add(assertSequence(r, "endpoints", exp.Endpoints, r.Endpoints))
	}
	add(assertArrows(r, exp.Arrows))
	add(assertRoutes(r, exp.Routes))
	if exp.Orphans != nil && *exp.Orphans != r.Orphans {
		add(&AssertionError{
			Type:     "orphans",
			Expected: fmt.Sprintf("%d orphan roots", *exp.Orphans),
			Actual:   fmt.Sprintf("%d orphan roots", r.Orphans),
		})
	}
	return errs
}

func assertError(r *Result, exp Expect) error {
	switch {
	case exp.Error == "" && r.ErrorCode == "":
		return nil
	case exp.Error == r.ErrorCode:
		return nil
	case exp.Error == "":
		return &AssertionError{Type: "error", Expected: "a consistent model", Actual: "rejected with " + r.ErrorCode}
	case r.ErrorCode == "":
		return &AssertionError{Type: "error", Expected: "rejection with " + exp.Error, Actual: "a consistent model", Trace: r.Trace}
	}
	return &AssertionError{Type: "error", Expected: "rejection with " + exp.Error, Actual: "rejected with " + r.ErrorCode}
}

func assertSequence(r *Result, kind string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    r.Trace,
	}
}

// assertArrows checks the type of every arrow carrying each listed
// message. Message ids are checked in sorted order for stable output.
func assertArrows(r *Result, want map[string]string) error {
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		found := false
		for _, ev := range r.Trace {
			if ev.Message != id {
				continue
			}
			found = true
			if ev.Type != want[id] {
				return &AssertionError{
					Type:     "arrows",
					Expected: fmt.Sprintf("%s arrow for %s", want[id], id),
					Actual:   fmt.Sprintf("%s arrow to %s", ev.Type, ev.To),
					Trace:    r.Trace,
				}
			}
		}
		if !found {
			return &AssertionError{
				Type:     "arrows",
				Expected: fmt.Sprintf("an arrow carrying %s", id),
				Actual:   "not found in trace",
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

func assertRoutes(r *Result, want []string) error {
	have := make(map[string]bool, len(r.Trace))
	for _, ev := range r.Trace {
		have[routeKey(ev)] = true
	}
	for _, w := range want {
		if !have[normalizeRoute(w)] {
			return &AssertionError{
				Type:     "routes",
				Expected: "route " + w,
				Actual:   "not found in trace",
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

func routeKey(ev TraceEvent) string {
	from := ev.From
	if from == "" {
		from = External
	}
	return from + " -> " + ev.To
}

// normalizeRoute tolerates extra spaces around the arrow.
func normalizeRoute(s string) string {
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(from) + " -> " + strings.TrimSpace(to)
}

func formatRoute(ev TraceEvent) string {
	return fmt.Sprintf("%s [%s] %s", ev.Route, ev.Type, routeKey(ev))
}
