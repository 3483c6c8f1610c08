package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent // full trace for context; nil for state assertions
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", i+1, event.Action, event.Args, completionCase(e.Trace, i))
			}
		}
	}
	return buf.String()
}

// completionCase returns the output case of the completion following the
// invocation at trace[i].
func completionCase(trace []TraceEvent, i int) string {
	if i+1 < len(trace) && trace[i+1].Type == EventCompletion {
		return trace[i+1].OutputCase
	}
	return ""
}

// matchInvocation reports whether trace[i] is an invocation of action
// that completed with outputCase (any case if empty).
func matchInvocation(trace []TraceEvent, i int, action, outputCase string) bool {
	event := trace[i]
	if event.Type != EventInvocation || event.Action != action {
		return false
	}
	return outputCase == "" || completionCase(trace, i) == outputCase
}

func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := convertArgsToIRObject(assertion.Args)
	if err != nil {
		return fmt.Errorf("trace_contains: invalid args: %w", err)
	}
	for i := range trace {
		if matchInvocation(trace, i, assertion.Action, assertion.OutputCase) && matchArgs(trace[i].Args, want) {
			return nil
		}
	}

	expected := fmt.Sprintf("action %s with args %v", assertion.Action, want)
	if assertion.OutputCase != "" {
		expected += " completing with " + assertion.OutputCase
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first invocations of the actions appear
// in the given order. Other actions may intervene.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for i := range trace {
		if matchInvocation(trace, i, assertion.Action, assertion.OutputCase) {
			count++
		}
	}
	if count != assertion.Count {
		what := assertion.Action
		if assertion.OutputCase != "" {
			what += " completing with " + assertion.OutputCase
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of the snapshot table
// matches Where and that it carries the Expect fields.
func assertFinalState(state ir.IRObject, assertion Assertion) error {
	table, ok := state[assertion.Table].(ir.IRArray)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state table %s", assertion.Table),
			Actual:   fmt.Sprintf("no such table (have %s)", strings.Join(tableNames(state), ", ")),
		}
	}
	where, err := convertArgsToIRObject(assertion.Where)
	if err != nil {
		return fmt.Errorf("final_state: invalid where: %w", err)
	}
	expect, err := convertArgsToIRObject(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: invalid expect: %w", err)
	}

	var matches []ir.IRObject
	for _, row := range table {
		if obj, ok := row.(ir.IRObject); ok && matchArgs(obj, where) {
			matches = append(matches, obj)
		}
	}
	switch len(matches) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhere(where)),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhere(where)),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(matches)),
		}
	}

	row := matches[0]
	for _, key := range expect.SortedKeys() {
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in row: %v", key, row.SortedKeys()),
			}
		}
		if !valuesEqual(actual, expect[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expect[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actual),
			}
		}
	}
	return nil
}

func tableNames(state ir.IRObject) []string {
	var names []string
	for k, v := range state {
		if _, ok := v.(ir.IRArray); ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func formatWhere(where ir.IRObject) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range where.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchArgs reports whether actual contains every expected field. Extra
// fields in actual are ignored.
func matchArgs(actual, expected ir.IRObject) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(actual, expected ir.IRValue) bool {
	return reflect.DeepEqual(actual, expected)
}

// EvaluateAssertions evaluates every assertion against the result's trace
// and final state and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
