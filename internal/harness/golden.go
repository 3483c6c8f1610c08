package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// GoldenDir is the fixture directory of golden traces, relative to a
// scenario directory.
const GoldenDir = "golden"

// TraceSnapshot is the golden form of a run: the scenario name, its flow
// token and the trace, serialized as canonical JSON.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	FlowToken    string       `json:"flow_token,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

func (s *TraceSnapshot) toIR() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		ev := ir.IRObject{
			"type":   ir.IRString(event.Type),
			"action": ir.IRString(event.Action),
			"seq":    ir.IRInt(event.Seq),
		}
		switch event.Type {
		case EventInvocation:
			ev["args"] = nonNilObject(event.Args)
			ev["height"] = ir.IRInt(event.Height)
			if event.Caller != "" {
				ev["caller"] = ir.IRString(event.Caller)
			}
			if event.Rule != "" {
				ev["rule"] = ir.IRString(event.Rule)
			}
		case EventCompletion:
			ev["output_case"] = ir.IRString(event.OutputCase)
			ev["result"] = nonNilObject(event.Result)
		}
		trace[i] = ev
	}

	out := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
	if s.FlowToken != "" {
		out["flow_token"] = ir.IRString(s.FlowToken)
	}
	return out
}

func nonNilObject(obj ir.IRObject) ir.IRObject {
	if obj == nil {
		return ir.IRObject{}
	}
	return obj
}

// MarshalTrace renders a run's trace in golden form.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		FlowToken:    scenario.FlowToken,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toIR())
}

// GoldenPath returns the golden file of a scenario file:
// <dir>/golden/<base>.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), GoldenDir, name+".golden")
}

// WriteGolden writes the run's trace as the scenario file's golden file.
func WriteGolden(scenarioFile string, scenario *Scenario, result *Result) error {
	data, err := MarshalTrace(scenario, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the run's trace matches the scenario
// file's golden file byte for byte.
func CompareGolden(scenarioFile string, scenario *Scenario, result *Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := MarshalTrace(scenario, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// RunWithGolden loads and runs the scenario file, fails the test on any
// expectation or assertion failure, and compares the trace with
// <dir>/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioFile string) *Result {
	t.Helper()

	scenario, err := LoadScenario(scenarioFile)
	if err != nil {
		t.Fatalf("load %s: %v", scenarioFile, err)
	}
	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run %s: %v", scenario.Name, err)
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%s", scenario.Name, strings.Join(result.Errors, "\n"))
	}
	AssertGolden(t, scenarioFile, scenario, result)
	return result
}

// AssertGolden compares an existing result's trace with the scenario
// file's golden file.
func AssertGolden(t *testing.T, scenarioFile string, scenario *Scenario, result *Result) {
	t.Helper()

	data, err := MarshalTrace(scenario, result)
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(GoldenPath(scenarioFile))),
		goldie.WithNameSuffix(".golden"),
	)
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))
	g.Assert(t, name, data)
}
