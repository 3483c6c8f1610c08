package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: "Registers a garden"
flow:
  - invoke: Garden.register
    caller: gale
    args: { location: bed, mulch_type: pine, initial_depth: 50, application_date: 1, garden_size: 10 }
    expect:
      case: Success
assertions:
  - type: trace_count
    action: Garden.register
    count: 1
`

func TestLoadScenario_Minimal(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "minimal.yaml", minimalScenario)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, "Garden.register", s.Flow[0].Invoke)
	assert.Equal(t, 50, s.Flow[0].Args["initial_depth"])
	assert.Equal(t, "Success", s.Flow[0].Expect.Case)
}

func TestLoadScenario_ResolvesConfigRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.cue"), []byte(`admin: "root"`), 0o644))
	path := writeScenario(t, dir, "s.yaml", "config: ledger.cue\n"+minimalScenario)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ledger.cue"), s.Config)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", minimalScenario+"assertion: []\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Flow:        []FlowStep{{Invoke: "Garden.get", Args: map[string]any{}}},
			Assertions:  []Assertion{{Type: AssertTraceCount, Action: "Garden.get"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"empty flow", func(s *Scenario) { s.Flow = nil }, "flow list is required"},
		{"empty assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"bad action", func(s *Scenario) { s.Flow[0].Invoke = "register" }, `invalid action "register"`},
		{"nil args", func(s *Scenario) { s.Flow[0].Args = nil }, "args is required"},
		{"negative height", func(s *Scenario) { s.Flow[0].Height = -1 }, "height must be non-negative"},
		{"empty expect", func(s *Scenario) { s.Flow[0].Expect = &ExpectClause{} }, "case or error is required"},
		{"setup bad action", func(s *Scenario) {
			s.Setup = []ActionStep{{Action: "", Args: map[string]any{}}}
		}, "setup[0]: invalid action"},
		{"missing config", func(s *Scenario) { s.Config = "/does/not/exist.cue" }, "config file not found"},
		{"unknown assertion", func(s *Scenario) { s.Assertions[0].Type = "trace_magic" }, "unknown assertion type"},
		{"order without actions", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertTraceOrder}
		}, "actions list is required"},
		{"final_state without expect", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertFinalState, Table: "gardens"}
		}, "expect is required"},
		{"negative count", func(s *Scenario) { s.Assertions[0].Count = -1 }, "count must be non-negative"},
	}

	require.NoError(t, validateScenario(valid()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
