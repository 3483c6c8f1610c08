package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// Scenario drives one engine from genesis through setup and flow steps.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional CUE configuration file. LoadScenario resolves
	// it relative to the scenario file. Empty means the built-in defaults
	// with administrator "admin".
	Config string `yaml:"config,omitempty"`

	// Caller is the default caller of steps that name none.
	Caller string `yaml:"caller,omitempty"`

	// FlowToken is shared by every request of the run. Empty means
	// testutil.DefaultFlowToken.
	FlowToken string `yaml:"flow_token,omitempty"`

	// Setup steps establish state and must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow steps are checked against their expect clauses.
	Flow []FlowStep `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is a setup request.
type ActionStep struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args"`
	Caller string         `yaml:"caller,omitempty"`
	Height int64          `yaml:"height,omitempty"`
}

// FlowStep is a request whose completion is validated.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Args   map[string]any `yaml:"args"`
	Caller string         `yaml:"caller,omitempty"`
	Height int64          `yaml:"height,omitempty"`

	// Expect is optional; without it any completion is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause describes the expected completion of the submitted request.
type ExpectClause struct {
	// Case is the expected output case ("Success", "InsufficientPayment").
	Case string `yaml:"case,omitempty"`

	// Result is matched as a subset of the completion result.
	Result map[string]any `yaml:"result,omitempty"`

	// Error is an expected engine runtime error code, such as
	// CYCLE_DETECTED.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Args is matched as a subset by trace_contains.
	Args map[string]any `yaml:"args,omitempty"`

	// OutputCase optionally narrows trace_contains and trace_count to
	// invocations that completed with this case.
	OutputCase string `yaml:"output_case,omitempty"`

	// Count is the exact number of invocations for trace_count.
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order for trace_order.
	Actions []string `yaml:"actions,omitempty"`

	// Table, Where and Expect are used by final_state.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so that typos do not silently disable a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); err != nil {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	for i, step := range s.Setup {
		if !ir.ActionRef(step.Action).Valid() {
			return fmt.Errorf("setup[%d]: invalid action %q", i, step.Action)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use {} if no args)", i)
		}
		if step.Height < 0 {
			return fmt.Errorf("setup[%d]: height must be non-negative", i)
		}
	}

	for i, step := range s.Flow {
		if !ir.ActionRef(step.Invoke).Valid() {
			return fmt.Errorf("flow[%d]: invalid action %q", i, step.Invoke)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use {} if no args)", i)
		}
		if step.Height < 0 {
			return fmt.Errorf("flow[%d]: height must be non-negative", i)
		}
		if step.Expect != nil && step.Expect.Case == "" && step.Expect.Error == "" {
			return fmt.Errorf("flow[%d].expect: case or error is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
