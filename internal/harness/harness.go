package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/config"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/store"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/testutil"
)

// Harness executes one scenario against a real engine.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger

	caller string
	height int64
}

// Run executes a scenario and returns its result.
//
// Each run gets a fresh in-memory log and a genesis state from the
// scenario's configuration. Expectation and assertion failures are
// reported in the result; the error is non-nil only when the scenario
// could not be executed (bad config, unexpected engine error, failed
// setup).
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	eng, err := cfg.NewEngine(st, testutil.NewFixedFlowGenerator(scenario.FlowToken))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h := &Harness{
		engine: eng,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		caller: scenario.Caller,
		height: 1,
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if result.State, err = eng.State().Snapshot(); err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// scenarioConfig parses the scenario's config file without environment
// overrides, so a run never depends on the shell it starts from.
func scenarioConfig(scenario *Scenario) (*config.Config, error) {
	name, data := "scenario.cue", []byte(fmt.Sprintf("admin: %q\n", config.DefaultAdmin))
	if scenario.Config != "" {
		var err error
		if data, err = os.ReadFile(scenario.Config); err != nil {
			return nil, err
		}
		name = scenario.Config
	}
	cfg, errs := config.Parse(name, data)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (h *Harness) invoke(ctx context.Context, action string, args map[string]any, caller string, height int64, result *Result) ([]engine.Outcome, error) {
	irArgs, err := convertArgsToIRObject(args)
	if err != nil {
		return nil, fmt.Errorf("failed to convert args: %w", err)
	}
	if height > 0 {
		h.height = height
	}
	if caller == "" {
		caller = h.caller
	}

	outcomes, err := h.engine.Invoke(ctx, engine.Request{
		Action: ir.ActionRef(action),
		Args:   irArgs,
		Caller: ledger.Identity(caller),
		Height: h.height,
	})
	for _, oc := range outcomes {
		result.AddOutcome(oc)
	}
	return outcomes, err
}

// executeSetup runs the setup steps. A rejected setup step aborts the run.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		outcomes, err := h.invoke(ctx, step.Action, step.Args, step.Caller, step.Height, result)
		if err != nil {
			return fmt.Errorf("setup[%d] %s: %w", i, step.Action, err)
		}
		comp := outcomes[0].Completion
		if !comp.Succeeded() {
			return fmt.Errorf("setup[%d] %s: %s: %s", i, step.Action, comp.OutputCase, failureMessage(comp))
		}
		h.logger.Info("setup step completed",
			"step", i,
			"action", step.Action,
			"invocation_id", outcomes[0].Invocation.ID,
		)
	}
	return nil
}

// executeFlow runs the flow steps and records every expect mismatch.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		outcomes, err := h.invoke(ctx, step.Invoke, step.Args, step.Caller, step.Height, result)

		wantErr := ""
		if step.Expect != nil {
			wantErr = step.Expect.Error
		}
		switch {
		case err != nil && wantErr == "":
			return fmt.Errorf("flow[%d] %s: %w", i, step.Invoke, err)
		case err != nil && runtimeCode(err) != wantErr:
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %v", i, step.Invoke, wantErr, err))
		case err == nil && wantErr != "":
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got none", i, step.Invoke, wantErr))
		}

		if step.Expect != nil && step.Expect.Case != "" && len(outcomes) > 0 {
			for _, msg := range checkExpect(step.Expect, outcomes[0].Completion) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
			}
		}

		if len(outcomes) > 0 {
			h.logger.Info("flow step completed",
				"step", i,
				"action", step.Invoke,
				"output_case", outcomes[0].Completion.OutputCase,
				"follow_ons", len(outcomes)-1,
			)
		}
	}
	return nil
}

// checkExpect compares a completion with an expect clause. Result fields
// are matched as a subset.
func checkExpect(expect *ExpectClause, comp ir.Completion) []string {
	var problems []string
	if comp.OutputCase != expect.Case {
		msg := fmt.Sprintf("expected case %s, got %s", expect.Case, comp.OutputCase)
		if !comp.Succeeded() {
			msg += " (" + failureMessage(comp) + ")"
		}
		problems = append(problems, msg)
	}
	want, err := convertArgsToIRObject(expect.Result)
	if err != nil {
		return append(problems, fmt.Sprintf("invalid expected result: %v", err))
	}
	for _, key := range want.SortedKeys() {
		got, ok := comp.Result[key]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("result field %q missing", key))
		case !reflect.DeepEqual(got, want[key]):
			problems = append(problems, fmt.Sprintf("result field %q = %v, expected %v", key, got, want[key]))
		}
	}
	return problems
}

func failureMessage(comp ir.Completion) string {
	if msg, ok := comp.Result["message"].(ir.IRString); ok {
		return string(msg)
	}
	return ""
}

// runtimeCode returns the engine runtime error code carried by err, or ""
// for any other error.
func runtimeCode(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if engine.IsQuotaError(err) {
		return string(engine.ErrCodeQuotaExceeded)
	}
	return ""
}

// convertArgsToIRObject converts YAML-decoded values to IR. Nulls and
// non-integral numbers are rejected; the IR has neither.
func convertArgsToIRObject(args map[string]any) (ir.IRObject, error) {
	result := make(ir.IRObject, len(args))
	for key, val := range args {
		irVal, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = irVal
	}
	return result, nil
}

func convertToIRValue(val any) (ir.IRValue, error) {
	switch v := val.(type) {
	case nil:
		return nil, fmt.Errorf("null values are not allowed")
	case string:
		return ir.IRString(v), nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case uint64:
		if v > 1<<63-1 {
			return nil, fmt.Errorf("integer %d out of range", v)
		}
		return ir.IRInt(int64(v)), nil
	case float64:
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are not allowed: %v", v)
	case bool:
		return ir.IRBool(v), nil
	case []any:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		return convertArgsToIRObject(v)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
