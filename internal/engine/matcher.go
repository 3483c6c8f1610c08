package engine

import (
	"fmt"
	"strings"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// Rule is a follow-on rule: when a transition of When.Action completes with
// When.OutputCase, the engine invokes Then.Action in the same flow, with
// the same caller and height.
type Rule struct {
	ID   string `json:"id"`
	When When   `json:"when"`
	Then Then   `json:"then"`
}

// When selects the triggering completions.
type When struct {
	Action ir.ActionRef `json:"action"`
	// OutputCase matches exactly; empty matches any case.
	OutputCase string `json:"output_case,omitempty"`
}

// Then describes the follow-on invocation.
//
// Each Args value is an expression:
//
//	args.<path>    field of the triggering invocation's args
//	result.<path>  field of the triggering completion's result
//	anything else  a JSON literal (30, true, "x"), or a bare string
type Then struct {
	Action ir.ActionRef       `json:"action"`
	Args   map[string]string `json:"args,omitempty"`
}

// DefaultRules returns the rule set used when no configuration is given:
// every accepted measurement re-evaluates the garden's replacement alert.
func DefaultRules() []Rule {
	return []Rule{{
		ID:   "measurement-alert",
		When: When{Action: "Measurement.record", OutputCase: ir.CaseSuccess},
		Then: Then{
			Action: "Notification.checkAndNotify",
			Args:   map[string]string{"garden_id": "args.garden_id"},
		},
	}}
}

// matchWhen reports whether the completed invocation triggers the rule.
func matchWhen(when When, inv ir.Invocation, comp ir.Completion) bool {
	if when.Action != inv.Action {
		return false
	}
	if when.OutputCase != "" && when.OutputCase != comp.OutputCase {
		return false
	}
	return true
}

// resolveArgs evaluates the then-clause expressions against the
// triggering transition. All expressions must resolve; partial argument
// sets are never invoked.
func resolveArgs(rule Rule, inv ir.Invocation, comp ir.Completion) (ir.IRObject, error) {
	resolved := make(ir.IRObject, len(rule.Then.Args))
	for key, expr := range rule.Then.Args {
		val, err := evalExpr(expr, inv.Args, comp.Result)
		if err != nil {
			return nil, &RuntimeError{
				Code:      ErrCodeInvalidBinding,
				Message:   fmt.Sprintf("arg %q: %v", key, err),
				FlowToken: inv.FlowToken,
				RuleID:    rule.ID,
			}
		}
		resolved[key] = val
	}
	return resolved, nil
}

func evalExpr(expr string, args, result ir.IRObject) (ir.IRValue, error) {
	if path, ok := strings.CutPrefix(expr, "args."); ok {
		v, found := args.Lookup(strings.Split(path, "."))
		if !found {
			return nil, fmt.Errorf("%s not found in invocation args", expr)
		}
		return v, nil
	}
	if path, ok := strings.CutPrefix(expr, "result."); ok {
		v, found := result.Lookup(strings.Split(path, "."))
		if !found {
			return nil, fmt.Errorf("%s not found in completion result", expr)
		}
		return v, nil
	}
	if v, err := ir.ParseValue([]byte(expr)); err == nil {
		return v, nil
	}
	return ir.IRString(expr), nil
}

// ValidateRules checks ids are unique and every action is dispatchable.
// Follow-ons must target mutating actions: read-only actions are never
// logged, so firing one would leave no trace.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule with empty id")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id: %s", r.ID)
		}
		seen[r.ID] = true

		if _, ok := lookupAction(r.When.Action); !ok {
			return fmt.Errorf("rule %s: when: %w", r.ID, NewUnknownActionError(string(r.When.Action)))
		}
		then, ok := lookupAction(r.Then.Action)
		if !ok {
			return fmt.Errorf("rule %s: then: %w", r.ID, NewUnknownActionError(string(r.Then.Action)))
		}
		if then.readOnly {
			return fmt.Errorf("rule %s: then action %s is read-only", r.ID, r.Then.Action)
		}
	}
	return nil
}
