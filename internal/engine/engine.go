package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/store"
)

// DefaultMaxSteps is the default number of follow-on transitions allowed
// in one flow.
const DefaultMaxSteps = 100

// Request is one externally submitted action.
type Request struct {
	Action ir.ActionRef
	Args   ir.IRObject
	Caller ledger.Identity
	Height int64

	// FlowToken correlates the request with its follow-ons. Empty means
	// the engine generates one.
	FlowToken string
}

// Outcome is one applied invocation and its completion.
type Outcome struct {
	Invocation ir.Invocation `json:"invocation"`
	Completion ir.Completion `json:"completion"`

	// Logged is false for read-only actions, which are evaluated against
	// committed state and never written to the store.
	Logged bool `json:"logged"`

	// RuleID names the follow-on rule that produced the invocation; empty
	// for the submitted request.
	RuleID string `json:"rule_id,omitempty"`
}

// Engine is the single writer of the ledger.
//
// Every mutating request becomes an invocation/completion pair: the action
// is applied to a clone of the state, the pair is written to the store in
// one transaction, and only then is the clone swapped in. A rejected
// transition is logged too, with the failure name as its output case, and
// leaves state untouched.
//
// Invoke serializes callers with a mutex, so the state is never touched by
// two transitions at once.
type Engine struct {
	mu sync.Mutex

	store   *store.Store
	clock   *Clock
	flowGen FlowTokenGenerator

	genesis *State // pristine initial state, cloned by Replay
	state   *State
	height  int64 // height of the last logged transition

	rules         []Rule // declaration order is evaluation order
	cycleDetector *CycleDetector
	maxSteps      int
	quotas        map[string]*QuotaEnforcer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets the follow-on quota per flow.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithClock starts the engine from an existing clock.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine over s starting from genesis. The genesis state is
// cloned; later changes to it have no effect. DefaultRules are registered
// until RegisterRules replaces them.
//
// New does not read the store. Call Rebuild to resume an existing log.
func New(s *store.Store, genesis *State, flowGen FlowTokenGenerator, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		clock:         NewClock(),
		flowGen:       flowGen,
		genesis:       genesis.Clone(),
		state:         genesis.Clone(),
		rules:         DefaultRules(),
		cycleDetector: NewCycleDetector(),
		maxSteps:      DefaultMaxSteps,
		quotas:        make(map[string]*QuotaEnforcer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterRules replaces the follow-on rules. Rules are evaluated in the
// order given. Passing nil or an empty slice disables follow-ons.
func (e *Engine) RegisterRules(rules []Rule) error {
	if err := ValidateRules(rules); err != nil {
		return err
	}
	for _, w := range AnalyzeRuleCycles(rules) {
		slog.Warn("follow-on rule cycle", "path", strings.Join(w.Path, " -> "))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append([]Rule(nil), rules...)
	return nil
}

// Rules returns the registered follow-on rules in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Rule(nil), e.rules...)
}

// NewFlow generates a flow token.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// Invoke applies req and any follow-ons it triggers.
//
// The returned outcomes list the submitted request first, then follow-ons
// in the order they were applied. A rejected transition is not an error:
// inspect Completion.OutputCase. The error is non-nil for unknown actions,
// regressing heights, store faults, and follow-on evaluation stopped by
// cycle detection or quota; in the last case the outcomes already
// committed are returned alongside it.
func (e *Engine) Invoke(ctx context.Context, req Request) ([]Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := lookupAction(req.Action)
	if !ok {
		return nil, NewUnknownActionError(string(req.Action))
	}
	flow := req.FlowToken
	if flow == "" {
		flow = e.flowGen.Generate()
	}

	inv := ir.Invocation{
		FlowToken:     flow,
		Action:        req.Action,
		Args:          req.Args,
		Caller:        string(req.Caller),
		Height:        req.Height,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if inv.Args == nil {
		inv.Args = ir.IRObject{}
	}

	if a.readOnly {
		oc, err := e.query(a, inv)
		if err != nil {
			return nil, err
		}
		return []Outcome{oc}, nil
	}

	if req.Height < e.height {
		return nil, &RuntimeError{
			Code:      ErrCodeHeightRegressed,
			Message:   fmt.Sprintf("height %d is below the logged height %d", req.Height, e.height),
			FlowToken: flow,
		}
	}

	defer e.cleanupFlow(flow)

	root, err := e.commit(ctx, a, inv)
	if err != nil {
		return nil, err
	}
	outcomes := []Outcome{root}
	more, err := e.runFollowOns(ctx, root)
	outcomes = append(outcomes, more...)
	return outcomes, err
}

// query evaluates a read-only action against committed state.
func (e *Engine) query(a action, inv ir.Invocation) (Outcome, error) {
	outputCase, result, err := execute(e.state, a, inv, false)
	if err != nil {
		return Outcome{}, err
	}
	comp := ir.Completion{OutputCase: outputCase, Result: result}
	if inv.ID, err = ir.InvocationID(inv); err != nil {
		return Outcome{}, err
	}
	comp.InvocationID = inv.ID
	if comp.ID, err = ir.CompletionID(comp); err != nil {
		return Outcome{}, err
	}
	slog.Debug("query evaluated",
		"action", inv.Action,
		"flow", inv.FlowToken,
		"output_case", outputCase,
	)
	return Outcome{Invocation: inv, Completion: comp}, nil
}

// commit applies a mutating invocation to a clone of the state, writes the
// transition and swaps the clone in. inv.Seq and inv.ID are assigned here.
func (e *Engine) commit(ctx context.Context, a action, inv ir.Invocation) (Outcome, error) {
	start := e.clock.Current()
	inv.Seq = e.clock.Next()
	id, err := ir.InvocationID(inv)
	if err != nil {
		e.clock.reset(start)
		return Outcome{}, err
	}
	inv.ID = id

	next := e.state.Clone()
	outputCase, result, err := execute(next, a, inv, true)
	if err != nil {
		e.clock.reset(start)
		return Outcome{}, fmt.Errorf("apply %s: %w", inv.Action, err)
	}

	comp := ir.Completion{
		InvocationID: inv.ID,
		OutputCase:   outputCase,
		Result:       result,
		Seq:          e.clock.Next(),
	}
	if comp.ID, err = ir.CompletionID(comp); err != nil {
		e.clock.reset(start)
		return Outcome{}, err
	}

	if err := e.store.WriteTransition(ctx, inv, comp); err != nil {
		e.clock.reset(start)
		return Outcome{}, fmt.Errorf("write transition %s: %w", inv.ID, err)
	}

	if comp.Succeeded() {
		e.state = next
	}
	e.height = inv.Height

	slog.Info("transition committed",
		"invocation_id", inv.ID,
		"action", inv.Action,
		"flow", inv.FlowToken,
		"caller", inv.Caller,
		"height", inv.Height,
		"seq", inv.Seq,
		"output_case", comp.OutputCase,
	)
	return Outcome{Invocation: inv, Completion: comp, Logged: true}, nil
}

// execute runs the handler and classifies its result. Ledger failures and
// argument errors become an output case; anything else is returned as err.
func execute(st *State, a action, inv ir.Invocation, validateEnv bool) (string, ir.IRObject, error) {
	env := ledger.NewEnv(ledger.Identity(inv.Caller), inv.Height)
	if validateEnv {
		if err := env.Validate(); err != nil {
			return failure(err)
		}
	}
	result, err := a.apply(st, env, inv.Args)
	if err != nil {
		return failure(err)
	}
	if result == nil {
		result = ir.IRObject{}
	}
	return ir.CaseSuccess, result, nil
}

func failure(err error) (string, ir.IRObject, error) {
	var le *ledger.Error
	var fe *ir.FieldError
	switch {
	case errors.As(err, &le):
		return le.Code.Name(), failureResult(le.Code, le.Message), nil
	case errors.As(err, &fe):
		return ledger.CodeInvalidInput.Name(), failureResult(ledger.CodeInvalidInput, fe.Error()), nil
	}
	return "", nil, err
}

func failureResult(code ledger.Code, message string) ir.IRObject {
	return ir.IRObject{
		"code":    ir.IRInt(int64(code)),
		"message": ir.IRString(message),
	}
}

// runFollowOns applies the follow-ons triggered by root, breadth-first.
func (e *Engine) runFollowOns(ctx context.Context, root Outcome) ([]Outcome, error) {
	flow := root.Invocation.FlowToken
	queue := &followOnQueue{}
	e.enqueueMatches(queue, root)

	var out []Outcome
	for {
		p, ok := queue.pop()
		if !ok {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("context cancelled: %w", err)
		}

		quota := e.quotaFor(flow)
		if err := quota.Check(flow); err != nil {
			slog.Error("max steps quota exceeded",
				"flow", flow,
				"rule_id", p.ruleID,
				"steps", quota.Current(),
				"limit", quota.MaxSteps(),
			)
			return out, fmt.Errorf("quota enforcement failed: %w", err)
		}
		if e.cycleDetector.WouldCycle(flow, p.ruleID, p.argsHash) {
			slog.Error("follow-on cycle detected",
				"flow", flow,
				"rule_id", p.ruleID,
				"args_hash", p.argsHash,
			)
			return out, NewCycleError(flow, p.ruleID, p.argsHash)
		}

		a, _ := lookupAction(p.action) // validated by RegisterRules
		inv := ir.Invocation{
			FlowToken:     flow,
			Action:        p.action,
			Args:          p.args,
			Caller:        root.Invocation.Caller,
			Height:        root.Invocation.Height,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
		}
		oc, err := e.commit(ctx, a, inv)
		if err != nil {
			return out, err
		}
		e.cycleDetector.Record(flow, p.ruleID, p.argsHash)
		oc.RuleID = p.ruleID
		out = append(out, oc)

		slog.Debug("follow-on fired",
			"rule_id", p.ruleID,
			"flow", flow,
			"action", p.action,
			"output_case", oc.Completion.OutputCase,
		)
		e.enqueueMatches(queue, oc)
	}
}

// enqueueMatches queues every rule matching oc, in declaration order.
// A rule whose arguments do not resolve is skipped with a warning; it does
// not stop the other rules.
func (e *Engine) enqueueMatches(q *followOnQueue, oc Outcome) {
	for _, rule := range e.rules {
		if !matchWhen(rule.When, oc.Invocation, oc.Completion) {
			continue
		}
		args, err := resolveArgs(rule, oc.Invocation, oc.Completion)
		if err != nil {
			slog.Warn("follow-on binding failed",
				"rule_id", rule.ID,
				"invocation_id", oc.Invocation.ID,
				"error", err,
			)
			continue
		}
		hash, err := ir.ArgsHash(args)
		if err != nil {
			slog.Warn("follow-on args not hashable",
				"rule_id", rule.ID,
				"invocation_id", oc.Invocation.ID,
				"error", err,
			)
			continue
		}
		q.push(pending{ruleID: rule.ID, argsHash: hash, action: rule.Then.Action, args: args})
	}
}

func (e *Engine) quotaFor(flow string) *QuotaEnforcer {
	if q, ok := e.quotas[flow]; ok {
		return q
	}
	q := NewQuotaEnforcer(e.maxSteps)
	e.quotas[flow] = q
	return q
}

// cleanupFlow drops per-flow quota and cycle history. A flow ends when its
// Invoke call returns.
func (e *Engine) cleanupFlow(flow string) {
	delete(e.quotas, flow)
	e.cycleDetector.Clear(flow)
}

// State returns the committed state. Callers must treat it as read-only.
func (e *Engine) State() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Height returns the height of the last logged transition.
func (e *Engine) Height() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Store returns the transition log.
func (e *Engine) Store() *store.Store {
	return e.store
}

// MaxSteps returns the follow-on quota per flow.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// QuotaCount returns the number of live per-flow quota trackers. Zero
// between Invoke calls.
func (e *Engine) QuotaCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.quotas)
}
