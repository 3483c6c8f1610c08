package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

const transitionColumns = `
	i.id, i.flow_token, i.action, i.args, i.caller, i.height, i.seq, i.engine_version, i.ir_version,
	c.id, c.invocation_id, c.output_case, c.result, c.seq
	FROM invocations i
	JOIN completions c ON c.invocation_id = i.id`

// ReadAll returns every transition in log order. Used to rebuild state.
func (s *Store) ReadAll(ctx context.Context) ([]Transition, error) {
	return s.queryTransitions(ctx, `SELECT `+transitionColumns+` ORDER BY i.seq ASC`)
}

// ReadFlow returns the transitions of one flow in log order. Returns an empty
// slice, not nil, for an unknown flow.
func (s *Store) ReadFlow(ctx context.Context, flowToken string) ([]Transition, error) {
	return s.queryTransitions(ctx,
		`SELECT `+transitionColumns+` WHERE i.flow_token = ? ORDER BY i.seq ASC`, flowToken)
}

// ReadAction returns the transitions of one action in log order.
func (s *Store) ReadAction(ctx context.Context, action ir.ActionRef) ([]Transition, error) {
	return s.queryTransitions(ctx,
		`SELECT `+transitionColumns+` WHERE i.action = ? ORDER BY i.seq ASC`, string(action))
}

// ReadInvocation returns the transition whose invocation has the given id.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadInvocation(ctx context.Context, id string) (Transition, error) {
	ts, err := s.queryTransitions(ctx, `SELECT `+transitionColumns+` WHERE i.id = ?`, id)
	if err != nil {
		return Transition{}, err
	}
	if len(ts) == 0 {
		return Transition{}, fmt.Errorf("invocation %s: %w", id, sql.ErrNoRows)
	}
	return ts[0], nil
}

// Head describes the tip of the log.
type Head struct {
	Seq         int64 `json:"seq"`    // highest seq written, 0 if empty
	Height      int64 `json:"height"` // highest block height seen
	Transitions int64 `json:"transitions"`
}

// ReadHead returns the tip of the log.
func (s *Store) ReadHead(ctx context.Context) (Head, error) {
	var h Head
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT MAX(seq) FROM completions), 0),
			COALESCE((SELECT MAX(height) FROM invocations), 0),
			(SELECT COUNT(*) FROM completions)
	`).Scan(&h.Seq, &h.Height, &h.Transitions)
	if err != nil {
		return Head{}, fmt.Errorf("read head: %w", err)
	}
	return h, nil
}

// OutcomeCounts returns how many completions ended in each output case.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT output_case, COUNT(*) FROM completions GROUP BY output_case`)
	if err != nil {
		return nil, fmt.Errorf("outcome counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("outcome counts: %w", err)
		}
		out[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outcome counts: %w", err)
	}
	return out, nil
}

func (s *Store) queryTransitions(ctx context.Context, query string, args ...any) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

func scanTransition(rows *sql.Rows) (Transition, error) {
	var (
		t                    Transition
		action               string
		argsJSON, resultJSON string
	)
	inv, comp := &t.Invocation, &t.Completion
	err := rows.Scan(
		&inv.ID, &inv.FlowToken, &action, &argsJSON, &inv.Caller, &inv.Height, &inv.Seq,
		&inv.EngineVersion, &inv.IRVersion,
		&comp.ID, &comp.InvocationID, &comp.OutputCase, &resultJSON, &comp.Seq,
	)
	if err != nil {
		return Transition{}, fmt.Errorf("scan transition: %w", err)
	}
	inv.Action = ir.ActionRef(action)
	if inv.Args, err = unmarshalObject(argsJSON); err != nil {
		return Transition{}, fmt.Errorf("scan transition %s args: %w", inv.ID, err)
	}
	if comp.Result, err = unmarshalObject(resultJSON); err != nil {
		return Transition{}, fmt.Errorf("scan transition %s result: %w", inv.ID, err)
	}
	return t, nil
}
