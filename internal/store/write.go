package store

import (
	"context"
	"fmt"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// Transition is one logged invocation with its completion.
type Transition struct {
	Invocation ir.Invocation `json:"invocation"`
	Completion ir.Completion `json:"completion"`
}

// WriteTransition appends an invocation and its completion in one
// transaction. Either both rows are durable or neither is.
//
// Writes are idempotent on content-addressed id: rewriting an identical
// transition is a no-op.
func (s *Store) WriteTransition(ctx context.Context, inv ir.Invocation, comp ir.Completion) error {
	if comp.InvocationID != inv.ID {
		return fmt.Errorf("write transition: completion %s belongs to invocation %s, not %s",
			comp.ID, comp.InvocationID, inv.ID)
	}
	argsJSON, err := marshalObject(inv.Args)
	if err != nil {
		return fmt.Errorf("write transition: args: %w", err)
	}
	resultJSON, err := marshalObject(comp.Result)
	if err != nil {
		return fmt.Errorf("write transition: result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write transition: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	_, err = s.exec(ctx, tx, `
		INSERT INTO invocations
		(id, flow_token, action, args, caller, height, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`,
		inv.ID,
		inv.FlowToken,
		string(inv.Action),
		argsJSON,
		inv.Caller,
		inv.Height,
		inv.Seq,
		inv.EngineVersion,
		inv.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write transition: invocation: %w", err)
	}

	_, err = s.exec(ctx, tx, `
		INSERT INTO completions
		(id, invocation_id, output_case, result, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`,
		comp.ID,
		comp.InvocationID,
		comp.OutputCase,
		resultJSON,
		comp.Seq,
	)
	if err != nil {
		return fmt.Errorf("write transition: completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write transition: commit: %w", err)
	}
	return nil
}
