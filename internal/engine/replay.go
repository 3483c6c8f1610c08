package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// Replay is structural: a logged invocation carries everything its handler
// reads (caller, height, args), so re-applying the log in seq order to the
// genesis state reproduces every completion byte for byte. Follow-on
// transitions are in the log as ordinary invocations, so rules are not
// re-evaluated during replay.

// Divergence is a logged transition whose replayed completion differs from
// the recorded one.
type Divergence struct {
	Seq          int64         `json:"seq"`
	InvocationID string        `json:"invocation_id"`
	Action       ir.ActionRef  `json:"action"`
	Reason       string        `json:"reason"`
	Recorded     ir.Completion `json:"recorded"`
	Replayed     ir.Completion `json:"replayed"`
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Transitions int          `json:"transitions"`
	HeadSeq     int64        `json:"head_seq"`
	Height      int64        `json:"height"`
	Digest      string       `json:"state_digest"`
	Divergences []Divergence `json:"divergences"`
}

// Deterministic reports whether every transition reproduced.
func (r *ReplayReport) Deterministic() bool {
	return len(r.Divergences) == 0
}

// Replay re-applies the whole log to a clone of the genesis state and
// reports any divergence. It does not change the engine.
func (e *Engine) Replay(ctx context.Context) (*ReplayReport, error) {
	_, report, err := e.replayLog(ctx)
	return report, err
}

// Rebuild replays the log and adopts the result: the engine's state,
// clock and height continue from the head of the log. It fails with
// ErrCodeReplayDiverged, leaving the engine unchanged, if any transition
// does not reproduce.
func (e *Engine) Rebuild(ctx context.Context) (*ReplayReport, error) {
	st, report, err := e.replayLog(ctx)
	if err != nil {
		return nil, err
	}
	if !report.Deterministic() {
		first := report.Divergences[0]
		return report, &RuntimeError{
			Code:    ErrCodeReplayDiverged,
			Message: fmt.Sprintf("%d transitions diverged, first at seq %d (%s): %s", len(report.Divergences), first.Seq, first.Action, first.Reason),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
	e.height = report.Height
	if report.HeadSeq > e.clock.Current() {
		e.clock.reset(report.HeadSeq)
	}
	slog.Info("state rebuilt from log",
		"transitions", report.Transitions,
		"head_seq", report.HeadSeq,
		"height", report.Height,
		"state_digest", report.Digest,
	)
	return report, nil
}

func (e *Engine) replayLog(ctx context.Context) (*State, *ReplayReport, error) {
	transitions, err := e.store.ReadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read log: %w", err)
	}

	st := e.genesis.Clone()
	report := &ReplayReport{Divergences: []Divergence{}}

	for _, t := range transitions {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("context cancelled: %w", err)
		}
		inv, recorded := t.Invocation, t.Completion
		report.Transitions++
		report.HeadSeq = max(report.HeadSeq, inv.Seq, recorded.Seq)
		report.Height = max(report.Height, inv.Height)

		diverge := func(reason string, replayed ir.Completion) {
			slog.Warn("replay divergence",
				"seq", inv.Seq,
				"invocation_id", inv.ID,
				"action", inv.Action,
				"reason", reason,
			)
			report.Divergences = append(report.Divergences, Divergence{
				Seq:          inv.Seq,
				InvocationID: inv.ID,
				Action:       inv.Action,
				Reason:       reason,
				Recorded:     recorded,
				Replayed:     replayed,
			})
		}

		if id, err := ir.InvocationID(inv); err != nil || id != inv.ID {
			diverge("invocation content does not match its id", ir.Completion{})
			continue
		}
		a, ok := lookupAction(inv.Action)
		if !ok {
			diverge(NewUnknownActionError(string(inv.Action)).Error(), ir.Completion{})
			continue
		}
		if a.readOnly {
			diverge("read-only action in log", ir.Completion{})
			continue
		}

		next := st.Clone()
		outputCase, result, err := execute(next, a, inv, true)
		if err != nil {
			return nil, nil, fmt.Errorf("replay seq %d (%s): %w", inv.Seq, inv.Action, err)
		}
		replayed := ir.Completion{
			InvocationID: inv.ID,
			OutputCase:   outputCase,
			Result:       result,
			Seq:          recorded.Seq,
		}
		if replayed.ID, err = ir.CompletionID(replayed); err != nil {
			return nil, nil, err
		}
		if replayed.ID != recorded.ID {
			diverge(fmt.Sprintf("output %s differs from recorded %s", replayed.OutputCase, recorded.OutputCase), replayed)
			continue
		}
		if replayed.Succeeded() {
			st = next
		}
	}

	digest, err := st.Digest()
	if err != nil {
		return nil, nil, err
	}
	report.Digest = digest
	return st, report, nil
}
