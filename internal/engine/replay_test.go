package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/monitor"
)

// populate drives a mixed history: accepted and rejected transitions plus
// a follow-on.
func populate(t *testing.T, e *Engine) {
	t.Helper()
	pid := registerProvider(t, e, "pat")
	invoke(t, e, "casey", 2, "Booking.book", ir.IRObject{
		"provider_id":     ir.IRInt(pid),
		"garden_size":     ir.IRInt(300),
		"service_type":    ir.IRString("soil-testing"),
		"scheduled_date":  ir.IRInt(10),
		"estimated_hours": ir.IRInt(1),
		"payment_amount":  ir.IRInt(10),
	})
	invoke(t, e, "casey", 2, "Booking.book", ir.IRObject{
		"provider_id":     ir.IRInt(pid),
		"garden_size":     ir.IRInt(300),
		"service_type":    ir.IRString("soil-testing"),
		"scheduled_date":  ir.IRInt(10),
		"estimated_hours": ir.IRInt(1),
		"payment_amount":  ir.IRInt(50),
	})
	invoke(t, e, admin, 3, "Notification.setThreshold", ir.IRObject{"threshold": ir.IRInt(40)})
	gid := registerGarden(t, e, "gale")
	invoke(t, e, "gale", 10, "Measurement.record", ir.IRObject{
		"garden_id":        ir.IRInt(gid),
		"measurement_date": ir.IRInt(10),
		"current_depth":    ir.IRInt(35),
	})
}

func TestReplay_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	populate(t, e)

	live, err := e.State().Digest()
	require.NoError(t, err)

	report, err := e.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Deterministic())
	assert.Equal(t, logLen(t, e), report.Transitions)
	assert.Equal(t, e.Clock().Current(), report.HeadSeq)
	assert.Equal(t, int64(10), report.Height)
	assert.Equal(t, live, report.Digest)
}

func TestRebuild_ContinuesLog(t *testing.T) {
	e := newTestEngine(t)
	populate(t, e)
	want, err := e.State().Digest()
	require.NoError(t, err)

	resumed := New(e.Store(), testGenesis(), NewSequentialGenerator("resumed"))
	report, err := resumed.Rebuild(context.Background())
	require.NoError(t, err)

	got, err := resumed.State().Digest()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, report.HeadSeq, resumed.Clock().Current())
	assert.Equal(t, int64(10), resumed.Height())
	assert.Equal(t, int64(40), resumed.State().Monitor.Notifications.Threshold())

	out := invoke(t, resumed, "pat", 11, "Garden.register", ir.IRObject{
		"location":         ir.IRString("front"),
		"mulch_type":       ir.IRString("pine"),
		"initial_depth":    ir.IRInt(50),
		"application_date": ir.IRInt(11),
		"garden_size":      ir.IRInt(10),
	})
	assert.Equal(t, report.HeadSeq+1, out[0].Invocation.Seq)
	assert.Equal(t, ir.IRInt(2), out[0].Completion.Result["garden_id"])
}

func TestReplay_DetectsDivergentGenesis(t *testing.T) {
	e := newTestEngine(t)
	populate(t, e)

	// A different administrator turns the logged setThreshold into a
	// rejection.
	other := New(e.Store(), NewState(monitor.Options{Admin: "mallory"}), NewSequentialGenerator("x"))

	report, err := other.Replay(context.Background())
	require.NoError(t, err)
	require.False(t, report.Deterministic())
	assert.Equal(t, ir.ActionRef("Notification.setThreshold"), report.Divergences[0].Action)
	assert.Equal(t, "Unauthorized", report.Divergences[0].Replayed.OutputCase)
	assert.Equal(t, ir.CaseSuccess, report.Divergences[0].Recorded.OutputCase)

	_, err = other.Rebuild(context.Background())
	assert.True(t, IsReplayDiverged(err))
	assert.Empty(t, other.State().Booking.Providers.List(), "failed rebuild leaves state untouched")
}

func TestReplay_EmptyLog(t *testing.T) {
	e := newTestEngine(t)
	report, err := e.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Deterministic())
	assert.Zero(t, report.Transitions)

	genesis, err := testGenesis().Digest()
	require.NoError(t, err)
	assert.Equal(t, genesis, report.Digest)
}

func TestState_CloneIsIndependent(t *testing.T) {
	st := testGenesis()
	cp := st.Clone()

	_, err := cp.Booking.Providers.Register(ledger.NewEnv("pat", 1), "n", "a", 10, nil)
	require.NoError(t, err)

	assert.Empty(t, st.Booking.Providers.List())
	a, err := st.Digest()
	require.NoError(t, err)
	b, err := cp.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestState_SnapshotShape(t *testing.T) {
	snap, err := testGenesis().Snapshot()
	require.NoError(t, err)
	for _, key := range []string{"providers", "bookings", "gardens", "measurements", "rate_profiles", "notifications"} {
		assert.Equal(t, ir.IRArray{}, snap[key], key)
	}
	assert.Equal(t, ir.IRInt(monitor.DefaultThreshold), snap["threshold"])
}
