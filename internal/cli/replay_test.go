package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_EmptyLog(t *testing.T) {
	out, err := execute(t, "replay", "--db", ledgerDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "No transitions in log.")
}

func TestReplay_Deterministic(t *testing.T) {
	db := ledgerDB(t)
	_, err := execute(t, "run", "--db", db, writeBatch(t, batch))
	require.NoError(t, err)

	out, err := execute(t, "--verbose", "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 4 transitions")
	assert.Contains(t, out, "Height:       2")
	assert.Contains(t, out, "Unauthorized:")
	assert.Contains(t, out, "✓ All transitions verified deterministic")

	out, err = execute(t, "--format", "json", "replay", "--db", db)
	require.NoError(t, err)
	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, true, data["deterministic"])
	assert.Equal(t, float64(4), data["transitions"])
	assert.Equal(t, float64(8), data["head_seq"])
	assert.NotEmpty(t, data["state_digest"])
	assert.Equal(t, map[string]any{"Success": float64(3), "Unauthorized": float64(1)}, data["outcomes"])
}

// A log replayed under a different administrator no longer reproduces.
func TestReplay_DivergesUnderDifferentGenesis(t *testing.T) {
	db := ledgerDB(t)
	_, err := execute(t, "invoke", "Notification.setThreshold", "--db", db, "--caller", "admin",
		"--args", `{"threshold":60}`)
	require.NoError(t, err)

	cfg := filepath.Join(t.TempDir(), "ledger.cue")
	require.NoError(t, os.WriteFile(cfg, []byte(`admin: "county-extension"`+"\n"), 0o644))

	out, err := execute(t, "replay", "--db", db, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ seq 1 Notification.setThreshold")
	assert.Contains(t, out, "output Unauthorized differs from recorded Success")

	out, err = execute(t, "--format", "json", "replay", "--db", db, "--config", cfg)
	require.Error(t, err)
	resp, data := decodeResponse(t, out)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
	assert.Equal(t, false, data["deterministic"])
	assert.Len(t, data["divergences"], 1)

	// Commands that resume from the log refuse it too.
	_, err = execute(t, "invoke", "Garden.register", "--db", db, "--caller", "gale",
		"--config", cfg, "--args", gardenArgs)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "log does not replay")
}
