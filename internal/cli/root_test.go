package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/testutil"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	testutil.QuietLogs(t)

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse decodes a JSON envelope, returning its data as a map.
func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func ledgerDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger.db")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mulchledger", cmd.Use)
	assert.Contains(t, cmd.Long, "append-only log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"invoke", "run", "query", "replay", "trace", "test", "validate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestLedgerCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"invoke", "run", "query", "replay", "trace"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			db := sub.Flags().Lookup("db")
			require.NotNil(t, db)
			assert.Equal(t, []string{"true"}, db.Annotations["cobra_annotation_bash_completion_one_required_flag"])
			assert.NotNil(t, sub.Flags().Lookup("config"))
		})
	}

	invoke, _, err := cmd.Find([]string{"invoke"})
	require.NoError(t, err)
	for _, flag := range []string{"args", "caller", "height", "flow"} {
		assert.NotNil(t, invoke.Flags().Lookup(flag), flag)
	}

	test, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)
	assert.NotNil(t, test.Flags().Lookup("update"))
	assert.NotNil(t, test.Flags().Lookup("filter"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "validate", "ledger.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
