package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/testutil"
)

const scenarioDir = "testdata/scenarios"

// TestScenarios runs the bundled scenarios end to end and compares their
// traces with the golden files. Regenerate with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	testutil.QuietLogs(t)
	for _, name := range []string{"booking_lifecycle", "measurement_alert", "follow_on_cycle"} {
		t.Run(name, func(t *testing.T) {
			RunWithGolden(t, filepath.Join(scenarioDir, name+".yaml"))
		})
	}
}

func TestScenarios_Deterministic(t *testing.T) {
	testutil.QuietLogs(t)
	s, err := LoadScenario(filepath.Join(scenarioDir, "measurement_alert.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalTrace_Shape(t *testing.T) {
	testutil.QuietLogs(t)
	s, err := LoadScenario(filepath.Join(scenarioDir, "follow_on_cycle.yaml"))
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	data, err := MarshalTrace(s, result)
	require.NoError(t, err)
	got := string(data)
	assert.True(t, strings.HasPrefix(got, `{"scenario_name":"follow_on_cycle","trace":[`), got)
	assert.Contains(t, got, `"rule":"echo-ack"`)
	assert.NotContains(t, got, "flow_token")
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("a", "b", "golden", "c.golden"),
		GoldenPath(filepath.Join("a", "b", "c.yaml")))
}

func TestWriteAndCompareGolden(t *testing.T) {
	testutil.QuietLogs(t)
	dir := t.TempDir()
	path := writeScenario(t, dir, "minimal.yaml", minimalScenario)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	_, err = CompareGolden(path, s, result)
	require.Error(t, err, "no golden file yet")

	require.NoError(t, WriteGolden(path, s, result))
	match, err := CompareGolden(path, s, result)
	require.NoError(t, err)
	assert.True(t, match)

	require.NoError(t, os.WriteFile(GoldenPath(path), []byte("{}"), 0o644))
	match, err = CompareGolden(path, s, result)
	require.NoError(t, err)
	assert.False(t, match)
}
