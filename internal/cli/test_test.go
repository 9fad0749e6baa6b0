package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_Passes(t *testing.T) {
	stdout, _, err := runCLI(t, "test", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ join\n")
	assert.Contains(t, stdout, "✓ ring\n")
	assert.Contains(t, stdout, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	stdout, _, err := runCLI(t, "test", "testdata/scenarios", "--filter", "jo*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 total")

	stdout, _, err = runCLI(t, "test", "testdata/scenarios", "--filter", "zzz*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")

	_, _, err = runCLI(t, "test", "testdata/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := runCLI(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_MissingArgs(t *testing.T) {
	_, _, err := runCLI(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

// tempScenarios copies the join model into a temp dir and writes one
// scenario with the given expect block.
func tempScenarios(t *testing.T, expect string) string {
	t.Helper()
	dir := t.TempDir()
	model, err := os.ReadFile("testdata/models/join.yaml")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "join.yaml"), model, 0644))

	scenario := "name: join\ndescription: d\nmodel: models/join.yaml\nexpect:\n" + expect
	require.NoError(t, os.WriteFile(filepath.Join(dir, "join.yaml"), []byte(scenario), 0644))
	return dir
}

func TestTestCommand_FailureJSON(t *testing.T) {
	dir := tempScenarios(t, "  firing_vector: {V: 7}\n")

	stdout, _, err := runCLI(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, []string{"firing_vector[V]: expected 7, got 2"}, resp.Data.Scenarios[0].Errors)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommand_UpdateAndCompareGolden(t *testing.T) {
	dir := tempScenarios(t, "  firing_vector: {V: 2}\n")

	stdout, _, err := runCLI(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ join (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "join.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("testdata/scenarios/golden/join.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	// A stale golden file fails the scenario.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "join.golden"), []byte("stale\n"), 0644))
	stdout, _, err = runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "report does not match golden file")
}

func TestTestCommand_BadScenarioFile(t *testing.T) {
	dir := tempScenarios(t, "  firing_vector: {V: 2}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	buf := &bytes.Buffer{}
	err := runTests(&TestOptions{RootOptions: quietRoot("text")}, dir, newTestCommand(buf))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ broken.yaml\n  failed to load scenario:")
	assert.Contains(t, buf.String(), "✓ join\n")
	assert.Contains(t, buf.String(), "1 passed, 1 failed, 2 total")
}
