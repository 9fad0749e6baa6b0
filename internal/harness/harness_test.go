package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioDir = filepath.Join("testdata", "scenarios")

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_AllScenariosPass(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"join", "relay_loop", "chain_vars", "ring", "parallel_drive"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := loadScenario(t, "join")
	edges := 3
	s.Expect = Expectation{
		FiringVector:        map[string]int{"U": 1, "V": 5, "Q": 1},
		Schedule:            []string{"U x1", "V x2"},
		CrossIterationEdges: &edges,
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"firing_vector[Q]: expected 1, got no such name",
		"firing_vector[V]: expected 5, got 2",
		"schedule: expected [U x1, V x2], got [U x1, W x1, V x2]",
		"cross_iteration_edges: expected 3, got 1",
	}, result.Errors)
}

func TestRun_FiringFunctionMismatch(t *testing.T) {
	s := loadScenario(t, "join")
	s.Expect = Expectation{FiringFunctions: []FunctionExpectation{
		{Ports: map[string]int{"in2": 2, "out2": 1}},
		{Ports: map[string]int{"in1": 1, "out1": 1}, Succeeds: []int{0}},
	}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"firing_functions[0].precedes: expected [], got [1]",
		"firing_functions[1].ports: expected {in1:1 out1:1}, got {in1:1 out1:2}",
	}, result.Errors)

	s.Expect.FiringFunctions = s.Expect.FiringFunctions[:1]
	result, err = Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"firing_functions: expected 1 functions, got 2 functions"}, result.Errors)
}

func TestRun_UnexpectedRejection(t *testing.T) {
	s := loadScenario(t, "ring")
	s.Expect = Expectation{FiringVector: map[string]int{"A": 1}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "result: expected a schedule, got ")
	assert.Contains(t, result.Errors[0], "E220")
}

func TestRun_UnexpectedSuccess(t *testing.T) {
	s := loadScenario(t, "join")
	s.Expect = Expectation{ErrorKind: "deadlock"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"error: expected a rejection, got a schedule"}, result.Errors)
}

func TestRun_WrongErrorKind(t *testing.T) {
	s := loadScenario(t, "ring")
	s.Expect = Expectation{ErrorKind: "structural", ErrorCode: "E220", ErrorContains: "nope"}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "error_kind: expected structural, got deadlock", result.Errors[0])
	assert.Contains(t, result.Errors[1], `error_contains: expected message containing "nope"`)
}

func TestRun_ModelLoadFailureIsHarnessError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actors: [}"), 0644))

	_, err := Run(&Scenario{Name: "bad", Model: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestHarness_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &Harness{}
	_, err := h.Run(ctx, loadScenario(t, "join"))
	assert.ErrorIs(t, err, context.Canceled)
}
