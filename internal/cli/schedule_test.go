package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sdfsched/internal/schedule"
	"github.com/roach88/sdfsched/internal/store"
)

type scheduleResponse struct {
	Status string           `json:"status"`
	Data   *schedule.Result `json:"data"`
	Error  *CLIError        `json:"error"`
	RunID  string           `json:"run_id"`
}

// newTestCommand returns a bare command whose output goes to buf.
func newTestCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func scheduleOpts(format, db string, ids ...string) *ScheduleOptions {
	return &ScheduleOptions{
		ModelOptions: ModelOptions{RootOptions: quietRoot(format)},
		Database:     db,
		IDGenerator:  store.NewFixedGenerator(ids...),
	}
}

func TestSchedule_TextGolden(t *testing.T) {
	stdout, _, err := runCLI(t, "schedule", "testdata/models/join.yaml")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "schedule_join", []byte(stdout))
}

func TestSchedule_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "json", "schedule", "testdata/models/join.yaml")
	require.NoError(t, err)

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "join", resp.Data.Model)
	assert.Equal(t, 4, resp.Data.Firings)
	assert.Equal(t, map[string]int{"U": 1, "V": 2, "W": 1}, resp.Data.FiringMap())
	assert.Len(t, resp.Data.Hash, 64)
	assert.Empty(t, resp.RunID)
}

func TestSchedule_NestedModel(t *testing.T) {
	stdout, _, err := runCLI(t, "schedule", "testdata/models/outer.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "model outer\n")
	assert.Contains(t, stdout, "  J x1\n  J/1 x1\n")
}

func TestSchedule_Vars(t *testing.T) {
	stdout, _, err := runCLI(t, "schedule", "testdata/models/chain.hcl", "--var", "k=3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  A x1\n  B x3\n")

	_, _, err = runCLI(t, "schedule", "testdata/models/chain.hcl", "--var", "k")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSchedule_Rejected(t *testing.T) {
	stdout, _, err := runCLI(t, "schedule", "testdata/models/ring.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "model rejected")
	assert.Contains(t, stdout, "Error [E220] deadlock:")
}

func TestSchedule_RejectedJSON(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "json", "schedule", "testdata/models/ring.yaml")
	require.Error(t, err)

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E220", resp.Error.Code)
	assert.Equal(t, "deadlock", resp.Error.Kind)
	assert.NotNil(t, resp.Error.Details)
}

func TestSchedule_CommandErrors(t *testing.T) {
	_, _, err := runCLI(t, "schedule", "testdata/models/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load model")

	_, _, err = runCLI(t, "schedule", "testdata/models/join.yaml", "--cached")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--cached requires --db")

	_, _, err = runCLI(t, "schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestSchedule_RecordsRunsAndUsesCache(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	// First run is recorded.
	buf := &bytes.Buffer{}
	opts := scheduleOpts("json", db, "run-1")
	require.NoError(t, runSchedule(opts, "testdata/models/join.yaml", newTestCommand(buf)))
	var first scheduleResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &first))
	assert.Equal(t, "run-1", first.RunID)

	// A cache hit returns the stored run without generating an ID.
	buf.Reset()
	opts = scheduleOpts("json", db)
	opts.Cached = true
	require.NoError(t, runSchedule(opts, "testdata/models/join.yaml", newTestCommand(buf)))
	var cached scheduleResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &cached))
	assert.Equal(t, "run-1", cached.RunID)
	assert.Equal(t, first.Data, cached.Data)

	// Rejections are recorded too.
	buf.Reset()
	err := runSchedule(scheduleOpts("text", db, "run-2"), "testdata/models/ring.yaml", newTestCommand(buf))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, store.StatusOK, runs[0].Status)
	assert.Equal(t, first.Data.Hash, runs[0].ModelHash)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, store.StatusError, runs[1].Status)
	assert.Equal(t, "E220", runs[1].ErrorCode)
}

func TestSchedule_CacheMissSchedules(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	buf := &bytes.Buffer{}

	opts := scheduleOpts("text", db, "run-1")
	opts.Cached = true
	require.NoError(t, runSchedule(opts, "testdata/models/join.yaml", newTestCommand(buf)))
	assert.Contains(t, buf.String(), "model join\n")
}
