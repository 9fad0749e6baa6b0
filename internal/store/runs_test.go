package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/sdferr"
	"github.com/roach88/sdfsched/internal/testutil"
)

func TestWriteRun_RoundTripsResult(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, err := scheduleModel(t, testutil.Join())
	require.NoError(t, err)

	seq, err := s.WriteRun(ctx, NewRun("run-1", res.Model, res.Hash, res, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, run.Status)
	assert.Equal(t, "join", run.ModelName)
	assert.Equal(t, ir.ToolVersion, run.ToolVersion)
	assert.Equal(t, res, run.Result)
}

func TestWriteRun_RecordsFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := testutil.ScenarioE()
	_, schedErr := scheduleModel(t, m)
	require.Error(t, schedErr)

	_, err := s.WriteRun(ctx, NewRun("run-1", m.Name, ir.MustModelHash(m), nil, schedErr))
	require.NoError(t, err)

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, run.Status)
	assert.Equal(t, string(sdferr.KindStructural), run.ErrorKind)
	assert.Equal(t, sdferr.CodeDisconnected, run.ErrorCode)
	assert.Contains(t, run.ErrorMessage, "X")
	assert.Nil(t, run.Result)
}

func TestWriteRun_SeqIsMonotonic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	gen := NewFixedGenerator("b", "a", "c")

	for want := int64(1); want <= 3; want++ {
		seq, err := s.WriteRun(ctx, NewRun(gen.Generate(), "m", "h", nil, errors.New("boom")))
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.WriteRun(ctx, NewRun("same", "m", "h", nil, errors.New("boom")))
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, NewRun("other", "m", "h", nil, errors.New("boom")))
	require.NoError(t, err)
	again, err := s.WriteRun(ctx, NewRun("same", "m", "h", nil, errors.New("different")))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	run, err := s.ReadRun(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, "boom", run.ErrorMessage)
}

func TestWriteRun_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, Run{Status: StatusOK})
	assert.Error(t, err)

	_, err = s.WriteRun(ctx, Run{ID: "x", Status: "maybe"})
	assert.Error(t, err)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	gen := NewFixedGenerator("r1", "r2", "r3", "r4")
	for i := 0; i < 4; i++ {
		_, err := s.WriteRun(ctx, NewRun(gen.Generate(), "m", "h", nil, errors.New("boom")))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r4", runs[1].ID)
}

func TestLatestSuccessByHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, err := scheduleModel(t, testutil.Join())
	require.NoError(t, err)

	_, found, err := s.LatestSuccessByHash(ctx, res.Hash)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.WriteRun(ctx, NewRun("ok-1", res.Model, res.Hash, res, nil))
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, NewRun("err-1", res.Model, res.Hash, nil, errors.New("boom")))
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, NewRun("ok-2", res.Model, res.Hash, res, nil))
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, NewRun("other", "x", "other-hash", res, nil))
	require.NoError(t, err)

	run, found, err := s.LatestSuccessByHash(ctx, res.Hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ok-2", run.ID)
	assert.Equal(t, res.FiringMap(), run.Result.FiringMap())
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
