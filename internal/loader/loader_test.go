package loader

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/testutil"
)

func newLoader(vars map[string]string) *Loader {
	l := New(vars)
	l.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return l
}

func expectedJoin(path string) *ir.Model {
	m := testutil.Join()
	m.Source = path
	return m
}

func TestLoadModel_AllFormatsAgree(t *testing.T) {
	for _, name := range []string{"join.yaml", "join.json", "join.cue", "join.hcl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join("testdata", name)
			m, err := newLoader(nil).LoadModel(path)
			require.NoError(t, err)
			assert.Equal(t, expectedJoin(path), m)
		})
	}
}

func TestLoadModel_Variables(t *testing.T) {
	for _, name := range []string{"join.cue", "join.hcl"} {
		t.Run(name, func(t *testing.T) {
			m, err := newLoader(map[string]string{"w_rate": "4"}).LoadModel(filepath.Join("testdata", name))
			require.NoError(t, err)
			require.Len(t, m.Actors, 3)
			assert.Equal(t, 4, m.Actors[2].Ports[0].Rate)
		})
	}
}

func TestLoadModel_UndeclaredVariable(t *testing.T) {
	for _, name := range []string{"join.cue", "join.hcl"} {
		t.Run(name, func(t *testing.T) {
			_, err := newLoader(map[string]string{"nope": "1"}).LoadModel(filepath.Join("testdata", name))
			requireCode(t, err, ErrCodeVariable)
			assert.Contains(t, err.Error(), `"nope"`)
		})
	}
}

func TestLoadModel_VariablesRejectedForPlainDocuments(t *testing.T) {
	_, err := newLoader(map[string]string{"w_rate": "4"}).LoadModel(filepath.Join("testdata", "join.yaml"))
	requireCode(t, err, ErrCodeVariable)
}

func TestLoadModel_CUEIncomplete(t *testing.T) {
	path := filepath.Join("testdata", "incomplete.cue")

	_, err := newLoader(nil).LoadModel(path)
	requireCode(t, err, ErrCodeIncomplete)

	m, err := newLoader(map[string]string{"n": "3"}).LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Actors[0].Ports[0].Rate)
}

func TestLoadModel_CUENoModelField(t *testing.T) {
	_, err := newLoader(nil).LoadModel(filepath.Join("testdata", "nomodel.cue"))
	requireCode(t, err, ErrCodeNoModel)
}

func TestLoadModel_CUEDirectory(t *testing.T) {
	dir := t.TempDir()
	vars := `package join

vars: rate: int | *2
`
	model := `package join

model: {
	name: "pair"
	actors: [
		{name: "A", ports: [{name: "out", direction: "output", rate: vars.rate}]},
		{name: "B", ports: [{name: "in", direction: "input", rate: 1}]},
	]
	connections: [{from: "A.out", to: "B.in"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vars.cue"), []byte(vars), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(model), 0644))

	m, err := newLoader(nil).LoadModel(dir)
	require.NoError(t, err)
	assert.Equal(t, "pair", m.Name)
	assert.Equal(t, dir, m.Source)
	assert.Equal(t, 2, m.Actors[0].Ports[0].Rate)
}

func TestLoadModel_HCLRelaysAndComposites(t *testing.T) {
	m, err := newLoader(nil).LoadModel(filepath.Join("testdata", "loop.hcl"))
	require.NoError(t, err)
	require.Len(t, m.Actors, 3)
	assert.Equal(t, ir.ActorSpec{Name: "D", Kind: ir.KindRelay, InitialTokens: 1}, m.Actors[2])

	m, err = newLoader(nil).LoadModel(filepath.Join("testdata", "composite.hcl"))
	require.NoError(t, err)
	require.Len(t, m.Actors, 1)
	c := m.Actors[0]
	assert.Equal(t, ir.KindComposite, c.Kind)
	require.Len(t, c.FiringFunctions, 2)
	assert.Equal(t, []ir.FiringPort{{Name: "in", Rate: 1, Input: true}}, c.FiringFunctions[0].Ports)
	assert.Equal(t, []int{1}, c.FiringFunctions[0].Precedes)
	assert.Equal(t, []ir.FiringPort{{Name: "out", Rate: 1}}, c.FiringFunctions[1].Ports)
	assert.Equal(t, []int{0}, c.FiringFunctions[1].Succeeds)
}

func TestLoadModel_HCLSyntaxErrorHasPosition(t *testing.T) {
	_, err := newLoader(nil).LoadModel(filepath.Join("testdata", "broken.hcl"))
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeParse, le.Code)
	assert.Positive(t, le.Line)
}

func TestLoadModel_UnknownField(t *testing.T) {
	_, err := newLoader(nil).LoadModel(filepath.Join("testdata", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoadModel_Errors(t *testing.T) {
	dir := t.TempDir()
	toml := filepath.Join(dir, "model.toml")
	require.NoError(t, os.WriteFile(toml, []byte("name = 'x'"), 0644))

	_, err := newLoader(nil).LoadModel(filepath.Join(dir, "missing.yaml"))
	requireCode(t, err, ErrCodeNotFound)

	_, err = newLoader(nil).LoadModel(toml)
	requireCode(t, err, ErrCodeFormat)
}

func TestLoadModel_NameDefaultsToFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actors:\n  - name: A\n"), 0644))

	m, err := newLoader(nil).LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "pipeline", m.Name)
}

func TestLoadProfile(t *testing.T) {
	p, err := newLoader(nil).LoadProfile(filepath.Join("testdata", "join.profile.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "join", p.Name)
	require.Len(t, p.FiringFunctions, 2)
	assert.Equal(t, 2, p.FiringFunctions[0].Rate("in2"))
	assert.Equal(t, []int{0}, p.FiringFunctions[1].Succeeds)

	_, err = newLoader(nil).LoadProfile(filepath.Join("testdata", "join.cue"))
	requireCode(t, err, ErrCodeFormat)
}

func TestParseVars(t *testing.T) {
	vars, err := ParseVars([]string{"a=1", "b = two", "a=3", "eq=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": " two", "eq": "x=y"}, vars)

	_, err = ParseVars([]string{"novalue"})
	requireCode(t, err, ErrCodeVariable)

	_, err = ParseVars([]string{"=1"})
	requireCode(t, err, ErrCodeVariable)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var le *Error
	require.True(t, errors.As(err, &le), "want *loader.Error, got %v", err)
	assert.Equal(t, code, le.Code)
}
