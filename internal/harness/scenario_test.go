package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content next to an empty model file and returns
// the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.yaml"), []byte("name: m\n"), 0644))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	s := loadScenario(t, "join")

	assert.Equal(t, "join", s.Name)
	assert.Equal(t, filepath.Join("testdata", "models", "join.yaml"), s.Model)
	assert.Equal(t, map[string]int{"U": 1, "V": 2, "W": 1}, s.Expect.FiringVector)
	require.NotNil(t, s.Expect.CrossIterationEdges)
	assert.Equal(t, 1, *s.Expect.CrossIterationEdges)
	require.Len(t, s.Expect.FiringFunctions, 2)
	assert.Equal(t, []int{1}, s.Expect.FiringFunctions[0].Precedes)
	assert.False(t, s.Expect.ExpectsError())
}

func TestLoadScenario_ErrorExpectation(t *testing.T) {
	s := loadScenario(t, "parallel_drive")
	assert.True(t, s.Expect.ExpectsError())
	assert.Equal(t, "E202", s.Expect.ErrorCode)
}

func TestLoadScenario_Vars(t *testing.T) {
	s := loadScenario(t, "chain_vars")
	assert.Equal(t, map[string]string{"k": "3"}, s.Vars)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/nonexistent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "misspelled field"
model: m.yaml
expect:
  firing_vectors: {A: 1}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "firing_vectors")
}

func TestLoadScenario_AbsoluteModelPathKept(t *testing.T) {
	model, err := filepath.Abs(filepath.Join("testdata", "models", "join.yaml"))
	require.NoError(t, err)
	path := writeScenario(t, `
name: abs
description: "absolute model path"
model: `+model+`
expect:
  firing_vector: {U: 1}
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, model, s.Model)
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nmodel: m.yaml\nexpect: {error_code: E201}\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nmodel: m.yaml\nexpect: {error_code: E201}\n",
			want:    "description is required",
		},
		{
			name:    "missing model",
			content: "name: n\ndescription: d\nexpect: {error_code: E201}\n",
			want:    "model is required",
		},
		{
			name:    "model not found",
			content: "name: n\ndescription: d\nmodel: gone.yaml\nexpect: {error_code: E201}\n",
			want:    "gone.yaml",
		},
		{
			name:    "empty expect",
			content: "name: n\ndescription: d\nmodel: m.yaml\n",
			want:    "expect must set at least one field",
		},
		{
			name:    "mixed expect",
			content: "name: n\ndescription: d\nmodel: m.yaml\nexpect: {error_code: E201, firing_vector: {A: 1}}\n",
			want:    "cannot mix",
		},
		{
			name:    "unknown kind",
			content: "name: n\ndescription: d\nmodel: m.yaml\nexpect: {error_kind: fatal}\n",
			want:    `unknown error_kind "fatal"`,
		},
		{
			name:    "function without ports",
			content: "name: n\ndescription: d\nmodel: m.yaml\nexpect: {firing_functions: [{precedes: [1]}]}\n",
			want:    "firing_functions[0]: ports is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_SortedAndUnique(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"chain_vars",
		"disconnected",
		"disconnected_allowed",
		"join",
		"nested",
		"parallel_drive",
		"rate_mismatch",
		"relay_loop",
		"ring",
	}, names)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.json"), []byte(`{"name": "m"}`), 0644))
	body := []byte("name: same\ndescription: d\nmodel: m.json\nexpect: {error_code: E201}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), body, 0644))
	_, err = LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used by a.yaml`)
}
