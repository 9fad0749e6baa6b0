package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sdfsched/internal/sdferr"
)

// Scenario defines a conformance test scenario.
// A scenario schedules one model and checks the outcome against its
// expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path to the model file or CUE package directory.
	// Relative paths resolve against the scenario file location.
	Model string `yaml:"model"`

	// Vars are passed to CUE and HCL models.
	Vars map[string]string `yaml:"vars,omitempty"`

	// AllowDisconnected schedules each island of a disconnected graph.
	AllowDisconnected bool `yaml:"allow_disconnected,omitempty"`

	// Expect describes the outcome. Success fields and error fields are
	// mutually exclusive.
	Expect Expectation `yaml:"expect"`
}

// Expectation is the expected outcome of a scenario.
// Every field is optional; an unset field is not checked.
type Expectation struct {
	// FiringVector maps actor name to firings per iteration.
	// Actors that are not listed are not checked.
	FiringVector map[string]int `yaml:"firing_vector,omitempty"`

	// ExternalRates maps boundary port name to tokens per iteration.
	ExternalRates map[string]int `yaml:"external_rates,omitempty"`

	// FiringFunctions is compared in order against the produced profile.
	FiringFunctions []FunctionExpectation `yaml:"firing_functions,omitempty"`

	// Schedule lists the expected sequential steps as "NAME xN" or
	// "NAME/K xN", the same form the text output uses.
	Schedule []string `yaml:"schedule,omitempty"`

	CrossIterationEdges *int `yaml:"cross_iteration_edges,omitempty"`

	// ErrorKind is one of structural, inconsistency, deadlock, internal.
	ErrorKind string `yaml:"error_kind,omitempty"`

	// ErrorCode is the stable code of the rejection, such as E202.
	ErrorCode string `yaml:"error_code,omitempty"`

	// ErrorContains must appear in the error message.
	ErrorContains string `yaml:"error_contains,omitempty"`
}

// FunctionExpectation describes one firing function.
type FunctionExpectation struct {
	// Ports maps port name to rate. The function must use exactly these
	// ports.
	Ports    map[string]int `yaml:"ports"`
	Precedes []int          `yaml:"precedes,omitempty"`
	Succeeds []int          `yaml:"succeeds,omitempty"`
}

// ExpectsError reports whether the scenario expects the model to be
// rejected.
func (e Expectation) ExpectsError() bool {
	return e.ErrorKind != "" || e.ErrorCode != "" || e.ErrorContains != ""
}

func (e Expectation) expectsSuccess() bool {
	return len(e.FiringVector) > 0 ||
		len(e.ExternalRates) > 0 ||
		len(e.FiringFunctions) > 0 ||
		len(e.Schedule) > 0 ||
		e.CrossIterationEdges != nil
}

// LoadScenario reads and parses a scenario YAML file.
// The model path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to basePath.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "firing_vectors:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml scenario in dir, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", name, s.Name, prev)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model is required")
	}

	if _, err := os.Stat(s.Model); err != nil {
		return fmt.Errorf("model %s: %w", s.Model, err)
	}

	e := s.Expect
	if !e.ExpectsError() && !e.expectsSuccess() {
		return fmt.Errorf("expect must set at least one field")
	}

	if e.ExpectsError() && e.expectsSuccess() {
		return fmt.Errorf("expect cannot mix error fields with result fields")
	}

	if e.ErrorKind != "" {
		switch sdferr.Kind(e.ErrorKind) {
		case sdferr.KindStructural, sdferr.KindInconsistency, sdferr.KindDeadlock, sdferr.KindInternal:
		default:
			return fmt.Errorf("unknown error_kind %q", e.ErrorKind)
		}
	}

	for i, ff := range e.FiringFunctions {
		if len(ff.Ports) == 0 {
			return fmt.Errorf("firing_functions[%d]: ports is required", i)
		}
	}

	return nil
}
