package ir

import (
	"fmt"
	"strings"
)

// Port directions.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// Actor kinds.
const (
	KindAtomic    = "atomic"
	KindComposite = "composite"
	KindRelay     = "relay"
)

// Relay port names. Relays never declare ports; these two are implied.
const (
	RelayInput  = "input"
	RelayOutput = "output"
)

// Model is one snapshot of a host dataflow graph.
//
// Ports are the boundary ports of the graph itself. Their rates are solved
// by the scheduler; any Rate given on a boundary PortSpec is ignored.
type Model struct {
	Name        string       `json:"name" yaml:"name"`
	Ports       []PortSpec   `json:"ports,omitempty" yaml:"ports,omitempty"`
	Actors      []ActorSpec  `json:"actors,omitempty" yaml:"actors"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`

	// Source is the file the model was loaded from. Nested model paths
	// are resolved relative to its directory.
	Source string `json:"-" yaml:"-"`
}

// PortSpec declares a port and its per-firing rate.
type PortSpec struct {
	Name      string `json:"name" yaml:"name"`
	Direction string `json:"direction" yaml:"direction"`
	Rate      int    `json:"rate" yaml:"rate"`
}

// IsInput reports whether the port consumes tokens.
func (p PortSpec) IsInput() bool { return p.Direction == DirectionInput }

// ActorSpec declares one actor.
//
// Composite actors take their firing functions from exactly one of
// FiringFunctions, Model (a nested model scheduled on demand) or Profile
// (a profile file emitted by an earlier run).
type ActorSpec struct {
	Name            string           `json:"name" yaml:"name"`
	Kind            string           `json:"kind,omitempty" yaml:"kind,omitempty"`
	Ports           []PortSpec       `json:"ports,omitempty" yaml:"ports,omitempty"`
	InitialTokens   int              `json:"initial_tokens,omitempty" yaml:"initial_tokens,omitempty"`
	FiringFunctions []FiringFunction `json:"firing_functions,omitempty" yaml:"firing_functions,omitempty"`
	Model           string           `json:"model,omitempty" yaml:"model,omitempty"`
	Profile         string           `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// EffectiveKind returns Kind with the atomic default applied.
func (a ActorSpec) EffectiveKind() string {
	if a.Kind == "" {
		return KindAtomic
	}
	return a.Kind
}

// Connection wires a driving endpoint to a receiving endpoint.
// Endpoints are "actor.port" or a bare boundary port name.
type Connection struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// FiringPort is one boundary port touched by a firing function.
type FiringPort struct {
	Name  string `json:"name" yaml:"name"`
	Rate  int    `json:"rate" yaml:"rate"`
	Input bool   `json:"input" yaml:"input"`
}

// FiringFunction is one externally schedulable unit of a composite graph.
//
// Index lists refer to other functions of the same profile. Precedes and
// Succeeds order functions within one iteration; the NextIteration and
// PreviousIteration lists link an iteration to the one after it.
type FiringFunction struct {
	Ports                     []FiringPort `json:"ports,omitempty" yaml:"ports,omitempty"`
	Precedes                  []int        `json:"precedes,omitempty" yaml:"precedes,omitempty"`
	Succeeds                  []int        `json:"succeeds,omitempty" yaml:"succeeds,omitempty"`
	PrecedesNextIteration     []int        `json:"precedes_next_iteration,omitempty" yaml:"precedes_next_iteration,omitempty"`
	SucceedsPreviousIteration []int        `json:"succeeds_previous_iteration,omitempty" yaml:"succeeds_previous_iteration,omitempty"`

	// Firings names the member firings, for diagnostics only.
	Firings []string `json:"firings,omitempty" yaml:"firings,omitempty"`
}

// Rate returns the rate declared for the named port, or 0.
func (f FiringFunction) Rate(port string) int {
	for _, p := range f.Ports {
		if p.Name == port {
			return p.Rate
		}
	}
	return 0
}

// Profile is the externally visible face of a scheduled model: its boundary
// ports with solved rates and its ordered firing functions.
type Profile struct {
	Name            string           `json:"name" yaml:"name"`
	Ports           []PortSpec       `json:"ports,omitempty" yaml:"ports"`
	FiringFunctions []FiringFunction `json:"firing_functions,omitempty" yaml:"firing_functions"`
}

// Composite converts the profile into a composite actor declaration.
func (p *Profile) Composite(name string) ActorSpec {
	ports := make([]PortSpec, len(p.Ports))
	copy(ports, p.Ports)
	ffs := make([]FiringFunction, len(p.FiringFunctions))
	copy(ffs, p.FiringFunctions)
	return ActorSpec{
		Name:            name,
		Kind:            KindComposite,
		Ports:           ports,
		FiringFunctions: ffs,
	}
}

// ParseEndpoint splits "actor.port" into its parts. A bare name is a
// boundary port and yields an empty actor.
func ParseEndpoint(s string) (actor, port string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("empty endpoint")
	}
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return "", s, nil
	}
	actor, port = s[:i], s[i+1:]
	if actor == "" || port == "" {
		return "", "", fmt.Errorf("malformed endpoint %q", s)
	}
	return actor, port, nil
}
