package schedule

import (
	"github.com/roach88/sdfsched/internal/balance"
	"github.com/roach88/sdfsched/internal/deadlock"
	"github.com/roach88/sdfsched/internal/firing"
	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/ir"
)

// ActorCount is one entry of the firing vector.
type ActorCount struct {
	Actor string `json:"actor" yaml:"actor"`
	Count int    `json:"count" yaml:"count"`
}

// PortRate is the solved rate of one boundary port.
type PortRate struct {
	Port      string `json:"port" yaml:"port"`
	Direction string `json:"direction" yaml:"direction"`
	Rate      int    `json:"rate" yaml:"rate"`
}

// Step is a run of consecutive firings in the sequential schedule.
type Step struct {
	Actor          string `json:"actor"`
	FiringFunction int    `json:"firing_function"`
	Iterations     int    `json:"iterations"`
}

// PassThrough is a direct connection between two boundary ports.
type PassThrough struct {
	From string `json:"from"`
	To   string `json:"to"`
	Rate int    `json:"rate"`
}

// Result is the full outcome of scheduling one model.
type Result struct {
	Model string `json:"model"`

	// Hash identifies the resolved model the result was computed from.
	Hash string `json:"hash"`

	FiringVector  []ActorCount `json:"firing_vector,omitempty"`
	ExternalRates []PortRate   `json:"external_rates,omitempty"`

	// Schedule is a valid sequential firing order for one iteration.
	Schedule []Step `json:"schedule,omitempty"`

	FiringFunctions []ir.FiringFunction `json:"firing_functions,omitempty"`
	PassThroughs    []PassThrough       `json:"pass_throughs,omitempty"`

	Firings             int `json:"firings"`
	CrossIterationEdges int `json:"cross_iteration_edges"`
}

func newResult(name, hash string, g *graph.Graph, sol *balance.Solution, trace *deadlock.Trace, fg *firing.Graph, cl *firing.Clustering) *Result {
	res := &Result{
		Model:               name,
		Hash:                hash,
		FiringFunctions:     cl.FiringFunctions,
		Firings:             trace.Firings,
		CrossIterationEdges: fg.CrossIterationEdges(),
	}
	for _, a := range g.Actors() {
		res.FiringVector = append(res.FiringVector, ActorCount{Actor: g.Actor(a).Name, Count: sol.Count(a)})
	}
	for _, p := range g.BoundaryPorts() {
		port := g.Port(p)
		res.ExternalRates = append(res.ExternalRates, PortRate{Port: port.Name, Direction: port.Direction(), Rate: sol.Rate(p)})
	}
	for _, st := range trace.Steps {
		res.Schedule = append(res.Schedule, Step{
			Actor:          g.Actor(st.Actor).Name,
			FiringFunction: st.FiringFunction,
			Iterations:     st.Iterations,
		})
	}
	for _, jid := range g.PassThroughs() {
		j := g.Junction(jid)
		res.PassThroughs = append(res.PassThroughs, PassThrough{
			From: g.Port(j.From).Name,
			To:   g.Port(j.To).Name,
			Rate: sol.Rate(j.To),
		})
	}
	return res
}

// Profile returns the face of the scheduled model as seen by an enclosing
// model: its boundary ports with solved rates and its firing functions.
func (r *Result) Profile() *ir.Profile {
	p := &ir.Profile{Name: r.Model, FiringFunctions: r.FiringFunctions}
	for _, pr := range r.ExternalRates {
		p.Ports = append(p.Ports, ir.PortSpec{Name: pr.Port, Direction: pr.Direction, Rate: pr.Rate})
	}
	return p
}

// FiringMap returns the firing vector keyed by actor name.
func (r *Result) FiringMap() map[string]int {
	m := make(map[string]int, len(r.FiringVector))
	for _, ac := range r.FiringVector {
		m[ac.Actor] = ac.Count
	}
	return m
}

// RateMap returns the external rates keyed by port name.
func (r *Result) RateMap() map[string]int {
	m := make(map[string]int, len(r.ExternalRates))
	for _, pr := range r.ExternalRates {
		m[pr.Port] = pr.Rate
	}
	return m
}
