// Package deadlock checks that a balanced firing vector can actually run.
//
// The simulator counts tokens on every junction for one iteration. A
// junction fed from the boundary starts with that iteration's tokens on top
// of its initial tokens; a junction feeding the boundary must end holding
// its initial tokens plus one iteration's output. Every other junction must
// end where it started.
package deadlock

import (
	"fmt"
	"log/slog"

	"github.com/roach88/sdfsched/internal/balance"
	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// Options controls simulation.
type Options struct {
	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Step is one run of consecutive firings of the same actor and function.
type Step struct {
	Actor          graph.ActorID
	FiringFunction int
	Iterations     int
}

// JunctionState records the token count of a junction before and after
// one simulated iteration.
type JunctionState struct {
	Junction graph.JunctionID
	Initial  int
	Final    int
}

// Trace is the outcome of a successful simulation.
type Trace struct {
	// Steps is the sequential schedule, run-length encoded.
	Steps []Step

	// Junctions is indexed by JunctionID.
	Junctions []JunctionState

	// Firings is the total number of firings simulated.
	Firings int
}

// Simulate fires actors greedily in handle order until every actor has
// completed its firings for one iteration.
func Simulate(g *graph.Graph, sol *balance.Solution, opts Options) (*Trace, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	junctions := g.Junctions()
	tokens := make([]int, len(junctions))
	for i, j := range junctions {
		tokens[i] = j.Delay
		if g.IsBoundary(j.From) {
			tokens[i] += sol.Rate(j.From)
		}
	}

	actors := g.Actors()
	remaining := make([]int, g.NumActors())
	next := make([]int, g.NumActors())
	pending := 0
	for _, a := range actors {
		remaining[a] = sol.Count(a) * g.FiringFunctionCount(a)
		pending += remaining[a]
	}

	trace := &Trace{}
	for pending > 0 {
		progress := false
		for _, a := range actors {
			for remaining[a] > 0 && firable(g, tokens, a, next[a]) {
				fire(g, tokens, a, next[a])
				trace.record(a, next[a])
				remaining[a]--
				pending--
				next[a] = (next[a] + 1) % g.FiringFunctionCount(a)
				progress = true
			}
		}
		if !progress {
			return nil, deadlockError(g, actors, remaining)
		}
	}

	trace.Junctions = make([]JunctionState, len(junctions))
	for i, j := range junctions {
		want := j.Delay
		if g.IsBoundary(j.To) {
			want += sol.Rate(j.To)
		}
		if tokens[i] != want {
			return nil, sdferr.NewInvariant("junction %s -> %s holds %d tokens after one iteration, want %d",
				g.QualifiedName(j.From), g.QualifiedName(j.To), tokens[i], want)
		}
		trace.Junctions[i] = JunctionState{Junction: j.ID, Initial: j.Delay, Final: tokens[i]}
	}

	log.Debug("deadlock check passed",
		"firings", trace.Firings,
		"steps", len(trace.Steps),
	)
	return trace, nil
}

func (t *Trace) record(a graph.ActorID, f int) {
	t.Firings++
	if n := len(t.Steps); n > 0 {
		last := &t.Steps[n-1]
		if last.Actor == a && last.FiringFunction == f {
			last.Iterations++
			return
		}
	}
	t.Steps = append(t.Steps, Step{Actor: a, FiringFunction: f, Iterations: 1})
}

// firable reports whether every input of function f has enough tokens.
// Unconnected inputs never block.
func firable(g *graph.Graph, tokens []int, a graph.ActorID, f int) bool {
	for _, p := range g.Ports(a) {
		if !g.Port(p).Input {
			continue
		}
		need := g.PortRate(p, f)
		for _, j := range g.JunctionsInto(p) {
			if tokens[j] < need {
				return false
			}
		}
	}
	return true
}

func fire(g *graph.Graph, tokens []int, a graph.ActorID, f int) {
	for _, p := range g.Ports(a) {
		rate := g.PortRate(p, f)
		if g.Port(p).Input {
			for _, j := range g.JunctionsInto(p) {
				tokens[j] -= rate
			}
			continue
		}
		for _, j := range g.JunctionsFrom(p) {
			tokens[j] += rate
		}
	}
}

func deadlockError(g *graph.Graph, actors []graph.ActorID, remaining []int) error {
	var stuck []graph.ActorID
	var names []string
	for _, a := range actors {
		if remaining[a] > 0 {
			stuck = append(stuck, a)
			names = append(names, fmt.Sprintf("%s(%d remaining)", g.Actor(a).Name, remaining[a]))
		}
	}
	var cycles []string
	for _, c := range zeroDelayCycles(g, stuck) {
		cycles = append(cycles, c.Render(g))
	}
	return sdferr.NewDeadlock(names, cycles)
}
