// Package balance solves the SDF balance equations of a graph.
//
// Every actor and every boundary port is a node. A boundary port behaves
// like an actor with a single port of rate 1, so its solved "count" is the
// number of tokens it carries per iteration. Counts are exact fractions
// until each island is normalized to integers.
package balance

import (
	"log/slog"
	"slices"

	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// Options controls solving.
type Options struct {
	// AllowDisconnected solves every island on its own instead of rejecting
	// graphs whose actors are not all connected.
	AllowDisconnected bool

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Solution is the integer firing vector and boundary rates of one graph.
type Solution struct {
	// Firings is indexed by ActorID. Relays hold 0.
	Firings []int

	// Rates is indexed by PortID. Only boundary ports are filled.
	Rates []int

	// Islands lists the actors of each connected component, seed island
	// first. Islands made only of boundary ports are omitted.
	Islands [][]graph.ActorID
}

// Count returns the firings per iteration of an actor.
func (s *Solution) Count(a graph.ActorID) int { return s.Firings[a] }

// Rate returns the tokens per iteration of a boundary port.
func (s *Solution) Rate(p graph.PortID) int { return s.Rates[p] }

// Tokens returns the tokens per iteration moved through p: the solved rate
// of a boundary port, or count times rate for an actor port.
func (s *Solution) Tokens(g *graph.Graph, p graph.PortID) int {
	port := g.Port(p)
	if port.IsBoundary() {
		return s.Rates[p]
	}
	return s.Firings[port.Actor] * port.Rate
}

// Solve computes the firing vector and the boundary rates.
func Solve(g *graph.Graph, opts Options) (*Solution, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := newSolver(g)
	islands := s.islands()

	seeded := s.orderIslands(islands)
	if !opts.AllowDisconnected && len(seeded) > 1 {
		var reached, unreached []string
		for i, isl := range seeded {
			for _, n := range isl {
				if n.actor == graph.NoActor {
					continue
				}
				if i == 0 {
					reached = append(reached, g.Actor(n.actor).Name)
				} else {
					unreached = append(unreached, g.Actor(n.actor).Name)
				}
			}
		}
		slices.Sort(unreached)
		slices.Sort(reached)
		return nil, sdferr.NewDisconnected(unreached, reached)
	}

	sol := &Solution{
		Firings: make([]int, g.NumActors()),
		Rates:   make([]int, g.NumPorts()),
	}
	for _, isl := range islands {
		if err := s.solveIsland(isl); err != nil {
			return nil, err
		}
		if err := s.normalize(isl, sol); err != nil {
			return nil, err
		}
	}
	for _, isl := range seeded {
		var actors []graph.ActorID
		for _, n := range isl {
			if n.actor != graph.NoActor {
				actors = append(actors, n.actor)
			}
		}
		sol.Islands = append(sol.Islands, actors)
	}

	log.Debug("balance solved",
		"islands", len(islands),
		"actors", len(g.Actors()),
		"restarts", s.restarts,
	)
	return sol, nil
}

// Check verifies that every junction moves as many tokens in as out.
func Check(g *graph.Graph, sol *Solution) error {
	for _, j := range g.Junctions() {
		produced := sol.Tokens(g, j.From)
		consumed := sol.Tokens(g, j.To)
		if produced != consumed {
			return sdferr.NewRateMismatch(
				g.QualifiedName(j.To),
				itoa(consumed),
				itoa(produced),
				g.QualifiedName(j.From),
			)
		}
	}
	return nil
}
