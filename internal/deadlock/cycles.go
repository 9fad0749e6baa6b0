package deadlock

import (
	"slices"
	"strings"

	"github.com/roach88/sdfsched/internal/graph"
)

// Cycle is a dependency loop among stuck actors with no initial tokens on
// any of its junctions.
type Cycle struct {
	Path []graph.ActorID // first actor repeated at the end
}

// dependencyGraph maps actor -> actors it feeds through zero-delay junctions.
type dependencyGraph map[graph.ActorID][]graph.ActorID

// zeroDelayCycles finds the token-free loops among the given actors.
//
// The algorithm:
//  1. Build actor -> actor edges from junctions that carry no initial tokens
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
func zeroDelayCycles(g *graph.Graph, actors []graph.ActorID) []Cycle {
	member := make(map[graph.ActorID]bool, len(actors))
	for _, a := range actors {
		member[a] = true
	}

	deps := make(dependencyGraph)
	for _, a := range actors {
		deps[a] = []graph.ActorID{}
	}
	for _, j := range g.Junctions() {
		if j.Delay > 0 || g.IsBoundary(j.From) || g.IsBoundary(j.To) {
			continue
		}
		from, to := g.Port(j.From).Actor, g.Port(j.To).Actor
		if member[from] && member[to] && !slices.Contains(deps[from], to) {
			deps[from] = append(deps[from], to)
		}
	}

	var cycles []Cycle
	for _, scc := range tarjanSCC(deps, actors) {
		if len(scc) > 1 || hasSelfLoop(scc[0], deps) {
			cycles = append(cycles, Cycle{Path: reconstructCyclePath(scc, deps)})
		}
	}
	return cycles
}

func hasSelfLoop(node graph.ActorID, deps dependencyGraph) bool {
	return slices.Contains(deps[node], node)
}

// tarjanSCC finds strongly connected components with an explicit stack,
// visiting roots in the given order. Each SCC is sorted by handle.
func tarjanSCC(deps dependencyGraph, order []graph.ActorID) [][]graph.ActorID {
	var (
		index   = 0
		stack   []graph.ActorID
		indices = make(map[graph.ActorID]int)
		lowlink = make(map[graph.ActorID]int)
		onStack = make(map[graph.ActorID]bool)
		sccs    [][]graph.ActorID
	)

	type frame struct {
		v    graph.ActorID
		next int // next successor to consider
	}

	for _, root := range order {
		if _, visited := indices[root]; visited {
			continue
		}
		work := []frame{{v: root}}
		indices[root], lowlink[root] = index, index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.v
			if top.next < len(deps[v]) {
				w := deps[v][top.next]
				top.next++
				if _, visited := indices[w]; !visited {
					indices[w], lowlink[w] = index, index
					index++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{v: w})
				} else if onStack[w] {
					lowlink[v] = min(lowlink[v], indices[w])
				}
				continue
			}

			// All successors done: v is finished.
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].v
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}
			if lowlink[v] == indices[v] {
				var scc []graph.ActorID
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				slices.Sort(scc)
				sccs = append(sccs, scc)
			}
		}
	}
	return sccs
}

// reconstructCyclePath walks from the lowest member along edges inside the
// SCC until it returns to the start.
func reconstructCyclePath(scc []graph.ActorID, deps dependencyGraph) []graph.ActorID {
	inSCC := make(map[graph.ActorID]bool, len(scc))
	for _, a := range scc {
		inSCC[a] = true
	}

	start := scc[0]
	current := start
	path := []graph.ActorID{current}
	visited := make(map[graph.ActorID]bool)
	for {
		visited[current] = true
		next := graph.NoActor
		for _, w := range deps[current] {
			if inSCC[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == graph.NoActor {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

// Render renders the cycle as "A -> B -> A".
func (c Cycle) Render(g *graph.Graph) string {
	names := make([]string, len(c.Path))
	for i, a := range c.Path {
		names[i] = g.Actor(a).Name
	}
	return strings.Join(names, " -> ")
}
