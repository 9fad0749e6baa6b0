// Package firing expands a solved graph into individual firings, links them
// by precedence and clusters them into externally schedulable functions.
//
// A firing is one (actor, iteration, function) triple. Same-iteration edges
// order firings inside one iteration of the enclosing schedule; cross
// iteration edges link a firing to one in the next iteration and come from
// initial tokens or from an actor's own firing order wrapping around.
package firing

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/sdfsched/internal/balance"
	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// ID indexes the firing arena.
type ID int

// Key identifies a firing.
type Key struct {
	Actor     graph.ActorID
	Iteration int
	Function  int
}

// PortTokens is the number of tokens a firing moves through one boundary
// port. Zero-token connections are recorded too.
type PortTokens struct {
	Port   graph.PortID
	Tokens int
}

// Firing is one node of the firing graph.
type Firing struct {
	ID ID
	Key

	// Succ and Pred are same-iteration edges.
	Succ []ID
	Pred []ID

	// NextSucc points into the next iteration; PrevPred is its reverse.
	NextSucc []ID
	PrevPred []ID

	// Consumes is set when the firing takes tokens that the enclosing
	// schedule supplies in the current iteration.
	Consumes bool

	// Produces is set when the firing's output reaches a boundary output
	// within the current iteration.
	Produces bool

	// Ports lists boundary ports touched, by port handle.
	Ports []PortTokens
}

// Graph is the firing graph of one solved model.
type Graph struct {
	src     *graph.Graph
	sol     *balance.Solution
	firings []Firing
	index   map[Key]ID
	edges   map[edge]struct{}
}

type edge struct {
	from, to ID
	cross    bool
}

// Source returns the rate graph the firings were expanded from.
func (fg *Graph) Source() *graph.Graph { return fg.src }

// Firings returns the firing arena.
func (fg *Graph) Firings() []Firing { return fg.firings }

// Firing returns one firing.
func (fg *Graph) Firing(id ID) *Firing { return &fg.firings[id] }

// Lookup finds an existing firing.
func (fg *Graph) Lookup(a graph.ActorID, iteration, function int) (ID, bool) {
	id, ok := fg.index[Key{Actor: a, Iteration: iteration, Function: function}]
	return id, ok
}

// Name renders "A[i]" for atomic actors and "A[i]/f" for composite ones.
func (fg *Graph) Name(id ID) string {
	f := &fg.firings[id]
	name := fmt.Sprintf("%s[%d]", fg.src.Actor(f.Actor).Name, f.Iteration)
	if fg.src.Actor(f.Actor).IsComposite() {
		name += fmt.Sprintf("/%d", f.Function)
	}
	return name
}

// CrossIterationEdges counts edges into the next iteration.
func (fg *Graph) CrossIterationEdges() int {
	n := 0
	for i := range fg.firings {
		n += len(fg.firings[i].NextSucc)
	}
	return n
}

// SameIterationEdges counts edges within one iteration.
func (fg *Graph) SameIterationEdges() int {
	n := 0
	for i := range fg.firings {
		n += len(fg.firings[i].Succ)
	}
	return n
}

func (fg *Graph) getOrCreate(a graph.ActorID, iteration, function int) ID {
	k := Key{Actor: a, Iteration: iteration, Function: function}
	if id, ok := fg.index[k]; ok {
		return id
	}
	id := ID(len(fg.firings))
	fg.firings = append(fg.firings, Firing{ID: id, Key: k})
	fg.index[k] = id
	return id
}

// addEdge links from to to, dropping self-loops and duplicates.
func (fg *Graph) addEdge(from, to ID, cross bool) {
	if from == to {
		return
	}
	e := edge{from: from, to: to, cross: cross}
	if _, ok := fg.edges[e]; ok {
		return
	}
	fg.edges[e] = struct{}{}
	if cross {
		fg.firings[from].NextSucc = append(fg.firings[from].NextSucc, to)
		fg.firings[to].PrevPred = append(fg.firings[to].PrevPred, from)
		return
	}
	fg.firings[from].Succ = append(fg.firings[from].Succ, to)
	fg.firings[to].Pred = append(fg.firings[to].Pred, from)
}

// touch records tokens moved through boundary port p. A composite function
// that does not use the port leaves no entry.
func (fg *Graph) touch(id ID, p graph.PortID, tokens int) {
	f := &fg.firings[id]
	if tokens == 0 && fg.src.Actor(f.Actor).IsComposite() {
		return
	}
	for i := range f.Ports {
		if f.Ports[i].Port == p {
			f.Ports[i].Tokens += tokens
			return
		}
	}
	f.Ports = append(f.Ports, PortTokens{Port: p, Tokens: tokens})
}

// Build expands every actor into count x functions firings and links them.
func Build(g *graph.Graph, sol *balance.Solution) (*Graph, error) {
	fg := &Graph{
		src:   g,
		sol:   sol,
		index: make(map[Key]ID),
		edges: make(map[edge]struct{}),
	}

	for _, a := range g.Actors() {
		for i := 0; i < sol.Count(a); i++ {
			for f := 0; f < g.FiringFunctionCount(a); f++ {
				fg.getOrCreate(a, i, f)
			}
		}
	}

	for _, j := range g.Junctions() {
		if err := fg.linkTokens(&j); err != nil {
			return nil, err
		}
	}
	for _, a := range g.Actors() {
		fg.linkActorOrder(a)
		if g.Actor(a).IsComposite() {
			fg.linkComposite(a)
		}
	}

	for i := range fg.firings {
		f := &fg.firings[i]
		slices.Sort(f.Succ)
		slices.Sort(f.Pred)
		slices.Sort(f.NextSucc)
		slices.Sort(f.PrevPred)
		slices.SortFunc(f.Ports, func(a, b PortTokens) int { return int(a.Port) - int(b.Port) })
	}
	return fg, nil
}

// event is one firing's share of a junction's tokens: [start, start+n).
type event struct {
	id    ID
	start int
	n     int
}

// events lays out the tokens moved through actor port p in firing order.
func (fg *Graph) events(p graph.PortID) []event {
	port := fg.src.Port(p)
	a := port.Actor
	var out []event
	pos := 0
	for i := 0; i < fg.sol.Count(a); i++ {
		for f := 0; f < fg.src.FiringFunctionCount(a); f++ {
			n := fg.src.PortRate(p, f)
			out = append(out, event{id: fg.getOrCreate(a, i, f), start: pos, n: n})
			pos += n
		}
	}
	return out
}

// linkTokens maps every consumed token k of a junction to produced token
// k-d, where d is the junction's initial tokens. A negative index wraps
// into an earlier iteration and yields a cross-iteration edge.
func (fg *Graph) linkTokens(j *graph.Junction) error {
	g := fg.src
	fromBoundary, toBoundary := g.IsBoundary(j.From), g.IsBoundary(j.To)
	if fromBoundary && toBoundary {
		return nil
	}

	total := fg.sol.Tokens(g, j.From)
	if consumed := fg.sol.Tokens(g, j.To); consumed != total {
		return sdferr.NewInvariant("junction %s -> %s produces %d but consumes %d tokens",
			g.QualifiedName(j.From), g.QualifiedName(j.To), total, consumed)
	}
	d := j.Delay

	switch {
	case fromBoundary:
		// A fanned-out input is charged once, to its first actor junction;
		// the other consumers record the port with no tokens.
		charged := firstActorJunction(g, j.From) == j.ID
		for _, c := range fg.events(j.To) {
			if charged {
				fg.touch(c.id, j.From, c.n)
			} else {
				fg.touch(c.id, j.From, 0)
			}
			if c.n > 0 && c.start+c.n > d {
				fg.firings[c.id].Consumes = true
			}
		}
		return nil
	case toBoundary:
		for _, p := range fg.events(j.From) {
			fg.touch(p.id, j.To, p.n)
			if p.n > 0 && p.start+d < total {
				fg.firings[p.id].Produces = true
			}
		}
		return nil
	}

	if total == 0 {
		return nil
	}
	producers := fg.events(j.From)
	// producerOf finds the event holding produced token m in [0, total).
	producerOf := func(m int) ID {
		i := sort.Search(len(producers), func(i int) bool {
			return producers[i].start+producers[i].n > m
		})
		return producers[i].id
	}
	for _, c := range fg.events(j.To) {
		for k := c.start; k < c.start+c.n; k++ {
			m := k - d
			if m >= 0 {
				fg.addEdge(producerOf(m), c.id, false)
				continue
			}
			wrapped := ((m % total) + total) % total
			fg.addEdge(producerOf(wrapped), c.id, true)
		}
	}
	return nil
}

// firstActorJunction returns the first junction out of boundary input p
// that ends at an actor port.
func firstActorJunction(g *graph.Graph, p graph.PortID) graph.JunctionID {
	for _, jid := range g.JunctionsFrom(p) {
		if !g.IsBoundary(g.Junction(jid).To) {
			return jid
		}
	}
	return -1
}

// linkActorOrder chains the firings of one function of an actor.
func (fg *Graph) linkActorOrder(a graph.ActorID) {
	n := fg.sol.Count(a)
	for f := 0; f < fg.src.FiringFunctionCount(a); f++ {
		for i := 0; i+1 < n; i++ {
			fg.addEdge(fg.getOrCreate(a, i, f), fg.getOrCreate(a, i+1, f), false)
		}
		if n > 1 {
			fg.addEdge(fg.getOrCreate(a, n-1, f), fg.getOrCreate(a, 0, f), true)
		}
	}
}

// linkComposite imports the declared precedence between the functions of a
// composite actor, per child iteration.
func (fg *Graph) linkComposite(a graph.ActorID) {
	n := fg.sol.Count(a)
	ffs := fg.src.FiringFunctions(a)
	for i := 0; i < n; i++ {
		for f, ff := range ffs {
			self := fg.getOrCreate(a, i, f)
			for _, g := range ff.Precedes {
				fg.addEdge(self, fg.getOrCreate(a, i, g), false)
			}
			for _, g := range ff.Succeeds {
				fg.addEdge(fg.getOrCreate(a, i, g), self, false)
			}
			for _, g := range ff.PrecedesNextIteration {
				if i+1 < n {
					fg.addEdge(self, fg.getOrCreate(a, i+1, g), false)
				} else {
					fg.addEdge(self, fg.getOrCreate(a, 0, g), true)
				}
			}
			for _, g := range ff.SucceedsPreviousIteration {
				if i > 0 {
					fg.addEdge(fg.getOrCreate(a, i-1, g), self, false)
				} else {
					fg.addEdge(fg.getOrCreate(a, n-1, g), self, true)
				}
			}
		}
	}
}
