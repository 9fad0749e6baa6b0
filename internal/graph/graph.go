// Package graph is the read-only rate view of one model snapshot.
//
// Build assigns every actor, port and junction a stable integer handle in
// declaration order. Downstream stages index plain slices by these handles
// instead of keying maps by identity, so iteration order is always the
// declaration order.
//
// Relays are transparent: they own ports and an initial token reservoir, but
// every connectivity query resolves through them to the actor or boundary
// port on the other side.
package graph

import (
	"slices"

	"github.com/roach88/sdfsched/internal/ir"
)

// ActorID indexes the actor arena.
type ActorID int

// PortID indexes the port arena.
type PortID int

// JunctionID indexes the junction arena.
type JunctionID int

// NoActor is the owner of boundary ports.
const NoActor ActorID = -1

// Actor is one node of the graph.
type Actor struct {
	ID            ActorID
	Name          string
	Kind          string
	Ports         []PortID
	InitialTokens int

	// FiringFunctions is set for composite actors only.
	FiringFunctions []ir.FiringFunction
}

// IsRelay reports whether the actor is a pass-through relay.
func (a *Actor) IsRelay() bool { return a.Kind == ir.KindRelay }

// IsComposite reports whether the actor exposes several firing functions.
func (a *Actor) IsComposite() bool { return a.Kind == ir.KindComposite }

// Port is an actor port or a boundary port of the graph.
type Port struct {
	ID    PortID
	Name  string
	Actor ActorID
	Input bool

	// Rate is tokens per actor firing. For composite actors it is the sum
	// over firing functions. Boundary ports carry 0; their rate is solved.
	Rate int

	// rates holds the per-firing-function rate of composite ports.
	rates []int
}

// IsBoundary reports whether the port belongs to the graph itself.
func (p *Port) IsBoundary() bool { return p.Actor == NoActor }

// Direction returns the ir direction string.
func (p *Port) Direction() string {
	if p.Input {
		return ir.DirectionInput
	}
	return ir.DirectionOutput
}

// Junction is one driver-to-receiver connection after relay resolution.
//
// From is an actor output or a boundary input; To is an actor input or a
// boundary output. Delay is the sum of initial tokens of the relays bridged
// on the way, listed in Relays in path order.
type Junction struct {
	ID     JunctionID
	From   PortID
	To     PortID
	Delay  int
	Relays []ActorID
}

// Graph is an immutable, arena-indexed view of one model.
type Graph struct {
	name      string
	actors    []Actor
	ports     []Port
	junctions []Junction
	boundary  []PortID

	from [][]JunctionID // by PortID
	into [][]JunctionID // by PortID

	actorByName map[string]ActorID
	portByName  map[string]PortID
}

// Name returns the model name.
func (g *Graph) Name() string { return g.name }

// Actors returns the non-relay actors in declaration order.
func (g *Graph) Actors() []ActorID {
	ids := make([]ActorID, 0, len(g.actors))
	for i := range g.actors {
		if !g.actors[i].IsRelay() {
			ids = append(ids, ActorID(i))
		}
	}
	return ids
}

// NumActors returns the size of the actor arena, relays included.
func (g *Graph) NumActors() int { return len(g.actors) }

// NumPorts returns the size of the port arena.
func (g *Graph) NumPorts() int { return len(g.ports) }

// Actor returns the actor with the given handle.
func (g *Graph) Actor(id ActorID) *Actor { return &g.actors[id] }

// Ports returns the ports of an actor in declaration order.
func (g *Graph) Ports(id ActorID) []PortID { return g.actors[id].Ports }

// Port returns the port with the given handle.
func (g *Graph) Port(id PortID) *Port { return &g.ports[id] }

// BoundaryPorts returns the graph's own ports in declaration order.
func (g *Graph) BoundaryPorts() []PortID { return g.boundary }

// IsBoundary reports whether p belongs to the graph itself.
func (g *Graph) IsBoundary(p PortID) bool { return g.ports[p].IsBoundary() }

// IsPassThrough reports whether the actor is a relay.
func (g *Graph) IsPassThrough(id ActorID) bool { return g.actors[id].IsRelay() }

// InitialTokens returns the reservoir of a relay, 0 for other actors.
func (g *Graph) InitialTokens(id ActorID) int { return g.actors[id].InitialTokens }

// FiringFunctionCount is 1 for atomic actors.
func (g *Graph) FiringFunctionCount(id ActorID) int {
	if a := &g.actors[id]; a.IsComposite() {
		return len(a.FiringFunctions)
	}
	return 1
}

// FiringFunctions returns the declared functions of a composite actor.
func (g *Graph) FiringFunctions(id ActorID) []ir.FiringFunction {
	return g.actors[id].FiringFunctions
}

// PortRate returns the rate of p in firing function f of its actor.
func (g *Graph) PortRate(p PortID, f int) int {
	port := &g.ports[p]
	if port.rates != nil {
		return port.rates[f]
	}
	return port.Rate
}

// Junctions returns all junctions.
func (g *Graph) Junctions() []Junction { return g.junctions }

// Junction returns the junction with the given handle.
func (g *Graph) Junction(id JunctionID) *Junction { return &g.junctions[id] }

// JunctionsFrom returns the junctions driven by p.
func (g *Graph) JunctionsFrom(p PortID) []JunctionID { return g.from[p] }

// JunctionsInto returns the junction received by p. There is at most one.
func (g *Graph) JunctionsInto(p PortID) []JunctionID { return g.into[p] }

// ConnectedPorts returns the non-relay ports on the far side of p's
// junctions, sorted by handle.
func (g *Graph) ConnectedPorts(p PortID) []PortID {
	var out []PortID
	for _, j := range g.from[p] {
		out = append(out, g.junctions[j].To)
	}
	for _, j := range g.into[p] {
		out = append(out, g.junctions[j].From)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// PassThroughs returns junctions wired straight from a boundary input to a
// boundary output.
func (g *Graph) PassThroughs() []JunctionID {
	var out []JunctionID
	for i := range g.junctions {
		j := &g.junctions[i]
		if g.IsBoundary(j.From) && g.IsBoundary(j.To) {
			out = append(out, j.ID)
		}
	}
	return out
}

// QualifiedName renders "actor.port", or the bare name of a boundary port.
func (g *Graph) QualifiedName(p PortID) string {
	port := &g.ports[p]
	if port.IsBoundary() {
		return port.Name
	}
	return g.actors[port.Actor].Name + "." + port.Name
}

// ActorByName looks up an actor handle.
func (g *Graph) ActorByName(name string) (ActorID, bool) {
	id, ok := g.actorByName[name]
	return id, ok
}

// PortByName looks up a port by its qualified name.
func (g *Graph) PortByName(qualified string) (PortID, bool) {
	id, ok := g.portByName[qualified]
	return id, ok
}
