package testutil

import "github.com/roach88/sdfsched/internal/ir"

// ModelBuilder assembles ir.Model values for tests.
//
// Usage:
//
//	m := testutil.NewModel("pair").
//		Actor("A", testutil.Out("out", 2)).
//		Actor("B", testutil.In("in", 1)).
//		Connect("A.out", "B.in").
//		Build()
type ModelBuilder struct {
	m ir.Model
}

// NewModel starts an empty model.
func NewModel(name string) *ModelBuilder {
	return &ModelBuilder{m: ir.Model{Name: name}}
}

// In declares an input port with a per-firing rate.
func In(name string, rate int) ir.PortSpec {
	return ir.PortSpec{Name: name, Direction: ir.DirectionInput, Rate: rate}
}

// Out declares an output port with a per-firing rate.
func Out(name string, rate int) ir.PortSpec {
	return ir.PortSpec{Name: name, Direction: ir.DirectionOutput, Rate: rate}
}

// Input adds a boundary input port.
func (b *ModelBuilder) Input(names ...string) *ModelBuilder {
	for _, n := range names {
		b.m.Ports = append(b.m.Ports, In(n, 0))
	}
	return b
}

// Output adds a boundary output port.
func (b *ModelBuilder) Output(names ...string) *ModelBuilder {
	for _, n := range names {
		b.m.Ports = append(b.m.Ports, Out(n, 0))
	}
	return b
}

// Actor adds an atomic actor.
func (b *ModelBuilder) Actor(name string, ports ...ir.PortSpec) *ModelBuilder {
	b.m.Actors = append(b.m.Actors, ir.ActorSpec{Name: name, Ports: ports})
	return b
}

// Relay adds a pass-through relay holding tokens initial tokens.
func (b *ModelBuilder) Relay(name string, tokens int) *ModelBuilder {
	b.m.Actors = append(b.m.Actors, ir.ActorSpec{Name: name, Kind: ir.KindRelay, InitialTokens: tokens})
	return b
}

// Composite adds a composite actor with explicit firing functions.
func (b *ModelBuilder) Composite(name string, ports []ir.PortSpec, ffs ...ir.FiringFunction) *ModelBuilder {
	b.m.Actors = append(b.m.Actors, ir.ActorSpec{
		Name:            name,
		Kind:            ir.KindComposite,
		Ports:           ports,
		FiringFunctions: ffs,
	})
	return b
}

// Spec appends a raw actor declaration.
func (b *ModelBuilder) Spec(a ir.ActorSpec) *ModelBuilder {
	b.m.Actors = append(b.m.Actors, a)
	return b
}

// Connect wires from to to.
func (b *ModelBuilder) Connect(from, to string) *ModelBuilder {
	b.m.Connections = append(b.m.Connections, ir.Connection{From: from, To: to})
	return b
}

// Build returns the model.
func (b *ModelBuilder) Build() *ir.Model {
	m := b.m
	return &m
}

// FP is shorthand for a firing function port.
func FP(name string, rate int, input bool) ir.FiringPort {
	return ir.FiringPort{Name: name, Rate: rate, Input: input}
}
