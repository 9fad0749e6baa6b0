package graph

import (
	"strings"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// Build validates a model and lays it out in arenas.
//
// Boundary ports get the first port handles, then actor ports follow in
// actor declaration order. Junction handles follow driver port order.
func Build(m *ir.Model) (*Graph, error) {
	if m == nil {
		return nil, sdferr.NewInvalidModel("model is nil")
	}
	b := &builder{
		g: &Graph{
			name:        m.Name,
			actorByName: make(map[string]ActorID),
			portByName:  make(map[string]PortID),
		},
	}
	if err := b.addBoundary(m.Ports); err != nil {
		return nil, err
	}
	for i := range m.Actors {
		if err := b.addActor(&m.Actors[i]); err != nil {
			return nil, err
		}
	}
	if err := b.connect(m.Connections); err != nil {
		return nil, err
	}
	if err := b.checkRelayLoops(); err != nil {
		return nil, err
	}
	b.resolveJunctions()
	return b.g, nil
}

type builder struct {
	g *Graph

	succ [][]PortID // raw connection targets by PortID
	pred []PortID   // raw driver by PortID, -1 if none
}

func (b *builder) newPort(name string, owner ActorID, input bool, rate int) PortID {
	id := PortID(len(b.g.ports))
	b.g.ports = append(b.g.ports, Port{ID: id, Name: name, Actor: owner, Input: input, Rate: rate})
	b.g.portByName[b.g.QualifiedName(id)] = id
	return id
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ". \t")
}

func isInput(direction string) (bool, bool) {
	switch direction {
	case ir.DirectionInput:
		return true, true
	case ir.DirectionOutput:
		return false, true
	}
	return false, false
}

func (b *builder) addBoundary(ports []ir.PortSpec) error {
	for _, p := range ports {
		if !validName(p.Name) {
			return sdferr.NewInvalidModel("boundary port name %q is invalid", p.Name)
		}
		if _, dup := b.g.portByName[p.Name]; dup {
			return sdferr.NewInvalidModel("duplicate boundary port %q", p.Name)
		}
		in, ok := isInput(p.Direction)
		if !ok {
			return sdferr.NewInvalidModel("boundary port %q has unknown direction %q", p.Name, p.Direction)
		}
		b.g.boundary = append(b.g.boundary, b.newPort(p.Name, NoActor, in, 0))
	}
	return nil
}

func (b *builder) addActor(spec *ir.ActorSpec) error {
	if !validName(spec.Name) {
		return sdferr.NewInvalidModel("actor name %q is invalid", spec.Name)
	}
	if _, dup := b.g.actorByName[spec.Name]; dup {
		return sdferr.NewInvalidModel("duplicate actor %q", spec.Name)
	}
	kind := spec.EffectiveKind()
	if spec.InitialTokens < 0 {
		return sdferr.NewInvalidModel("actor %q has negative initial tokens", spec.Name)
	}
	if spec.InitialTokens > 0 && kind != ir.KindRelay {
		return sdferr.NewInvalidModel("actor %q: initial tokens are only valid on relays", spec.Name)
	}

	id := ActorID(len(b.g.actors))
	b.g.actors = append(b.g.actors, Actor{
		ID:            id,
		Name:          spec.Name,
		Kind:          kind,
		InitialTokens: spec.InitialTokens,
	})
	b.g.actorByName[spec.Name] = id

	switch kind {
	case ir.KindRelay:
		if len(spec.Ports) > 0 || len(spec.FiringFunctions) > 0 {
			return sdferr.NewInvalidModel("relay %q must not declare ports or firing functions", spec.Name)
		}
		b.g.actors[id].Ports = []PortID{
			b.newPort(ir.RelayInput, id, true, 1),
			b.newPort(ir.RelayOutput, id, false, 1),
		}
		return nil
	case ir.KindAtomic:
		if len(spec.FiringFunctions) > 0 || spec.Model != "" || spec.Profile != "" {
			return sdferr.NewInvalidModel("atomic actor %q must not declare firing functions or nested models", spec.Name)
		}
		return b.addPorts(id, spec.Ports)
	case ir.KindComposite:
		if len(spec.FiringFunctions) == 0 {
			if spec.Model != "" || spec.Profile != "" {
				return sdferr.NewInvalidModel("composite actor %q references %s but was not resolved", spec.Name, nestedRef(spec))
			}
			return sdferr.NewInvalidModel("composite actor %q has no firing functions", spec.Name)
		}
		if err := b.addPorts(id, spec.Ports); err != nil {
			return err
		}
		return b.addFiringFunctions(id, spec)
	default:
		return sdferr.NewInvalidModel("actor %q has unknown kind %q", spec.Name, spec.Kind)
	}
}

func nestedRef(spec *ir.ActorSpec) string {
	if spec.Model != "" {
		return spec.Model
	}
	return spec.Profile
}

func (b *builder) addPorts(id ActorID, specs []ir.PortSpec) error {
	a := &b.g.actors[id]
	seen := make(map[string]bool, len(specs))
	for _, p := range specs {
		if !validName(p.Name) {
			return sdferr.NewInvalidModel("actor %q: port name %q is invalid", a.Name, p.Name)
		}
		if seen[p.Name] {
			return sdferr.NewInvalidModel("actor %q: duplicate port %q", a.Name, p.Name)
		}
		seen[p.Name] = true
		in, ok := isInput(p.Direction)
		if !ok {
			return sdferr.NewInvalidModel("port %s.%s has unknown direction %q", a.Name, p.Name, p.Direction)
		}
		if p.Rate < 0 {
			return sdferr.NewInvalidModel("port %s.%s has negative rate %d", a.Name, p.Name, p.Rate)
		}
		a.Ports = append(a.Ports, b.newPort(p.Name, id, in, p.Rate))
	}
	return nil
}

// addFiringFunctions derives per-function port rates and checks the
// declared precedence against function order.
func (b *builder) addFiringFunctions(id ActorID, spec *ir.ActorSpec) error {
	a := &b.g.actors[id]
	n := len(spec.FiringFunctions)
	a.FiringFunctions = make([]ir.FiringFunction, n)
	copy(a.FiringFunctions, spec.FiringFunctions)

	byName := make(map[string]PortID, len(a.Ports))
	for _, p := range a.Ports {
		byName[b.g.ports[p].Name] = p
		b.g.ports[p].rates = make([]int, n)
	}

	for f, ff := range spec.FiringFunctions {
		seen := make(map[string]bool, len(ff.Ports))
		for _, fp := range ff.Ports {
			p, ok := byName[fp.Name]
			if !ok {
				return sdferr.NewInvalidModel("actor %q firing function %d names unknown port %q", a.Name, f, fp.Name)
			}
			if seen[fp.Name] {
				return sdferr.NewInvalidModel("actor %q firing function %d lists port %q twice", a.Name, f, fp.Name)
			}
			seen[fp.Name] = true
			if b.g.ports[p].Input != fp.Input {
				return sdferr.NewInvalidModel("actor %q firing function %d: port %q has the wrong direction", a.Name, f, fp.Name)
			}
			if fp.Rate < 0 {
				return sdferr.NewInvalidModel("actor %q firing function %d: port %q has negative rate", a.Name, f, fp.Name)
			}
			b.g.ports[p].rates[f] = fp.Rate
		}
		if err := checkOrder(a.Name, f, n, ff); err != nil {
			return err
		}
	}

	for i, p := range a.Ports {
		port := &b.g.ports[p]
		sum := 0
		for _, r := range port.rates {
			sum += r
		}
		if declared := spec.Ports[i].Rate; declared != 0 && declared != sum {
			return sdferr.NewInvalidModel("port %s.%s declares rate %d but its firing functions sum to %d", a.Name, port.Name, declared, sum)
		}
		port.Rate = sum
	}
	return nil
}

func checkOrder(actor string, f, n int, ff ir.FiringFunction) error {
	inRange := func(list string, idx []int) error {
		for _, g := range idx {
			if g < 0 || g >= n {
				return sdferr.NewInvalidModel("actor %q firing function %d: %s index %d out of range", actor, f, list, g)
			}
		}
		return nil
	}
	for _, c := range []struct {
		name string
		idx  []int
	}{
		{"precedes", ff.Precedes},
		{"succeeds", ff.Succeeds},
		{"precedes_next_iteration", ff.PrecedesNextIteration},
		{"succeeds_previous_iteration", ff.SucceedsPreviousIteration},
	} {
		if err := inRange(c.name, c.idx); err != nil {
			return err
		}
	}
	for _, g := range ff.Precedes {
		if g <= f {
			return sdferr.NewInvalidModel("actor %q firing function %d precedes %d, contrary to function order", actor, f, g)
		}
	}
	for _, g := range ff.Succeeds {
		if g >= f {
			return sdferr.NewInvalidModel("actor %q firing function %d succeeds %d, contrary to function order", actor, f, g)
		}
	}
	return nil
}

// canDrive reports whether tokens leave the graph interior through p.
func (b *builder) canDrive(p PortID) bool {
	port := &b.g.ports[p]
	if port.IsBoundary() {
		return port.Input
	}
	return !port.Input
}

func (b *builder) resolveEndpoint(s string) (PortID, error) {
	actor, port, err := ir.ParseEndpoint(s)
	if err != nil {
		return 0, sdferr.NewUnresolvedPort(s, err.Error())
	}
	if actor != "" {
		if _, ok := b.g.actorByName[actor]; !ok {
			return 0, sdferr.NewUnresolvedPort(s, "unknown actor "+actor)
		}
	}
	id, ok := b.g.portByName[s]
	if !ok {
		if actor == "" {
			return 0, sdferr.NewUnresolvedPort(s, "unknown boundary port")
		}
		return 0, sdferr.NewUnresolvedPort(s, "actor "+actor+" has no port "+port)
	}
	return id, nil
}

func (b *builder) connect(conns []ir.Connection) error {
	n := len(b.g.ports)
	b.succ = make([][]PortID, n)
	b.pred = make([]PortID, n)
	for i := range b.pred {
		b.pred[i] = -1
	}

	for _, c := range conns {
		from, err := b.resolveEndpoint(c.From)
		if err != nil {
			return err
		}
		to, err := b.resolveEndpoint(c.To)
		if err != nil {
			return err
		}
		if !b.canDrive(from) {
			return sdferr.NewInvalidModel("connection %s -> %s: %s cannot drive a connection", c.From, c.To, c.From)
		}
		if b.canDrive(to) {
			return sdferr.NewInvalidModel("connection %s -> %s: %s cannot receive a connection", c.From, c.To, c.To)
		}
		if prev := b.pred[to]; prev >= 0 {
			if prev == from {
				return sdferr.NewInvalidModel("duplicate connection %s -> %s", c.From, c.To)
			}
			return sdferr.NewParallelDrive(b.g.QualifiedName(to), b.g.QualifiedName(prev), b.g.QualifiedName(from))
		}
		b.pred[to] = from
		b.succ[from] = append(b.succ[from], to)
	}
	return nil
}

// checkRelayLoops rejects relay chains that feed themselves with no actor
// in between. Such a loop is unreachable from any driver.
func (b *builder) checkRelayLoops() error {
	for i := range b.g.actors {
		start := &b.g.actors[i]
		if !start.IsRelay() {
			continue
		}
		seen := map[ActorID]bool{start.ID: true}
		chain := []string{start.Name}
		p := b.pred[start.Ports[0]]
		for p >= 0 {
			owner := b.g.ports[p].Actor
			if owner == NoActor || !b.g.actors[owner].IsRelay() {
				break
			}
			chain = append(chain, b.g.actors[owner].Name)
			if seen[owner] {
				return sdferr.NewInvalidModel("relay loop without an actor: %s", strings.Join(chain, " <- "))
			}
			seen[owner] = true
			p = b.pred[b.g.actors[owner].Ports[0]]
		}
	}
	return nil
}

func (b *builder) isRelayPort(p PortID) bool {
	owner := b.g.ports[p].Actor
	return owner != NoActor && b.g.actors[owner].IsRelay()
}

// resolveJunctions walks every non-relay driver through relay chains to the
// receivers it reaches.
func (b *builder) resolveJunctions() {
	g := b.g
	g.from = make([][]JunctionID, len(g.ports))
	g.into = make([][]JunctionID, len(g.ports))

	type hop struct {
		port   PortID
		delay  int
		relays []ActorID
	}
	for p := range g.ports {
		driver := PortID(p)
		if !b.canDrive(driver) || b.isRelayPort(driver) {
			continue
		}
		stack := []hop{{port: driver}}
		for len(stack) > 0 {
			h := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			targets := b.succ[h.port]
			// Push in reverse so receivers are visited in connection order.
			for i := len(targets) - 1; i >= 0; i-- {
				to := targets[i]
				if b.isRelayPort(to) {
					relay := &g.actors[g.ports[to].Actor]
					relays := append(append([]ActorID(nil), h.relays...), relay.ID)
					stack = append(stack, hop{
						port:   relay.Ports[1],
						delay:  h.delay + relay.InitialTokens,
						relays: relays,
					})
					continue
				}
				id := JunctionID(len(g.junctions))
				g.junctions = append(g.junctions, Junction{
					ID:     id,
					From:   driver,
					To:     to,
					Delay:  h.delay,
					Relays: h.relays,
				})
				g.from[driver] = append(g.from[driver], id)
				g.into[to] = append(g.into[to], id)
			}
		}
	}
}
