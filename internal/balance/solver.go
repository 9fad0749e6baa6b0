package balance

import (
	"slices"
	"strconv"

	"github.com/roach88/sdfsched/internal/fraction"
	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// node is an actor, or a boundary port when actor is graph.NoActor.
type node struct {
	actor graph.ActorID
	port  graph.PortID
}

// arc is one junction seen from one of its ends.
type arc struct {
	own      graph.PortID
	ownRate  int64
	peer     int // node index
	peerRate int64
}

type solver struct {
	g      *graph.Graph
	nodes  []node
	arcs   [][]arc // by node index
	nodeOf []int   // by PortID, -1 for relay ports

	count  []fraction.Fraction
	fixed  []bool
	pinned []bool

	restarts int
}

func newSolver(g *graph.Graph) *solver {
	s := &solver{g: g, nodeOf: make([]int, g.NumPorts())}
	for i := range s.nodeOf {
		s.nodeOf[i] = -1
	}
	for _, a := range g.Actors() {
		idx := len(s.nodes)
		s.nodes = append(s.nodes, node{actor: a, port: -1})
		for _, p := range g.Ports(a) {
			s.nodeOf[p] = idx
		}
	}
	for _, p := range g.BoundaryPorts() {
		s.nodeOf[p] = len(s.nodes)
		s.nodes = append(s.nodes, node{actor: graph.NoActor, port: p})
	}

	s.arcs = make([][]arc, len(s.nodes))
	for _, j := range g.Junctions() {
		from, to := s.nodeOf[j.From], s.nodeOf[j.To]
		fr, tr := s.portRate(j.From), s.portRate(j.To)
		s.arcs[from] = append(s.arcs[from], arc{own: j.From, ownRate: fr, peer: to, peerRate: tr})
		s.arcs[to] = append(s.arcs[to], arc{own: j.To, ownRate: tr, peer: from, peerRate: fr})
	}

	s.count = make([]fraction.Fraction, len(s.nodes))
	s.fixed = make([]bool, len(s.nodes))
	s.pinned = make([]bool, len(s.nodes))
	return s
}

// portRate is the per-firing rate of an actor port, or 1 for a boundary
// port whose count is its token rate.
func (s *solver) portRate(p graph.PortID) int64 {
	port := s.g.Port(p)
	if port.IsBoundary() {
		return 1
	}
	return int64(port.Rate)
}

func (s *solver) name(n int) string {
	if a := s.nodes[n].actor; a != graph.NoActor {
		return s.g.Actor(a).Name
	}
	return s.g.QualifiedName(s.nodes[n].port)
}

// islands returns the connected components as ascending node indices,
// ordered by their lowest node.
func (s *solver) islands() [][]int {
	seen := make([]bool, len(s.nodes))
	var out [][]int
	for start := range s.nodes {
		if seen[start] {
			continue
		}
		seen[start] = true
		island := []int{start}
		for i := 0; i < len(island); i++ {
			for _, a := range s.arcs[island[i]] {
				if !seen[a.peer] {
					seen[a.peer] = true
					island = append(island, a.peer)
				}
			}
		}
		slices.Sort(island)
		out = append(out, island)
	}
	return out
}

// orderIslands returns the islands holding actors, the one containing the
// global seed first.
func (s *solver) orderIslands(islands [][]int) [][]node {
	var withActors [][]int
	for _, isl := range islands {
		if s.nodes[isl[0]].actor != graph.NoActor {
			withActors = append(withActors, isl)
		}
	}
	if len(withActors) == 0 {
		return nil
	}
	all := make([]int, 0, len(s.nodes))
	for i := range s.nodes {
		all = append(all, i)
	}
	seed := s.chooseSeed(all)
	for i, isl := range withActors {
		if slices.Contains(isl, seed) {
			withActors[0], withActors[i] = withActors[i], withActors[0]
			break
		}
	}
	out := make([][]node, len(withActors))
	for i, isl := range withActors {
		for _, n := range isl {
			out[i] = append(out[i], s.nodes[n])
		}
	}
	return out
}

// chooseSeed picks the first unfixed actor with a zero-rate port, then the
// first unfixed actor, then the first unfixed boundary port with a
// connection. It returns -1 when nothing qualifies.
func (s *solver) chooseSeed(candidates []int) int {
	first := -1
	for _, n := range candidates {
		a := s.nodes[n].actor
		if s.fixed[n] || a == graph.NoActor {
			continue
		}
		if first < 0 {
			first = n
		}
		for _, p := range s.g.Ports(a) {
			if s.g.Port(p).Rate == 0 {
				return n
			}
		}
	}
	if first >= 0 {
		return first
	}
	for _, n := range candidates {
		if !s.fixed[n] && len(s.arcs[n]) > 0 {
			return n
		}
	}
	return -1
}

// solveIsland propagates rational counts through one island. When a zero
// rate forces an already fixed node to zero, the node is pinned and the
// island is propagated again from scratch.
func (s *solver) solveIsland(island []int) error {
	for attempt := 0; ; attempt++ {
		if attempt > len(island) {
			return sdferr.NewInvariant("zero-rate pinning did not converge in island of %s", s.name(island[0]))
		}
		restart, err := s.propagate(island)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
		s.restarts++
	}
}

func (s *solver) propagate(island []int) (bool, error) {
	var queue []int
	for _, n := range island {
		s.fixed[n] = false
		s.count[n] = fraction.Zero
		if s.pinned[n] {
			s.fixed[n] = true
			queue = append(queue, n)
		}
	}

	// Pinned zeros spread first; each remaining group is then seeded at 1.
	for {
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			restart, err := s.visit(n, &queue)
			if err != nil || restart {
				return restart, err
			}
		}
		seed := s.chooseSeed(island)
		if seed < 0 {
			break
		}
		s.fixed[seed] = true
		s.count[seed] = fraction.One
		queue = append(queue, seed)
	}

	// Unconnected boundary ports carry nothing.
	for _, n := range island {
		if !s.fixed[n] {
			s.fixed[n] = true
			s.count[n] = fraction.Zero
		}
	}
	return false, nil
}

// visit applies the balance rule across every arc of a fixed node.
func (s *solver) visit(n int, queue *[]int) (bool, error) {
	for _, a := range s.arcs[n] {
		tokens, err := s.count[n].MulInt(a.ownRate)
		if err != nil {
			return false, s.overflow(n, err)
		}
		peerZero := a.peerRate == 0 || (s.fixed[a.peer] && s.count[a.peer].IsZero())
		if peerZero && !tokens.IsZero() {
			// The peer can never move these tokens: this node must not fire.
			s.pinned[n] = true
			return true, nil
		}
		if a.peerRate == 0 {
			continue
		}
		desired, err := tokens.DivInt(a.peerRate)
		if err != nil {
			return false, s.overflow(n, err)
		}
		if s.fixed[a.peer] {
			existing := s.count[a.peer]
			if existing.Equal(desired) {
				continue
			}
			if desired.IsZero() {
				s.pinned[a.peer] = true
				return true, nil
			}
			return false, sdferr.NewRateMismatch(s.name(a.peer), existing.String(), desired.String(), s.g.QualifiedName(a.own))
		}
		s.fixed[a.peer] = true
		s.count[a.peer] = desired
		*queue = append(*queue, a.peer)
	}
	return false, nil
}

func (s *solver) overflow(n int, err error) error {
	return sdferr.NewInvariant("firing count of %s overflows", s.name(n)).Wrap(err)
}

// normalize scales an island by the LCM of its denominators and stores the
// integer results.
func (s *solver) normalize(island []int, sol *Solution) error {
	lcm := int64(1)
	for _, n := range island {
		var err error
		if lcm, err = fraction.LCM(lcm, s.count[n].Den()); err != nil {
			return s.overflow(n, err)
		}
	}
	for _, n := range island {
		scaled, err := s.count[n].MulInt(lcm)
		if err != nil {
			return s.overflow(n, err)
		}
		v, err := scaled.Int()
		if err != nil {
			return sdferr.NewNonIntegral(s.name(n), scaled.String())
		}
		if nd := s.nodes[n]; nd.actor != graph.NoActor {
			sol.Firings[nd.actor] = int(v)
		} else {
			sol.Rates[nd.port] = int(v)
		}
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
