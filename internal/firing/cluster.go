package firing

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// Cluster is a set of firings exposed as one firing function.
type Cluster struct {
	// Index is the creation index, used to break depth ties.
	Index int

	// Producer is set when the cluster was seeded by boundary-producing
	// firings.
	Producer bool

	// Members are the firings of the cluster, by handle.
	Members []ID

	// Deps is the set of boundary-consuming firings the cluster needs.
	Deps []ID

	// Ports sums member tokens per boundary port.
	Ports []PortTokens

	// Edges to other clusters, as positions in Clustering.Clusters.
	Succ, Pred         []int
	NextSucc, PrevPred []int

	Depth int
}

// Clustering is the ordered result of Group.
type Clustering struct {
	// Clusters in output order: by depth, then creation index.
	Clusters []Cluster

	// FiringFunctions mirrors Clusters, followed by one function per
	// direct boundary pass-through.
	FiringFunctions []ir.FiringFunction

	// Assignment maps each firing to its position in Clusters.
	Assignment []int
}

// Group partitions firings by the boundary inputs they depend on and orders
// the groups.
//
// The algorithm:
//  1. Topologically order firings over same-iteration edges
//  2. deps(v) = union of deps(pred), plus v when v consumes boundary tokens
//  3. Boundary-producing firings with equal deps form one producer cluster
//  4. Every other firing joins the producer cluster it alone reaches, else
//     the producer cluster keyed by its deps when it reaches that cluster,
//     else the internal cluster keyed by its deps and reached clusters
//  5. Order clusters by longest same-iteration path, ties by creation
func Group(fg *Graph) (*Clustering, error) {
	n := len(fg.firings)
	topo, err := fg.topoOrder()
	if err != nil {
		return nil, err
	}

	deps := make([][]ID, n)
	for _, v := range topo {
		f := &fg.firings[v]
		var set []ID
		for _, p := range f.Pred {
			set = append(set, deps[p]...)
		}
		if f.Consumes {
			set = append(set, v)
		}
		slices.Sort(set)
		deps[v] = slices.Compact(set)
	}

	c := &clusterer{fg: fg, byKey: make(map[string]int)}
	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	for v := range fg.firings {
		if !fg.firings[v].Produces {
			continue
		}
		k := idKey(deps[v])
		idx, ok := c.byKey[k]
		if !ok {
			idx = c.create(k, deps[v], true)
		}
		assign[v] = idx
	}

	// reach(v): producer clusters reachable forward, including v's own.
	reach := make([][]int, n)
	for i := len(topo) - 1; i >= 0; i-- {
		v := topo[i]
		var set []int
		for _, s := range fg.firings[v].Succ {
			set = append(set, reach[s]...)
		}
		if fg.firings[v].Produces {
			set = append(set, assign[v])
		}
		slices.Sort(set)
		reach[v] = slices.Compact(set)
	}

	for v := range fg.firings {
		if assign[v] >= 0 {
			continue
		}
		r := reach[v]
		if len(r) == 1 {
			assign[v] = r[0]
			continue
		}
		k := idKey(deps[v])
		if idx, ok := c.byKey[k]; ok && c.clusters[idx].Producer && slices.Contains(r, idx) {
			assign[v] = idx
			continue
		}
		ik := k + "|" + intKey(r)
		idx, ok := c.byKey[ik]
		if !ok {
			idx = c.create(ik, deps[v], false)
		}
		assign[v] = idx
	}

	for v, idx := range assign {
		cl := &c.clusters[idx]
		cl.Members = append(cl.Members, ID(v))
		for _, pt := range fg.firings[v].Ports {
			cl.addPort(pt)
		}
	}
	c.linkClusters(assign)

	order, err := c.depthOrder()
	if err != nil {
		return nil, err
	}
	return c.finish(order, assign), nil
}

type clusterer struct {
	fg       *Graph
	clusters []Cluster
	byKey    map[string]int
}

func (c *clusterer) create(key string, deps []ID, producer bool) int {
	idx := len(c.clusters)
	c.clusters = append(c.clusters, Cluster{
		Index:    idx,
		Producer: producer,
		Deps:     slices.Clone(deps),
	})
	c.byKey[key] = idx
	return idx
}

func (cl *Cluster) addPort(pt PortTokens) {
	for i := range cl.Ports {
		if cl.Ports[i].Port == pt.Port {
			cl.Ports[i].Tokens += pt.Tokens
			return
		}
	}
	cl.Ports = append(cl.Ports, pt)
}

// linkClusters lifts member edges to cluster edges, in creation indices.
func (c *clusterer) linkClusters(assign []int) {
	for v := range c.fg.firings {
		f := &c.fg.firings[v]
		from := assign[v]
		for _, s := range f.Succ {
			if to := assign[s]; to != from {
				c.clusters[from].Succ = appendUnique(c.clusters[from].Succ, to)
				c.clusters[to].Pred = appendUnique(c.clusters[to].Pred, from)
			}
		}
		for _, s := range f.NextSucc {
			if to := assign[s]; to != from {
				c.clusters[from].NextSucc = appendUnique(c.clusters[from].NextSucc, to)
				c.clusters[to].PrevPred = appendUnique(c.clusters[to].PrevPred, from)
			}
		}
	}
}

func appendUnique(xs []int, x int) []int {
	if slices.Contains(xs, x) {
		return xs
	}
	return append(xs, x)
}

func idKey(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

func intKey(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// topoOrder is Kahn's algorithm over same-iteration edges. Ready firings
// are taken lowest handle first.
func (fg *Graph) topoOrder() ([]ID, error) {
	n := len(fg.firings)
	indeg := make([]int, n)
	for i := range fg.firings {
		indeg[i] = len(fg.firings[i].Pred)
	}
	ready := &idHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			ready.push(ID(i))
		}
	}
	order := make([]ID, 0, n)
	for ready.Len() > 0 {
		v := ready.pop()
		order = append(order, v)
		for _, s := range fg.firings[v].Succ {
			indeg[s]--
			if indeg[s] == 0 {
				ready.push(s)
			}
		}
	}
	if len(order) != n {
		var stuck []string
		for i := range indeg {
			if indeg[i] > 0 {
				stuck = append(stuck, fg.Name(ID(i)))
			}
		}
		return nil, sdferr.NewInvariant("same-iteration firing graph has a cycle through %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

// depthOrder assigns each cluster its longest same-iteration path from a
// source and returns creation indices sorted by depth, then creation.
func (c *clusterer) depthOrder() ([]int, error) {
	n := len(c.clusters)
	indeg := make([]int, n)
	for i := range c.clusters {
		indeg[i] = len(c.clusters[i].Pred)
	}
	ready := &idHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			ready.push(ID(i))
		}
	}
	seen := 0
	for ready.Len() > 0 {
		v := int(ready.pop())
		seen++
		for _, s := range c.clusters[v].Succ {
			c.clusters[s].Depth = max(c.clusters[s].Depth, c.clusters[v].Depth+1)
			indeg[s]--
			if indeg[s] == 0 {
				ready.push(ID(s))
			}
		}
	}
	if seen != n {
		return nil, sdferr.NewInvariant("cluster graph has a same-iteration cycle")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if d := c.clusters[a].Depth - c.clusters[b].Depth; d != 0 {
			return d
		}
		return a - b
	})
	return order, nil
}

// finish renumbers clusters into output order and renders the firing
// functions.
func (c *clusterer) finish(order []int, assign []int) *Clustering {
	g := c.fg.src
	pos := make([]int, len(order))
	for p, idx := range order {
		pos[idx] = p
	}
	remap := func(xs []int) []int {
		if len(xs) == 0 {
			return nil
		}
		out := make([]int, len(xs))
		for i, x := range xs {
			out[i] = pos[x]
		}
		slices.Sort(out)
		return out
	}

	res := &Clustering{Assignment: make([]int, len(assign))}
	for v, idx := range assign {
		res.Assignment[v] = pos[idx]
	}
	for _, idx := range order {
		cl := c.clusters[idx]
		cl.Succ, cl.Pred = remap(cl.Succ), remap(cl.Pred)
		cl.NextSucc, cl.PrevPred = remap(cl.NextSucc), remap(cl.PrevPred)
		slices.Sort(cl.Members)
		slices.SortFunc(cl.Ports, func(a, b PortTokens) int { return int(a.Port) - int(b.Port) })
		res.Clusters = append(res.Clusters, cl)

		ff := ir.FiringFunction{
			Precedes:                  cl.Succ,
			Succeeds:                  cl.Pred,
			PrecedesNextIteration:     cl.NextSucc,
			SucceedsPreviousIteration: cl.PrevPred,
		}
		for _, pt := range cl.Ports {
			port := g.Port(pt.Port)
			ff.Ports = append(ff.Ports, ir.FiringPort{Name: port.Name, Rate: pt.Tokens, Input: port.Input})
		}
		for _, m := range cl.Members {
			ff.Firings = append(ff.Firings, c.fg.Name(m))
		}
		res.FiringFunctions = append(res.FiringFunctions, ff)
	}
	res.FiringFunctions = append(res.FiringFunctions, c.passThroughFunctions()...)
	return res
}

// passThroughFunctions gives every direct boundary wire its own function.
// An input that also feeds actors is already counted by their clusters, so
// it appears here with rate 0.
func (c *clusterer) passThroughFunctions() []ir.FiringFunction {
	g := c.fg.src
	var out []ir.FiringFunction
	for _, jid := range g.PassThroughs() {
		j := g.Junction(jid)
		rate := c.fg.sol.Rate(j.To)
		inRate := rate
		for _, other := range g.JunctionsFrom(j.From) {
			if !g.IsBoundary(g.Junction(other).To) {
				inRate = 0
				break
			}
		}
		if inRate > 0 && !firstPassThrough(g, jid) {
			inRate = 0
		}
		out = append(out, ir.FiringFunction{
			Ports: []ir.FiringPort{
				{Name: g.Port(j.From).Name, Rate: inRate, Input: true},
				{Name: g.Port(j.To).Name, Rate: rate, Input: false},
			},
			Firings: []string{g.QualifiedName(j.From) + "->" + g.QualifiedName(j.To)},
		})
	}
	return out
}

// firstPassThrough reports whether jid is the first boundary wire out of
// its input, which carries the input's rate when it fans out to several
// outputs.
func firstPassThrough(g *graph.Graph, jid graph.JunctionID) bool {
	for _, other := range g.JunctionsFrom(g.Junction(jid).From) {
		if g.IsBoundary(g.Junction(other).To) {
			return other == jid
		}
	}
	return false
}
