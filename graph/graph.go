// Package graph builds a sparse proximity graph over route waypoints and
// computes, for every node, the next hop toward the goal.
package graph

import (
	"container/heap"
	"math"
	"slices"

	"github.com/o0olele/breadcrumbs-go/math64"
)

// NoHop marks a node without a next hop (the goal, or unreachable nodes).
const NoHop = -1

// Options bounds node degree and edge length.
type Options struct {
	KNeighbors  int
	MaxEdgeDist float64
}

// DefaultOptions connects each node to its 6 nearest nodes within 40 units.
func DefaultOptions() Options {
	return Options{
		KNeighbors:  6,
		MaxEdgeDist: 40.0,
	}
}

// Edge is an adjacency entry.
type Edge struct {
	To   int
	Cost float64
}

// Graph is built once from a route and never patched. The goal is always
// the last node.
type Graph struct {
	Nodes     []math64.Vector3
	Neighbors [][]Edge
	Dist      []float64
	NextHop   []int
}

// Build creates the graph for points. Routes shorter than two nodes have no
// edges and yield nil.
func Build(points []math64.Vector3, opts Options) *Graph {
	n := len(points)
	if n < 2 {
		return nil
	}

	g := &Graph{
		Nodes:     slices.Clone(points),
		Neighbors: make([][]Edge, n),
	}

	sel := newSelector(n, opts)
	for i := 0; i < n; i++ {
		for _, j := range sel.candidates(g.Nodes, i) {
			g.link(i, j)
			g.link(j, i)
		}
	}

	g.shortestPaths()
	return g
}

// selector picks edge candidates. Its buffers are reused across nodes.
type selector struct {
	k        int
	maxEdge2 float64

	dist2 []float64 // squared distance from the current node
	best  []int     // up to k nearest, ordered by (dist2, index)
	out   []int
}

func newSelector(n int, opts Options) *selector {
	k := math64.Clamp(opts.KNeighbors, 0, n-1)
	return &selector{
		k:        k,
		maxEdge2: opts.MaxEdgeDist * opts.MaxEdgeDist,
		dist2:    make([]float64, n),
		best:     make([]int, 0, k),
		out:      make([]int, 0, k+2),
	}
}

// candidates returns the K nearest nodes to i within range followed by the
// sequential neighbors. The result is only valid until the next call.
func (s *selector) candidates(nodes []math64.Vector3, i int) []int {
	n := len(nodes)
	a := nodes[i]
	for j := range nodes {
		s.dist2[j] = a.DistanceSquared(nodes[j])
	}

	// bounded insertion; j ascends, so equal distances keep index order
	s.best = s.best[:0]
	for j := 0; j < n && s.k > 0; j++ {
		if j == i {
			continue
		}
		d := s.dist2[j]
		if len(s.best) == s.k && d >= s.dist2[s.best[s.k-1]] {
			continue
		}
		if len(s.best) < s.k {
			s.best = append(s.best, j)
		}
		pos := len(s.best) - 1
		for pos > 0 && s.dist2[s.best[pos-1]] > d {
			s.best[pos] = s.best[pos-1]
			pos--
		}
		s.best[pos] = j
	}

	s.out = s.out[:0]
	for _, j := range s.best {
		if s.dist2[j] <= s.maxEdge2 {
			s.out = append(s.out, j)
		}
	}

	// the recorded order is always walkable, whatever the geometry
	if i-1 >= 0 {
		s.out = append(s.out, i-1)
	}
	if i+1 < n {
		s.out = append(s.out, i+1)
	}
	return s.out
}

func (g *Graph) link(from, to int) {
	for _, e := range g.Neighbors[from] {
		if e.To == to {
			return
		}
	}
	g.Neighbors[from] = append(g.Neighbors[from], Edge{
		To:   to,
		Cost: g.Nodes[from].Distance(g.Nodes[to]),
	})
}

// shortestPaths runs Dijkstra from the goal. When two predecessors give the
// same distance, the one settled later wins, which keeps intermediate
// waypoints on straight runs.
func (g *Graph) shortestPaths() {
	n := len(g.Nodes)
	goal := n - 1

	g.Dist = make([]float64, n)
	g.NextHop = make([]int, n)
	for i := range g.Dist {
		g.Dist[i] = math.Inf(1)
		g.NextHop[i] = NoHop
	}
	g.Dist[goal] = 0

	settled := math64.NewBitmap(n)
	openSet := &nodeHeap{}
	heap.Push(openSet, heapNode{nodeID: goal, dist: 0})

	for openSet.Len() > 0 {
		cur := heap.Pop(openSet).(heapNode)
		u := cur.nodeID
		if settled.Contains(u) {
			continue
		}
		settled.Set(u)

		for _, e := range g.Neighbors[u] {
			v := e.To
			if settled.Contains(v) {
				continue
			}
			nd := g.Dist[u] + e.Cost
			switch {
			case nd < g.Dist[v]:
				g.Dist[v] = nd
				g.NextHop[v] = u
				heap.Push(openSet, heapNode{nodeID: v, dist: nd})
			case nd == g.Dist[v]:
				g.NextHop[v] = u
			}
		}
	}
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.Nodes) }

// Goal returns the goal node index.
func (g *Graph) Goal() int { return len(g.Nodes) - 1 }

// Nearest returns the node closest to pos.
func (g *Graph) Nearest(pos math64.Vector3) int {
	return math64.Closest(g.Nodes, pos)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.Neighbors {
		total += len(edges)
	}
	return total / 2
}
