// Package query answers "which waypoints lead to the goal from here" over
// an active route.
package query

import (
	"slices"

	"github.com/o0olele/breadcrumbs-go/graph"
	"github.com/o0olele/breadcrumbs-go/math64"
)

// Waypoint is one position handed to the render layer.
type Waypoint struct {
	Pos  math64.Vector3 `json:"pos"`
	Goal bool           `json:"goal"`
}

// Result of a navigation query.
type Result struct {
	Waypoints []Waypoint
	Start     int // node the walk started from, -1 when nothing was walked
	Proximity Proximity
}

// Navigator holds the active route and its graph.
type Navigator struct {
	opts      Options
	graphOpts graph.Options

	route []math64.Vector3
	graph *graph.Graph
}

// NewNavigator creates a navigator without a route.
func NewNavigator(opts Options, graphOpts graph.Options) *Navigator {
	return &Navigator{
		opts:      opts,
		graphOpts: graphOpts,
	}
}

// SetRoute replaces the route and rebuilds the graph from scratch. The last
// point is the goal.
func (nv *Navigator) SetRoute(route []math64.Vector3) {
	if len(route) == 0 {
		nv.Clear()
		return
	}
	nv.route = slices.Clone(route)
	nv.graph = graph.Build(nv.route, nv.graphOpts)
}

// Clear drops the route and graph.
func (nv *Navigator) Clear() {
	nv.route = nil
	nv.graph = nil
}

// Active reports whether a route is set.
func (nv *Navigator) Active() bool { return len(nv.route) > 0 }

// Route returns a copy of the route.
func (nv *Navigator) Route() []math64.Vector3 { return slices.Clone(nv.route) }

// Graph returns the current graph, nil for routes shorter than two nodes.
func (nv *Navigator) Graph() *graph.Graph { return nv.graph }

// Goal returns the route's goal.
func (nv *Navigator) Goal() (math64.Vector3, bool) {
	if len(nv.route) == 0 {
		return math64.Vector3{}, false
	}
	return nv.route[len(nv.route)-1], true
}

// Nearest returns the graph node closest to pos.
func (nv *Navigator) Nearest(pos math64.Vector3) (int, math64.Vector3, bool) {
	if nv.graph == nil {
		return -1, math64.Vector3{}, false
	}
	idx := nv.graph.Nearest(pos)
	return idx, nv.graph.Nodes[idx], true
}

// Proximity classifies pos against the goal using horizontal distance only,
// so stairs and cliffs do not block arrival.
func (nv *Navigator) Proximity(pos math64.Vector3) Proximity {
	goal, ok := nv.Goal()
	if !ok {
		return ProximityFar
	}
	d := pos.DistanceXZ(goal)
	switch {
	case d <= nv.opts.ReachedRadius:
		return ProximityReached
	case d <= nv.opts.HideRadius:
		return ProximityHidden
	}
	return ProximityFar
}

// Walk follows the next-hop field from the node nearest pos, collecting at
// most maxHops waypoints. Without a graph the goal alone is returned.
func (nv *Navigator) Walk(pos math64.Vector3, maxHops int) (int, []Waypoint) {
	if maxHops <= 0 || len(nv.route) == 0 {
		return -1, nil
	}
	if nv.graph == nil {
		goal := nv.route[len(nv.route)-1]
		return len(nv.route) - 1, []Waypoint{{Pos: goal, Goal: true}}
	}

	g := nv.graph
	start := g.Nearest(pos)
	goal := g.Goal()

	out := make([]Waypoint, 0, math64.Min(maxHops, g.Len()))
	cur := start
	for safety := g.Len() + nv.opts.HopMargin; len(out) < maxHops && safety > 0; safety-- {
		out = append(out, Waypoint{Pos: g.Nodes[cur], Goal: cur == goal})
		if cur == goal {
			break
		}

		next := g.NextHop[cur]
		if next < 0 || next >= g.Len() || next == cur {
			break
		}
		cur = next
	}
	return start, out
}

// Query combines the goal proximity check and the walk. Near the goal no
// waypoints are returned; a reached goal is reported so the caller can
// complete the route.
func (nv *Navigator) Query(pos math64.Vector3, maxHops int) Result {
	res := Result{Start: -1}
	if !nv.Active() {
		return res
	}

	res.Proximity = nv.Proximity(pos)
	if res.Proximity != ProximityFar {
		return res
	}
	res.Start, res.Waypoints = nv.Walk(pos, maxHops)
	return res
}
