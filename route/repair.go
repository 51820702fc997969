package route

import (
	"slices"

	"go.uber.org/zap"

	"github.com/o0olele/breadcrumbs-go/math64"
	"github.com/o0olele/breadcrumbs-go/trail"
)

// repair inserts a bridge node at pos when the agent is far from every
// route node, so the walk starts near the agent again. The graph is rebuilt
// from scratch: adjacency and the shortest path tree can change anywhere.
func (c *Controller) repair(pos math64.Vector3, tick int64) bool {
	_, nearest, ok := c.nav.Nearest(pos)
	if !ok {
		return false
	}

	opts := c.opts.Repair
	if pos.DistanceXZ(nearest) <= opts.OffRouteDist {
		return false
	}
	if c.lastBridge != nil {
		if pos.DistanceXZ(*c.lastBridge) < opts.BridgeStepDist {
			return false
		}
		if tick-c.lastBridgeTick < opts.BridgeMinTicks {
			return false
		}
	}

	route := c.nav.Route()
	route = slices.Insert(route, len(route)-1, pos)
	route = trail.Simplify(route, c.opts.Trail.MergeDist)
	c.setRoute(route)

	// future routes in the same context benefit from the bridge too
	if c.recorder.Adopt(c.routeContext) {
		c.recorder.Insert(pos)
		c.dirty = true
	}

	c.lastBridge = &pos
	c.lastBridgeTick = tick
	bridgeTotal.Inc()
	c.logger.Debug("Bridge node inserted",
		zap.Stringer("pos", pos),
		zap.Float64("nearest_dist", pos.DistanceXZ(nearest)),
		zap.Int("route_points", len(route)))
	return true
}

func (c *Controller) resetBridge() {
	c.lastBridge = nil
	c.lastBridgeTick = 0
}
