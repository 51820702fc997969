package route

import (
	"github.com/o0olele/breadcrumbs-go/capture"
	"github.com/o0olele/breadcrumbs-go/graph"
	"github.com/o0olele/breadcrumbs-go/query"
	"github.com/o0olele/breadcrumbs-go/trail"
)

// RepairOptions controls bridge node insertion.
type RepairOptions struct {
	OffRouteDist   float64 // horizontal distance to the nearest node that counts as lost
	BridgeStepDist float64 // minimum horizontal distance between bridge nodes
	BridgeMinTicks int64   // minimum ticks between bridge nodes
}

// Options groups the settings of every stage driven by the controller.
type Options struct {
	Trail       trail.Options
	TailOnReset int // trail points kept in the segment after the goal is reached
	Capture     capture.Options
	Graph       graph.Options
	Query       query.Options
	Repair      RepairOptions

	MinRenderDist     float64 // waypoints closer than this to the agent are not returned
	OverlayMax        int     // debug overlay point budget per tick
	SaveIntervalTicks int64
	PersistKey        string
}

// DefaultOptions returns the defaults for a 20 tick per second clock.
func DefaultOptions() Options {
	return Options{
		Trail:       trail.DefaultOptions(),
		TailOnReset: 200,
		Capture:     capture.DefaultOptions(),
		Graph:       graph.DefaultOptions(),
		Query:       query.DefaultOptions(),
		Repair: RepairOptions{
			OffRouteDist:   12.0,
			BridgeStepDist: 5.0,
			BridgeMinTicks: 10,
		},
		MinRenderDist:     2.0,
		OverlayMax:        600,
		SaveIntervalTicks: 200,
		PersistKey:        DefaultPersistKey,
	}
}
