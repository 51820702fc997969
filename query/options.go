package query

// Options controls how far the navigator looks ahead and when the goal
// counts as reached.
type Options struct {
	MaxHops       int     // waypoints returned per query
	HopMargin     int     // extra walk budget on top of the node count
	ReachedRadius float64 // horizontal distance that completes the route
	HideRadius    float64 // horizontal distance below which nothing is shown
}

// DefaultOptions returns the default navigation options.
func DefaultOptions() Options {
	return Options{
		MaxHops:       18,
		HopMargin:     5,
		ReachedRadius: 3.0,
		HideRadius:    6.0,
	}
}

// Proximity classifies the agent's horizontal distance to the goal.
type Proximity int

const (
	ProximityFar Proximity = iota
	ProximityHidden
	ProximityReached
)

func (p Proximity) String() string {
	switch p {
	case ProximityFar:
		return "far"
	case ProximityHidden:
		return "hidden"
	case ProximityReached:
		return "reached"
	}
	return "unknown"
}
