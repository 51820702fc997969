// Package route drives the trail, capture, graph and navigator stages for
// one session, one tick at a time.
package route

import (
	"time"

	"go.uber.org/zap"

	"github.com/o0olele/breadcrumbs-go/capture"
	"github.com/o0olele/breadcrumbs-go/graph"
	"github.com/o0olele/breadcrumbs-go/math64"
	"github.com/o0olele/breadcrumbs-go/query"
	"github.com/o0olele/breadcrumbs-go/trail"
)

// State of the route lifecycle.
type State int

const (
	StateRecording State = iota
	StatePendingCapture
	StateActive
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StatePendingCapture:
		return "pending_capture"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// Observation is what the host samples every tick. A nil position or an
// empty context skips the tick.
type Observation struct {
	Position *math64.Vector3 `json:"position"`
	Tick     int64           `json:"tick"`
	Context  string          `json:"context"`
	Alive    bool            `json:"alive"`
	Goal     *capture.Goal   `json:"goal,omitempty"`
}

// Status is a snapshot of the controller counters.
type Status struct {
	State        string `json:"state"`
	TrailPoints  int    `json:"trail_points"`
	SegmentStart int    `json:"segment_start"`
	RoutePoints  int    `json:"route_points"`
	RouteContext string `json:"route_context"`
	StartIndex   int    `json:"start_index"` // -1 until a walk started
	GraphActive  bool   `json:"graph_active"`
	Debug        bool   `json:"debug"`
}

// Controller owns every piece of mutable route state for one session. It is
// not safe for concurrent use.
type Controller struct {
	opts      Options
	logger    *zap.Logger
	persister Persister

	recorder *trail.Recorder
	capture  *capture.Capture
	nav      *query.Navigator

	routeContext string
	startIndex   int
	wasAlive     bool

	lastBridge     *math64.Vector3
	lastBridgeTick int64

	loaded       bool
	dirty        bool
	lastSaveTick int64

	debug bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPersister enables loading and autosaving the trail.
func WithPersister(p Persister) Option {
	return func(c *Controller) { c.persister = p }
}

// NewController creates a controller in the recording state.
func NewController(opts Options, options ...Option) *Controller {
	if opts.PersistKey == "" {
		opts.PersistKey = DefaultPersistKey
	}
	c := &Controller{
		opts:       opts,
		logger:     zap.NewNop(),
		recorder:   trail.NewRecorder(opts.Trail),
		capture:    capture.New(opts.Capture),
		nav:        query.NewNavigator(opts.Query, opts.Graph),
		startIndex: -1,
		wasAlive:   true,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	switch {
	case c.nav.Active():
		return StateActive
	case c.capture.Pending():
		return StatePendingCapture
	}
	return StateRecording
}

// Tick advances the controller by one logical tick and returns the
// waypoints to show, nearest first.
func (c *Controller) Tick(obs Observation) []query.Waypoint {
	if obs.Position == nil || obs.Context == "" {
		return nil
	}
	pos := *obs.Position

	if !c.loaded {
		c.load(obs.Context)
		c.loaded = true
	}
	c.autosave(obs.Tick)

	// the snapshot must be taken before anything from the next life is recorded
	if !obs.Alive && c.wasAlive {
		c.capture.Begin(c.recorder.Segment(), c.recorder.Context())
		c.logger.Debug("Terminal event, trail frozen",
			zap.Int("points", len(c.recorder.Segment())),
			zap.Int64("tick", obs.Tick))
	}

	c.finalize(obs)

	if obs.Alive && c.State() == StateRecording {
		before := c.recorder.Context()
		if c.recorder.Record(pos, obs.Tick, obs.Context) {
			c.dirty = true
		}
		if before != "" && before != obs.Context {
			c.logger.Debug("Context changed, trail restarted",
				zap.String("from", before),
				zap.String("to", obs.Context))
		}
	}

	var out []query.Waypoint
	if obs.Alive {
		out = c.navigate(pos, obs)
	}
	c.wasAlive = obs.Alive
	return out
}

func (c *Controller) finalize(obs Observation) {
	route, outcome := c.capture.TryFinalize(obs.Goal, obs.Tick)
	switch outcome {
	case capture.OutcomeSuppressed:
		captureTotal.WithLabelValues(outcome.String()).Inc()
		c.logger.Debug("Duplicate goal ignored",
			zap.Stringer("goal", obs.Goal.Pos),
			zap.String("context", obs.Goal.Context))

	case capture.OutcomeCaptured:
		captureTotal.WithLabelValues(outcome.String()).Inc()
		c.routeContext = obs.Goal.Context
		c.startIndex = -1
		c.resetBridge()
		c.setRoute(route)
		c.logger.Info("Route captured",
			zap.Int("waypoints", len(route)-1),
			zap.Stringer("goal", obs.Goal.Pos),
			zap.String("context", obs.Goal.Context))
	}
}

func (c *Controller) navigate(pos math64.Vector3, obs Observation) []query.Waypoint {
	if !c.nav.Active() || obs.Context != c.routeContext {
		return nil
	}

	switch c.nav.Proximity(pos) {
	case query.ProximityReached:
		c.complete()
		return nil
	case query.ProximityHidden:
		return nil
	}

	c.repair(pos, obs.Tick)

	start, waypoints := c.nav.Walk(pos, c.opts.Query.MaxHops)
	c.startIndex = start

	out := waypoints[:0]
	for _, wp := range waypoints {
		if pos.Distance(wp.Pos) >= c.opts.MinRenderDist {
			out = append(out, wp)
		}
	}
	return out
}

// complete ends the route at the goal and resumes recording with a short
// tail of history.
func (c *Controller) complete() {
	goal, _ := c.nav.Goal()
	c.clearRoute()
	goalReachedTotal.Inc()
	c.logger.Info("Goal reached, route cleared",
		zap.Stringer("goal", goal),
		zap.Int("segment_start", c.recorder.SegmentStart()))
}

func (c *Controller) clearRoute() {
	c.nav.Clear()
	c.routeContext = ""
	c.startIndex = -1
	c.resetBridge()
	c.recorder.ResetSegment(c.opts.TailOnReset)
	c.dirty = true
}

func (c *Controller) setRoute(route []math64.Vector3) {
	start := time.Now()
	c.nav.SetRoute(route)
	graphBuildDuration.Observe(time.Since(start).Seconds())
	graphNodes.Observe(float64(len(route)))
}

// Clear wipes the trail, drops any pending or active route and forgets
// captured goals.
func (c *Controller) Clear() {
	c.recorder.Wipe()
	c.capture.Reset()
	c.clearRoute()
	if err := c.Flush(); err != nil {
		c.logger.Warn("Failed to save cleared trail", zap.Error(err))
	}
	c.logger.Info("Cleared")
}

// ToggleDebug flips the debug overlay and returns the new value.
func (c *Controller) ToggleDebug() bool {
	c.debug = !c.debug
	return c.debug
}

// Overlay returns the stored trail for the debug render layer, empty when
// debug is off.
func (c *Controller) Overlay() []math64.Vector3 {
	if !c.debug {
		return nil
	}
	return c.recorder.Overlay(c.opts.OverlayMax)
}

// Status reports the controller counters.
func (c *Controller) Status() Status {
	routeContext := c.routeContext
	if routeContext == "" {
		routeContext = "none"
	}
	return Status{
		State:        c.State().String(),
		TrailPoints:  c.recorder.Len(),
		SegmentStart: c.recorder.SegmentStart(),
		RoutePoints:  len(c.nav.Route()),
		RouteContext: routeContext,
		StartIndex:   c.startIndex,
		GraphActive:  c.nav.Graph() != nil,
		Debug:        c.debug,
	}
}

// Route returns a copy of the active route.
func (c *Controller) Route() []math64.Vector3 { return c.nav.Route() }

// Graph returns the active graph.
func (c *Controller) Graph() *graph.Graph { return c.nav.Graph() }

// Trail returns a copy of every stored trail point.
func (c *Controller) Trail() []math64.Vector3 { return c.recorder.Points() }
