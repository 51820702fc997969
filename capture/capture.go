// Package capture freezes the trail at a terminal event and turns it into
// an ordered route ending at the goal.
package capture

import (
	"slices"

	"github.com/o0olele/breadcrumbs-go/math64"
	"github.com/o0olele/breadcrumbs-go/trail"
)

// Goal is a resolved terminal position. Two goals are the same event when
// both fields are equal.
type Goal struct {
	Pos     math64.Vector3 `json:"pos"`
	Context string         `json:"context"`
}

// Outcome describes what TryFinalize did.
type Outcome int

const (
	OutcomeIdle       Outcome = iota // nothing pending
	OutcomeWaiting                   // goal not resolved yet
	OutcomeSuppressed                // same goal captured within the cooldown
	OutcomeCaptured                  // route emitted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeWaiting:
		return "waiting"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeCaptured:
		return "captured"
	}
	return "unknown"
}

// Options for route capture.
type Options struct {
	CooldownTicks int64
	MergeDist     float64
}

// DefaultOptions returns a ~2 second cooldown at 20 ticks per second.
func DefaultOptions() Options {
	return Options{
		CooldownTicks: 40,
		MergeDist:     trail.DefaultOptions().MergeDist,
	}
}

// Capture holds the pending snapshot and the duplicate-goal memory.
type Capture struct {
	opts Options

	pending  bool
	snapshot []math64.Vector3
	context  string

	lastGoal *Goal
	lastTick int64
}

// New creates an idle capture.
func New(opts Options) *Capture {
	return &Capture{opts: opts}
}

// Begin stores the segment captured at the terminal edge. The slice is
// copied.
func (c *Capture) Begin(segment []math64.Vector3, context string) {
	c.pending = true
	c.snapshot = slices.Clone(segment)
	c.context = context
}

// Pending reports whether a snapshot waits for its goal.
func (c *Capture) Pending() bool { return c.pending }

// TryFinalize attempts to turn the pending snapshot into a route.
func (c *Capture) TryFinalize(goal *Goal, tick int64) ([]math64.Vector3, Outcome) {
	if !c.pending {
		return nil, OutcomeIdle
	}
	if goal == nil {
		return nil, OutcomeWaiting
	}

	if c.lastGoal != nil && *c.lastGoal == *goal && tick-c.lastTick < c.opts.CooldownTicks {
		c.Discard()
		return nil, OutcomeSuppressed
	}

	var rp []math64.Vector3
	if c.context != "" && c.context == goal.Context {
		rp = make([]math64.Vector3, 0, len(c.snapshot)+1)
		rp = append(rp, c.snapshot...)
	}

	// the sequence must end nearest the goal
	if len(rp) >= 2 && rp[0].Distance(goal.Pos) < rp[len(rp)-1].Distance(goal.Pos) {
		slices.Reverse(rp)
	}

	rp = append(rp, goal.Pos)
	// merging keeps the newest point, so the goal stays last and exact
	rp = trail.Simplify(rp, c.opts.MergeDist)

	g := *goal
	c.lastGoal = &g
	c.lastTick = tick
	c.Discard()
	return rp, OutcomeCaptured
}

// Discard drops the pending snapshot but keeps the duplicate-goal memory.
func (c *Capture) Discard() {
	c.pending = false
	c.snapshot = nil
	c.context = ""
}

// Reset forgets everything, including previously captured goals.
func (c *Capture) Reset() {
	c.Discard()
	c.lastGoal = nil
	c.lastTick = 0
}
