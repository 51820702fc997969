// Package trail records an agent's movement as a simplified, bounded list
// of waypoints.
package trail

import (
	"github.com/o0olele/breadcrumbs-go/math64"
)

// Options controls how positions are sampled into the trail.
type Options struct {
	MinDist          float64 // minimum movement before a new point is considered
	MaxIntervalTicks int64   // a point is considered at least this often
	MergeDist        float64 // points this close to the last one replace it
	MaxCount         int     // rolling buffer size
}

// DefaultOptions returns the default sampling options.
func DefaultOptions() Options {
	return Options{
		MinDist:          4.0,
		MaxIntervalTicks: 60,
		MergeDist:        2.0,
		MaxCount:         2500,
	}
}

// Recorder owns the live trail for one context.
//
// Points before segmentStart are kept so a quick second terminal event can
// still reuse them, but they are excluded from new snapshots.
type Recorder struct {
	opts Options

	points       []math64.Vector3
	context      string
	segmentStart int

	last     *math64.Vector3
	lastTick int64
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts Options) *Recorder {
	if opts.MaxCount <= 0 {
		opts.MaxCount = DefaultOptions().MaxCount
	}
	return &Recorder{opts: opts}
}

// Record samples a position. It reports whether the stored trail changed.
func (r *Recorder) Record(pos math64.Vector3, tick int64, context string) bool {
	changed := false
	if r.context != "" && r.context != context {
		r.Wipe()
		changed = true
	}
	r.context = context

	// a bridge point may already be stored, so the merge rule still applies
	if r.last == nil {
		r.put(pos)
		r.mark(pos, tick)
		return true
	}

	dist := pos.Distance(*r.last)
	dt := tick - r.lastTick
	if dist < r.opts.MinDist && dt < r.opts.MaxIntervalTicks {
		return changed
	}

	r.put(pos)
	r.mark(pos, tick)
	return true
}

// Insert adds a point through the merge and cap rules without the sampling
// gate. The last recorded position is left untouched.
func (r *Recorder) Insert(pos math64.Vector3) {
	r.put(pos)
}

// ResetSegment narrows the current segment to the last tailSize points.
func (r *Recorder) ResetSegment(tailSize int) {
	r.segmentStart = math64.Max(0, len(r.points)-math64.Max(0, tailSize))
}

// Wipe removes every point and forgets the context.
func (r *Recorder) Wipe() {
	r.points = nil
	r.context = ""
	r.segmentStart = 0
	r.last = nil
	r.lastTick = 0
}

// Segment returns a copy of the current segment.
func (r *Recorder) Segment() []math64.Vector3 {
	start := math64.Clamp(r.segmentStart, 0, len(r.points))
	out := make([]math64.Vector3, len(r.points)-start)
	copy(out, r.points[start:])
	return out
}

// Points returns a copy of every stored point, history included.
func (r *Recorder) Points() []math64.Vector3 {
	out := make([]math64.Vector3, len(r.points))
	copy(out, r.points)
	return out
}

// Overlay returns at most max stored points, evenly strided.
func (r *Recorder) Overlay(max int) []math64.Vector3 {
	n := len(r.points)
	if n == 0 || max <= 0 {
		return nil
	}
	stride := (n + max - 1) / max
	out := make([]math64.Vector3, 0, math64.Min(n, max))
	for i := 0; i < n; i += stride {
		out = append(out, r.points[i])
	}
	return out
}

func (r *Recorder) Len() int          { return len(r.points) }
func (r *Recorder) SegmentStart() int { return r.segmentStart }
func (r *Recorder) Context() string   { return r.context }

// Adopt sets the context of an empty-context trail. It reports whether the
// trail now belongs to context.
func (r *Recorder) Adopt(context string) bool {
	if r.context == "" {
		r.context = context
	}
	return r.context == context
}

func (r *Recorder) put(pos math64.Vector3) {
	if n := len(r.points); n > 0 && pos.Distance(r.points[n-1]) <= r.opts.MergeDist {
		r.points[n-1] = pos
		return
	}
	r.points = append(r.points, pos)
	r.evict()
}

func (r *Recorder) evict() {
	overflow := len(r.points) - r.opts.MaxCount
	if overflow <= 0 {
		return
	}
	r.points = append(r.points[:0:0], r.points[overflow:]...)
	r.segmentStart = math64.Max(0, r.segmentStart-overflow)
}

func (r *Recorder) mark(pos math64.Vector3, tick int64) {
	r.last = &pos
	r.lastTick = tick
}
