package trail

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o0olele/breadcrumbs-go/math64"
)

func v(x, y, z float64) math64.Vector3 { return math64.Vector3{X: x, Y: y, Z: z} }

func TestRecordMergesCloseSample(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIntervalTicks = 2
	r := NewRecorder(opts)

	r.Record(v(0, 0, 0), 0, "overworld")
	r.Record(v(5, 0, 0), 10, "overworld")
	r.Record(v(5.5, 0, 0), 12, "overworld")

	assert.Equal(t, []math64.Vector3{v(0, 0, 0), v(5.5, 0, 0)}, r.Points())
}

func TestRecordGate(t *testing.T) {
	r := NewRecorder(DefaultOptions())

	require.True(t, r.Record(v(0, 0, 0), 0, "overworld"))

	t.Run("too close and too soon", func(t *testing.T) {
		assert.False(t, r.Record(v(1, 0, 0), 5, "overworld"))
		assert.Equal(t, 1, r.Len())
	})
	t.Run("far enough", func(t *testing.T) {
		assert.True(t, r.Record(v(4, 0, 0), 6, "overworld"))
		assert.Equal(t, 2, r.Len())
	})
	t.Run("interval elapsed merges near-stationary sample", func(t *testing.T) {
		assert.True(t, r.Record(v(4.5, 0, 0), 66, "overworld"))
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, v(4.5, 0, 0), r.Points()[1])
	})
}

func TestRecordSamePositionTwice(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	r.Record(v(3, 64, 3), 0, "overworld")
	r.Record(v(3, 64, 3), 500, "overworld")

	assert.Equal(t, 1, r.Len())
}

func TestRecordContextChangeWipes(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	r.Record(v(0, 0, 0), 0, "overworld")
	r.Record(v(10, 0, 0), 1, "overworld")
	r.ResetSegment(1)

	assert.True(t, r.Record(v(10, 0, 0), 2, "nether"))
	assert.Equal(t, []math64.Vector3{v(10, 0, 0)}, r.Points())
	assert.Equal(t, "nether", r.Context())
	assert.Equal(t, 0, r.SegmentStart())
}

func TestEvictionKeepsInvariants(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCount = 5
	r := NewRecorder(opts)

	for i := 0; i < 4; i++ {
		r.Record(v(float64(i*10), 0, 0), int64(i), "overworld")
	}
	r.ResetSegment(1)
	require.Equal(t, 3, r.SegmentStart())

	for i := 4; i < 12; i++ {
		r.Record(v(float64(i*10), 0, 0), int64(i), "overworld")
		assert.LessOrEqual(t, r.Len(), 5)
		assert.GreaterOrEqual(t, r.SegmentStart(), 0)
		assert.LessOrEqual(t, r.SegmentStart(), r.Len())
	}
	assert.Equal(t, 0, r.SegmentStart())
	assert.Equal(t, v(70, 0, 0), r.Points()[0])
}

func TestRandomWalkInvariants(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCount = 50
	r := NewRecorder(opts)
	rng := rand.New(rand.NewSource(7))

	pos := v(0, 64, 0)
	for tick := int64(0); tick < 5000; tick++ {
		pos = pos.Add(v(rng.Float64()*6-3, 0, rng.Float64()*6-3))
		r.Record(pos, tick, "overworld")
		if tick%700 == 0 {
			r.ResetSegment(rng.Intn(80))
		}
		if tick%333 == 0 {
			r.Insert(pos.Add(v(30, 0, 0)))
		}
		require.LessOrEqual(t, r.Len(), opts.MaxCount)
		require.GreaterOrEqual(t, r.SegmentStart(), 0)
		require.LessOrEqual(t, r.SegmentStart(), r.Len())
	}
}

func TestResetSegment(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	for i := 0; i < 10; i++ {
		r.Record(v(float64(i*10), 0, 0), int64(i), "overworld")
	}

	r.ResetSegment(4)
	assert.Equal(t, 6, r.SegmentStart())
	assert.Equal(t, 10, r.Len())
	assert.Equal(t, []math64.Vector3{v(60, 0, 0), v(70, 0, 0), v(80, 0, 0), v(90, 0, 0)}, r.Segment())

	r.ResetSegment(100)
	assert.Equal(t, 0, r.SegmentStart())
	assert.Len(t, r.Segment(), 10)
}

func TestSegmentIsACopy(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	r.Record(v(0, 0, 0), 0, "overworld")

	seg := r.Segment()
	seg[0] = v(99, 99, 99)
	assert.Equal(t, v(0, 0, 0), r.Points()[0])
}

func TestInsertUsesMergeAndCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCount = 2
	r := NewRecorder(opts)
	r.Record(v(0, 0, 0), 0, "overworld")

	r.Insert(v(1, 0, 0))
	assert.Equal(t, []math64.Vector3{v(1, 0, 0)}, r.Points())

	r.Insert(v(20, 0, 0))
	r.Insert(v(40, 0, 0))
	assert.Equal(t, []math64.Vector3{v(20, 0, 0), v(40, 0, 0)}, r.Points())

	// the sampling gate still measures from the last recorded sample
	assert.False(t, r.Record(v(1, 0, 0), 1, "overworld"))
}

func TestOverlay(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	for i := 0; i < 100; i++ {
		r.Record(v(float64(i*10), 0, 0), int64(i), "overworld")
	}

	assert.Nil(t, NewRecorder(DefaultOptions()).Overlay(10))
	assert.Len(t, r.Overlay(10), 10)
	assert.Len(t, r.Overlay(1000), 100)
	assert.Len(t, r.Overlay(100), 100)
	assert.Len(t, r.Overlay(99), 50)
}

func TestOverlayNeverExceedsBudget(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	for i := 0; i < 1199; i++ {
		r.Record(v(float64(i*10), 0, 0), int64(i), "overworld")
	}
	require.Equal(t, 1199, r.Len())

	for _, max := range []int{1, 7, 599, 600, 601, 1198, 1199} {
		out := r.Overlay(max)
		assert.LessOrEqual(t, len(out), max, "max=%d", max)
		assert.Equal(t, v(0, 0, 0), out[0], "max=%d", max)
	}
	assert.Len(t, r.Overlay(600), 600)
}

func TestFirstRecordMergesWithBridgePoint(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	require.True(t, r.Adopt("overworld"))
	r.Insert(v(0, 0, 0))

	assert.True(t, r.Record(v(1, 0, 0), 0, "overworld"))
	assert.Equal(t, []math64.Vector3{v(1, 0, 0)}, r.Points())

	// outside the merge distance the bridge point is kept
	assert.True(t, r.Record(v(5, 0, 0), 61, "overworld"))
	assert.Equal(t, []math64.Vector3{v(1, 0, 0), v(5, 0, 0)}, r.Points())
}

func TestAdopt(t *testing.T) {
	r := NewRecorder(DefaultOptions())
	assert.True(t, r.Adopt("overworld"))
	assert.True(t, r.Adopt("overworld"))
	assert.False(t, r.Adopt("nether"))
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   []math64.Vector3
		want []math64.Vector3
	}{
		{"empty", nil, []math64.Vector3{}},
		{"single", []math64.Vector3{v(1, 1, 1)}, []math64.Vector3{v(1, 1, 1)}},
		{
			"collapses run keeping newest",
			[]math64.Vector3{v(0, 0, 0), v(1, 0, 0), v(2.5, 0, 0), v(10, 0, 0)},
			[]math64.Vector3{v(2.5, 0, 0), v(10, 0, 0)},
		},
		{
			"boundary distance merges",
			[]math64.Vector3{v(0, 0, 0), v(0, 2, 0)},
			[]math64.Vector3{v(0, 2, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in, 2))
		})
	}
}
