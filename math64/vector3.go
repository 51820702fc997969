package math64

import (
	"fmt"
	"math"
)

// Vector3 represents a point in world space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add adds two vectors.
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub subtracts two vectors.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Distance calculates the distance between two vectors.
func (v Vector3) Distance(other Vector3) float64 {
	return math.Sqrt(v.DistanceSquared(other))
}

// DistanceSquared calculates the squared distance between two vectors.
func (v Vector3) DistanceSquared(other Vector3) float64 {
	diff := v.Sub(other)
	return diff.X*diff.X + diff.Y*diff.Y + diff.Z*diff.Z
}

// DistanceXZ calculates the horizontal distance between two vectors,
// ignoring the vertical axis.
func (v Vector3) DistanceXZ(other Vector3) float64 {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// String returns a string representation of the vector.
func (v Vector3) String() string {
	return fmt.Sprintf("[%.2f,%.2f,%.2f]", v.X, v.Y, v.Z)
}

// Closest returns the index of the point nearest to target by squared
// distance. The first minimum wins on ties. Returns -1 for an empty slice.
func Closest(points []Vector3, target Vector3) int {
	best := -1
	bestD2 := math.Inf(1)
	for i, p := range points {
		if d2 := p.DistanceSquared(target); d2 < bestD2 {
			bestD2 = d2
			best = i
		}
	}
	return best
}
