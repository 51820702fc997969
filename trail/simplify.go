package trail

import "github.com/o0olele/breadcrumbs-go/math64"

// Simplify collapses consecutive points closer than mergeDist. A point that
// is close to the previously kept one replaces it, so the newest position
// survives.
func Simplify(points []math64.Vector3, mergeDist float64) []math64.Vector3 {
	if len(points) == 0 {
		return []math64.Vector3{}
	}

	md2 := mergeDist * mergeDist
	out := make([]math64.Vector3, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		if p.DistanceSquared(out[len(out)-1]) <= md2 {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
