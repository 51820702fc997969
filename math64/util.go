package math64

// Min returns the minimum of two values.
func Min[T float64 | int | int64](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two values.
func Max[T float64 | int | int64](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Clamp restricts v to [lo, hi].
func Clamp[T float64 | int | int64](v, lo, hi T) T {
	return Max(lo, Min(v, hi))
}
