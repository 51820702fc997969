package math64

// Bitmap is a growable set of non-negative integers.
type Bitmap []uint64

// NewBitmap returns a bitmap able to hold n bits without growing.
func NewBitmap(n int) Bitmap {
	return make(Bitmap, (n+63)>>6)
}

// Set sets the bit x in the bitmap and grows it if necessary.
func (dst *Bitmap) Set(x int) {
	blkAt := x >> 6
	bitAt := x % 64
	if blkAt >= len(*dst) {
		dst.grow(blkAt)
	}

	(*dst)[blkAt] |= 1 << bitAt
}

// Contains checks whether a value is contained in the bitmap or not.
func (dst Bitmap) Contains(x int) bool {
	blkAt := x >> 6
	if x < 0 || blkAt >= len(dst) {
		return false
	}

	bitAt := x % 64
	return dst[blkAt]&(1<<bitAt) > 0
}

// grow grows the size of the bitmap until we reach the desired block offset
func (dst *Bitmap) grow(blkAt int) {
	if cap(*dst) > blkAt {
		*dst = (*dst)[:blkAt+1]
		return
	}

	old := *dst
	*dst = make(Bitmap, blkAt+1, 2*(blkAt+1))
	copy(*dst, old)
}
