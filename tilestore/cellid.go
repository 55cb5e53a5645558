package tilestore

import "github.com/paulmach/orb/maptile"

// tileCellID packs a tile's zoom and Morton-interleaved X/Y into a
// single uint64, giving every distinct (Z,X,Y) a unique ordinal that
// sorts by zoom first. This is the scale index's cell id space: a
// covering pass over a viewport yields cell intervals in this space,
// and a feature's covering cell (its centroid's tile at the query
// scale) is looked up the same way on the read side.
func tileCellID(t maptile.Tile) uint64 {
	return uint64(t.Z)<<58 | interleave(uint32(t.X), uint32(t.Y))
}

// interleave computes the Morton (Z-order) code of x and y, each
// truncated to 29 bits so the result plus a 6-bit zoom fits in 64 bits.
func interleave(x, y uint32) uint64 {
	return spreadBits(x&0x1FFFFFFF) | spreadBits(y&0x1FFFFFFF)<<1
}

func spreadBits(v uint32) uint64 {
	x := uint64(v)
	x = (x | (x << 16)) & 0x0000FFFF0000FFFF
	x = (x | (x << 8)) & 0x00FF00FF00FF00FF
	x = (x | (x << 4)) & 0x0F0F0F0F0F0F0F0F
	x = (x | (x << 2)) & 0x3333333333333333
	x = (x | (x << 1)) & 0x5555555555555555
	return x
}

// scaleToZoom rounds a query scale (fractional zoom) to the nearest
// whole maptile zoom level, clamped to the range maptile supports.
func scaleToZoom(scale float64) maptile.Zoom {
	z := int(scale + 0.5)
	if z < 0 {
		z = 0
	}
	if z > 24 {
		z = 24
	}
	return maptile.Zoom(z)
}
