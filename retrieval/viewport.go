package retrieval

// Rectangle is an axis-aligned rectangle in the engine's common
// geographic coordinate system. It is deliberately not built on a
// geometry library: every operation the controller needs is a handful
// of comparisons and a centroid scale, and real geometry work (bound
// unions over decoded vector tile features, cell covering) happens in
// the concrete TileHandle/SpatialCoveringProvider implementations that
// sit outside this package.
type Rectangle struct {
	MinX, MinY, MaxX, MaxY float64
}

// Center returns the rectangle's centroid.
func (r Rectangle) Center() (x, y float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

// ScaledAroundCenter returns a rectangle with the same centroid, scaled
// uniformly by s. s=1 is the identity; s=√2 doubles the area.
func (r Rectangle) ScaledAroundCenter(s float64) Rectangle {
	cx, cy := r.Center()
	halfW := (r.MaxX - r.MinX) / 2 * s
	halfH := (r.MaxY - r.MinY) / 2 * s
	return Rectangle{
		MinX: cx - halfW,
		MinY: cy - halfH,
		MaxX: cx + halfW,
		MaxY: cy + halfH,
	}
}

// Intersects reports whether r and o share at least one point.
func (r Rectangle) Intersects(o Rectangle) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX && r.MinY <= o.MaxY && r.MaxY >= o.MinY
}

// Contains reports whether r fully contains o.
func (r Rectangle) Contains(o Rectangle) bool {
	return r.MinX <= o.MinX && r.MaxX >= o.MaxX && r.MinY <= o.MinY && r.MaxY >= o.MaxY
}
