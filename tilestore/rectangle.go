package tilestore

import (
	"github.com/paulmach/orb"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// RectangleFromBound and boundFromRectangle are the only two places
// orb.Bound and retrieval.Rectangle ever meet: the engine's core stays
// on plain float64s (see retrieval/viewport.go), and every adapter
// that builds a Row or runs a covering query converts at this
// boundary instead.
func RectangleFromBound(b orb.Bound) retrieval.Rectangle {
	return retrieval.Rectangle{
		MinX: b.Min.Lon(), MinY: b.Min.Lat(),
		MaxX: b.Max.Lon(), MaxY: b.Max.Lat(),
	}
}

func boundFromRectangle(r retrieval.Rectangle) orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.MinX, r.MinY},
		Max: orb.Point{r.MaxX, r.MaxY},
	}
}
