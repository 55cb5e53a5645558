package tilestore

import (
	"fmt"

	"github.com/paulmach/orb/maptile/tilecover"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// Covering is the concrete retrieval.SpatialCoveringProvider: it
// decomposes a viewport into the set of map tiles covering it at the
// policy's scale and reports each as a single-point cell interval in
// the scale index's id space.
type Covering struct{}

func (Covering) Cover(viewport retrieval.Rectangle, policy retrieval.CoveringPolicy) ([]retrieval.CellInterval, error) {
	zoom := scaleToZoom(policy.Scale)
	bound := boundFromRectangle(viewport)

	tiles, err := tilecover.Geometry(bound, zoom)
	if err != nil {
		return nil, fmt.Errorf("%w: covering viewport at zoom %d: %v", retrieval.ErrMalformedIndex, zoom, err)
	}

	intervals := make([]retrieval.CellInterval, 0, len(tiles))
	for tile := range tiles {
		id := tileCellID(tile)
		intervals = append(intervals, retrieval.CellInterval{Lo: id, Hi: id})
	}
	return intervals, nil
}
