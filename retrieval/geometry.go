package retrieval

import "fmt"

// clampScale applies the per-tile scale clamp spec §4.2 requires.
func clampScale(scale, min, max float64) float64 {
	switch {
	case scale < min:
		return min
	case scale > max:
		return max
	default:
		return scale
	}
}

// matchGeometry runs the Geometry Matcher against a single tile: cover
// the viewport into cell intervals, then walk the tile's scale index at
// the clamped scale over each interval. Duplicates are permitted in the
// returned sequence; the caller sorts and intersects downstream.
func matchGeometry(covering SpatialCoveringProvider, handle TileHandle, viewport Rectangle, scaleHint float64) ([]FeatureID, error) {
	scaleMin, scaleMax := handle.ScaleRange()
	scale := clampScale(scaleHint, scaleMin, scaleMax)

	intervals, err := covering.Cover(viewport, CoveringPolicy{Scale: scale})
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: covering viewport: %v", ErrMalformedIndex, handle.ID(), err)
	}

	reader, err := handle.OpenSpatialIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: opening spatial index: %v", ErrTileUnreadable, handle.ID(), err)
	}

	var ids []FeatureID
	collect := func(id FeatureID) { ids = append(ids, id) }

	for _, iv := range intervals {
		if err := reader.ForEachInIntervalAndScale(collect, iv.Lo, iv.Hi, scale); err != nil {
			return nil, fmt.Errorf("%w: tile %s: walking scale index: %v", ErrMalformedIndex, handle.ID(), err)
		}
	}
	return ids, nil
}
