package tilestore

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// layerName is the MVT layer tippecanoe writes curvature features
// into, matching indexbuild's tile generation step.
const layerName = "roads"

// mvtScaleIndex is the concrete retrieval.ScaleIndexReader backing a
// single tile's spatial-index section: a decoded MVT payload plus the
// tile coordinate it was decoded at, needed to project tile-local
// feature coordinates back into geographic space.
type mvtScaleIndex struct {
	tile   maptile.Tile
	layers mvt.Layers
}

// newMVTScaleIndex decodes a tile's vector tile bytes once; every
// subsequent ForEachInIntervalAndScale call reuses the decoded layers.
func newMVTScaleIndex(tile maptile.Tile, data []byte) (*mvtScaleIndex, error) {
	layers, err := mvt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding mvt: %v", retrieval.ErrMalformedIndex, err)
	}
	return &mvtScaleIndex{tile: tile, layers: layers}, nil
}

func (idx *mvtScaleIndex) ForEachInIntervalAndScale(collect func(retrieval.FeatureID), lo, hi uint64, scale float64) error {
	zoom := scaleToZoom(scale)

	for _, layer := range idx.layers {
		if layer.Name != layerName {
			continue
		}
		for _, feature := range layer.Features {
			bound := tileLocalBound(feature.Geometry, idx.tile)
			if bound == nil {
				continue
			}
			center := bound.Center()
			cell := maptile.At(orb.Point{center[0], center[1]}, zoom)
			id := tileCellID(cell)
			if id < lo || id > hi {
				continue
			}
			fid, ok := featureID(feature.Properties)
			if !ok {
				continue
			}
			collect(fid)
		}
	}
	return nil
}

// tileLocalBound converts a feature's tile-space geometry (0..4096
// coordinates) to a geographic bound, interpolating across the tile's
// own bound. Adapted from the teacher's road bounding-box extraction.
func tileLocalBound(geom orb.Geometry, tile maptile.Tile) *orb.Bound {
	if geom == nil {
		return nil
	}
	tileBound := tile.Bound()
	toLatLng := func(x, y float64) orb.Point {
		lng := tileBound.Min.Lon() + (x/4096.0)*(tileBound.Max.Lon()-tileBound.Min.Lon())
		lat := tileBound.Max.Lat() + (y/4096.0)*(tileBound.Min.Lat()-tileBound.Max.Lat())
		return orb.Point{lng, lat}
	}

	var bound orb.Bound
	touched := false
	extend := func(x, y float64) {
		p := toLatLng(x, y)
		if !touched {
			bound = orb.Bound{Min: p, Max: p}
			touched = true
			return
		}
		bound = bound.Extend(p)
	}

	switch g := geom.(type) {
	case orb.Point:
		extend(g[0], g[1])
	case orb.LineString:
		for _, c := range g {
			extend(c[0], c[1])
		}
	case orb.Polygon:
		for _, ring := range g {
			for _, c := range ring {
				extend(c[0], c[1])
			}
		}
	case orb.MultiLineString:
		for _, line := range g {
			for _, c := range line {
				extend(c[0], c[1])
			}
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			for _, ring := range poly {
				for _, c := range ring {
					extend(c[0], c[1])
				}
			}
		}
	default:
		return nil
	}

	if !touched {
		return nil
	}
	return &bound
}

// featureID reads the numeric feature identifier tippecanoe carried
// through from indexbuild's GeoJSON "id" property. MVT property values
// decode as float64, string, or bool depending on the original JSON
// type; indexbuild always writes a JSON number.
func featureID(props map[string]interface{}) (retrieval.FeatureID, bool) {
	raw, ok := props["id"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if v < 0 || v > math.MaxUint32 {
			return 0, false
		}
		return retrieval.FeatureID(uint32(v)), true
	case int64:
		return retrieval.FeatureID(uint32(v)), true
	default:
		return 0, false
	}
}
