package tilestore

import (
	"testing"

	"github.com/paulmach/orb/maptile"
)

func TestTileCellIDDistinctForDistinctTiles(t *testing.T) {
	a := tileCellID(maptile.New(1, 2, 10))
	b := tileCellID(maptile.New(1, 3, 10))
	c := tileCellID(maptile.New(2, 2, 10))
	d := tileCellID(maptile.New(1, 2, 11))

	ids := []uint64{a, b, c, d}
	for i := range ids {
		for j := range ids {
			if i == j {
				continue
			}
			if ids[i] == ids[j] {
				t.Fatalf("tileCellID collision between distinct tiles: index %d and %d both = %d", i, j, ids[i])
			}
		}
	}
}

func TestTileCellIDDeterministic(t *testing.T) {
	tile := maptile.New(5, 9, 8)
	if tileCellID(tile) != tileCellID(tile) {
		t.Fatalf("tileCellID is not deterministic")
	}
}

func TestScaleToZoomRoundsAndClamps(t *testing.T) {
	cases := []struct {
		scale float64
		want  maptile.Zoom
	}{
		{0, 0},
		{-5, 0},
		{9.4, 9},
		{9.5, 10},
		{30, 24},
	}
	for _, tc := range cases {
		if got := scaleToZoom(tc.scale); got != tc.want {
			t.Fatalf("scaleToZoom(%v) = %d, want %d", tc.scale, got, tc.want)
		}
	}
}
