package indexbuild

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		want []string
	}{
		{"Mulholland Drive", []string{"mulholland", "drive"}},
		{"Route-66", []string{"route", "66"}},
		{"  leading space", []string{"leading", "space"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := Tokenize(tc.name)
		if len(got) != len(tc.want) {
			t.Fatalf("Tokenize(%q) = %v, want %v", tc.name, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Errorf("Tokenize(%q)[%d] = %q, want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func TestFeaturesForTileFiltersByBound(t *testing.T) {
	tile := maptile.New(1, 1, 2) // covers roughly lon[-90,0], lat[0,66.5]
	inside := Placemark{FeatureID: 1, Name: "Inside Road", Bound: orb.Bound{Min: orb.Point{-45, 30}, Max: orb.Point{-44, 31}}}
	outside := Placemark{FeatureID: 2, Name: "Outside Road", Bound: orb.Bound{Min: orb.Point{100, 30}, Max: orb.Point{101, 31}}}

	features := FeaturesForTile([]Placemark{inside, outside}, tile)
	if len(features) != 1 {
		t.Fatalf("got %d features, want 1", len(features))
	}
	if len(features[0].Tokens) != 2 || features[0].Tokens[0] != "inside" {
		t.Errorf("features[0].Tokens = %v, want [inside road]", features[0].Tokens)
	}
}

func TestEncodeTileTrieNonEmptyForCoveredFeatures(t *testing.T) {
	tile := maptile.New(0, 0, 0) // covers the whole world
	placemarks := []Placemark{
		{FeatureID: 7, Name: "Mulholland Drive", Bound: orb.Bound{Min: orb.Point{-118, 34}, Max: orb.Point{-118, 34}}},
	}

	data := EncodeTileTrie(placemarks, tile)
	if len(data) == 0 {
		t.Fatalf("expected non-empty trie snapshot")
	}
	if empty := EncodeTileTrie(nil, tile); len(empty) != 0 {
		t.Fatalf("expected empty snapshot for no placemarks, got %d bytes", len(empty))
	}
}
