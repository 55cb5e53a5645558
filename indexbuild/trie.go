package indexbuild

import (
	"strings"
	"unicode"

	"github.com/paulmach/orb/maptile"

	"github.com/mumuon/drivefinder/geofts/retrieval"
	"github.com/mumuon/drivefinder/geofts/tilestore"
)

// Tokenize normalizes a placemark name into the lowercase, punctuation
// stripped tokens the trie is indexed by. This is the concrete
// collaborator retrieval/query.go defers as "an external collaborator,
// out of scope here": a minimal normalizer, not a localized text
// pipeline, since nothing in the corpus ships one.
func Tokenize(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

// FeaturesForTile selects the placemarks whose geometry bound
// intersects tile and renders them as trie Features keyed by their
// feature id.
func FeaturesForTile(placemarks []Placemark, tile maptile.Tile) []tilestore.Feature {
	bound := tile.Bound()

	var features []tilestore.Feature
	for _, p := range placemarks {
		if !bound.Intersects(p.Bound) {
			continue
		}
		features = append(features, tilestore.Feature{
			Leaf:   retrieval.LeafValue(p.FeatureID),
			Tokens: Tokenize(p.Name),
		})
	}
	return features
}

// EncodeTileTrie builds and serializes the trie snapshot for one tile.
func EncodeTileTrie(placemarks []Placemark, tile maptile.Tile) []byte {
	return tilestore.EncodeTrieSnapshot(FeaturesForTile(placemarks, tile))
}
