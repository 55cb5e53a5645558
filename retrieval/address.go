package retrieval

import "fmt"

// matchAddress runs the Address Matcher against a single tile: open its
// textual-index section, walk the trie with an all-pass filter, and
// extract a feature id from every matched leaf. The result is unsorted;
// the caller sorts it before use.
func matchAddress(matcher TrieMatcher, handle TileHandle, params QueryParams) ([]FeatureID, error) {
	root, _, err := handle.OpenTextIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: opening textual index: %v", ErrTileUnreadable, handle.ID(), err)
	}

	var ids []FeatureID
	allPass := func(LeafValue) bool { return true }
	collect := func(leaf LeafValue) { ids = append(ids, featureIDFromLeaf(leaf)) }

	if err := matcher.Match(params, root, allPass, collect); err != nil {
		return nil, fmt.Errorf("%w: tile %s: matching trie: %v", ErrMalformedIndex, handle.ID(), err)
	}
	return ids, nil
}
