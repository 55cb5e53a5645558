package retrieval

// FeatureID identifies a map feature within a single tile. It has no
// meaning across tiles.
type FeatureID uint32

// LeafValue is the opaque payload a trie leaf carries. The low 32 bits
// encode the feature id; higher bits are reserved for the textual index
// format and are not interpreted here.
type LeafValue uint64

func featureIDFromLeaf(v LeafValue) FeatureID {
	return FeatureID(uint32(v))
}
