package retrieval

// This file declares the external collaborators named in spec §6. The
// engine consumes them through these narrow interfaces; their on-disk
// formats, the tile registry's lifecycle, and tokenization live outside
// this package (see the tilestore and registrydb packages for concrete
// adapters, and indexbuild for the writer side).

// TileRegistry enumerates tile metadata and hands out borrowed handles.
// Handles returned by Acquire must remain valid for the lifetime of the
// retrieval that acquired them.
type TileRegistry interface {
	TileIDs() []string
	Acquire(id string) (TileHandle, error)
}

// TrieRoot is the opaque root iterator produced by opening a tile's
// textual-index section. Only the TrieMatcher interprets it.
type TrieRoot interface{}

// EncodingParams describes a textual index's encoding, as read alongside
// its root iterator. The engine never inspects its fields itself; it
// passes them through to the caller's TrieMatcher via the handle.
type EncodingParams struct {
	Version  int
	Collator string
}

// TileHandle is a non-owning reference to an opened map tile.
type TileHandle interface {
	Alive() bool
	ID() string
	Bounds() Rectangle
	ScaleRange() (min, max float64)
	HasTextSection() bool
	HasSpatialSection() bool
	// OpenTextIndex opens the textual-index section and returns its trie
	// root plus encoding parameters. Fails with TileUnreadable.
	OpenTextIndex() (TrieRoot, EncodingParams, error)
	// OpenSpatialIndex opens the spatial-index section and returns a
	// reader bound to this tile's scale index. Fails with TileUnreadable.
	OpenSpatialIndex() (ScaleIndexReader, error)
}

// Filter is applied to every trie leaf the matcher visits; the engine
// always supplies an all-pass filter here, since semantic filtering is
// not this package's concern.
type Filter func(LeafValue) bool

// Collector records a matched trie leaf.
type Collector func(LeafValue)

// TrieMatcher walks a tile's textual trie, consuming query tokens and
// emitting matched leaves through collect.
type TrieMatcher interface {
	Match(params QueryParams, root TrieRoot, filter Filter, collect Collector) error
}

// CellInterval is a contiguous range of spatial-index cell ids at a
// given scale, as produced by a covering pass over a viewport.
type CellInterval struct {
	Lo, Hi uint64
}

// CoveringPolicy parameterizes how a viewport is decomposed into cell
// intervals — the spec's "viewport-with-low-levels covering policy."
type CoveringPolicy struct {
	Scale float64
}

// SpatialCoveringProvider decomposes a viewport into cell intervals at
// a chosen scale.
type SpatialCoveringProvider interface {
	Cover(viewport Rectangle, policy CoveringPolicy) ([]CellInterval, error)
}

// ScaleIndexReader walks a tile's scale index, emitting every feature id
// whose covering cell falls in [lo, hi] at the given scale.
type ScaleIndexReader interface {
	ForEachInIntervalAndScale(collect func(FeatureID), lo, hi uint64, scale float64) error
}

// Index bundles the collaborators a Controller needs beyond the
// registry alone: the trie matcher and the covering provider are
// index-wide, not per-tile.
type Index struct {
	Registry TileRegistry
	Trie     TrieMatcher
	Covering SpatialCoveringProvider
}
