package retrieval

// bucketState is the one-shot progression a tile bucket moves through.
// It is single-writer (the Controller) and monotonic: untouched →
// intersecting → covered → finished. Modeling it as one tagged state
// instead of three independent booleans makes the monotonicity and the
// "finished implies no further mutation" invariant structural rather
// than something every call site has to remember to preserve.
type bucketState int

const (
	stateUntouched bucketState = iota
	stateIntersecting
	stateCovered
	stateFinished
)

// tileBucket is the per-tile working-set record held by the Controller
// for the lifetime of one retrieval.
type tileBucket struct {
	handle TileHandle
	bounds Rectangle

	addressFeatures  []FeatureID // sorted; set once, on first contact
	geometryFeatures []FeatureID // sorted; rewritten on each covering pass
	intersection     []FeatureID // sorted; address ∩ geometry after latest pass

	state bucketState
}

func newTileBucket(handle TileHandle) *tileBucket {
	return &tileBucket{
		handle: handle,
		bounds: handle.Bounds(),
		state:  stateUntouched,
	}
}

func (b *tileBucket) intersectsWithViewport() bool { return b.state >= stateIntersecting }
func (b *tileBucket) coveredByViewport() bool       { return b.state >= stateCovered }
func (b *tileBucket) finished() bool                { return b.state == stateFinished }
