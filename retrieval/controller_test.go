package retrieval_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// --- fakes: a tiny in-memory index standing in for the trie reader,
// the spatial-covering provider, and the tile registry. ---

type fakePoint struct {
	id   retrieval.FeatureID
	name string
	x, y float64
}

type fakeTile struct {
	id                  string
	bounds              retrieval.Rectangle
	scaleMin, scaleMax  float64
	points              []fakePoint
	alive               bool
	hasText, hasSpatial bool
	shared              *fakeIndexState
}

func (f *fakeTile) Alive() bool               { return f.alive }
func (f *fakeTile) ID() string                { return f.id }
func (f *fakeTile) Bounds() retrieval.Rectangle { return f.bounds }
func (f *fakeTile) ScaleRange() (float64, float64) { return f.scaleMin, f.scaleMax }
func (f *fakeTile) HasTextSection() bool      { return f.hasText }
func (f *fakeTile) HasSpatialSection() bool   { return f.hasSpatial }

func (f *fakeTile) OpenTextIndex() (retrieval.TrieRoot, retrieval.EncodingParams, error) {
	return f.points, retrieval.EncodingParams{}, nil
}

func (f *fakeTile) OpenSpatialIndex() (retrieval.ScaleIndexReader, error) {
	return &fakeScaleReader{tile: f}, nil
}

// fakeIndexState is shared by the covering provider and every tile's
// scale-index reader so the reader can see which viewport the most
// recent Cover() call was computed for — a single synchronous
// controller never interleaves these calls, so this is safe.
type fakeIndexState struct {
	lastViewport retrieval.Rectangle
}

type fakeIndex struct {
	state *fakeIndexState
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{state: &fakeIndexState{}}
}

func (f *fakeIndex) Cover(viewport retrieval.Rectangle, _ retrieval.CoveringPolicy) ([]retrieval.CellInterval, error) {
	f.state.lastViewport = viewport
	return []retrieval.CellInterval{{Lo: 0, Hi: 0}}, nil
}

func (f *fakeIndex) Match(params retrieval.QueryParams, root retrieval.TrieRoot, filter retrieval.Filter, collect retrieval.Collector) error {
	points := root.([]fakePoint)
	for _, p := range points {
		if !matchesTokens(p.name, params.Tokens) {
			continue
		}
		leaf := retrieval.LeafValue(p.id)
		if filter(leaf) {
			collect(leaf)
		}
	}
	return nil
}

func matchesTokens(name string, groups []retrieval.TokenGroup) bool {
	lower := strings.ToLower(name)
	for _, group := range groups {
		ok := false
		for _, tok := range group {
			if strings.Contains(lower, strings.ToLower(tok)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

type fakeScaleReader struct {
	tile *fakeTile
}

func (r *fakeScaleReader) ForEachInIntervalAndScale(collect func(retrieval.FeatureID), lo, hi uint64, scale float64) error {
	vp := r.tile.shared.lastViewport
	for _, p := range r.tile.points {
		if p.x >= vp.MinX && p.x <= vp.MaxX && p.y >= vp.MinY && p.y <= vp.MaxY {
			collect(p.id)
		}
	}
	return nil
}

type fakeRegistry struct {
	tiles []*fakeTile
}

func (r *fakeRegistry) TileIDs() []string {
	ids := make([]string, len(r.tiles))
	for i, t := range r.tiles {
		ids[i] = t.id
	}
	return ids
}

func (r *fakeRegistry) Acquire(id string) (retrieval.TileHandle, error) {
	for _, t := range r.tiles {
		if t.id == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("fake registry: no such tile %q", id)
}

// recordingSink captures every call for assertion, and fails the test
// outright if a tile is reported twice or with an empty/unsorted list.
type recordingSink struct {
	t     *testing.T
	seen  map[string]bool
	calls []struct {
		tileID string
		ids    []retrieval.FeatureID
	}
}

func newRecordingSink(t *testing.T) *recordingSink {
	return &recordingSink{t: t, seen: make(map[string]bool)}
}

func (s *recordingSink) OnTileProcessed(tileID string, ids []retrieval.FeatureID) {
	s.t.Helper()
	if s.seen[tileID] {
		s.t.Fatalf("tile %s reported more than once", tileID)
	}
	s.seen[tileID] = true
	if len(ids) == 0 {
		s.t.Fatalf("tile %s reported with empty id list", tileID)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			s.t.Fatalf("tile %s ids not strictly ascending: %v", tileID, ids)
		}
	}
	s.calls = append(s.calls, struct {
		tileID string
		ids    []retrieval.FeatureID
	}{tileID, append([]retrieval.FeatureID(nil), ids...)})
}

func (s *recordingSink) idsFor(tileID string) ([]retrieval.FeatureID, bool) {
	for _, c := range s.calls {
		if c.tileID == tileID {
			return c.ids, true
		}
	}
	return nil, false
}

// --- scenarios ---

// gridPoints builds an (2*radius+1)^2 integer grid centered at the
// origin, every point named "alpha" so a query for "alpha" matches all
// of them.
func gridPoints(radius int) []fakePoint {
	var pts []fakePoint
	id := retrieval.FeatureID(0)
	for x := -radius; x <= radius; x++ {
		for y := -radius; y <= radius; y++ {
			pts = append(pts, fakePoint{id: id, name: "alpha", x: float64(x), y: float64(y)})
			id++
		}
	}
	return pts
}

func countInRange(pts []fakePoint, half float64) int {
	n := 0
	for _, p := range pts {
		if p.x >= -half && p.x <= half && p.y >= -half && p.y <= half {
			n++
		}
	}
	return n
}

func alphaQuery() retrieval.QueryParams {
	return retrieval.QueryParams{Tokens: []retrieval.TokenGroup{{"alpha"}}}
}

// S1-equivalent: a single tile, unlimited run, terminates at full
// coverage and reports every matched feature exactly once, via the
// in-pass full-coverage report (not the post-loop drain).
func TestController_SingleTileFullCoverage(t *testing.T) {
	idx := newFakeIndex()
	pts := gridPoints(1) // 3x3 grid, x,y in {-1,0,1}
	tile := &fakeTile{
		id: "tile-a", alive: true, hasText: true, hasSpatial: true,
		bounds:   retrieval.Rectangle{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
		scaleMin: 1, scaleMax: 1,
		points: pts, shared: idx.state,
	}
	reg := &fakeRegistry{tiles: []*fakeTile{tile}}

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), retrieval.NewLimits()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ids, ok := sink.idsFor("tile-a")
	if !ok {
		t.Fatalf("expected a sink call for tile-a")
	}
	if len(ids) != len(pts) {
		t.Fatalf("expected %d ids, got %d", len(pts), len(ids))
	}
}

// S2-equivalent: max_viewport_scale clamps the exit decision but, per
// the documented open question, the final pass still runs against a
// viewport built from the unclamped growth factor — so the reported
// result reflects the larger, unclamped viewport.
func TestController_MaxViewportScaleClampIsExitOnlyNotViewportSize(t *testing.T) {
	idx := newFakeIndex()
	pts := gridPoints(5) // 11x11 grid, x,y in [-5,5]
	tile := &fakeTile{
		id: "tile-a", alive: true, hasText: true, hasSpatial: true,
		bounds:   retrieval.Rectangle{MinX: -5.5, MinY: -5.5, MaxX: 5.5, MaxY: 5.5},
		scaleMin: 1, scaleMax: 1,
		points: pts, shared: idx.state,
	}
	reg := &fakeRegistry{tiles: []*fakeTile{tile}}

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	limits := retrieval.NewLimits()
	limits.SetMaxViewportScale(7.0)
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), limits); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// viewportScale sequence is (√2)^k: 1, 1.41, 2, 2.83, 4, 5.66, 8, ...
	// s=clamp(·,7) first reaches 7 at k=6 (unclamped value 8), so the
	// final pass scales the viewport by the UNCLAMPED 8, half-extent 4,
	// covering x,y in [-4,4]: a 9x9 = 81 point grid.
	want := countInRange(pts, 4.0)
	ids, ok := sink.idsFor("tile-a")
	if !ok {
		t.Fatalf("expected a sink call for tile-a")
	}
	if len(ids) != want {
		t.Fatalf("expected %d ids (9x9 grid from the unclamped viewport), got %d", want, len(ids))
	}
	if tile.bounds.MaxX == 4 {
		t.Fatalf("test setup error: tile must not be fully covered yet")
	}
}

// S3-equivalent: min_num_features stops the loop as soon as the
// aggregate intersection count crosses the threshold, before the tile
// is fully covered.
func TestController_MinFeaturesEarlyStop(t *testing.T) {
	idx := newFakeIndex()
	pts := gridPoints(5)
	tile := &fakeTile{
		id: "tile-a", alive: true, hasText: true, hasSpatial: true,
		bounds:   retrieval.Rectangle{MinX: -5.5, MinY: -5.5, MaxX: 5.5, MaxY: 5.5},
		scaleMin: 1, scaleMax: 1,
		points: pts, shared: idx.state,
	}
	reg := &fakeRegistry{tiles: []*fakeTile{tile}}

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.1, MinY: -0.1, MaxX: 0.1, MaxY: 0.1}
	limits := retrieval.NewLimits()
	limits.SetMinNumFeatures(5)
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), limits); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// half-extent = 0.1 * (√2)^k; first k with half-extent >= 1 (so the
	// 3x3 subgrid of 9 points enters) is k=7 (0.1*11.31=1.131 >= 1), and
	// 9 >= the configured minimum of 5.
	ids, ok := sink.idsFor("tile-a")
	if !ok {
		t.Fatalf("expected a sink call for tile-a")
	}
	if len(ids) != 9 {
		t.Fatalf("expected 9 ids at the min-features crossing, got %d", len(ids))
	}
}

// S4/S5-equivalent: three well-separated tiles. Unlimited, all three
// are eventually reported; with min_num_features=1, only the tile
// containing the base viewport is reported and the other two — never
// touched — produce no sink call at all.
func threeTileFixture(idx *fakeIndex) *fakeRegistry {
	mk := func(id string, cx, cy float64) *fakeTile {
		return &fakeTile{
			id: id, alive: true, hasText: true, hasSpatial: true,
			bounds: retrieval.Rectangle{MinX: cx - 1, MinY: cy - 1, MaxX: cx + 1, MaxY: cy + 1},
			scaleMin: 1, scaleMax: 1,
			points: []fakePoint{{id: 0, name: "alpha one", x: cx, y: cy}},
			shared: idx.state,
		}
	}
	return &fakeRegistry{tiles: []*fakeTile{
		mk("msk", 0, 0),
		mk("mtv", 10, 0),
		mk("zrh", 0, 10),
	}}
}

func TestController_ThreeTilesAllEventuallyReported(t *testing.T) {
	idx := newFakeIndex()
	reg := threeTileFixture(idx)

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), retrieval.NewLimits()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.calls) != 3 {
		t.Fatalf("expected 3 sink calls, got %d", len(sink.calls))
	}
	total := 0
	for _, call := range sink.calls {
		total += len(call.ids)
	}
	if total != 3 {
		t.Fatalf("expected aggregate count 3, got %d", total)
	}
}

func TestController_ThreeTilesMinFeaturesStopsEarly(t *testing.T) {
	idx := newFakeIndex()
	reg := threeTileFixture(idx)

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	limits := retrieval.NewLimits()
	limits.SetMinNumFeatures(1)
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), limits); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.calls) != 1 {
		t.Fatalf("expected exactly 1 sink call, got %d", len(sink.calls))
	}
	if sink.calls[0].tileID != "msk" {
		t.Fatalf("expected msk (contains the base viewport) to be reported, got %s", sink.calls[0].tileID)
	}
	if _, ok := sink.idsFor("mtv"); ok {
		t.Fatalf("mtv was never intersected and must not be reported")
	}
	if _, ok := sink.idsFor("zrh"); ok {
		t.Fatalf("zrh was never intersected and must not be reported")
	}
}

// S6-equivalent: a second Run without Init is a valid no-op.
func TestController_SecondRunIsNoOp(t *testing.T) {
	idx := newFakeIndex()
	pts := gridPoints(1)
	tile := &fakeTile{
		id: "tile-a", alive: true, hasText: true, hasSpatial: true,
		bounds:   retrieval.Rectangle{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
		scaleMin: 1, scaleMax: 1,
		points: pts, shared: idx.state,
	}
	reg := &fakeRegistry{tiles: []*fakeTile{tile}}

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), retrieval.NewLimits()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.Run(newRecordingSink(t)); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second := newRecordingSink(t)
	if err := c.Run(second); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.calls) != 0 {
		t.Fatalf("expected zero calls on the second Run, got %d", len(second.calls))
	}
}

// A tile whose address matches are empty never produces a sink call,
// even though its geometry matches everything.
func TestController_EmptyAddressMatchSuppressesSinkCall(t *testing.T) {
	idx := newFakeIndex()
	tile := &fakeTile{
		id: "tile-a", alive: true, hasText: true, hasSpatial: true,
		bounds:   retrieval.Rectangle{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
		scaleMin: 1, scaleMax: 1,
		points: []fakePoint{{id: 0, name: "nomatch", x: 0, y: 0}},
		shared: idx.state,
	}
	reg := &fakeRegistry{tiles: []*fakeTile{tile}}

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), retrieval.NewLimits()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.calls) != 0 {
		t.Fatalf("expected zero sink calls, got %d", len(sink.calls))
	}
}

// A tile not admitted (missing a required section) is silently dropped
// and never produces a sink call even if it would otherwise match.
func TestController_InadmissibleTileDroppedAtInit(t *testing.T) {
	idx := newFakeIndex()
	tile := &fakeTile{
		id: "tile-a", alive: true, hasText: false, hasSpatial: true,
		bounds: retrieval.Rectangle{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
		points: []fakePoint{{id: 0, name: "alpha", x: 0, y: 0}},
		shared: idx.state,
	}
	reg := &fakeRegistry{tiles: []*fakeTile{tile}}

	c := retrieval.NewController()
	base := retrieval.Rectangle{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5}
	if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), retrieval.NewLimits()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sink := newRecordingSink(t)
	if err := c.Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.calls) != 0 {
		t.Fatalf("expected zero sink calls for an inadmissible tile, got %d", len(sink.calls))
	}
}

// Enlarging the base viewport with everything else held equal yields a
// superset of results for a tile reported by both runs.
func TestController_LargerViewportYieldsSupersetOfResults(t *testing.T) {
	run := func(halfExtent float64) []retrieval.FeatureID {
		idx := newFakeIndex()
		pts := gridPoints(5)
		tile := &fakeTile{
			id: "tile-a", alive: true, hasText: true, hasSpatial: true,
			bounds:   retrieval.Rectangle{MinX: -5.5, MinY: -5.5, MaxX: 5.5, MaxY: 5.5},
			scaleMin: 1, scaleMax: 1,
			points: pts, shared: idx.state,
		}
		reg := &fakeRegistry{tiles: []*fakeTile{tile}}
		c := retrieval.NewController()
		base := retrieval.Rectangle{MinX: -halfExtent, MinY: -halfExtent, MaxX: halfExtent, MaxY: halfExtent}
		limits := retrieval.NewLimits()
		limits.SetMaxViewportScale(1.0) // freeze expansion: result reflects the base viewport only
		if err := c.Init(retrieval.Index{Registry: reg, Trie: idx, Covering: idx}, base, alphaQuery(), limits); err != nil {
			t.Fatalf("Init: %v", err)
		}
		sink := newRecordingSink(t)
		if err := c.Run(sink); err != nil {
			t.Fatalf("Run: %v", err)
		}
		ids, _ := sink.idsFor("tile-a")
		return ids
	}

	small := run(1.0)
	large := run(2.0)

	seen := make(map[retrieval.FeatureID]bool, len(small))
	for _, id := range small {
		seen[id] = true
	}
	for id := range seen {
		found := false
		for _, l := range large {
			if l == id {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("id %d present in smaller viewport's result but missing from the larger one", id)
		}
	}
	if len(large) <= len(small) {
		t.Fatalf("expected the larger viewport to report strictly more ids: small=%d large=%d", len(small), len(large))
	}
}

func TestController_RunBeforeInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Run before Init to panic")
		}
	}()
	retrieval.NewController().Run(newRecordingSink(t))
}
