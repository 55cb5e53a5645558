package retrieval

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// expansionFactor is the per-iteration viewport growth ratio. It is a
// contract, not a tuning knob: test scenarios depend on exactly which
// expansion step first covers a given tile, and √2 doubles the viewport
// area each step.
const expansionFactor = math.Sqrt2

// Controller orchestrates one retrieval: Init freezes the working set of
// tile buckets, Run drives the progressive expansion loop to completion.
// A Controller is single-use per query; call Init again to reuse it.
type Controller struct {
	index        Index
	baseViewport Rectangle
	params       QueryParams
	limits       Limits

	buckets     []*tileBucket
	initialized bool
	ran         bool
}

// NewController returns a Controller with no query loaded; call Init
// before Run.
func NewController() *Controller {
	return &Controller{}
}

// Init captures the query and enumerates admissible tiles. A tile is
// admitted iff its handle is alive and both index sections are present;
// otherwise it is silently dropped (TileAdmissionSkipped) with a
// structured warning. The working set is frozen after Init returns.
func (c *Controller) Init(index Index, baseViewport Rectangle, params QueryParams, limits Limits) error {
	c.index = index
	c.baseViewport = baseViewport
	c.params = params
	c.limits = limits
	c.buckets = nil
	c.ran = false

	for _, id := range index.Registry.TileIDs() {
		handle, err := index.Registry.Acquire(id)
		if err != nil {
			slog.Warn("tile admission skipped: acquire failed", "tile", id, "error", err)
			continue
		}
		if !handle.Alive() {
			slog.Warn("tile admission skipped: handle not alive", "tile", id)
			continue
		}
		if !handle.HasTextSection() || !handle.HasSpatialSection() {
			slog.Warn("tile admission skipped: missing required section",
				"tile", id, "has_text", handle.HasTextSection(), "has_spatial", handle.HasSpatialSection())
			continue
		}
		c.buckets = append(c.buckets, newTileBucket(handle))
	}

	c.initialized = true
	return nil
}

// Run drives the progressive viewport-expansion loop to completion and
// returns once every bucket is finished. Calling Run a second time
// without an intervening Init is a valid no-op: every bucket is already
// finished, so the sink is not invoked.
func (c *Controller) Run(sink ResultSink) error {
	if !c.initialized {
		panic(fmt.Errorf("%w: Run called before Init", ErrMisconfiguration))
	}
	if c.ran {
		return nil
	}

	viewportScale := 1.0
	for {
		// The effective scale s drives the exit decision; the current
		// viewport is built from the unclamped viewportScale. This
		// mismatch is preserved intentionally (see design notes): the
		// final iteration may scale the viewport past max_viewport_scale
		// even though s itself is clamped.
		s := viewportScale
		if c.limits.HasMaxViewportScale() {
			if max := c.limits.MaxViewportScale(); s >= max {
				s = max
			}
		}

		currentViewport := c.baseViewport.ScaledAroundCenter(viewportScale)
		if err := c.pass(currentViewport, sink); err != nil {
			return err
		}

		if c.allCovered() {
			break
		}
		if c.limits.HasMaxViewportScale() && s >= c.limits.MaxViewportScale() {
			break
		}
		if c.limits.HasMinNumFeatures() && c.limits.MinNumFeatures() > 0 &&
			c.aggregateIntersectionCount() >= c.limits.MinNumFeatures() {
			break
		}

		viewportScale *= expansionFactor
	}

	for _, b := range c.buckets {
		if b.finished() {
			continue
		}
		b.state = stateFinished
		if len(b.intersection) > 0 {
			sink.OnTileProcessed(b.handle.ID(), append([]FeatureID(nil), b.intersection...))
		}
	}

	c.ran = true
	return nil
}

// pass runs one per-viewport pass over every bucket in Init order.
func (c *Controller) pass(viewport Rectangle, sink ResultSink) error {
	for _, b := range c.buckets {
		if b.coveredByViewport() || b.finished() {
			continue
		}
		if !viewport.Intersects(b.bounds) {
			continue
		}

		if !b.intersectsWithViewport() {
			ids, err := matchAddress(c.index.Trie, b.handle, c.params)
			if err != nil {
				return err
			}
			slices.Sort(ids)
			b.addressFeatures = ids
			b.state = stateIntersecting
		}

		if !b.coveredByViewport() {
			ids, err := matchGeometry(c.index.Covering, b.handle, viewport, c.params.ScaleHint)
			if err != nil {
				return err
			}
			slices.Sort(ids)
			b.geometryFeatures = ids
			b.intersection = intersectSorted(b.addressFeatures, b.geometryFeatures)
		}

		if !b.coveredByViewport() && viewport.Contains(b.bounds) {
			b.state = stateFinished
			if len(b.intersection) > 0 {
				sink.OnTileProcessed(b.handle.ID(), append([]FeatureID(nil), b.intersection...))
			}
		}
	}
	return nil
}

func (c *Controller) allCovered() bool {
	for _, b := range c.buckets {
		if !b.coveredByViewport() {
			return false
		}
	}
	return true
}

func (c *Controller) aggregateIntersectionCount() uint64 {
	var total uint64
	for _, b := range c.buckets {
		total += uint64(len(b.intersection))
	}
	return total
}
