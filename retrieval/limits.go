package retrieval

import "fmt"

// Limits is the immutable termination policy captured at Init. Unset is
// distinct from zero: a zero min_num_features still runs the loop to
// full coverage, while an unset one means "no minimum at all."
type Limits struct {
	minNumFeatures   *uint64
	maxViewportScale *float64
}

// NewLimits returns a Limits with both fields unset.
func NewLimits() Limits {
	return Limits{}
}

// SetMinNumFeatures sets the aggregate minimum feature count the loop
// stops at once reached.
func (l *Limits) SetMinNumFeatures(v uint64) {
	l.minNumFeatures = &v
}

// HasMinNumFeatures reports whether a minimum feature count is set.
func (l Limits) HasMinNumFeatures() bool {
	return l.minNumFeatures != nil
}

// MinNumFeatures returns the configured minimum. Reading it while unset
// is a programming error and panics, per spec: Misconfiguration.
func (l Limits) MinNumFeatures() uint64 {
	if l.minNumFeatures == nil {
		panic(fmt.Errorf("%w: min_num_features read while unset", ErrMisconfiguration))
	}
	return *l.minNumFeatures
}

// SetMaxViewportScale sets the viewport scale multiplier beyond which
// expansion stops.
func (l *Limits) SetMaxViewportScale(v float64) {
	l.maxViewportScale = &v
}

// HasMaxViewportScale reports whether a maximum viewport scale is set.
func (l Limits) HasMaxViewportScale() bool {
	return l.maxViewportScale != nil
}

// MaxViewportScale returns the configured maximum. Reading it while
// unset is a programming error and panics, per spec: Misconfiguration.
func (l Limits) MaxViewportScale() float64 {
	if l.maxViewportScale == nil {
		panic(fmt.Errorf("%w: max_viewport_scale read while unset", ErrMisconfiguration))
	}
	return *l.maxViewportScale
}
