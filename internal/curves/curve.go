// Package curves implements the piecewise-linear arrival/service curve data
// types and the closed algebra of deterministic network calculus operators
// (Aggregate, Convolve, Output, Leftover, LatencyBound) used by the analysis
// engine and the compactor. Grounded on original_source/src/DNC-Library/DNC.{hpp,cpp};
// no package in the teacher corpus implements network calculus directly, so
// this is the one leaf package built "from the original" rather than adapted
// from a teacher file.
package curves

import (
	"math"

	"github.com/cockroachdb/errors"
)

// ErrOvercommitted is returned by Leftover when the service curve's rate does
// not exceed the arrival curve's rate, i.e. the cross traffic already
// saturates the resource and no leftover service curve exists.
var ErrOvercommitted = errors.New("curves: overcommitted leftover")

// Segment is one point+slope piece of a piecewise-linear curve: for
// x in [X, nextX), the curve's value is Y + Slope*(x-X). Slope may be
// +Inf for the implicit initial burst segment.
type Segment struct {
	X, Y, Slope float64
}

// Curve is a non-decreasing, concave, piecewise-linear function of
// non-negative time. Segments[0] is always {0, 0, +Inf} (the instantaneous
// burst convention); Segments[1:] have strictly decreasing, finite-or-last
// slopes and non-decreasing Y (consecutive segments may share a Y value). A Curve with len(Segments) == 1 is the
// zero curve (no burst, no growth past x=0).
type Curve struct {
	Segments []Segment
}

// NewCurve builds a Curve from the finite-slope segments that follow the
// implicit initial burst segment (i.e. the representation used by the
// persisted arrival-curve cache format, see internal/curvecache). b is the
// burst of the first finite segment; rest[0] supplies only that segment's
// slope (its X and Y are replaced by 0 and b), and rest[1:] are the
// subsequent (x, y, slope) triples. The result is validated before being
// returned.
func NewCurve(b float64, rest []Segment) (*Curve, error) {
	segs := make([]Segment, 0, len(rest)+2)
	segs = append(segs, Segment{X: 0, Y: 0, Slope: math.Inf(1)})
	segs = append(segs, Segment{X: 0, Y: b, Slope: math.Inf(1)}) // placeholder, overwritten below
	if len(rest) == 0 {
		return nil, errors.New("curves: arrival curve needs at least one finite segment")
	}
	segs[1] = rest[0]
	segs[1].X = 0
	segs[1].Y = b
	segs = append(segs, rest[1:]...)
	c := &Curve{Segments: segs}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the curve's shape: the first segment is the (0, 0, +Inf)
// burst segment, X and Y never decrease from one segment to the next (so
// both stay non-negative), and the finite segments' slopes strictly
// decrease. Consecutive segments with equal Y are accepted.
func (c *Curve) Validate() error {
	if len(c.Segments) == 0 {
		return errors.New("curves: empty curve")
	}
	if c.Segments[0].X != 0 || c.Segments[0].Y != 0 || !math.IsInf(c.Segments[0].Slope, 1) {
		return errors.New("curves: first segment must be the (0,0,+Inf) burst segment")
	}
	for i := 1; i < len(c.Segments); i++ {
		prev := c.Segments[i-1]
		cur := c.Segments[i]
		if cur.X < prev.X {
			return errors.Newf("curves: segment %d has decreasing x", i)
		}
		if cur.Y < prev.Y {
			return errors.Newf("curves: segment %d has decreasing y", i)
		}
		if i >= 2 && !(prev.Slope > cur.Slope) {
			return errors.Newf("curves: segment %d slope does not strictly decrease", i)
		}
	}
	return nil
}

// FinalSlope returns the slope of the last (unbounded) segment, i.e. the
// curve's asymptotic rate.
func (c *Curve) FinalSlope() float64 {
	return c.Segments[len(c.Segments)-1].Slope
}

// Burst returns the y-intercept of the first finite segment (b in the
// (r, b) sense), i.e. the instantaneous burst size.
func (c *Curve) Burst() float64 {
	if len(c.Segments) < 2 {
		return 0
	}
	return c.Segments[1].Y
}

// FiniteSegments returns the segments after the implicit (0,0,+Inf) one.
func (c *Curve) FiniteSegments() []Segment {
	if len(c.Segments) < 2 {
		return nil
	}
	return c.Segments[1:]
}

// SimpleArrival is a token-bucket arrival curve A(t) = R*t + B for t > 0.
type SimpleArrival struct {
	R, B float64
}

// ToCurve renders the simple arrival curve as a two-segment piecewise Curve.
func (a SimpleArrival) ToCurve() *Curve {
	return &Curve{Segments: []Segment{
		{X: 0, Y: 0, Slope: math.Inf(1)},
		{X: 0, Y: a.B, Slope: a.R},
	}}
}

// SimpleService is a rate-latency service curve S(t) = max(0, R*(t-T)).
type SimpleService struct {
	R, T float64
}

// ToCurve renders the simple service curve as a two-segment piecewise Curve
// (a flat segment of slope 0 until T, then slope R), for use with the
// vertex-walking calcLatency.
func (s SimpleService) ToCurve() *Curve {
	if s.T == 0 {
		return &Curve{Segments: []Segment{
			{X: 0, Y: 0, Slope: math.Inf(1)},
			{X: 0, Y: 0, Slope: s.R},
		}}
	}
	return &Curve{Segments: []Segment{
		{X: 0, Y: 0, Slope: math.Inf(1)},
		{X: 0, Y: 0, Slope: 0},
		{X: s.T, Y: 0, Slope: s.R},
	}}
}
