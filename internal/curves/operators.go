package curves

import "math"

// Aggregate sums two simple arrival curves: the aggregate of two flows
// offers at most the sum of what either offers alone.
func Aggregate(a1, a2 SimpleArrival) SimpleArrival {
	return SimpleArrival{R: a1.R + a2.R, B: a1.B + a2.B}
}

// AggregateAll folds Aggregate over a slice, returning the zero curve for an
// empty slice.
func AggregateAll(as []SimpleArrival) SimpleArrival {
	var out SimpleArrival
	for _, a := range as {
		out = Aggregate(out, a)
	}
	return out
}

// Convolve computes the (min,+) convolution of two rate-latency service
// curves, which for simple curves is again a simple curve with the smaller
// rate and the summed latency.
func Convolve(s1, s2 SimpleService) SimpleService {
	return SimpleService{R: math.Min(s1.R, s2.R), T: s1.T + s2.T}
}

// Output computes the arrival curve of the traffic leaving a resource with
// service curve s, given it arrives bounded by a: the burst grows by the
// arrival rate times the service delay.
func Output(a SimpleArrival, s SimpleService) SimpleArrival {
	return SimpleArrival{R: a.R, B: a.B + a.R*s.T}
}

// Leftover computes the service curve left over for a flow after cross
// traffic bounded by a has taken its guaranteed share of a resource with
// service curve s. Returns ErrOvercommitted if s.R <= a.R (cross traffic
// already saturates the resource).
func Leftover(a SimpleArrival, s SimpleService) (SimpleService, error) {
	if s.R <= a.R {
		return SimpleService{}, ErrOvercommitted
	}
	r := s.R - a.R
	t := s.T + (a.B+a.R*s.T)/r
	return SimpleService{R: r, T: t}, nil
}

// LatencyBound returns the worst-case latency T + b/R a flow bounded by a
// experiences from a resource offering service curve s, or +Inf if the
// resource cannot keep up (a.R > s.R).
func LatencyBound(a SimpleArrival, s SimpleService) float64 {
	if a.R > s.R {
		return math.Inf(1)
	}
	return s.T + a.B/s.R
}

// xIntercept returns the x at which seg reaches height y, treating an
// infinite slope as a vertical line (x is constant regardless of y).
func xIntercept(seg Segment, y float64) float64 {
	if math.IsInf(seg.Slope, 1) {
		return seg.X
	}
	return seg.X + (y-seg.Y)/seg.Slope
}

// yIntercept returns the y at which seg reaches abscissa x. An infinite
// slope segment's height at its own X is its Y (the height just after the
// instantaneous jump is undefined here and callers must not rely on it);
// for x > seg.X, an infinite-slope segment has no well-defined (finite)
// value and yIntercept returns +Inf.
func yIntercept(seg Segment, x float64) float64 {
	if math.IsInf(seg.Slope, 1) {
		if x <= seg.X {
			return seg.Y
		}
		return math.Inf(1)
	}
	return seg.Y + seg.Slope*(x-seg.X)
}

// intersect finds where the (infinite) lines carrying seg1 and seg2 cross,
// handling vertical (infinite-slope) segments. ok is false for parallel
// lines (including two vertical segments at different X).
func intersect(seg1, seg2 Segment) (x, y float64, ok bool) {
	inf1, inf2 := math.IsInf(seg1.Slope, 1), math.IsInf(seg2.Slope, 1)
	switch {
	case inf1 && inf2:
		if seg1.X == seg2.X {
			return seg1.X, math.Max(seg1.Y, seg2.Y), true
		}
		return 0, 0, false
	case inf1:
		return seg1.X, yIntercept(seg2, seg1.X), true
	case inf2:
		return seg2.X, yIntercept(seg1, seg2.X), true
	}
	if seg1.Slope == seg2.Slope {
		return 0, 0, false
	}
	// seg1.Y + m1*(x-x1) == seg2.Y + m2*(x-x2)
	x = (seg2.Y - seg1.Y + seg1.Slope*seg1.X - seg2.Slope*seg2.X) / (seg1.Slope - seg2.Slope)
	y = yIntercept(seg1, x)
	return x, y, true
}
