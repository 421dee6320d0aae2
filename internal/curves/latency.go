package curves

import "sort"

// XAtY returns the abscissa at which the curve reaches height y, using the
// segment whose range covers y (extrapolating along the last segment for y
// beyond the curve's highest recorded vertex).
func (c *Curve) XAtY(y float64) float64 {
	idx := 0
	for i := 1; i < len(c.Segments); i++ {
		if c.Segments[i].Y <= y {
			idx = i
		} else {
			break
		}
	}
	return xIntercept(c.Segments[idx], y)
}

func vertexYs(c *Curve) []float64 {
	ys := make([]float64, 0, len(c.Segments))
	for i := 1; i < len(c.Segments); i++ {
		ys = append(ys, c.Segments[i].Y)
	}
	return ys
}

// CalcLatency returns the maximum horizontal distance between arrival and
// service curves: the two curves' vertices are walked in y-order and, at
// each vertex's y, the gap between where each curve reaches that height is
// measured; the walk's maximum gap is the deterministic worst-case latency.
// On piecewise concave/convex curves the extremum always falls on a vertex,
// so it suffices to evaluate at the union of both curves' vertex heights.
func CalcLatency(arrival, service *Curve) float64 {
	ys := append(vertexYs(arrival), vertexYs(service)...)
	ys = append(ys, 0)
	sort.Float64s(ys)
	max := 0.0
	for _, y := range ys {
		gap := service.XAtY(y) - arrival.XAtY(y)
		if gap > max {
			max = gap
		}
	}
	return max
}

// ShaperLatency is the latency a flow's own offered traffic (bounded by
// arrival) experiences passing through its own token-bucket shaper (r, b),
// before it ever reaches the shared queues.
func ShaperLatency(arrival *Curve, shaper SimpleArrival) float64 {
	return CalcLatency(arrival, shaper.ToCurve())
}
