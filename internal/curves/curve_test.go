package curves

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeftoverOvercommitted(t *testing.T) {
	_, err := Leftover(SimpleArrival{R: 2, B: 1}, SimpleService{R: 1, T: 0})
	require.ErrorIs(t, err, ErrOvercommitted)
}

func TestLatencyBoundSimple(t *testing.T) {
	// Single flow alone at a bandwidth-1 queue: the bare hop latency is
	// T + b/R against the full queue rate, since there is no cross traffic
	// to subtract. A flow's total latency (spec.md scenario 1) adds the
	// shaper's own contribution on top; see analysis package tests for the
	// end-to-end figure.
	a := SimpleArrival{R: 0.25, B: 0.5}
	s := SimpleService{R: 1, T: 0}
	require.InDelta(t, 0.5, LatencyBound(a, s), 1e-9)
}

func TestLatencyBoundOverRate(t *testing.T) {
	a := SimpleArrival{R: 2, B: 0}
	s := SimpleService{R: 1, T: 0}
	require.True(t, math.IsInf(LatencyBound(a, s), 1))
}

func TestOutputAndConvolve(t *testing.T) {
	a := SimpleArrival{R: 0.5, B: 1}
	s := SimpleService{R: 1, T: 2}
	out := Output(a, s)
	require.Equal(t, 0.5, out.R)
	require.InDelta(t, 2.0, out.B, 1e-9) // 1 + 0.5*2

	s2 := SimpleService{R: 0.8, T: 1}
	conv := Convolve(s, s2)
	require.Equal(t, 0.8, conv.R)
	require.InDelta(t, 3.0, conv.T, 1e-9)
}

func TestAggregate(t *testing.T) {
	a1 := SimpleArrival{R: 0.25, B: 0.5}
	a2 := SimpleArrival{R: 0.125, B: 1.0}
	agg := Aggregate(a1, a2)
	require.InDelta(t, 0.375, agg.R, 1e-9)
	require.InDelta(t, 1.5, agg.B, 1e-9)
}

func TestShaperLatencyMatchesLatencyBound(t *testing.T) {
	a := SimpleArrival{R: 0.25, B: 0.5}
	got := ShaperLatency(a.ToCurve(), SimpleArrival{R: 1, B: 0})
	// shaper curve is the identity-rate degenerate case; same as LatencyBound
	// against a unit-rate, zero-latency service curve.
	want := LatencyBound(a, SimpleService{R: 1, T: 0})
	require.InDelta(t, want, got, 1e-9)
}

func TestCalcLatencyVertexWalk(t *testing.T) {
	arr, err := NewCurve(1.5, []Segment{
		{Slope: 1},
		{X: 1.5, Y: 3.0, Slope: 0.2},
	})
	require.NoError(t, err)
	svc := SimpleService{R: 1, T: 0}
	lat := CalcLatency(arr, svc.ToCurve())
	require.True(t, lat >= 1.5-1e-9)
}

func TestCurveValidateRejectsNonDecreasingSlope(t *testing.T) {
	_, err := NewCurve(1, []Segment{
		{Slope: 0.5},
		{X: 1, Y: 1.5, Slope: 0.6},
	})
	require.Error(t, err)
}

func TestGenerateFromTraceEnvelopeIsConcave(t *testing.T) {
	trace := []TracePoint{
		{Time: 0, Size: 2},
		{Time: 1, Size: 1},
		{Time: 2, Size: 1},
		{Time: 5, Size: 3},
		{Time: 10, Size: 1},
	}
	c := GenerateFromTrace(trace, []float64{2, 1, 0.5, 0.2, 0.1})
	require.NoError(t, c.Validate())
}

func TestPruneRespectsLimit(t *testing.T) {
	trace := []TracePoint{
		{Time: 0, Size: 5},
		{Time: 1, Size: 1},
		{Time: 3, Size: 1},
		{Time: 9, Size: 2},
		{Time: 40, Size: 1},
		{Time: 80, Size: 1},
	}
	c := GenerateFromTrace(trace, []float64{5, 3, 2, 1, 0.5, 0.25, 0.1})
	pruned := Prune(c, 4, DefaultIrrelevantLatency)
	require.LessOrEqual(t, len(pruned.FiniteSegments()), 4)
	require.NoError(t, pruned.Validate())
}
