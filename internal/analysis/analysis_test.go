package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
	"github.com/timmyzhu/WorkloadCompactor/internal/topology"
)

// buildSingleQueue wires n flows, each with the given (priority, shaper)
// pair, onto one queue of the given bandwidth, and returns their ids in
// declaration order.
func buildSingleQueue(t *testing.T, bandwidth float64, specs []struct {
	priority int
	shaper   curves.SimpleArrival
}) (*topology.Topology, []topology.ID) {
	t.Helper()
	top := topology.New()
	_, err := top.AddQueue("Q", bandwidth)
	require.NoError(t, err)

	ids := make([]topology.ID, len(specs))
	for i, s := range specs {
		cid, err := top.AddClient(topology.ClientSpec{
			Name: name(i),
			SLO:  100,
			Flows: []topology.FlowSpec{{
				Name:       name(i),
				QueueNames: []string{"Q"},
				Arrival:    s.shaper,
				Priority:   s.priority,
			}},
		})
		require.NoError(t, err)
		c, _ := top.Client(cid)
		for fid := range c.FlowIDs {
			ids[i] = fid
		}
		f, _ := top.Flow(ids[i])
		f.Shaper = s.shaper
	}
	return top, ids
}

func name(i int) string {
	return []string{"F0", "F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9"}[i]
}

// TestAggregateOneHopScenario2 is spec.md's scenario 2: four flows, two
// priority levels, one queue. F0/F1 (priority 1) should see latency 1.5;
// F2/F3 (priority 2) should see latency 6.4.
func TestAggregateOneHopScenario2(t *testing.T) {
	top, ids := buildSingleQueue(t, 1, []struct {
		priority int
		shaper   curves.SimpleArrival
	}{
		{priority: 1, shaper: curves.SimpleArrival{R: 0.25, B: 0.5}},
		{priority: 1, shaper: curves.SimpleArrival{R: 0.125, B: 1.0}},
		{priority: 2, shaper: curves.SimpleArrival{R: 0.125, B: 0.25}},
		{priority: 2, shaper: curves.SimpleArrival{R: 0.5, B: 2.25}},
	})

	eng := New(top, ModeAggregateTwoHop)
	for _, idx := range []int{0, 1} {
		lat, err := eng.CalcFlowLatency(ids[idx])
		require.NoError(t, err)
		require.InDelta(t, 1.5, lat, 1e-9)
	}
	for _, idx := range []int{2, 3} {
		lat, err := eng.CalcFlowLatency(ids[idx])
		require.NoError(t, err)
		require.InDelta(t, 6.4, lat, 1e-9)
	}
}

// TestHopByHopMatchesAggregateSingleQueue checks the two algorithms agree on
// a single-hop topology, where they are defined to compute the same thing.
func TestHopByHopMatchesAggregateSingleQueue(t *testing.T) {
	top, ids := buildSingleQueue(t, 1, []struct {
		priority int
		shaper   curves.SimpleArrival
	}{
		{priority: 1, shaper: curves.SimpleArrival{R: 0.25, B: 0.5}},
		{priority: 2, shaper: curves.SimpleArrival{R: 0.125, B: 0.25}},
	})

	aggEng := New(top, ModeAggregateTwoHop)
	hopEng := New(top, ModeHopByHop)
	for _, id := range ids {
		aggLat, err := aggEng.CalcFlowLatency(id)
		require.NoError(t, err)
		hopLat, err := hopEng.CalcFlowLatency(id)
		require.NoError(t, err)
		require.InDelta(t, aggLat, hopLat, 1e-9)
	}
}

// TestSingleFlowAdmitted covers spec.md scenario 1: a lone flow at a
// bandwidth-1 queue with a generous SLO of 1.5 must be admitted, i.e. its
// computed latency (hop term plus its own shaper's contribution) must not
// exceed the SLO.
func TestSingleFlowAdmitted(t *testing.T) {
	top, ids := buildSingleQueue(t, 1, []struct {
		priority int
		shaper   curves.SimpleArrival
	}{
		{priority: 1, shaper: curves.SimpleArrival{R: 0.25, B: 0.5}},
	})

	eng := New(top, ModeAggregateTwoHop)
	lat, err := eng.CalcFlowLatency(ids[0])
	require.NoError(t, err)
	require.LessOrEqual(t, lat, 1.5+1e-9)
}

// TestOvercommittedQueueIsInfiniteLatency: a queue whose admitted flows
// exceed its bandwidth must report +Inf rather than a finite but wrong
// number, per curves.ErrOvercommitted.
func TestOvercommittedQueueIsInfiniteLatency(t *testing.T) {
	top, ids := buildSingleQueue(t, 1, []struct {
		priority int
		shaper   curves.SimpleArrival
	}{
		{priority: 1, shaper: curves.SimpleArrival{R: 0.6, B: 1}},
		{priority: 1, shaper: curves.SimpleArrival{R: 0.6, B: 1}},
	})

	eng := New(top, ModeAggregateTwoHop)
	lat, err := eng.CalcFlowLatency(ids[0])
	require.NoError(t, err)
	require.True(t, math.IsInf(lat, 1))
}

// TestAggregateTwoHopDiamond is spec.md's scenario 3: four bandwidth-1
// queues Q0..Q3 wired into a diamond (paths Q0->Q2, Q0->Q3, Q1->Q2,
// Q1->Q3), ten flows in five priority pairs, one pair per path except the
// lowest priority pair which doubles up on Q1->Q3. Expected latencies
// mirror the original DNC test's DNCTestTwoHops fixture field-for-field.
func TestAggregateTwoHopDiamond(t *testing.T) {
	top := topology.New()
	for _, name := range []string{"Q0", "Q1", "Q2", "Q3"} {
		_, err := top.AddQueue(name, 1)
		require.NoError(t, err)
	}

	type flowSpec struct {
		name     string
		queues   []string
		priority int
		r, b     float64
	}
	specs := []flowSpec{
		{"F0", []string{"Q0", "Q2"}, 1, 0.25, 0.5},
		{"F1", []string{"Q0", "Q2"}, 1, 0.125, 1},
		{"F2", []string{"Q0", "Q3"}, 2, 0.125, 0.25},
		{"F3", []string{"Q0", "Q3"}, 2, 0.5, 2.25},
		{"F4", []string{"Q1", "Q2"}, 3, 0.125, 0.25},
		{"F5", []string{"Q1", "Q2"}, 3, 0.125, 0.75},
		{"F6", []string{"Q1", "Q3"}, 4, 0.125, 0.25},
		{"F7", []string{"Q1", "Q3"}, 4, 0.125, 1.25},
		{"F8", []string{"Q1", "Q3"}, 5, 0, 0.25},
		{"F9", []string{"Q1", "Q3"}, 5, 0, 0.25},
	}

	ids := make([]topology.ID, len(specs))
	for i, s := range specs {
		shaper := curves.SimpleArrival{R: s.r, B: s.b}
		cid, err := top.AddClient(topology.ClientSpec{
			Name: "C" + s.name[1:],
			SLO:  100,
			Flows: []topology.FlowSpec{{
				Name:       s.name,
				QueueNames: s.queues,
				Arrival:    shaper,
				Priority:   s.priority,
			}},
		})
		require.NoError(t, err)
		c, _ := top.Client(cid)
		for fid := range c.FlowIDs {
			ids[i] = fid
		}
		f, _ := top.Flow(ids[i])
		f.Shaper = shaper
	}

	eng := New(top, ModeAggregateTwoHop)
	expected := []float64{1.5, 1.5, 6.4, 6.4, 4, 4, 16, 16, 52, 52}
	for i, want := range expected {
		lat, err := eng.CalcFlowLatency(ids[i])
		require.NoError(t, err)
		require.InDeltaf(t, want, lat, 1e-9, "flow %s", specs[i].name)
	}
}

func TestIgnoreLatencyShortCircuits(t *testing.T) {
	top := topology.New()
	_, err := top.AddQueue("Q", 1)
	require.NoError(t, err)
	cid, err := top.AddClient(topology.ClientSpec{
		Name: "C",
		SLO:  1,
		Flows: []topology.FlowSpec{{
			Name:          "F",
			QueueNames:    []string{"Q"},
			Arrival:       curves.SimpleArrival{R: 10, B: 10},
			Priority:      1,
			IgnoreLatency: true,
		}},
	})
	require.NoError(t, err)
	c, _ := top.Client(cid)
	var fid topology.ID
	for id := range c.FlowIDs {
		fid = id
	}

	eng := New(top, ModeAggregateTwoHop)
	lat, err := eng.CalcFlowLatency(fid)
	require.NoError(t, err)
	require.Equal(t, 0.0, lat)
}
