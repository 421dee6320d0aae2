package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/analysis"
)

type noopPusher struct{}

func (noopPusher) UpdateClient(ctx context.Context, enforcerAddr, tenantKey string, priority int, rates, bursts []float64) error {
	return nil
}
func (noopPusher) RemoveClient(ctx context.Context, enforcerAddr, tenantKey string) error { return nil }

func flow(name string, queues []string, rate float64) FlowDescriptor {
	return FlowDescriptor{
		Name:   name,
		Queues: queues,
		ArrivalInfo: []ArrivalPoint{
			{X: 0, Y: 0, Slope: rate},
		},
	}
}

func TestAddClientsAdmitsFeasibleClient(t *testing.T) {
	svc := New(analysis.ModeAggregateTwoHop, noopPusher{})
	require.Equal(t, StatusOK, svc.AddQueue(QueueDescriptor{Name: "q0", Bandwidth: 1}))

	st, admitted := svc.AddClients(context.Background(), []ClientDescriptor{
		{Name: "A", SLO: 100, Flows: []FlowDescriptor{flow("fa", []string{"q0"}, 0.1)}},
	}, false)
	require.Equal(t, StatusOK, st)
	require.True(t, admitted)

	_, ok := svc.top.FlowByName("fa")
	require.True(t, ok)
}

func TestAddClientsRollsBackOnInfeasibleCombination(t *testing.T) {
	svc := New(analysis.ModeAggregateTwoHop, noopPusher{})
	require.Equal(t, StatusOK, svc.AddQueue(QueueDescriptor{Name: "q0", Bandwidth: 1}))

	// A burst of 1 against an SLO too tight to admit any burst at all: the
	// compactor's LP has no feasible (r, b), so the shaper zeros out and
	// the resulting latency is infinite.
	burstyFlow := FlowDescriptor{
		Name:   "fa",
		Queues: []string{"q0"},
		ArrivalInfo: []ArrivalPoint{
			{X: 0, Y: 1, Slope: 0.1},
		},
	}
	st, admitted := svc.AddClients(context.Background(), []ClientDescriptor{
		{Name: "A", SLO: 0.01, Flows: []FlowDescriptor{burstyFlow}},
	}, false)
	require.Equal(t, StatusOK, st)
	require.False(t, admitted)

	require.Empty(t, svc.top.Clients())
	require.Empty(t, svc.top.Flows())
}

func TestAddClientsRejectsUnknownQueue(t *testing.T) {
	svc := New(analysis.ModeAggregateTwoHop, noopPusher{})
	st, admitted := svc.AddClients(context.Background(), []ClientDescriptor{
		{Name: "A", SLO: 1, Flows: []FlowDescriptor{flow("fa", []string{"missing"}, 0.1)}},
	}, false)
	require.Equal(t, StatusNameNonexistent, st)
	require.False(t, admitted)
}

func TestFastFirstFitRejectsOvercommittedQueue(t *testing.T) {
	svc := New(analysis.ModeAggregateTwoHop, noopPusher{})
	require.Equal(t, StatusOK, svc.AddQueue(QueueDescriptor{Name: "q0", Bandwidth: 1}))

	st, admitted := svc.AddClients(context.Background(), []ClientDescriptor{
		{Name: "A", SLO: 100, Flows: []FlowDescriptor{flow("fa", []string{"q0"}, 1.5)}},
	}, true)
	require.Equal(t, StatusOK, st)
	require.False(t, admitted)
	require.Empty(t, svc.top.Clients())
}

func TestDelClientRemovesClientAndFlows(t *testing.T) {
	svc := New(analysis.ModeAggregateTwoHop, noopPusher{})
	require.Equal(t, StatusOK, svc.AddQueue(QueueDescriptor{Name: "q0", Bandwidth: 1}))
	st, admitted := svc.AddClients(context.Background(), []ClientDescriptor{
		{Name: "A", SLO: 100, Flows: []FlowDescriptor{flow("fa", []string{"q0"}, 0.1)}},
	}, false)
	require.Equal(t, StatusOK, st)
	require.True(t, admitted)

	require.Equal(t, StatusOK, svc.DelClient(context.Background(), "A"))
	require.Empty(t, svc.top.Clients())
}
