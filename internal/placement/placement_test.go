package placement

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/admission"
)

// fakeReplica admits iff the candidate server named in the client's sole
// flow queue list is in capacity. It records every AddClients/DelClient
// call so tests can assert no candidate past the winner was ever queried.
type fakeReplica struct {
	mu       sync.Mutex
	capacity map[string]bool
	admitted map[string]bool
	queried  []string
}

func newFakeReplica(capacity map[string]bool) *fakeReplica {
	return &fakeReplica{capacity: capacity, admitted: map[string]bool{}}
}

func (f *fakeReplica) AddClients(ctx context.Context, clients []admission.ClientDescriptor, fastFirstFit bool) (admission.Status, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cd := range clients {
		f.queried = append(f.queried, cd.Flows[0].Queues[0])
		if !f.capacity[cd.Flows[0].Queues[0]] {
			return admission.StatusOK, false, nil
		}
	}
	for _, cd := range clients {
		f.admitted[cd.Name] = true
	}
	return admission.StatusOK, true, nil
}

func (f *fakeReplica) DelClient(ctx context.Context, name string) (admission.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.admitted, name)
	return admission.StatusOK, nil
}

func render(sc ServerCandidate) []admission.ClientDescriptor {
	return []admission.ClientDescriptor{{
		Name: "replica-of-" + sc.Host,
		SLO:  100,
		Flows: []admission.FlowDescriptor{
			{Name: "f", Queues: []string{sc.Host}, ArrivalInfo: []admission.ArrivalPoint{{Slope: 0.1}}},
		},
	}}
}

func TestPlaceReturnsLowestCapableIndex(t *testing.T) {
	candidates := []ServerCandidate{{Host: "s0"}, {Host: "s1"}, {Host: "s2"}, {Host: "s3"}, {Host: "s4"}}
	replicas := make([]ReplicaClient, 4)
	var fakes []*fakeReplica
	for i := range replicas {
		fr := newFakeReplica(map[string]bool{"s2": true})
		fakes = append(fakes, fr)
		replicas[i] = fr
	}

	c := &Coordinator{Replicas: replicas}
	res, ok, err := c.Place(context.Background(), candidates, render, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, res.ServerIndex)
	require.Equal(t, "s2", res.Server.Host)

	for _, fr := range fakes {
		for _, q := range fr.queried {
			require.NotEqual(t, "s3", q)
			require.NotEqual(t, "s4", q)
		}
	}
}

func TestPlaceReturnsFalseWhenNoCandidateFits(t *testing.T) {
	candidates := []ServerCandidate{{Host: "s0"}, {Host: "s1"}}
	replicas := []ReplicaClient{newFakeReplica(map[string]bool{})}

	c := &Coordinator{Replicas: replicas}
	_, ok, err := c.Place(context.Background(), candidates, render, true)
	require.NoError(t, err)
	require.False(t, ok)
}
