package topology

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
)

func simpleSpec(clientName, flowName string, queueNames []string) ClientSpec {
	return ClientSpec{
		Name: clientName,
		SLO:  1.5,
		Flows: []FlowSpec{
			{
				Name:       flowName,
				QueueNames: queueNames,
				Arrival:    curves.SimpleArrival{R: 0.25, B: 0.5},
				Priority:   1,
			},
		},
	}
}

func TestAddDelClientIdempotent(t *testing.T) {
	top := New()
	_, err := top.AddQueue("Q", 1)
	require.NoError(t, err)

	before := snapshot(top)

	cid, err := top.AddClient(simpleSpec("C", "F", []string{"Q"}))
	require.NoError(t, err)
	require.NoError(t, top.DelClient(cid))

	after := snapshot(top)
	require.Equal(t, before, after)
}

func snapshot(top *Topology) map[string]int {
	return map[string]int{
		"queues":  len(top.Queues()),
		"flows":   len(top.Flows()),
		"clients": len(top.Clients()),
	}
}

func TestAddClientRejectsUnknownQueue(t *testing.T) {
	top := New()
	_, err := top.AddClient(simpleSpec("C", "F", []string{"nope"}))
	require.Error(t, err)
	var nonexist *NameNonexistentError
	require.ErrorAs(t, err, &nonexist)
}

func TestAddClientRejectsDuplicateName(t *testing.T) {
	top := New()
	_, err := top.AddQueue("Q", 1)
	require.NoError(t, err)
	_, err = top.AddClient(simpleSpec("C", "F", []string{"Q"}))
	require.NoError(t, err)
	_, err = top.AddClient(simpleSpec("C", "F2", []string{"Q"}))
	require.Error(t, err)
	var inUse *NameInUseError
	require.ErrorAs(t, err, &inUse)
}

func TestDelQueueFailsWithActiveFlows(t *testing.T) {
	top := New()
	qid, err := top.AddQueue("Q", 1)
	require.NoError(t, err)
	_, err = top.AddClient(simpleSpec("C", "F", []string{"Q"}))
	require.NoError(t, err)

	err = top.DelQueue(qid)
	require.Error(t, err)
	var active *QueueHasActiveFlowsError
	require.ErrorAs(t, err, &active)
}

type recordingObserver struct{ touched []ID }

func (r *recordingObserver) QueuesTouched(ids []ID) { r.touched = append(r.touched, ids...) }

func TestMutationObserverNotified(t *testing.T) {
	top := New()
	obs := &recordingObserver{}
	top.Subscribe(obs)

	qid, err := top.AddQueue("Q", 1)
	require.NoError(t, err)
	_, err = top.AddClient(simpleSpec("C", "F", []string{"Q"}))
	require.NoError(t, err)

	require.Contains(t, obs.touched, qid)
}
