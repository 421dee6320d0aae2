package topology

// Hop is a (flow, index-in-path) pair: the link between a queue and a flow
// routed through it at a particular position in that flow's path.
type Hop struct {
	Flow  ID
	Index int
}

// Queue is a shared resource with a fixed bandwidth, traversed by zero or
// more flows. Created by the admission service before any flow references
// it; deletable only once its flow set is empty.
type Queue struct {
	ID        ID
	Name      string
	Bandwidth float64
	Hops      map[Hop]struct{}
}

func newQueue(id ID, name string, bandwidth float64) *Queue {
	return &Queue{ID: id, Name: name, Bandwidth: bandwidth, Hops: make(map[Hop]struct{})}
}

// FlowIDs returns the distinct flow ids routed through the queue.
func (q *Queue) FlowIDs() []ID {
	seen := make(map[ID]struct{})
	out := make([]ID, 0, len(q.Hops))
	for h := range q.Hops {
		if _, ok := seen[h.Flow]; !ok {
			seen[h.Flow] = struct{}{}
			out = append(out, h.Flow)
		}
	}
	return out
}
