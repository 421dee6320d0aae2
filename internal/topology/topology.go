package topology

import (
	"github.com/cockroachdb/errors"
)

// MutationObserver is notified of the queues touched by a topology mutation,
// so the compactor can mark them affected (spec.md §4.4's change tracking)
// without Topology needing to know anything about the compactor.
type MutationObserver interface {
	QueuesTouched(ids []ID)
}

// Topology is the shared object graph of queues, flows, and clients. All
// operations are synchronous and non-blocking; per spec.md §5 the caller
// (the admission service) is responsible for serializing mutations against
// analyser/optimizer calls -- Topology itself does no locking.
type Topology struct {
	queues   map[ID]*Queue
	queueIx  map[string]ID
	queueIDs idGen

	flows   map[ID]*Flow
	flowIx  map[string]ID
	flowIDs idGen

	clients   map[ID]*Client
	clientIx  map[string]ID
	clientIDs idGen

	observers []MutationObserver
}

// New returns an empty Topology.
func New() *Topology {
	return &Topology{
		queues:   make(map[ID]*Queue),
		queueIx:  make(map[string]ID),
		flows:    make(map[ID]*Flow),
		flowIx:   make(map[string]ID),
		clients:  make(map[ID]*Client),
		clientIx: make(map[string]ID),
	}
}

// Subscribe registers obs to be notified of queues touched by future
// mutations.
func (t *Topology) Subscribe(obs MutationObserver) {
	t.observers = append(t.observers, obs)
}

func (t *Topology) notify(ids []ID) {
	if len(ids) == 0 {
		return
	}
	for _, obs := range t.observers {
		obs.QueuesTouched(ids)
	}
}

// AddQueue creates a queue with the given name and bandwidth, which must be
// positive and not already in use.
func (t *Topology) AddQueue(name string, bandwidth float64) (ID, error) {
	if name == "" {
		return Invalid, errors.New("topology: queue name must not be empty")
	}
	if bandwidth <= 0 {
		return Invalid, errors.New("topology: queue bandwidth must be positive")
	}
	if _, ok := t.queueIx[name]; ok {
		return Invalid, &NameInUseError{Kind: KindQueue, Name: name}
	}
	id := t.queueIDs.alloc()
	t.queues[id] = newQueue(id, name, bandwidth)
	t.queueIx[name] = id
	return id, nil
}

// DelQueue removes a queue. It fails with QueueHasActiveFlowsError if any
// flow still routes through it.
func (t *Topology) DelQueue(id ID) error {
	q, ok := t.queues[id]
	if !ok {
		return &NameNonexistentError{Kind: KindQueue, Name: "<id>"}
	}
	if len(q.Hops) != 0 {
		return &QueueHasActiveFlowsError{Name: q.Name}
	}
	delete(t.queues, id)
	delete(t.queueIx, q.Name)
	return nil
}

// QueueByName resolves a queue name to its id.
func (t *Topology) QueueByName(name string) (ID, bool) {
	id, ok := t.queueIx[name]
	return id, ok
}

// Queue returns the queue with the given id.
func (t *Topology) Queue(id ID) (*Queue, bool) {
	q, ok := t.queues[id]
	return q, ok
}

// Queues returns all live queues, in unspecified order.
func (t *Topology) Queues() []*Queue {
	out := make([]*Queue, 0, len(t.queues))
	for _, q := range t.queues {
		out = append(out, q)
	}
	return out
}

// Flow returns the flow with the given id.
func (t *Topology) Flow(id ID) (*Flow, bool) {
	f, ok := t.flows[id]
	return f, ok
}

// FlowByName resolves a flow name to its id.
func (t *Topology) FlowByName(name string) (ID, bool) {
	id, ok := t.flowIx[name]
	return id, ok
}

// Flows returns all live flows, in unspecified order.
func (t *Topology) Flows() []*Flow {
	out := make([]*Flow, 0, len(t.flows))
	for _, f := range t.flows {
		out = append(out, f)
	}
	return out
}

// Client returns the client with the given id.
func (t *Topology) Client(id ID) (*Client, bool) {
	c, ok := t.clients[id]
	return c, ok
}

// ClientByName resolves a client name to its id.
func (t *Topology) ClientByName(name string) (ID, bool) {
	id, ok := t.clientIx[name]
	return id, ok
}

// Clients returns all live clients, in unspecified order.
func (t *Topology) Clients() []*Client {
	out := make([]*Client, 0, len(t.clients))
	for _, c := range t.clients {
		out = append(out, c)
	}
	return out
}

func (t *Topology) validateClientSpec(spec ClientSpec) error {
	if spec.Name == "" {
		return errors.New("topology: client name must not be empty")
	}
	if _, ok := t.clientIx[spec.Name]; ok {
		return &NameInUseError{Kind: KindClient, Name: spec.Name}
	}
	if spec.SLO <= 0 {
		return errors.New("topology: SLO must be positive")
	}
	if spec.SLOPercentile != 0 && (spec.SLOPercentile <= 0 || spec.SLOPercentile >= 100) {
		return errors.New("topology: SLO percentile must be strictly between 0 and 100")
	}
	if len(spec.Flows) == 0 {
		return errors.New("topology: client must declare at least one flow")
	}
	names := make(map[string]struct{}, len(spec.Flows))
	for _, fs := range spec.Flows {
		if fs.Name == "" {
			return errors.New("topology: flow name must not be empty")
		}
		if _, ok := names[fs.Name]; ok {
			return &NameInUseError{Kind: KindFlow, Name: fs.Name}
		}
		if _, ok := t.flowIx[fs.Name]; ok {
			return &NameInUseError{Kind: KindFlow, Name: fs.Name}
		}
		names[fs.Name] = struct{}{}
		if len(fs.QueueNames) == 0 {
			return errors.Newf("topology: flow %q has an empty path", fs.Name)
		}
		for _, qn := range fs.QueueNames {
			if _, ok := t.queueIx[qn]; !ok {
				return &NameNonexistentError{Kind: KindQueue, Name: qn}
			}
		}
	}
	return nil
}

// AddClient validates spec (name uniqueness, positive SLO, percentile range,
// non-empty/unique-named flows referencing only existing queues) and, if
// valid, creates the client and its flows, wiring each flow into its client
// and into every queue on its path. Touched queues are reported to
// subscribed MutationObservers.
func (t *Topology) AddClient(spec ClientSpec) (ID, error) {
	if err := t.validateClientSpec(spec); err != nil {
		return Invalid, err
	}

	clientID := t.clientIDs.alloc()
	client := &Client{
		ID:            clientID,
		Name:          spec.Name,
		SLO:           spec.SLO,
		SLOPercentile: spec.SLOPercentile,
		FlowIDs:       make(map[ID]struct{}),
	}

	var touched []ID
	for _, fs := range spec.Flows {
		flowID := t.flowIDs.alloc()
		path := make([]ID, len(fs.QueueNames))
		for i, qn := range fs.QueueNames {
			path[i] = t.queueIx[qn]
		}
		flow := &Flow{
			ID:            flowID,
			Name:          fs.Name,
			ClientID:      clientID,
			Path:          path,
			Priority:      fs.Priority,
			Arrival:       fs.Arrival,
			ArrivalCurve:  fs.ArrivalCurve,
			IgnoreLatency: fs.IgnoreLatency,
			EnforcerType:  fs.EnforcerType,
			EnforcerAddr:  fs.EnforcerAddr,
			DstAddr:       fs.DstAddr,
			SrcAddr:       fs.SrcAddr,
			ClientAddr:    fs.ClientAddr,
			RateLimiters:  fs.RateLimiters,
		}
		t.flows[flowID] = flow
		t.flowIx[fs.Name] = flowID
		client.FlowIDs[flowID] = struct{}{}

		for idx, qid := range path {
			q := t.queues[qid]
			q.Hops[Hop{Flow: flowID, Index: idx}] = struct{}{}
			touched = append(touched, qid)
		}
	}

	t.clients[clientID] = client
	t.clientIx[spec.Name] = clientID
	t.notify(touched)
	return clientID, nil
}

// DelClient removes all of a client's flows from their queues, then the
// client itself. Touched queues are reported to subscribed
// MutationObservers.
func (t *Topology) DelClient(id ID) error {
	client, ok := t.clients[id]
	if !ok {
		return &NameNonexistentError{Kind: KindClient, Name: "<id>"}
	}

	var touched []ID
	for flowID := range client.FlowIDs {
		flow := t.flows[flowID]
		for idx, qid := range flow.Path {
			q := t.queues[qid]
			delete(q.Hops, Hop{Flow: flowID, Index: idx})
			touched = append(touched, qid)
		}
		delete(t.flows, flowID)
		delete(t.flowIx, flow.Name)
	}

	delete(t.clients, id)
	delete(t.clientIx, client.Name)
	t.notify(touched)
	return nil
}
