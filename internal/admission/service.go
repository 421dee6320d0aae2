package admission

import (
	"context"
	"sort"

	"github.com/timmyzhu/WorkloadCompactor/internal/analysis"
	"github.com/timmyzhu/WorkloadCompactor/internal/compactor"
	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
	"github.com/timmyzhu/WorkloadCompactor/internal/log"
	"github.com/timmyzhu/WorkloadCompactor/internal/metrics"
	"github.com/timmyzhu/WorkloadCompactor/internal/topology"
)

// fastFirstFitMargin mirrors the compactor's 0.999 safety margin (spec.md
// §9 open question (b)).
const fastFirstFitMargin = 0.999

// EnforcementPusher delivers shaper/priority updates to the network or
// storage enforcement point named by a flow's enforcerType/enforcerAddr.
// Implemented over internal/rpc's gRPC client; a downstream RPC failure is
// logged and never fails the admission, per spec.md §7.
type EnforcementPusher interface {
	UpdateClient(ctx context.Context, enforcerAddr, tenantKey string, priority int, rates, bursts []float64) error
	RemoveClient(ctx context.Context, enforcerAddr, tenantKey string) error
}

// Service is the Admission Service: one topology, one analysis engine, one
// compactor, serialized by its caller (spec.md §5 -- AS is single-threaded
// cooperative, so Service does no internal locking).
type Service struct {
	top       *topology.Topology
	engine    *analysis.Engine
	compactor *compactor.Compactor
	pusher    EnforcementPusher
}

// New builds a Service over a fresh topology, wiring the compactor as a
// mutation observer before any client is added.
func New(mode analysis.Mode, pusher EnforcementPusher) *Service {
	top := topology.New()
	eng := analysis.New(top, mode)
	c := compactor.New(top, eng)
	return &Service{top: top, engine: eng, compactor: c, pusher: pusher}
}

// AddQueue is a thin validating wrapper over the topology.
func (s *Service) AddQueue(q QueueDescriptor) Status {
	if q.Name == "" {
		return StatusMissingArgument
	}
	if q.Bandwidth <= 0 {
		return StatusInvalidArgument
	}
	if _, err := s.top.AddQueue(q.Name, q.Bandwidth); err != nil {
		return statusFor(err)
	}
	return StatusOK
}

// DelQueue is a thin validating wrapper over the topology.
func (s *Service) DelQueue(name string) Status {
	id, ok := s.top.QueueByName(name)
	if !ok {
		return StatusNameNonexistent
	}
	if err := s.top.DelQueue(id); err != nil {
		return statusFor(err)
	}
	return StatusOK
}

// DelClient removes a client and resets its flows' enforcement-point
// parameters to defaults (no rate limits, priority 0).
func (s *Service) DelClient(ctx context.Context, name string) Status {
	id, ok := s.top.ClientByName(name)
	if !ok {
		return StatusNameNonexistent
	}
	cl, _ := s.top.Client(id)
	type reset struct{ addr, tenantKey string }
	var resets []reset
	for fid := range cl.FlowIDs {
		f, ok := s.top.Flow(fid)
		if !ok {
			continue
		}
		if f.EnforcerAddr == "" {
			continue
		}
		resets = append(resets, reset{addr: f.EnforcerAddr, tenantKey: tenantKey(f)})
	}

	if err := s.top.DelClient(id); err != nil {
		return statusFor(err)
	}
	for _, r := range resets {
		if err := s.pusher.RemoveClient(ctx, r.addr, r.tenantKey); err != nil {
			log.Warningf(ctx, "admission: removeClient at %s failed: %v", r.addr, err)
		}
	}
	return StatusOK
}

// tenantKey derives the enforcement point's tenant identity: srcAddr for
// storage, (srcAddr, dstAddr) for network (spec.md §6).
func tenantKey(f *topology.Flow) string {
	if f.EnforcerType == "network" {
		return f.SrcAddr + "->" + f.DstAddr
	}
	return f.SrcAddr
}

func statusFor(err error) Status {
	switch err.(type) {
	case *topology.NameInUseError:
		return StatusNameInUse
	case *topology.NameNonexistentError:
		return StatusNameNonexistent
	case *topology.QueueHasActiveFlowsError:
		return StatusQueueHasActiveFlows
	default:
		return StatusInvalidArgument
	}
}

// toClientSpec validates and converts one descriptor to a topology.ClientSpec.
func (s *Service) toClientSpec(cd ClientDescriptor) (topology.ClientSpec, Status) {
	if cd.Name == "" {
		return topology.ClientSpec{}, StatusMissingArgument
	}
	if len(cd.Flows) == 0 {
		return topology.ClientSpec{}, StatusMissingArgument
	}
	flows := make([]topology.FlowSpec, len(cd.Flows))
	for i, fd := range cd.Flows {
		if fd.Name == "" || len(fd.Queues) == 0 {
			return topology.ClientSpec{}, StatusMissingArgument
		}
		for _, qn := range fd.Queues {
			if _, ok := s.top.QueueByName(qn); !ok {
				return topology.ClientSpec{}, StatusNameNonexistent
			}
		}
		priority := 0
		if fd.Priority != nil {
			priority = *fd.Priority
		}
		arrivalCurve, err := toArrivalCurve(fd)
		if err != nil {
			return topology.ClientSpec{}, StatusInvalidArgument
		}
		flows[i] = topology.FlowSpec{
			Name:          fd.Name,
			QueueNames:    fd.Queues,
			Arrival:       curves.SimpleArrival{R: arrivalRate(fd)},
			ArrivalCurve:  arrivalCurve,
			Priority:      priority,
			IgnoreLatency: fd.IgnoreLatency,
			EnforcerType:  fd.EnforcerType,
			EnforcerAddr:  fd.EnforcerAddr,
			DstAddr:       fd.DstAddr,
			SrcAddr:       fd.SrcAddr,
			ClientAddr:    fd.ClientAddr,
			RateLimiters:  toRateLimiters(fd.RateLimiters),
		}
	}
	return topology.ClientSpec{
		Name:          cd.Name,
		SLO:           cd.SLO,
		SLOPercentile: cd.SLOPercentile,
		Flows:         flows,
	}, StatusOK
}

// AddClients validates clients, optionally short-circuits via fastFirstFit,
// adds them to the topology, recomputes latencies for every added and
// affected flow, and admits iff all of them meet their client's SLO --
// ported from the Admission Service's addClients in spec.md §4.5. On
// rejection the topology is left exactly as it was found.
func (s *Service) AddClients(ctx context.Context, clientDescs []ClientDescriptor, fastFirstFit bool) (status Status, admitted bool) {
	var rolledBack bool
	defer func() {
		switch {
		case rolledBack:
			metrics.AdmissionAttempts.WithLabelValues("rolled_back").Inc()
		case admitted:
			metrics.AdmissionAttempts.WithLabelValues("admitted").Inc()
		default:
			metrics.AdmissionAttempts.WithLabelValues("rejected").Inc()
		}
	}()

	specs := make([]topology.ClientSpec, len(clientDescs))
	for i, cd := range clientDescs {
		spec, st := s.toClientSpec(cd)
		if st != StatusOK {
			return st, false
		}
		specs[i] = spec
	}

	if fastFirstFit {
		for i, cd := range clientDescs {
			if cd.Admitted {
				continue
			}
			if s.exceedsFastFirstFitMargin(specs[i]) {
				return StatusOK, false
			}
		}
	}

	var addedClientIDs []topology.ID
	rollback := func() {
		rolledBack = true
		for _, id := range addedClientIDs {
			_ = s.top.DelClient(id)
		}
	}

	for _, spec := range specs {
		id, err := s.top.AddClient(spec)
		if err != nil {
			rollback()
			return statusFor(err), false
		}
		addedClientIDs = append(addedClientIDs, id)
	}

	toCheck := s.affectedFlows(addedClientIDs)

	for _, fid := range toCheck {
		f, ok := s.top.Flow(fid)
		if !ok {
			continue
		}
		cl, ok := s.top.Client(f.ClientID)
		if !ok {
			continue
		}
		lat, err := s.compactor.CalcFlowLatency(fid)
		if err != nil {
			rollback()
			return StatusInvalidArgument, false
		}
		f.Latency = lat
		if lat > cl.SLO {
			rollback()
			return StatusOK, false
		}
	}

	s.pushUpdates(ctx, toCheck)
	return StatusOK, true
}

// exceedsFastFirstFitMargin implements the fastFirstFit pre-check: for every
// flow the candidate client would add and every queue it would touch, the
// new flow's offered rate plus the existing shaper rates already reserved
// at that queue must not exceed 0.999 of the queue's bandwidth.
func (s *Service) exceedsFastFirstFitMargin(spec topology.ClientSpec) bool {
	for _, fs := range spec.Flows {
		for _, qn := range fs.QueueNames {
			qid, ok := s.top.QueueByName(qn)
			if !ok {
				continue
			}
			q, ok := s.top.Queue(qid)
			if !ok {
				continue
			}
			load := fs.Arrival.R
			for _, fid := range q.FlowIDs() {
				f, ok := s.top.Flow(fid)
				if !ok {
					continue
				}
				load += f.Shaper.R
			}
			if load > fastFirstFitMargin*q.Bandwidth {
				return true
			}
		}
	}
	return false
}

// affectedFlows computes the set of flows to recheck after adding
// addedClientIDs: every added flow, plus -- for each, starting at hop index
// 0 -- every flow sharing a queue from that hop index onward, stopped at
// flows of strictly higher priority than the propagated priority (spec.md
// §4.5's transitive closure, walked per-priority to avoid over-marking).
func (s *Service) affectedFlows(addedClientIDs []topology.ID) []topology.ID {
	visited := make(map[topology.ID]struct{})
	var order []topology.ID
	add := func(id topology.ID) {
		if _, ok := visited[id]; ok {
			return
		}
		visited[id] = struct{}{}
		order = append(order, id)
	}

	var addedFlows []topology.ID
	for _, cid := range addedClientIDs {
		cl, ok := s.top.Client(cid)
		if !ok {
			continue
		}
		ids := make([]topology.ID, 0, len(cl.FlowIDs))
		for fid := range cl.FlowIDs {
			ids = append(ids, fid)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		addedFlows = append(addedFlows, ids...)
	}

	for _, fid := range addedFlows {
		f, ok := s.top.Flow(fid)
		if !ok {
			continue
		}
		s.propagate(f, 0, f.Priority, visited, add)
	}
	return order
}

func (s *Service) propagate(start *topology.Flow, fromIndex, priority int, visited map[topology.ID]struct{}, add func(topology.ID)) {
	add(start.ID)
	for idx := fromIndex; idx < len(start.Path); idx++ {
		q, ok := s.top.Queue(start.Path[idx])
		if !ok {
			continue
		}
		for hop := range q.Hops {
			if hop.Flow == start.ID {
				continue
			}
			other, ok := s.top.Flow(hop.Flow)
			if !ok || other.Priority < priority {
				continue // strictly higher priority: stop propagation here
			}
			if _, seen := visited[hop.Flow]; seen {
				continue
			}
			s.propagate(other, hop.Index, other.Priority, visited, add)
		}
	}
}

// pushUpdates delivers shaper/priority/rate-limiter parameters to every
// flow's enforcement point, in admission order. A failed push is logged and
// does not affect admission (spec.md §7).
func (s *Service) pushUpdates(ctx context.Context, flowIDs []topology.ID) {
	if s.pusher == nil {
		return
	}
	for _, fid := range flowIDs {
		f, ok := s.top.Flow(fid)
		if !ok || f.EnforcerAddr == "" {
			continue
		}
		rates := []float64{f.Shaper.R}
		bursts := []float64{f.Shaper.B}
		for _, rl := range f.RateLimiters {
			rates = append(rates, rl.R)
			bursts = append(bursts, rl.B)
		}
		if err := s.pusher.UpdateClient(ctx, f.EnforcerAddr, tenantKey(f), f.Priority, rates, bursts); err != nil {
			log.Warningf(ctx, "admission: updateClient at %s failed: %v", f.EnforcerAddr, err)
		}
	}
}
