package analysis

import (
	"math"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
	"github.com/timmyzhu/WorkloadCompactor/internal/topology"
)

// hopKey identifies one (flow, position-on-its-own-path) pair during a
// hop-by-hop walk.
type hopKey struct {
	flow  topology.ID
	index int
}

// hopByHop implements DNC.cpp's hopByHopAnalysis: walk the subject flow's
// path, at each queue computing the leftover service after every
// equal-or-higher-priority competing flow, propagating the subject's own
// arrival curve through each hop's service via Output. A competing flow's
// arrival at its own hop is itself computed recursively (calcArrivalCurveAtQueue
// in the original), since a flow arriving at a shared queue may already have
// been reshaped by its own upstream hops. Results are memoized per top-level
// call -- the same (flow, index) pair can recur many times in a densely
// shared topology.
//
// The original chains one LeftoverServiceCurve call per competing flow;
// that chain is mathematically equivalent to a single Leftover call against
// the flows' combined Aggregate (the R/T algebra telescopes), so this walks
// the queue once and aggregates before a single Leftover call.
func (e *Engine) hopByHop(subject *topology.Flow) float64 {
	w := &hopWalker{eng: e, visiting: make(map[hopKey]bool)}

	arrival := subject.Shaper
	var total float64
	for idx := range subject.Path {
		service, ok := w.serviceCurveAtHop(subject, idx)
		if !ok {
			return math.Inf(1)
		}
		total += curves.LatencyBound(arrival, service)
		arrival = curves.Output(arrival, service)
	}
	return total
}

type hopWalker struct {
	eng         *Engine
	arrivalMemo map[hopKey]curves.SimpleArrival
	serviceMemo map[hopKey]curves.SimpleService
	visiting    map[hopKey]bool
}

func (w *hopWalker) arrivalCurveAtHop(flow *topology.Flow, index int) (curves.SimpleArrival, bool) {
	if index == 0 {
		return flow.Shaper, true
	}
	key := hopKey{flow: flow.ID, index: index}
	if w.arrivalMemo == nil {
		w.arrivalMemo = make(map[hopKey]curves.SimpleArrival)
	}
	if v, ok := w.arrivalMemo[key]; ok {
		return v, true
	}
	if w.visiting[key] {
		return curves.SimpleArrival{}, false
	}
	w.visiting[key] = true
	defer delete(w.visiting, key)

	prevArrival, ok := w.arrivalCurveAtHop(flow, index-1)
	if !ok {
		return curves.SimpleArrival{}, false
	}
	prevService, ok := w.serviceCurveAtHop(flow, index-1)
	if !ok {
		return curves.SimpleArrival{}, false
	}
	out := curves.Output(prevArrival, prevService)
	w.arrivalMemo[key] = out
	return out, true
}

func (w *hopWalker) serviceCurveAtHop(subject *topology.Flow, index int) (curves.SimpleService, bool) {
	key := hopKey{flow: subject.ID, index: index}
	if w.serviceMemo == nil {
		w.serviceMemo = make(map[hopKey]curves.SimpleService)
	}
	if v, ok := w.serviceMemo[key]; ok {
		return v, true
	}
	if w.visiting[key] {
		return curves.SimpleService{}, false
	}
	w.visiting[key] = true
	defer delete(w.visiting, key)

	qid := subject.Path[index]
	q, ok := w.eng.top.Queue(qid)
	if !ok {
		return curves.SimpleService{}, false
	}

	var combined curves.SimpleArrival
	for hop := range q.Hops {
		if hop.Flow == subject.ID {
			continue
		}
		cand, ok := w.eng.top.Flow(hop.Flow)
		if !ok || cand.Priority > subject.Priority {
			continue
		}
		candArrival, ok := w.arrivalCurveAtHop(cand, hop.Index)
		if !ok {
			return curves.SimpleService{}, false
		}
		combined = curves.Aggregate(combined, candArrival)
	}

	service, err := curves.Leftover(combined, curves.SimpleService{R: q.Bandwidth, T: 0})
	if err != nil {
		return curves.SimpleService{}, false
	}
	w.serviceMemo[key] = service
	return service, true
}
