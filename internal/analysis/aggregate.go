package analysis

import (
	"math"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
	"github.com/timmyzhu/WorkloadCompactor/internal/topology"
)

// aggregateTwoHop implements DNC.cpp's aggregateAnalysisTwoHop: a closed-form
// analysis valid only for flows of one or two hops, ported field-for-field
// (same queue-local loops, same equal-vs-strictly-higher priority split)
// rather than reshaped into the hop-by-hop recursion, since the two
// algorithms are meant to diverge in shape -- this one trades generality for
// avoiding the recursive arrival-curve walk entirely.
func (e *Engine) aggregateTwoHop(flow *topology.Flow) float64 {
	switch len(flow.Path) {
	case 1:
		return e.aggregateOneHop(flow)
	case 2:
		return e.aggregateTwoHopImpl(flow)
	default:
		return e.hopByHop(flow)
	}
}

func (e *Engine) aggregateOneHop(flow *topology.Flow) float64 {
	q, ok := e.top.Queue(flow.Path[0])
	if !ok {
		return math.Inf(1)
	}

	var arrival curves.SimpleArrival
	service := curves.SimpleService{R: q.Bandwidth, T: 0}
	for hop := range q.Hops {
		f, ok := e.top.Flow(hop.Flow)
		if !ok || f.Priority > flow.Priority {
			continue
		}
		if f.Priority == flow.Priority {
			arrival = curves.Aggregate(f.Shaper, arrival)
			continue
		}
		var err error
		service, err = curves.Leftover(f.Shaper, service)
		if err != nil {
			return math.Inf(1)
		}
	}
	return curves.LatencyBound(arrival, service)
}

func (e *Engine) aggregateTwoHopImpl(flow *topology.Flow) float64 {
	firstQueueID := flow.Path[0]
	secondQueueID := flow.Path[1]
	secondQueue, ok := e.top.Queue(secondQueueID)
	if !ok {
		return math.Inf(1)
	}

	// firstQueueIds maps each *other* first-hop queue feeding secondQueue to
	// the highest priority number (lowest actual priority) among its
	// equal-or-higher-priority flows that merge into secondQueue -- the
	// threshold used when computing that first queue's own leftover service.
	firstQueueIds := make(map[topology.ID]int)
	for hop := range secondQueue.Hops {
		f, ok := e.top.Flow(hop.Flow)
		if !ok || f.Priority > flow.Priority {
			continue
		}
		fFirst := f.Path[0]
		if fFirst == firstQueueID {
			continue
		}
		if cur, seen := firstQueueIds[fFirst]; !seen || f.Priority > cur {
			firstQueueIds[fFirst] = f.Priority
		}
	}

	secondQueueService := curves.SimpleService{R: secondQueue.Bandwidth, T: 0}
	for qid, maxPriority := range firstQueueIds {
		q, ok := e.top.Queue(qid)
		if !ok {
			return math.Inf(1)
		}
		var firstArrival curves.SimpleArrival
		firstService := curves.SimpleService{R: q.Bandwidth, T: 0}
		for hop := range q.Hops {
			f, ok := e.top.Flow(hop.Flow)
			if !ok || f.Priority > maxPriority {
				continue
			}
			if f.Path[1] == secondQueueID {
				firstArrival = curves.Aggregate(f.Shaper, firstArrival)
				continue
			}
			var err error
			firstService, err = curves.Leftover(f.Shaper, firstService)
			if err != nil {
				return math.Inf(1)
			}
		}
		outputArrival := curves.Output(firstArrival, firstService)
		var err error
		secondQueueService, err = curves.Leftover(outputArrival, secondQueueService)
		if err != nil {
			return math.Inf(1)
		}
	}

	firstQueue, ok := e.top.Queue(firstQueueID)
	if !ok {
		return math.Inf(1)
	}
	var arrival curves.SimpleArrival      // subject's own priority class, sharing both hops
	var shareArrival curves.SimpleArrival // strictly higher priority, sharing both hops
	firstQueueService := curves.SimpleService{R: firstQueue.Bandwidth, T: 0}
	for hop := range firstQueue.Hops {
		f, ok := e.top.Flow(hop.Flow)
		if !ok || f.Priority > flow.Priority {
			continue
		}
		if f.Path[1] == secondQueueID {
			if f.Priority == flow.Priority {
				arrival = curves.Aggregate(f.Shaper, arrival)
			} else {
				shareArrival = curves.Aggregate(f.Shaper, shareArrival)
			}
			continue
		}
		var err error
		firstQueueService, err = curves.Leftover(f.Shaper, firstQueueService)
		if err != nil {
			return math.Inf(1)
		}
	}

	convoluted := curves.Convolve(firstQueueService, secondQueueService)
	finalService, err := curves.Leftover(shareArrival, convoluted)
	if err != nil {
		return math.Inf(1)
	}
	return curves.LatencyBound(arrival, finalService)
}
