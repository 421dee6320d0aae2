// Package compactor implements WorkloadCompactor's rate-limit parameter
// optimization: it watches the topology for mutations, groups affected
// queues into connected components by shared clients, and lazily re-solves
// one LP per component -- grounded on
// original_source/src/DNC-Library/WorkloadCompactor.cpp
// (calcShaperParameters/addClient/delClient/calcFlowLatency).
package compactor

import (
	"sort"

	"github.com/timmyzhu/WorkloadCompactor/internal/analysis"
	"github.com/timmyzhu/WorkloadCompactor/internal/topology"
)

// Compactor re-optimizes flows' shaper (r, b) parameters and priorities
// whenever queues they share are touched, batching mutations into one lazy
// re-solve on the next latency query.
type Compactor struct {
	top      *topology.Topology
	engine   *analysis.Engine
	affected map[topology.ID]struct{}
}

// New returns a Compactor subscribed to top's mutations. It must be
// constructed before any clients are added, so it observes every mutation.
func New(top *topology.Topology, engine *analysis.Engine) *Compactor {
	c := &Compactor{top: top, engine: engine, affected: make(map[topology.ID]struct{})}
	top.Subscribe(c)
	return c
}

// QueuesTouched implements topology.MutationObserver.
func (c *Compactor) QueuesTouched(ids []topology.ID) {
	for _, id := range ids {
		c.affected[id] = struct{}{}
	}
}

// CalcFlowLatency re-optimizes any affected connected components before
// delegating to the analysis engine, mirroring calcFlowLatency's
// recompute-on-query in the original.
func (c *Compactor) CalcFlowLatency(flowID topology.ID) (float64, error) {
	if len(c.affected) > 0 {
		if err := c.Reoptimize(); err != nil {
			return 0, err
		}
	}
	return c.engine.CalcFlowLatency(flowID)
}

// Reoptimize re-solves every connected component touched since the last
// call, even if the caller never queries a latency for them. Admission
// service callers that want shaper curves committed immediately (rather
// than lazily at the next calcFlowLatency) call this directly.
func (c *Compactor) Reoptimize() error {
	groups := c.discoverGroups()
	c.affected = make(map[topology.ID]struct{})
	for _, g := range groups {
		if err := c.optimizeGroup(g); err != nil {
			return err
		}
	}
	return nil
}

type group struct {
	clientIDs []topology.ID
}

// discoverGroups partitions the topology's affected queues into connected
// components: starting from each as-yet-unclaimed affected queue, it walks
// outward through every flow sharing a client, and every queue those
// sibling flows touch, claiming queues globally so no two components
// overlap -- ported from calcShaperParameters's remainingQueueIds/
// _affectedQueueIds double-bookkeeping loop.
func (c *Compactor) discoverGroups() []group {
	remainingQueues := make(map[topology.ID]struct{})
	for _, q := range c.top.Queues() {
		remainingQueues[q.ID] = struct{}{}
	}
	remainingAffected := make(map[topology.ID]struct{}, len(c.affected))
	for id := range c.affected {
		remainingAffected[id] = struct{}{}
	}

	var groups []group
	for len(remainingAffected) > 0 {
		var start topology.ID
		for id := range remainingAffected {
			start = id
			break
		}
		delete(remainingAffected, start)
		delete(remainingQueues, start)

		visitedClients := make(map[topology.ID]struct{})
		pending := []topology.ID{start}
		for len(pending) > 0 {
			qid := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			q, ok := c.top.Queue(qid)
			if !ok {
				continue
			}
			for _, fid := range q.FlowIDs() {
				f, ok := c.top.Flow(fid)
				if !ok {
					continue
				}
				if _, seen := visitedClients[f.ClientID]; seen {
					continue
				}
				visitedClients[f.ClientID] = struct{}{}

				cl, ok := c.top.Client(f.ClientID)
				if !ok {
					continue
				}
				for otherFid := range cl.FlowIDs {
					other, ok := c.top.Flow(otherFid)
					if !ok {
						continue
					}
					for _, otherQid := range other.Path {
						if _, ok := remainingQueues[otherQid]; !ok {
							continue
						}
						delete(remainingQueues, otherQid)
						delete(remainingAffected, otherQid)
						pending = append(pending, otherQid)
					}
				}
			}
		}

		ids := make([]topology.ID, 0, len(visitedClients))
		for id := range visitedClients {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, group{clientIDs: ids})
	}
	return groups
}
