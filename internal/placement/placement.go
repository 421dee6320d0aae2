// Package placement implements the Placement Coordinator (PC): given a
// workload and a set of candidate servers, it tries to admit the workload
// on each candidate in parallel across Admission Service replicas and keeps
// the lowest-indexed server that fits -- grounded on spec.md §4.6, with the
// worker-pool-over-a-shared-index pattern adapted from pkg/rpc's
// dial-per-target client pool, with a sync.Mutex guarding the shared index
// and a sync.WaitGroup (no condition variables) for "wait until outstanding
// work settles".
package placement

import (
	"context"
	"sync"

	"github.com/timmyzhu/WorkloadCompactor/internal/admission"
	"github.com/timmyzhu/WorkloadCompactor/internal/metrics"
)

// ReplicaClient is one Admission Service replica, as seen over RPC.
type ReplicaClient interface {
	AddClients(ctx context.Context, clients []admission.ClientDescriptor, fastFirstFit bool) (admission.Status, bool, error)
	DelClient(ctx context.Context, name string) (admission.Status, error)
}

// ServerCandidate is one candidate (serverHost, serverVM) pair.
type ServerCandidate struct {
	Host string
	VM   string
}

// RenderFunc builds the clientInfo descriptors to submit for a given
// candidate server (substituting host/VM/server addresses into the
// workload's template).
type RenderFunc func(ServerCandidate) []admission.ClientDescriptor

// Coordinator fans a placement attempt out across one worker per attached
// replica.
type Coordinator struct {
	Replicas []ReplicaClient
}

// Result is the outcome of a successful placement.
type Result struct {
	ServerIndex int
	Server      ServerCandidate
}

// Place runs the first-fit search: a work queue of candidates is drained by
// one worker per replica; each worker renders the candidate, attempts
// addClients(fastFirstFit) against its own replica, and immediately undoes
// the attempt with delClient regardless of outcome, so replicas never
// accumulate speculative state. On a successful attempt the worker cancels
// remaining work and records the lowest successful index seen. Once every
// worker has drained the queue, the winning candidate (if any) is
// re-admitted on every replica so all of them converge on the same state.
func (c *Coordinator) Place(ctx context.Context, candidates []ServerCandidate, render RenderFunc, fastFirstFit bool) (Result, bool, error) {
	if len(candidates) == 0 || len(c.Replicas) == 0 {
		return Result{}, false, nil
	}

	var mu sync.Mutex
	next := 0
	best := len(candidates)

	var wg sync.WaitGroup
	for _, replica := range c.Replicas {
		replica := replica
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				if next >= len(candidates) {
					mu.Unlock()
					return
				}
				idx := next
				next++
				mu.Unlock()

				clients := render(candidates[idx])
				metrics.PlacementAttempts.WithLabelValues("attempt").Inc()
				status, admitted, err := replica.AddClients(ctx, clients, fastFirstFit)
				for _, cd := range clients {
					_, _ = replica.DelClient(ctx, cd.Name)
				}
				if err != nil || status != admission.StatusOK || !admitted {
					continue
				}

				mu.Lock()
				if idx < best {
					best = idx
				}
				next = len(candidates) // cancel remaining work
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if best >= len(candidates) {
		return Result{}, false, nil
	}

	metrics.PlacementAttempts.WithLabelValues("success").Inc()

	winner := candidates[best]
	clients := render(winner)
	for _, replica := range c.Replicas {
		if _, _, err := replica.AddClients(ctx, clients, fastFirstFit); err != nil {
			return Result{}, false, err
		}
	}
	return Result{ServerIndex: best, Server: winner}, true, nil
}
