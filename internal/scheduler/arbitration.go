package scheduler

import "container/list"

// candidate is one tenant's head-of-queue job as seen by one arbitration
// round.
type candidate struct {
	tenant       *tenantState
	job          *Job
	withinLimits bool
}

// selectDispatchable finds the single best dispatchable job across all
// tenants, per spec.md §4.7's arbitration order, or returns (nil, nil) if
// none is currently eligible. Callers hold s.mu.
func (s *Scheduler) selectDispatchable() (*Job, *tenantState) {
	now := s.now()

	var best *candidate
	for _, t := range s.tenants {
		if t.queue.Len() == 0 {
			continue
		}
		job := t.queue.Front().Value.(*Job)

		if !s.passesDispatchGating(job, t) {
			continue
		}

		within := true
		if job.Class != JobImmediate {
			t.buckets.refill(now, t.tE)
			within = t.buckets.withinLimits(job.work)
		}

		c := &candidate{tenant: t, job: job, withinLimits: within}
		if best == nil || betterCandidate(c, best) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.job, best.tenant
}

// betterCandidate implements spec.md §4.7's pairwise arbitration order. Both
// a and b are already known to have non-empty queues and to have passed
// dispatch gating.
func betterCandidate(a, b *candidate) bool {
	aImm := a.job.Class == JobImmediate
	bImm := b.job.Class == JobImmediate
	if aImm != bImm {
		return aImm
	}

	if a.withinLimits != b.withinLimits {
		return a.withinLimits
	}
	if a.withinLimits && b.withinLimits {
		if a.tenant.cfg.Priority != b.tenant.cfg.Priority {
			return a.tenant.cfg.Priority < b.tenant.cfg.Priority
		}
	}
	// Out-of-limits (or tied-priority within-limits): FCFS on head arrival.
	return a.job.SubmittedAt.Before(b.job.SubmittedAt)
}

// passesDispatchGating applies the hard outstanding-work caps and the
// starvation guard; these block dispatch outright rather than merely
// de-prioritizing, per spec.md §4.7.
func (s *Scheduler) passesDispatchGating(job *Job, t *tenantState) bool {
	if job.Class == JobImmediate {
		return true
	}

	effectiveMax := s.limits.MaxOutstandingJobs + s.immediateCapBonus
	if s.outstandingJobs >= effectiveMax {
		return false
	}

	switch job.Class {
	case JobRead:
		if s.outstandingReadJobs >= s.limits.MaxOutstandingReadJobs {
			return false
		}
		if s.outstandingReadBytes+job.RequestSize >= s.limits.MaxOutstandingReadBytes {
			return false
		}
		if starvationBlocked(s.inFlightReads, t.cfg.Priority, s.readSeq, s.readByteSeq, s.limits.MaxOutstandingReadJobs, s.limits.MaxOutstandingReadBytes) {
			return false
		}
	case JobWrite:
		if s.outstandingWriteJobs >= s.limits.MaxOutstandingWriteJobs {
			return false
		}
		if s.outstandingWriteBytes+job.RequestSize >= s.limits.MaxOutstandingWriteBytes {
			return false
		}
		if starvationBlocked(s.inFlightWrites, t.cfg.Priority, s.writeSeq, s.writeByteSeq, s.limits.MaxOutstandingWriteJobs, s.limits.MaxOutstandingWriteBytes) {
			return false
		}
	}
	return true
}

// starvationBlocked reports whether some strictly-higher-priority tenant's
// in-flight job of this class has fallen more than maxJobs sequence
// positions, or maxBytes bytes, behind the current counters -- if so, a
// lower-priority dispatch is held back until that backlog is serviced,
// bounding priority inversion to the configured MPL window.
func starvationBlocked(inFlight *list.List, priority int, curJobSeq, curByteSeq int64, maxJobs int, maxBytes int64) bool {
	for e := inFlight.Front(); e != nil; e = e.Next() {
		f := e.Value.(*inFlightJob)
		if f.priority >= priority {
			continue // not strictly higher priority
		}
		if curJobSeq-f.jobSeq > int64(maxJobs) || curByteSeq-f.byteSeq > maxBytes {
			return true
		}
	}
	return false
}
