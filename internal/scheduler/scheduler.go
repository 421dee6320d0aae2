package scheduler

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/timmyzhu/WorkloadCompactor/internal/log"
	"github.com/timmyzhu/WorkloadCompactor/internal/metrics"
)

// ErrUnknownTenant is returned by Submit for a tenant never registered via
// AddTenant.
var ErrUnknownTenant = errors.New("scheduler: unknown tenant")

type tenantState struct {
	name    string
	cfg     TenantConfig
	queue   *list.List // of *Job, FIFO
	buckets *buckets

	tE        time.Time // last empty->nonempty transition; start of the current busy stretch
	occupancy time.Duration
	epoch     time.Time
}

type inFlightJob struct {
	tenant   string
	priority int
	jobSeq   int64
	byteSeq  int64
}

// Scheduler is the Storage Scheduler: one FIFO + token-bucket set per
// tenant, arbitrated under a single lock and dispatched across a pool of
// downstream RPC client handles -- the lock-plus-condvar worker-pool shape
// spec.md §5 describes for SS, adapted from the same discipline
// pkg/util/admission's granters use for "block until grantable".
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	limits     Limits
	estimators Estimators
	now        func() time.Time

	tenants map[string]*tenantState

	pool      []DownstreamClient
	available []DownstreamClient

	outstandingJobs     int
	immediateCapBonus   int
	outstandingReadJobs  int
	outstandingReadBytes int64
	outstandingWriteJobs int
	outstandingWriteBytes int64

	readSeq, readByteSeq   int64
	writeSeq, writeByteSeq int64

	inFlightReads  *list.List // of inFlightJob
	inFlightWrites *list.List

	closed bool
}

// New builds a Scheduler over the given downstream client pool. now
// defaults to time.Now if nil (tests inject a deterministic clock).
func New(limits Limits, estimators Estimators, pool []DownstreamClient, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	s := &Scheduler{
		limits:         limits,
		estimators:     estimators,
		now:            now,
		tenants:        make(map[string]*tenantState),
		pool:           pool,
		available:      append([]DownstreamClient(nil), pool...),
		inFlightReads:  list.New(),
		inFlightWrites: list.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// AddTenant registers a tenant's priority and token-bucket configuration.
func (s *Scheduler) AddTenant(name string, cfg TenantConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.tenants[name] = &tenantState{
		name:    name,
		cfg:     cfg,
		queue:   list.New(),
		buckets: newBuckets(cfg.Buckets, now),
		tE:      now,
		epoch:   now,
	}
}

// RemoveTenant drops a tenant's configuration and bucket state (spec.md §6
// removeClient). Jobs already queued for it are left to drain; future
// Submit calls for the name fail with ErrUnknownTenant until it is
// re-added.
func (s *Scheduler) RemoveTenant(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, name)
}

// Submit enqueues a job for arbitration and returns immediately; the job's
// Done channel receives the downstream result once dispatched.
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[job.Tenant]
	if !ok {
		return errors.Wrapf(ErrUnknownTenant, "tenant %q", job.Tenant)
	}
	job.work = s.estimators.estimate(job.Class, job.RequestSize)
	if job.Done == nil {
		job.Done = make(chan error, 1)
	}

	wasEmpty := t.queue.Len() == 0
	t.queue.PushBack(job)
	if wasEmpty {
		t.tE = s.now()
	}
	s.cond.Broadcast()
	return nil
}

// GetOccupancy returns the fraction of wall-clock time since the last call
// (or since the tenant was added) that its queue was non-empty, and resets
// the accounting window -- spec.md §4.7's getOccupancy.
func (s *Scheduler) GetOccupancy(tenant string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenant]
	if !ok {
		return 0, false
	}
	now := s.now()
	occ := t.occupancy
	if t.queue.Len() > 0 {
		occ += now.Sub(t.tE)
	}
	window := now.Sub(t.epoch)
	t.occupancy = 0
	t.epoch = now
	if window <= 0 {
		metrics.SchedulerOccupancy.WithLabelValues(tenant).Set(0)
		return 0, true
	}
	ratio := occ.Seconds() / window.Seconds()
	metrics.SchedulerOccupancy.WithLabelValues(tenant).Set(ratio)
	return ratio, true
}

// Run starts one worker goroutine per downstream client and blocks until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, c := range s.pool {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runWorker(ctx, c)
		}()
	}

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.closed = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	wg.Wait()
}

func (s *Scheduler) runWorker(ctx context.Context, client DownstreamClient) {
	for {
		job, tenant, ok := s.waitAndDequeue(ctx)
		if !ok {
			return
		}

		s.markBusy(client)
		err := client.Forward(ctx, job)
		s.markIdle(client)

		s.complete(job, tenant)
		job.Done <- err
	}
}

func (s *Scheduler) markBusy(client DownstreamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.available {
		if c == client {
			s.available = append(s.available[:i], s.available[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) markIdle(client DownstreamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.pool {
		if c == client {
			s.available = append(s.available, client)
			return
		}
	}
}

// waitAndDequeue blocks until a dispatchable job exists (or the scheduler
// is closed), then pops and accounts for it under the lock.
func (s *Scheduler) waitAndDequeue(ctx context.Context) (*Job, *tenantState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed || ctx.Err() != nil {
			return nil, nil, false
		}
		if job, tenant := s.selectDispatchable(); job != nil {
			s.dequeueLocked(job, tenant)
			return job, tenant, true
		}
		s.cond.Wait()
	}
}

func (s *Scheduler) dequeueLocked(job *Job, t *tenantState) {
	for e := t.queue.Front(); e != nil; e = e.Next() {
		if e.Value.(*Job) == job {
			t.queue.Remove(e)
			break
		}
	}
	if t.queue.Len() == 0 {
		now := s.now()
		t.occupancy += now.Sub(t.tE)
	}

	s.outstandingJobs++
	now := s.now()
	switch job.Class {
	case JobImmediate:
		s.immediateCapBonus++
		metrics.SchedulerOutstandingJobs.WithLabelValues(t.name, job.Class.String()).Inc()
	case JobRead:
		s.outstandingReadJobs++
		s.outstandingReadBytes += job.RequestSize
		s.readSeq++
		s.readByteSeq += job.RequestSize
		s.inFlightReads.PushBack(&inFlightJob{tenant: t.name, priority: t.cfg.Priority, jobSeq: s.readSeq, byteSeq: s.readByteSeq})
		metrics.SchedulerOutstandingJobs.WithLabelValues(t.name, job.Class.String()).Inc()
		metrics.SchedulerOutstandingBytes.WithLabelValues(t.name, job.Class.String()).Add(float64(job.RequestSize))
	case JobWrite:
		s.outstandingWriteJobs++
		s.outstandingWriteBytes += job.RequestSize
		s.writeSeq++
		s.writeByteSeq += job.RequestSize
		s.inFlightWrites.PushBack(&inFlightJob{tenant: t.name, priority: t.cfg.Priority, jobSeq: s.writeSeq, byteSeq: s.writeByteSeq})
		metrics.SchedulerOutstandingJobs.WithLabelValues(t.name, job.Class.String()).Inc()
		metrics.SchedulerOutstandingBytes.WithLabelValues(t.name, job.Class.String()).Add(float64(job.RequestSize))
	}
	if job.Class != JobImmediate {
		t.buckets.refill(now, t.tE)
		t.buckets.charge(job.work)
		for i, level := range t.buckets.levels() {
			metrics.SchedulerTokenLevel.WithLabelValues(t.name, strconv.Itoa(i)).Set(level)
		}
	}
}

func (s *Scheduler) complete(job *Job, t *tenantState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outstandingJobs--
	switch job.Class {
	case JobImmediate:
		s.immediateCapBonus--
		metrics.SchedulerOutstandingJobs.WithLabelValues(t.name, job.Class.String()).Dec()
	case JobRead:
		s.outstandingReadJobs--
		s.outstandingReadBytes -= job.RequestSize
		removeInFlight(s.inFlightReads, job)
		metrics.SchedulerOutstandingJobs.WithLabelValues(t.name, job.Class.String()).Dec()
		metrics.SchedulerOutstandingBytes.WithLabelValues(t.name, job.Class.String()).Sub(float64(job.RequestSize))
	case JobWrite:
		s.outstandingWriteJobs--
		s.outstandingWriteBytes -= job.RequestSize
		removeInFlight(s.inFlightWrites, job)
		metrics.SchedulerOutstandingJobs.WithLabelValues(t.name, job.Class.String()).Dec()
		metrics.SchedulerOutstandingBytes.WithLabelValues(t.name, job.Class.String()).Sub(float64(job.RequestSize))
	}
	s.cond.Broadcast()
}

// removeInFlight drops the in-flight record this completion refers to.
// Dispatch and completion are both FIFO per tenant per class, so the oldest
// record belonging to the job's tenant is always the matching one.
func removeInFlight(l *list.List, job *Job) {
	for e := l.Front(); e != nil; e = e.Next() {
		if e.Value.(*inFlightJob).tenant == job.Tenant {
			l.Remove(e)
			return
		}
	}
}

// keepAlive issues a no-op request on every currently-idle downstream
// client; clients that fail are retired from the pool -- spec.md §4.7's
// keep-alive task.
func (s *Scheduler) keepAlive(ctx context.Context) {
	s.mu.Lock()
	idle := append([]DownstreamClient(nil), s.available...)
	s.mu.Unlock()

	var failed []DownstreamClient
	for _, c := range idle {
		if err := c.KeepAlive(ctx); err != nil {
			log.Warningf(ctx, "scheduler: keep-alive failed, retiring client: %v", err)
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return
	}
	s.mu.Lock()
	s.available = removeClients(s.available, failed)
	s.pool = removeClients(s.pool, failed)
	s.mu.Unlock()
}

func removeClients(from, remove []DownstreamClient) []DownstreamClient {
	out := from[:0:0]
	for _, c := range from {
		drop := false
		for _, r := range remove {
			if c == r {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, c)
		}
	}
	return out
}

// RunKeepAlive runs the periodic keep-alive task until ctx is cancelled.
func (s *Scheduler) RunKeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.keepAlive(ctx)
		}
	}
}
