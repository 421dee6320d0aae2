package scheduler

import (
	"container/list"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/estimator"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time        { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeDownstream struct {
	forwardCalls int
	keepAliveErr error
}

func (f *fakeDownstream) Forward(ctx context.Context, job *Job) error {
	f.forwardCalls++
	return nil
}
func (f *fakeDownstream) KeepAlive(ctx context.Context) error { return f.keepAliveErr }

func newTestScheduler(clock *fakeClock, limits Limits) *Scheduler {
	return New(limits, Estimators{}, nil, clock.now)
}

func ampleLimits() Limits {
	return Limits{
		MaxOutstandingJobs:       1000,
		MaxOutstandingReadJobs:   1000,
		MaxOutstandingReadBytes:  1 << 30,
		MaxOutstandingWriteJobs:  1000,
		MaxOutstandingWriteBytes: 1 << 30,
	}
}

func TestSelectDispatchablePrefersHigherPriorityWithinLimits(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(clock, ampleLimits())
	s.AddTenant("low", TenantConfig{Priority: 5, Buckets: []BucketConfig{{Rate: 1e9, Burst: 1e9}}})
	s.AddTenant("high", TenantConfig{Priority: 0, Buckets: []BucketConfig{{Rate: 1e9, Burst: 1e9}}})

	require.NoError(t, s.Submit(&Job{Tenant: "low", Class: JobRead, RequestSize: 10, SubmittedAt: clock.now()}))
	clock.advance(time.Millisecond)
	require.NoError(t, s.Submit(&Job{Tenant: "high", Class: JobRead, RequestSize: 10, SubmittedAt: clock.now()}))

	s.mu.Lock()
	job, tenant := s.selectDispatchable()
	s.mu.Unlock()
	require.NotNil(t, job)
	require.Equal(t, "high", tenant.name)
}

func TestSelectDispatchablePrefersWithinLimitsOverOutOfLimits(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	// Reads cost one work unit per byte, so each 10-byte read needs 10 tokens.
	s := New(ampleLimits(), Estimators{Read: estimator.Network{DataHeavyIsRead: true, DataFactor: 1}}, nil, clock.now)
	// starved's bucket has no capacity at all; ample's does. starved has the
	// higher (numerically smaller) priority, but being out of limits loses
	// to ample regardless.
	s.AddTenant("starved", TenantConfig{Priority: 0, Buckets: []BucketConfig{{Rate: 0, Burst: 0}}})
	s.AddTenant("ample", TenantConfig{Priority: 5, Buckets: []BucketConfig{{Rate: 1e9, Burst: 1e9}}})

	require.NoError(t, s.Submit(&Job{Tenant: "starved", Class: JobRead, RequestSize: 10, SubmittedAt: clock.now()}))
	require.NoError(t, s.Submit(&Job{Tenant: "ample", Class: JobRead, RequestSize: 10, SubmittedAt: clock.now()}))

	s.mu.Lock()
	job, tenant := s.selectDispatchable()
	s.mu.Unlock()
	require.NotNil(t, job)
	require.Equal(t, "ample", tenant.name)
}

func TestSelectDispatchablePrefersImmediateOverReadRegardlessOfPriority(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(clock, ampleLimits())
	s.AddTenant("reader", TenantConfig{Priority: 0})
	s.AddTenant("meta", TenantConfig{Priority: 9})

	require.NoError(t, s.Submit(&Job{Tenant: "reader", Class: JobRead, RequestSize: 10, SubmittedAt: clock.now()}))
	require.NoError(t, s.Submit(&Job{Tenant: "meta", Class: JobImmediate, SubmittedAt: clock.now()}))

	s.mu.Lock()
	job, tenant := s.selectDispatchable()
	s.mu.Unlock()
	require.NotNil(t, job)
	require.Equal(t, "meta", tenant.name)
}

func TestImmediateJobBypassesGlobalCapAndRaisesIt(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	limits := ampleLimits()
	limits.MaxOutstandingJobs = 1
	s := newTestScheduler(clock, limits)
	s.AddTenant("t", TenantConfig{Priority: 0})

	s.outstandingJobs = 1 // at cap
	job := &Job{Tenant: "t", Class: JobImmediate, SubmittedAt: clock.now()}
	require.True(t, s.passesDispatchGating(job, s.tenants["t"]))

	readJob := &Job{Tenant: "t", Class: JobRead, SubmittedAt: clock.now()}
	require.False(t, s.passesDispatchGating(readJob, s.tenants["t"]))

	s.immediateCapBonus = 1 // as if an immediate job is in flight
	require.True(t, s.passesDispatchGating(readJob, s.tenants["t"]))
}

func TestStarvationGuardBlocksLowerPriorityRead(t *testing.T) {
	inFlight := list.New()
	inFlight.PushBack(&inFlightJob{tenant: "high", priority: 0, jobSeq: 1, byteSeq: 100})

	// 10 more reads have been dispatched since that high-priority job was
	// dispatched, exceeding maxOutstandingReadJobs of 5: a lower-priority
	// tenant's read must be held back.
	blocked := starvationBlocked(inFlight, 5 /* low priority */, 11, 200, 5, 1<<30)
	require.True(t, blocked)

	notBlocked := starvationBlocked(inFlight, 5, 3, 150, 5, 1<<30)
	require.False(t, notBlocked)
}

func TestBucketsRefillCappedThenUncapped(t *testing.T) {
	start := time.Unix(0, 0)
	b := newBuckets([]BucketConfig{{Rate: 1, Burst: 5}}, start)
	b.charge(5) // drain fully; lastUpdate stays at start

	// The queue was idle from lastUpdate (0s) until it went non-empty at
	// tE=8s: that 8s refills capped at burst=5. From tE to now=10s (2s) the
	// queue has been sitting non-empty and unable to dispatch, so that
	// trailing span refills without the cap -- tokens end up at 5+2=7,
	// above burst, so a large stalled request can eventually get through.
	tE := start.Add(8 * time.Second)
	b.refill(start.Add(10*time.Second), tE)
	require.InDelta(t, 7, b.tokens[0], 1e-9)
}

func TestBucketsWithinLimitsAndCharge(t *testing.T) {
	now := time.Unix(0, 0)
	b := newBuckets([]BucketConfig{{Rate: 1, Burst: 10}, {Rate: 1, Burst: 2}}, now)
	require.True(t, b.withinLimits(2))
	require.False(t, b.withinLimits(3)) // second bucket caps at 2

	b.charge(2)
	require.InDelta(t, 0, b.tokens[1], 1e-9)
	b.charge(5) // floors at 0, does not go negative
	require.InDelta(t, 0, b.tokens[1], 1e-9)
}

func TestGetOccupancyTracksNonEmptyFraction(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(clock, ampleLimits())
	s.AddTenant("t", TenantConfig{Priority: 0, Buckets: []BucketConfig{{Rate: 1e9, Burst: 1e9}}})

	require.NoError(t, s.Submit(&Job{Tenant: "t", Class: JobRead, RequestSize: 1, SubmittedAt: clock.now()}))
	clock.advance(2 * time.Second)

	occ, ok := s.GetOccupancy("t")
	require.True(t, ok)
	require.InDelta(t, 1.0, occ, 1e-9) // queue has been non-empty the whole window
}

func TestSchedulerDispatchesSubmittedJob(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	client := &fakeDownstream{}
	s := New(ampleLimits(), Estimators{}, []DownstreamClient{client}, clock.now)
	s.AddTenant("t", TenantConfig{Priority: 0, Buckets: []BucketConfig{{Rate: 1e9, Burst: 1e9}}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	job := &Job{Tenant: "t", Class: JobRead, RequestSize: 1, SubmittedAt: clock.now(), Done: make(chan error, 1)}
	require.NoError(t, s.Submit(job))

	select {
	case err := <-job.Done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never dispatched")
	}
	require.Equal(t, 1, client.forwardCalls)

	cancel()
	<-done
}
