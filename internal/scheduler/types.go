// Package scheduler implements the Storage Scheduler (SS): a per-tenant
// FIFO of jobs arbitrated by priority and rate limits, dispatched to a pool
// of downstream RPC client handles -- grounded on spec.md §4.7 and
// cockroachdb-cockroach's worker-pool-over-a-shared-lock pattern in
// pkg/util/admission (granter.go's "try to grant, else queue" shape), with
// the multi-rate token-bucket refill ported from pkg/util/quotapool's
// TokenBucket (itself the in-tree twin of github.com/cockroachdb/tokenbucket,
// which this package does not import: rates, bursts and tokens are float64).
package scheduler

import (
	"context"
	"time"

	"github.com/timmyzhu/WorkloadCompactor/internal/estimator"
)

// JobClass distinguishes how a job is accounted and arbitrated.
type JobClass int

const (
	JobRead JobClass = iota
	JobWrite
	JobImmediate
)

func (c JobClass) String() string {
	switch c {
	case JobRead:
		return "read"
	case JobWrite:
		return "write"
	case JobImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// Job is one request intercepted by the storage shim and submitted to the
// scheduler for arbitration and dispatch.
type Job struct {
	ID          string
	Tenant      string
	Class       JobClass
	RequestSize int64
	SubmittedAt time.Time

	// work is the estimator-derived charge against the tenant's token
	// buckets, computed once when the job is enqueued.
	work float64

	// Done receives the downstream call's result exactly once.
	Done chan error
}

func (j *Job) isRead() bool { return j.Class == JobRead }

// DownstreamClient forwards one job to the storage service and returns its
// result; Pool hands workers one of these per dispatch.
type DownstreamClient interface {
	Forward(ctx context.Context, job *Job) error
	KeepAlive(ctx context.Context) error
}

// BucketConfig is one (rate, burst) token-bucket limit.
type BucketConfig struct {
	Rate  float64 // work units per second
	Burst float64 // work units
}

// TenantConfig is the static configuration of one tenant.
type TenantConfig struct {
	Priority int // smaller is higher priority
	Buckets  []BucketConfig
}

// Limits bounds global outstanding work, shared across all tenants.
type Limits struct {
	MaxOutstandingJobs int

	MaxOutstandingReadJobs  int
	MaxOutstandingReadBytes int64

	MaxOutstandingWriteJobs  int
	MaxOutstandingWriteBytes int64
}

// Estimators supplies the work estimator for each job class; Immediate jobs
// carry no charge against token buckets, per spec.md §4.7.
type Estimators struct {
	Read  estimator.WorkEstimator
	Write estimator.WorkEstimator
}

func (e Estimators) estimate(class JobClass, size int64) float64 {
	switch class {
	case JobRead:
		if e.Read == nil {
			return 0
		}
		return e.Read.EstimateWork(size, true)
	case JobWrite:
		if e.Write == nil {
			return 0
		}
		return e.Write.EstimateWork(size, false)
	default:
		return 0
	}
}
