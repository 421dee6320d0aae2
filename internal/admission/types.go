// Package admission implements the Admission Service (AS): it validates
// client/flow/queue descriptors, runs the compactor and analysis engine,
// checks every affected client's SLO, and commits or rolls back --
// grounded on pkg/util/admission/granter.go's single-threaded admit/reject
// shape and io_grant_coordinator.go's "try, then undo on failure" pattern.
package admission

import "github.com/timmyzhu/WorkloadCompactor/internal/curves"

// Status is the AS RPC surface's result code (spec.md §6).
type Status string

const (
	StatusOK                  Status = "OK"
	StatusMissingArgument     Status = "MISSING_ARGUMENT"
	StatusInvalidArgument     Status = "INVALID_ARGUMENT"
	StatusNameInUse           Status = "NAME_IN_USE"
	StatusNameNonexistent     Status = "NAME_NONEXISTENT"
	StatusQueueHasActiveFlows Status = "QUEUE_HAS_ACTIVE_FLOWS"
)

// EntityKind distinguishes which kind of name a NAME_IN_USE /
// NAME_NONEXISTENT status pertains to.
type EntityKind string

const (
	EntityFlow   EntityKind = "flow"
	EntityClient EntityKind = "client"
	EntityQueue  EntityKind = "queue"
)

// ArrivalPoint is one (x, y, slope) vertex of a flow's declared arrival
// curve, the wire form of curves.Segment.
type ArrivalPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Slope float64 `json:"slope"`
}

// RateLimiter is one additional, independently enforced (rate, burst)
// token-bucket limit a flow carries alongside its compactor-assigned shaper.
type RateLimiter struct {
	Rate  float64 `json:"rate"`
	Burst float64 `json:"burst"`
}

// FlowDescriptor is the external JSON flow record (spec.md §6).
type FlowDescriptor struct {
	Name          string         `json:"name"`
	Queues        []string       `json:"queues"`
	ArrivalInfo   []ArrivalPoint `json:"arrivalInfo"`
	Priority      *int           `json:"priority,omitempty"`
	IgnoreLatency bool           `json:"ignoreLatency,omitempty"`
	EnforcerType  string         `json:"enforcerType,omitempty"`
	EnforcerAddr  string         `json:"enforcerAddr,omitempty"`
	DstAddr       string         `json:"dstAddr,omitempty"`
	SrcAddr       string         `json:"srcAddr,omitempty"`
	ClientAddr    string         `json:"clientAddr,omitempty"`
	RateLimiters  []RateLimiter  `json:"rateLimiters,omitempty"`
	Latency       *float64       `json:"latency,omitempty"`
}

// ClientDescriptor is the external JSON client record (spec.md §6).
// Admitted marks a client the caller has already committed in a prior call
// within the same placement attempt (the Placement Coordinator re-submits
// the winning candidate to every replica); such clients are skipped by the
// fastFirstFit pre-check since their shaper curves are about to move under
// re-optimization anyway.
type ClientDescriptor struct {
	Name          string           `json:"name"`
	SLO           float64          `json:"SLO"`
	SLOPercentile float64          `json:"SLOpercentile,omitempty"`
	Flows         []FlowDescriptor `json:"flows"`
	Admitted      bool             `json:"admitted,omitempty"`
}

// QueueDescriptor is the external JSON queue record (spec.md §6).
type QueueDescriptor struct {
	Name      string  `json:"name"`
	Bandwidth float64 `json:"bandwidth"`
}

// arrivalRate returns the sustained (asymptotic) offered-load rate a
// descriptor's arrival curve implies, used by the fastFirstFit pre-check.
func arrivalRate(fd FlowDescriptor) float64 {
	if len(fd.ArrivalInfo) == 0 {
		return 0
	}
	return fd.ArrivalInfo[len(fd.ArrivalInfo)-1].Slope
}

func toArrivalCurve(fd FlowDescriptor) (*curves.Curve, error) {
	if len(fd.ArrivalInfo) == 0 {
		return nil, nil
	}
	rest := make([]curves.Segment, len(fd.ArrivalInfo))
	for i, p := range fd.ArrivalInfo {
		rest[i] = curves.Segment{X: p.X, Y: p.Y, Slope: p.Slope}
	}
	b := rest[0].Y
	return curves.NewCurve(b, rest)
}

func toRateLimiters(rls []RateLimiter) []curves.SimpleArrival {
	if len(rls) == 0 {
		return nil
	}
	out := make([]curves.SimpleArrival, len(rls))
	for i, rl := range rls {
		out[i] = curves.SimpleArrival{R: rl.Rate, B: rl.Burst}
	}
	return out
}
