package topology

import "github.com/timmyzhu/WorkloadCompactor/internal/curves"

// FlowSpec is the validated, name-resolved request to create a flow,
// produced by the admission service from the external JSON flow descriptor
// (spec.md §6) before it is handed to AddClient.
type FlowSpec struct {
	Name          string
	QueueNames    []string
	Arrival       curves.SimpleArrival // normalized (r, b) offered-load bound
	ArrivalCurve  *curves.Curve        // full piecewise curve, optional
	Priority      int
	IgnoreLatency bool

	EnforcerType string // "network" | "storage"
	EnforcerAddr string
	DstAddr      string
	SrcAddr      string
	ClientAddr   string
	RateLimiters []curves.SimpleArrival
}

// Flow is the canonical flow record. Capability-typed extension data (shaper
// curve, piecewise arrival curve, analyser scratch) is embedded directly
// rather than modeled via sub-typing, per DESIGN.md's "tagged variants"
// redesign note.
type Flow struct {
	ID       ID
	Name     string
	ClientID ID
	Path     []ID // queue ids, in hop order

	Priority      int
	Arrival       curves.SimpleArrival
	ArrivalCurve  *curves.Curve
	IgnoreLatency bool

	Shaper  curves.SimpleArrival // (r, b), written back by the compactor
	Latency float64              // written back by the analysis engine

	EnforcerType string
	EnforcerAddr string
	DstAddr      string
	SrcAddr      string
	ClientAddr   string
	RateLimiters []curves.SimpleArrival
}

// FirstHop returns the id of the flow's first queue.
func (f *Flow) FirstHop() ID {
	return f.Path[0]
}
