package compactor

import (
	"math"
	"sort"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
	"github.com/timmyzhu/WorkloadCompactor/internal/lpsolver"
	"github.com/timmyzhu/WorkloadCompactor/internal/topology"
)

// sloSafetyMargin is the 0.999 numerical-stability fudge factor (spec.md
// §9 open question (b)); see also admission.fastFirstFitMargin.
const sloSafetyMargin = 0.999

const rateCapMargin = sloSafetyMargin

// flowVars is one flow's LP variables and the bookkeeping needed to write a
// solution back.
type flowVars struct {
	flow     *topology.Flow
	priority int // dense rank of flow.client.SLO*0.999, ascending; 0 is tightest
	sloTier  float64
	r, b     lpsolver.VariableHandle
}

// optimizeGroup builds and solves one group's LP, then writes the solved (or
// zeroed, on infeasibility) shaper curve and the SLO-rank priority back onto
// every flow in the group -- ported from
// WorkloadCompactor::calcShaperParameters's per-clientGroup body. Unlike the
// original (where a client's SLO spans one single-hop flow per pipeline
// stage), a flow here may itself span several hops, so constraints are
// expressed per queue directly rather than per (SLO tier, path, hop-index)
// triple; see DESIGN.md.
func (c *Compactor) optimizeGroup(g group) error {
	var flows []*flowVars
	for _, clientID := range g.clientIDs {
		cl, ok := c.top.Client(clientID)
		if !ok {
			continue
		}
		sloTier := cl.SLO * sloSafetyMargin
		flowIDs := make([]topology.ID, 0, len(cl.FlowIDs))
		for fid := range cl.FlowIDs {
			flowIDs = append(flowIDs, fid)
		}
		sort.Slice(flowIDs, func(i, j int) bool { return flowIDs[i] < flowIDs[j] })
		for _, fid := range flowIDs {
			f, ok := c.top.Flow(fid)
			if !ok {
				continue
			}
			flows = append(flows, &flowVars{flow: f, sloTier: sloTier})
		}
	}
	if len(flows) == 0 {
		return nil
	}

	// Dense SLO-tier ranking: smaller SLO*0.999 value -> smaller index ->
	// higher priority, matching the "smaller number wins" convention.
	tierSet := make(map[float64]struct{})
	for _, fv := range flows {
		tierSet[fv.sloTier] = struct{}{}
	}
	tiers := make([]float64, 0, len(tierSet))
	for t := range tierSet {
		tiers = append(tiers, t)
	}
	sort.Float64s(tiers)
	tierRank := make(map[float64]int, len(tiers))
	for i, t := range tiers {
		tierRank[t] = i
	}
	for _, fv := range flows {
		fv.priority = tierRank[fv.sloTier]
	}

	p := lpsolver.NewProblem()
	p.SetObjectiveDirection(lpsolver.Minimize)

	queueBandwidth := make(map[topology.ID]float64)
	queueFlows := make(map[topology.ID][]*flowVars)
	for _, fv := range flows {
		minBW := math.Inf(1)
		for _, qid := range fv.flow.Path {
			q, ok := c.top.Queue(qid)
			if !ok {
				continue
			}
			queueBandwidth[qid] = q.Bandwidth
			queueFlows[qid] = append(queueFlows[qid], fv)
			if q.Bandwidth < minBW {
				minBW = q.Bandwidth
			}
		}
		if math.IsInf(minBW, 1) {
			minBW = 0
		}

		fv.r = p.AddVariable(0, rateCapMargin*minBW, "r_"+fv.flow.Name)
		fv.b = p.AddVariable(0, fv.sloTier*minBW, "b_"+fv.flow.Name)
		p.SetObjectiveCoeff(fv.r, 1)

		arrival := fv.flow.ArrivalCurve
		if arrival == nil {
			arrival = fv.flow.Arrival.ToCurve()
		}
		addDominanceConstraints(p, fv.r, fv.b, arrival)
	}

	// Per-queue rate cap: the sum of reserved rates for flows crossing a
	// queue cannot exceed (a safety margin under) its bandwidth.
	for qid, qfs := range queueFlows {
		terms := make([]lpsolver.Term, len(qfs))
		for i, fv := range qfs {
			terms[i] = lpsolver.Term{Coeff: 1, Var: fv.r}
		}
		p.AddConstraint(terms, lpsolver.LE, rateCapMargin*queueBandwidth[qid], "rate-cap")
	}

	// Per-queue, per-priority-tier burst budget: flows at or tighter than
	// tier i contribute their full burst (amortized over tier i's SLO
	// window); flows strictly looser than tier i contribute their
	// reserved rate, since within tier i's SLO window a looser flow can
	// only have added backlog at its own reserved rate.
	for qid, qfs := range queueFlows {
		for i := range tiers {
			var terms []lpsolver.Term
			for _, fv := range qfs {
				switch {
				case fv.priority <= i:
					terms = append(terms, lpsolver.Term{Coeff: 1.0 / tiers[i], Var: fv.b})
				default:
					terms = append(terms, lpsolver.Term{Coeff: 1, Var: fv.r})
				}
			}
			if len(terms) == 0 {
				continue
			}
			p.AddConstraint(terms, lpsolver.LE, queueBandwidth[qid], "burst-budget")
		}
	}

	err := p.Solve()
	switch err {
	case nil:
		for _, fv := range flows {
			fv.flow.Shaper = curves.SimpleArrival{R: p.SolutionVariable(fv.r), B: p.SolutionVariable(fv.b)}
			fv.flow.Priority = fv.priority
		}
		return nil
	case lpsolver.ErrInfeasible:
		for _, fv := range flows {
			fv.flow.Shaper = curves.SimpleArrival{R: 0, B: 0}
			fv.flow.Priority = fv.priority
		}
		return nil
	default:
		return err
	}
}

// addDominanceConstraints adds, for each pair of consecutive finite segments
// of arrival (a chord of its piecewise-linear graph), a half-plane
// constraint forcing the (r, b) shaper line to lie on or above that chord --
// ported from WorkloadCompactor's PointSlope-walk that builds the shaper
// curve's arrival-curve-dominance constraints. The shaper must also clear
// the curve's first burst and dominate its final (flattest) slope.
func addDominanceConstraints(p *lpsolver.Problem, r, b lpsolver.VariableHandle, arrival *curves.Curve) {
	segs := arrival.FiniteSegments()
	if len(segs) == 0 {
		return
	}
	yIntercept := func(s curves.Segment) float64 { return s.Y - s.Slope*s.X }

	first := segs[0]
	p.AddConstraint([]lpsolver.Term{{Coeff: 1, Var: b}}, lpsolver.GE, yIntercept(first), "dominance-burst")

	last := segs[len(segs)-1]
	p.AddConstraint([]lpsolver.Term{{Coeff: 1, Var: r}}, lpsolver.GE, last.Slope, "dominance-rate")

	for i := 0; i+1 < len(segs); i++ {
		r1, b1 := segs[i].Slope, yIntercept(segs[i])
		r2, b2 := segs[i+1].Slope, yIntercept(segs[i+1])
		if math.IsInf(r1, 1) || math.IsInf(r2, 1) {
			continue
		}
		terms := []lpsolver.Term{
			{Coeff: b2 - b1, Var: r},
			{Coeff: r1 - r2, Var: b},
		}
		p.AddConstraint(terms, lpsolver.GE, r1*b2-r2*b1, "dominance-chord")
	}
}
