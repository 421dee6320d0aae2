package lpsolver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve runs a two-phase primal simplex over a dense tableau built from p's
// variables (shifted to be lower-bound-zero, with an upper-bound row added
// when finite) and constraints (slack/surplus/artificial columns added per
// row). Phase 1 minimizes the sum of artificial variables to find a basic
// feasible solution, or reports ErrInfeasible if that minimum is not zero.
// Phase 2 then optimizes the real objective from that basis. Bland's rule
// (lowest-index eligible column/row) is used throughout to guarantee
// termination; this trades a little speed for never cycling, appropriate
// for the small dense LPs one compactor group produces (few flows per
// connected component).
func (p *Problem) Solve() error {
	shift := make([]float64, len(p.vars))
	for i, v := range p.vars {
		if !math.IsInf(v.lb, -1) {
			shift[i] = v.lb
		}
	}

	type row struct {
		coeffs []float64 // over shifted y variables
		rhs    float64
		typ    ConstraintType
	}
	var rows []row
	for _, c := range p.constraints {
		coeffs := make([]float64, len(p.vars))
		rhs := c.rhs
		for _, t := range c.terms {
			coeffs[t.Var] += t.Coeff
			rhs -= t.Coeff * shift[t.Var]
		}
		rows = append(rows, row{coeffs: coeffs, rhs: rhs, typ: c.typ})
	}
	for i, v := range p.vars {
		if math.IsInf(v.ub, 1) {
			continue
		}
		coeffs := make([]float64, len(p.vars))
		coeffs[i] = 1
		rows = append(rows, row{coeffs: coeffs, rhs: v.ub - shift[i], typ: LE})
	}

	// Normalize so every rhs is non-negative, flipping the relation when a
	// row is negated.
	for i := range rows {
		if rows[i].rhs < 0 {
			for j := range rows[i].coeffs {
				rows[i].coeffs[j] = -rows[i].coeffs[j]
			}
			rows[i].rhs = -rows[i].rhs
			switch rows[i].typ {
			case LE:
				rows[i].typ = GE
			case GE:
				rows[i].typ = LE
			}
		}
	}

	n := len(p.vars)
	numRows := len(rows)
	numSlack := 0
	numArtificial := 0
	slackCol := make([]int, numRows) // -1 if none
	artCol := make([]int, numRows)   // -1 if none
	slackSign := make([]float64, numRows)
	for i, r := range rows {
		slackCol[i] = -1
		artCol[i] = -1
		switch r.typ {
		case LE:
			slackCol[i] = n + numSlack
			slackSign[i] = 1
			numSlack++
		case GE:
			slackCol[i] = n + numSlack
			slackSign[i] = -1
			numSlack++
			artCol[i] = -2 // placeholder, assigned below
			numArtificial++
		case EQ:
			artCol[i] = -2
			numArtificial++
		}
	}
	totalCols := n + numSlack + numArtificial
	artBase := n + numSlack
	artIdx := 0
	for i := range rows {
		if artCol[i] == -2 {
			artCol[i] = artBase + artIdx
			artIdx++
		}
	}

	// Build the phase-1 tableau: numRows constraint rows + 1 objective row.
	tab := mat.NewDense(numRows+1, totalCols+1, nil)
	basis := make([]int, numRows)
	for i, r := range rows {
		for j, c := range r.coeffs {
			tab.Set(i, j, c)
		}
		if slackCol[i] >= 0 {
			tab.Set(i, slackCol[i], slackSign[i])
		}
		if artCol[i] >= 0 {
			tab.Set(i, artCol[i], 1)
			basis[i] = artCol[i]
		} else {
			basis[i] = slackCol[i]
		}
		tab.Set(i, totalCols, r.rhs)
	}

	// Phase-1 objective: minimize sum of artificial variables, i.e. maximize
	// w = -sum(artificials). The tableau's objective row stores -cost_j per
	// column (runSimplex enters on negative entries), so a raw artificial
	// coefficient of -cost = -(-1) = 1 is seeded directly, then reduced
	// against the initial basis exactly like the phase-2 row below.
	if numArtificial > 0 {
		for j := artBase; j < totalCols; j++ {
			tab.Set(numRows, j, 1)
		}
		for i := 0; i < numRows; i++ {
			c := tab.At(numRows, basis[i])
			if c == 0 {
				continue
			}
			for j := 0; j <= totalCols; j++ {
				tab.Set(numRows, j, tab.At(numRows, j)-c*tab.At(i, j))
			}
		}

		runSimplex(tab, basis, numRows, totalCols)
		if tab.At(numRows, totalCols) < -1e-7 {
			return ErrInfeasible
		}
		// Drive any remaining artificial variables out of the basis (they
		// can stay basic at value 0 in a degenerate feasible solution).
		for i := 0; i < numRows; i++ {
			if basis[i] < artBase {
				continue
			}
			for j := 0; j < artBase; j++ {
				if math.Abs(tab.At(i, j)) > 1e-9 {
					pivot(tab, i, j, numRows, totalCols)
					basis[i] = j
					break
				}
			}
		}
	}

	// Phase 2: real objective over the original (shifted) variables. Same
	// -cost_j row convention as phase 1.
	obj := make([]float64, totalCols)
	for v, coeff := range p.objective {
		obj[int(v)] = coeff
	}
	sign := 1.0
	if p.objType == Minimize {
		sign = -1.0
	}
	for j := 0; j <= totalCols; j++ {
		tab.Set(numRows, j, 0)
	}
	for j := 0; j < n; j++ {
		tab.Set(numRows, j, -sign*obj[j])
	}
	// Zero out artificial columns in every row so they're never reconsidered
	// in phase 2: pivots then leave them at zero.
	for i := 0; i <= numRows; i++ {
		for j := artBase; j < totalCols; j++ {
			tab.Set(i, j, 0)
		}
	}
	// Reduce the objective row against the current basis.
	for i := 0; i < numRows; i++ {
		c := tab.At(numRows, basis[i])
		if c == 0 {
			continue
		}
		for j := 0; j <= totalCols; j++ {
			tab.Set(numRows, j, tab.At(numRows, j)-c*tab.At(i, j))
		}
	}

	if !runSimplex(tab, basis, numRows, totalCols) {
		return ErrUnbounded
	}

	values := make([]float64, n)
	for i := 0; i < numRows; i++ {
		if basis[i] < n {
			values[basis[i]] = tab.At(i, totalCols)
		}
	}
	for i := range p.vars {
		values[i] += shift[i]
	}

	objValue := 0.0
	for v, coeff := range p.objective {
		objValue += coeff * values[v]
	}

	p.values = values
	p.objValue = objValue
	p.solved = true
	return nil
}

// runSimplex drives the tableau's last row to optimality using Bland's rule
// (lowest-index entering column, lowest-index-basis tie-break on the
// minimum-ratio leaving row), mutating tab and basis in place. It returns
// false if an entering column has no bounded ratio (unbounded problem).
func runSimplex(tab *mat.Dense, basis []int, numRows, totalCols int) bool {
	for iter := 0; iter < 10000; iter++ {
		enter := -1
		for j := 0; j < totalCols; j++ {
			if tab.At(numRows, j) < -1e-9 {
				enter = j
				break
			}
		}
		if enter == -1 {
			return true
		}

		leave := -1
		best := math.Inf(1)
		for i := 0; i < numRows; i++ {
			a := tab.At(i, enter)
			if a <= 1e-9 {
				continue
			}
			ratio := tab.At(i, totalCols) / a
			if ratio < best-1e-12 || (ratio < best+1e-12 && (leave == -1 || basis[i] < basis[leave])) {
				best = ratio
				leave = i
			}
		}
		if leave == -1 {
			return false
		}
		pivot(tab, leave, enter, numRows, totalCols)
		basis[leave] = enter
	}
	return true
}

func pivot(tab *mat.Dense, row, col, numRows, totalCols int) {
	p := tab.At(row, col)
	for j := 0; j <= totalCols; j++ {
		tab.Set(row, j, tab.At(row, j)/p)
	}
	for i := 0; i <= numRows; i++ {
		if i == row {
			continue
		}
		f := tab.At(i, col)
		if f == 0 {
			continue
		}
		for j := 0; j <= totalCols; j++ {
			tab.Set(i, j, tab.At(i, j)-f*tab.At(row, j))
		}
	}
}
