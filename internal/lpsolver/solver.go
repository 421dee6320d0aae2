// Package lpsolver defines a small abstract linear-program contract --
// continuous variables with bounds, sparse linear constraints, a min/max
// objective, RHS mutation, and solve -- ported from
// original_source/src/DNC-Library/Solver.hpp's Solver/ConstraintExpression
// pair. No example repo or the rest of the pack carries a Go LP/GLPK
// binding, so the concrete Simplex implementation in simplex.go is
// hand-rolled on gonum.org/v1/gonum/mat (adopted from katalyst-core's
// go.mod) rather than grounded on a teacher file.
package lpsolver

import "github.com/cockroachdb/errors"

// VariableHandle identifies a decision variable within a Problem.
type VariableHandle int

// ConstraintHandle identifies a constraint within a Problem, used later to
// mutate its right-hand side with ChangeRHS without rebuilding the whole LP.
// The compactor does not use it: it builds a fresh Problem per group.
type ConstraintHandle int

// ConstraintType is the relational operator of a linear constraint.
type ConstraintType int

const (
	LE ConstraintType = iota
	EQ
	GE
)

// ObjectiveType selects whether Solve minimizes or maximizes.
type ObjectiveType int

const (
	Minimize ObjectiveType = iota
	Maximize
)

// ErrInfeasible is returned by Solve when no feasible point exists.
var ErrInfeasible = errors.New("lpsolver: problem is infeasible")

// ErrUnbounded is returned by Solve when the objective is unbounded over the
// feasible region.
var ErrUnbounded = errors.New("lpsolver: problem is unbounded")

// Term is one (coefficient, variable) pair of a sparse linear expression.
type Term struct {
	Coeff float64
	Var   VariableHandle
}

type variable struct {
	lb, ub float64
	name   string
}

type constraint struct {
	terms []Term
	typ   ConstraintType
	rhs   float64
	name  string
}

// Problem is a mutable linear program: add variables and constraints, set an
// objective, then Solve. Solve may be called again after ChangeRHS to
// re-optimize without re-declaring the model, mirroring Solver.hpp's
// changeRHS-then-resolve contract. The compactor rebuilds its LP on every
// reoptimization instead of calling ChangeRHS.
type Problem struct {
	vars        []variable
	constraints []constraint
	objective   map[VariableHandle]float64
	objType     ObjectiveType

	solved   bool
	objValue float64
	values   []float64
}

// NewProblem returns an empty LP.
func NewProblem() *Problem {
	return &Problem{objective: make(map[VariableHandle]float64)}
}

// AddVariable declares a continuous variable bounded by [lb, ub].
func (p *Problem) AddVariable(lb, ub float64, name string) VariableHandle {
	p.vars = append(p.vars, variable{lb: lb, ub: ub, name: name})
	p.solved = false
	return VariableHandle(len(p.vars) - 1)
}

// AddConstraint adds sum(terms) <rel> rhs and returns a handle that can later
// be passed to ChangeRHS.
func (p *Problem) AddConstraint(terms []Term, typ ConstraintType, rhs float64, name string) ConstraintHandle {
	cp := make([]Term, len(terms))
	copy(cp, terms)
	p.constraints = append(p.constraints, constraint{terms: cp, typ: typ, rhs: rhs, name: name})
	p.solved = false
	return ConstraintHandle(len(p.constraints) - 1)
}

// SetObjectiveDirection sets whether Solve minimizes or maximizes.
func (p *Problem) SetObjectiveDirection(typ ObjectiveType) {
	p.objType = typ
	p.solved = false
}

// SetObjectiveCoeff sets the objective's coefficient for a variable (0 if
// the variable does not appear in the objective).
func (p *Problem) SetObjectiveCoeff(v VariableHandle, coeff float64) {
	p.objective[v] = coeff
	p.solved = false
}

// ChangeRHS mutates a constraint's right-hand side in place, invalidating
// any prior solution.
func (p *Problem) ChangeRHS(c ConstraintHandle, rhs float64) {
	p.constraints[c].rhs = rhs
	p.solved = false
}

// NumVariables returns the number of declared variables.
func (p *Problem) NumVariables() int { return len(p.vars) }

// Solution returns the solved objective value and must only be called after
// a successful Solve.
func (p *Problem) Solution() float64 { return p.objValue }

// SolutionVariable returns the solved value of v and must only be called
// after a successful Solve.
func (p *Problem) SolutionVariable(v VariableHandle) float64 { return p.values[v] }
