package solver

import (
	"context"
	"time"

	"github.com/rklop/SURF-2025/internal/symbolic"
)

// Problem is one satisfiability query: find an assignment of the
// instance variables, drawn from the domains, that makes Formula true.
// The formula should already conjoin the instance's integrity
// constraints with the difference formula.
type Problem struct {
	Instance *symbolic.Instance
	Domains  *Domains
	Formula  symbolic.Formula
}

// Result is a solver verdict. Model is set only when Satisfiable.
type Result struct {
	Satisfiable bool
	Model       *Model
	Steps       int64
}

// Solver decides Problem satisfiability.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Result, error)
}

// DefaultMaxSteps bounds the search when the caller does not.
const DefaultMaxSteps = 2_000_000

// ctxCheckInterval is how many steps pass between deadline checks.
const ctxCheckInterval = 1024

// EnumSolver is a backtracking enumerator over the finite domains with
// partial-evaluation pruning.
type EnumSolver struct {
	// MaxSteps caps decision steps; zero means DefaultMaxSteps.
	MaxSteps int64
}

// Solve implements Solver.
func (s *EnumSolver) Solve(ctx context.Context, p *Problem) (*Result, error) {
	budget := s.MaxSteps
	if budget <= 0 {
		budget = DefaultMaxSteps
	}
	run := &search{
		problem: p,
		model:   NewModel(p.Instance),
		budget:  budget,
		ctx:     ctx,
		started: time.Now(),
		vars:    orderVars(p.Instance),
	}
	sat, err := run.assign(0)
	if err != nil {
		return nil, err
	}
	res := &Result{Satisfiable: sat, Steps: run.steps}
	if sat {
		run.fillDefaults()
		res.Model = run.model.Clone()
	}
	return res, nil
}

// varRef addresses one decision variable. col < 0 means the row's
// presence variable.
type varRef struct {
	table, row, col int
}

// orderVars yields the decision order: per table, per row, presence
// first and then that row's cells. Grouping a row's variables keeps
// pruning effective, since most presence-guarded subformulas become
// decidable as soon as the row is complete.
func orderVars(in *symbolic.Instance) []varRef {
	var vars []varRef
	for t, tbl := range in.Schema.Tables() {
		for r := 0; r < in.K; r++ {
			vars = append(vars, varRef{table: t, row: r, col: -1})
			for c := range tbl.Columns {
				vars = append(vars, varRef{table: t, row: r, col: c})
			}
		}
	}
	return vars
}

type search struct {
	problem *Problem
	model   *Model
	budget  int64
	steps   int64
	ctx     context.Context
	started time.Time
	vars    []varRef
}

func (s *search) step() error {
	s.steps++
	if s.steps > s.budget {
		return &ResourceError{Steps: s.steps}
	}
	if s.steps%ctxCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			return &TimeoutError{Elapsed: time.Since(s.started), Cause: err}
		}
	}
	return nil
}

// assign explores decisions from position i of the variable order.
// Returns whether a satisfying assignment was found.
func (s *search) assign(i int) (bool, error) {
	tv, known := symbolic.Eval(s.problem.Formula, s.model)
	if known {
		return tv == symbolic.TVTrue, nil
	}
	if i >= len(s.vars) {
		// Fully assigned yet undetermined cannot happen: every variable
		// is bound.
		return false, nil
	}

	v := s.vars[i]
	if v.col < 0 {
		return s.assignPresence(i, v)
	}

	// Cells of absent rows carry no information; bind the first domain
	// candidate without branching so evaluation stays total.
	if present, ok := s.model.PresenceVal(v.table, v.row); ok && !present {
		s.model.setCell(v.table, v.row, v.col, s.problem.Domains.Domain(v.table, v.col)[0])
		ok, err := s.assign(i + 1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		s.model.unsetCell(v.table, v.row, v.col)
		return false, nil
	}

	for _, cand := range s.problem.Domains.Domain(v.table, v.col) {
		if err := s.step(); err != nil {
			return false, err
		}
		s.model.setCell(v.table, v.row, v.col, cand)
		ok, err := s.assign(i + 1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	s.model.unsetCell(v.table, v.row, v.col)
	return false, nil
}

func (s *search) assignPresence(i int, v varRef) (bool, error) {
	// Present rows form a prefix: once a row is absent, later rows of
	// the same table stay absent.
	prevAbsent := false
	if v.row > 0 {
		if p, ok := s.model.PresenceVal(v.table, v.row-1); ok && !p {
			prevAbsent = true
		}
	}

	candidates := []bool{true, false}
	if prevAbsent {
		candidates = []bool{false}
	}
	for _, present := range candidates {
		if err := s.step(); err != nil {
			return false, err
		}
		s.model.setPresence(v.table, v.row, present)
		ok, err := s.assign(i + 1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	s.model.unsetPresence(v.table, v.row)
	return false, nil
}

// fillDefaults binds any variables the early-exit left unbound so the
// returned model is total.
func (s *search) fillDefaults() {
	for _, v := range s.vars {
		if v.col < 0 {
			if _, ok := s.model.PresenceVal(v.table, v.row); !ok {
				s.model.setPresence(v.table, v.row, false)
			}
			continue
		}
		if _, ok := s.model.CellVal(v.table, v.row, v.col); !ok {
			s.model.setCell(v.table, v.row, v.col, s.problem.Domains.Domain(v.table, v.col)[0])
		}
	}
}
