package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/render"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/solver"
	"github.com/rklop/SURF-2025/internal/sqlparse"
	"github.com/rklop/SURF-2025/internal/symbolic"
	"github.com/rklop/SURF-2025/internal/witness"
)

// Verdict is the outcome of one equivalence check.
type Verdict string

const (
	// Equivalent: no distinguishing instance exists within the bound.
	Equivalent Verdict = "equivalent"
	// NotEquivalent: an engine-confirmed counterexample exists.
	NotEquivalent Verdict = "not_equivalent"
	// Unknown: the solver found a candidate the engine did not confirm.
	Unknown Verdict = "unknown"
)

// DefaultMaxBound is the row bound checked when the caller does not
// choose one. Small bounds find most real inequivalences.
const DefaultMaxBound = 2

// Result is one verification verdict with its evidence.
type Result struct {
	Verdict Verdict

	// Bound is the bound the verdict was established at: the bound of
	// the counterexample for NotEquivalent, the maximum bound checked
	// for Equivalent.
	Bound int

	// Counterexample is set for NotEquivalent verdicts.
	Counterexample *witness.Counterexample

	// Replay is the engine confirmation for the counterexample.
	Replay *witness.Outcome

	// Reason explains an Unknown verdict: what stopped the search or
	// why a candidate counterexample was not certified.
	Reason string

	// SolverSteps accumulates search effort across bounds.
	SolverSteps int64

	// Cached reports whether the verdict was served from the cache.
	Cached bool

	Elapsed time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxBound sets the largest instance size checked per table.
func WithMaxBound(k int) Option {
	return func(v *Verifier) { v.maxBound = k }
}

// WithMinBound sets the first instance size checked. Pairs known to
// need multi-row witnesses can skip the small bounds.
func WithMinBound(k int) Option {
	return func(v *Verifier) { v.minBound = k }
}

// WithBoundStep sets the escalation increment between solve attempts.
func WithBoundStep(step int) Option {
	return func(v *Verifier) { v.boundStep = step }
}

// WithSolver replaces the default enumerative solver.
func WithSolver(s solver.Solver) Option {
	return func(v *Verifier) { v.solver = s }
}

// WithCache installs a verdict cache. Without one every call solves
// from scratch.
func WithCache(c Cache) Option {
	return func(v *Verifier) { v.cache = c }
}

// WithTimeout bounds each Verify call.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.timeout = d }
}

// WithoutReplay skips the engine confirmation step. Solver claims are
// then reported as NotEquivalent unconfirmed; tests use this to exercise
// the encoding directly.
func WithoutReplay() Option {
	return func(v *Verifier) { v.replay = false }
}

// WithLogger routes progress logging.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.log = l }
}

// Verifier checks equivalence of query pairs over one schema.
type Verifier struct {
	schema    *schema.Schema
	solver    solver.Solver
	cache     Cache
	minBound  int
	maxBound  int
	boundStep int
	timeout   time.Duration
	replay    bool
	log       *slog.Logger
}

// New builds a Verifier for the schema.
func New(sch *schema.Schema, opts ...Option) *Verifier {
	v := &Verifier{
		schema:    sch,
		solver:    &solver.EnumSolver{},
		minBound:  1,
		maxBound:  DefaultMaxBound,
		boundStep: 1,
		replay:    true,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.minBound < 1 {
		v.minBound = 1
	}
	if v.boundStep < 1 {
		v.boundStep = 1
	}
	return v
}

// Verify decides whether the two queries agree on every instance with
// at most maxBound rows per table.
func (v *Verifier) Verify(ctx context.Context, leftSQL, rightSQL string) (*Result, error) {
	started := time.Now()

	key := schema.VerdictKey(leftSQL, rightSQL, v.schema.ID(), v.maxBound)
	if v.cache != nil {
		if r, ok := v.cache.Get(key); ok {
			cached := *r
			cached.Cached = true
			cached.Elapsed = time.Since(started)
			v.log.Debug("verdict served from cache", "verdict", cached.Verdict, "bound", cached.Bound)
			return &cached, nil
		}
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	left, right, err := v.plans(leftSQL, rightSQL)
	if err != nil {
		return nil, err
	}

	// All replay goes through rendered plan SQL. The engine cannot run
	// every accepted surface form directly (EXCEPT ALL, INTERSECT ALL),
	// and rendering from the bound plan sidesteps dialect gaps.
	leftExec, rightExec := render.Executable(left), render.Executable(right)

	var res *Result
	if len(left.Columns()) != len(right.Columns()) {
		// Different result widths disagree on every instance, including
		// the empty one.
		res, err = v.arityMismatch(ctx, leftExec, rightExec)
	} else {
		res, err = v.solve(ctx, left, right, leftExec, rightExec)
	}
	if err != nil {
		return nil, classify(err)
	}
	res.Elapsed = time.Since(started)

	// Unknown verdicts reflect this run's budgets and environment, so
	// they are never cached.
	if v.cache != nil && res.Verdict != Unknown {
		stored := v.cache.Put(key, res)
		if stored != res {
			// Another goroutine raced us to the key; its verdict stands.
			dup := *stored
			dup.Cached = true
			dup.Elapsed = res.Elapsed
			return &dup, nil
		}
	}
	return res, nil
}

// plans parses and binds both queries and checks result column types.
// An arity mismatch is not an error: the caller turns it into a
// NotEquivalent verdict with the empty instance as counterexample.
func (v *Verifier) plans(leftSQL, rightSQL string) (relalg.Plan, relalg.Plan, error) {
	left, err := v.plan(leftSQL)
	if err != nil {
		return nil, nil, classify(fmt.Errorf("left query: %w", err))
	}
	right, err := v.plan(rightSQL)
	if err != nil {
		return nil, nil, classify(fmt.Errorf("right query: %w", err))
	}

	lc, rc := left.Columns(), right.Columns()
	if len(lc) == len(rc) {
		for i := range lc {
			if lc[i].Type != rc[i].Type && !(lc[i].Type.Numeric() && rc[i].Type.Numeric()) {
				return nil, nil, classify(schema.TypeError(lc[i].Type, rc[i].Type,
					fmt.Sprintf("result column %d", i+1)))
			}
		}
	}
	return left, right, nil
}

// arityMismatch certifies the trivial inequivalence of queries with
// different result widths. The empty instance already distinguishes
// them, so no solving is needed; the engine still gets the last word
// when replay is enabled.
func (v *Verifier) arityMismatch(ctx context.Context, leftExec, rightExec string) (*Result, error) {
	res := &Result{
		Verdict:        NotEquivalent,
		Bound:          0,
		Counterexample: witness.Empty(v.schema),
	}
	if !v.replay {
		return res, nil
	}
	out, err := witness.Replay(ctx, res.Counterexample, leftExec, rightExec)
	if err != nil {
		v.log.Warn("replay failed", "err", err)
		res.Verdict = Unknown
		res.Reason = fmt.Sprintf("replay failed: %v", err)
		return res, nil
	}
	res.Replay = out
	if !out.Differs {
		v.log.Warn("counterexample not confirmed by engine", "bound", 0)
		res.Verdict = Unknown
		res.Reason = "counterexample not confirmed by engine"
	}
	return res, nil
}

func (v *Verifier) plan(sql string) (relalg.Plan, error) {
	stmt, err := sqlparse.Parse(sql)
	if err != nil {
		return nil, err
	}
	return relalg.Build(stmt, v.schema)
}

// solve runs the bound-escalation loop.
func (v *Verifier) solve(ctx context.Context, left, right relalg.Plan, leftExec, rightExec string) (*Result, error) {
	consts := solver.HarvestConstants(left, right)
	res := &Result{Verdict: Equivalent}

	for k := v.minBound; k <= v.maxBound; k += v.boundStep {
		in := symbolic.NewInstance(v.schema, k)

		lrel, err := symbolic.Translate(left, in)
		if err != nil {
			return nil, err
		}
		rrel, err := symbolic.Translate(right, in)
		if err != nil {
			return nil, err
		}
		diff, err := symbolic.Diff(lrel, rrel)
		if err != nil {
			return nil, err
		}

		problem := &solver.Problem{
			Instance: in,
			Domains:  solver.BuildDomains(v.schema, k, consts),
			Formula:  symbolic.And(in.Constraints(), diff),
		}

		sres, err := v.solver.Solve(ctx, problem)
		if err != nil {
			if solver.IsTimeout(err) || solver.IsResource(err) {
				// An exhausted budget is an Unknown verdict, not a
				// failure: the bounds actually checked still stand.
				v.log.Warn("search budget exhausted", "bound", k, "err", err)
				res.Verdict = Unknown
				res.Bound = k
				res.Reason = classify(err).Error()
				return res, nil
			}
			return nil, err
		}
		res.SolverSteps += sres.Steps
		res.Bound = k

		v.log.Debug("bound checked",
			"bound", k,
			"satisfiable", sres.Satisfiable,
			"steps", sres.Steps)

		if !sres.Satisfiable {
			continue
		}

		ce := witness.FromModel(v.schema, sres.Model.Rows)
		res.Counterexample = ce
		if !v.replay {
			res.Verdict = NotEquivalent
			return res, nil
		}

		out, err := witness.Replay(ctx, ce, leftExec, rightExec)
		if err != nil {
			// A replay failure must not flip the verdict either way.
			v.log.Warn("replay failed", "bound", k, "err", err)
			res.Verdict = Unknown
			res.Reason = fmt.Sprintf("replay failed: %v", err)
			return res, nil
		}
		res.Replay = out
		if out.Differs {
			res.Verdict = NotEquivalent
			return res, nil
		}

		// The solver's claim did not survive the engine: the encoding
		// and the engine disagree on this instance. Refusing to certify
		// either way keeps NotEquivalent sound.
		v.log.Warn("counterexample not confirmed by engine", "bound", k)
		res.Verdict = Unknown
		res.Reason = "counterexample not confirmed by engine"
		return res, nil
	}
	return res, nil
}
