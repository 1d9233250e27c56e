package symbolic

import (
	"fmt"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// Slot is one potential output row of a translated plan: a presence
// formula over the instance variables and one value term per column.
type Slot struct {
	Present Formula
	Values  []Term
}

// Relation is a translated plan: a fixed list of slots whose presence
// and values range over the instance variables.
type Relation struct {
	Cols  []relalg.ColInfo
	Slots []Slot
}

// Translate encodes a plan over the instance.
func Translate(plan relalg.Plan, in *Instance) (*Relation, error) {
	tr := &translator{in: in}
	return tr.plan(plan, nil)
}

type translator struct {
	in *Instance
}

func (tr *translator) plan(p relalg.Plan, outer []Term) (*Relation, error) {
	switch n := p.(type) {
	case *relalg.Scan:
		return tr.scan(n), nil

	case *relalg.Filter:
		rel, err := tr.plan(n.Input, outer)
		if err != nil {
			return nil, err
		}
		out := &Relation{Cols: n.Columns()}
		for _, s := range rel.Slots {
			pred, err := tr.formula(n.Pred, s.Values, outer)
			if err != nil {
				return nil, err
			}
			out.Slots = append(out.Slots, Slot{
				Present: And(s.Present, IsTrue(pred)),
				Values:  s.Values,
			})
		}
		return out, nil

	case *relalg.Project:
		rel, err := tr.plan(n.Input, outer)
		if err != nil {
			return nil, err
		}
		out := &Relation{Cols: n.Cols}
		for _, s := range rel.Slots {
			vals := make([]Term, len(n.Exprs))
			for i, e := range n.Exprs {
				t, err := tr.term(e, s.Values, outer)
				if err != nil {
					return nil, err
				}
				vals[i] = t
			}
			out.Slots = append(out.Slots, Slot{Present: s.Present, Values: vals})
		}
		return out, nil

	case *relalg.Join:
		return tr.join(n, outer)

	case *relalg.SemiJoin:
		return tr.semiJoin(n.Left, n.Sub, n.Pred, false, false, outer)

	case *relalg.AntiJoin:
		return tr.semiJoin(n.Left, n.Sub, n.Pred, true, n.NullAware, outer)

	case *relalg.Aggregate:
		return tr.aggregate(n, outer)

	case *relalg.Distinct:
		rel, err := tr.plan(n.Input, outer)
		if err != nil {
			return nil, err
		}
		return distinctify(rel, n.Columns()), nil

	case *relalg.SetOp:
		return tr.setOp(n, outer)

	case *relalg.Limit:
		return tr.limit(n, outer)

	case *relalg.Sort:
		return nil, fmt.Errorf("translation: Sort outside Limit")

	default:
		return nil, fmt.Errorf("translation: unknown plan node %T", p)
	}
}

func (tr *translator) scan(n *relalg.Scan) *Relation {
	out := &Relation{Cols: n.Cols}
	for r := 0; r < tr.in.K; r++ {
		vals := make([]Term, len(n.Cols))
		for c, ci := range n.Cols {
			vals[c] = &Cell{Table: n.TableIndex, Row: r, Col: c, Typ: ci.Type}
		}
		out.Slots = append(out.Slots, Slot{
			Present: &Presence{Table: n.TableIndex, Row: r},
			Values:  vals,
		})
	}
	return out
}

func (tr *translator) join(n *relalg.Join, outer []Term) (*Relation, error) {
	left, err := tr.plan(n.Left, outer)
	if err != nil {
		return nil, err
	}
	right, err := tr.plan(n.Right, outer)
	if err != nil {
		return nil, err
	}
	out := &Relation{Cols: n.Cols}

	// matchPred(i,j) is the join condition as a two-valued formula.
	matchPred := func(l, r Slot) (Formula, error) {
		if n.Pred == nil {
			return True, nil
		}
		both := append(append([]Term{}, l.Values...), r.Values...)
		f, err := tr.formula(n.Pred, both, outer)
		if err != nil {
			return nil, err
		}
		return IsTrue(f), nil
	}

	for _, l := range left.Slots {
		for _, r := range right.Slots {
			m, err := matchPred(l, r)
			if err != nil {
				return nil, err
			}
			out.Slots = append(out.Slots, Slot{
				Present: And(l.Present, r.Present, m),
				Values:  append(append([]Term{}, l.Values...), r.Values...),
			})
		}
	}

	// Outer joins add null-padded slots for unmatched rows.
	if n.Kind == relalg.JoinLeft || n.Kind == relalg.JoinFull {
		rightNulls := nullRow(n.Right.Columns())
		for _, l := range left.Slots {
			var anyMatch []Formula
			for _, r := range right.Slots {
				m, err := matchPred(l, r)
				if err != nil {
					return nil, err
				}
				anyMatch = append(anyMatch, And(r.Present, m))
			}
			out.Slots = append(out.Slots, Slot{
				Present: And(l.Present, Not(Or(anyMatch...))),
				Values:  append(append([]Term{}, l.Values...), rightNulls...),
			})
		}
	}
	if n.Kind == relalg.JoinFull {
		leftNulls := nullRow(n.Left.Columns())
		for _, r := range right.Slots {
			var anyMatch []Formula
			for _, l := range left.Slots {
				m, err := matchPred(l, r)
				if err != nil {
					return nil, err
				}
				anyMatch = append(anyMatch, And(l.Present, m))
			}
			out.Slots = append(out.Slots, Slot{
				Present: And(r.Present, Not(Or(anyMatch...))),
				Values:  append(append([]Term{}, leftNulls...), r.Values...),
			})
		}
	}
	return out, nil
}

func nullRow(cols []relalg.ColInfo) []Term {
	vals := make([]Term, len(cols))
	for i, c := range cols {
		vals[i] = &Const{Val: NullValue(c.Type)}
	}
	return vals
}

// semiJoin encodes semi and anti joins. The subplan is re-translated
// per left slot so that OuterColumn references resolve to that slot's
// values. With anti+nullAware (NOT IN), a left row survives only when
// every present subquery row makes the predicate definitely false.
func (tr *translator) semiJoin(leftPlan, subPlan relalg.Plan, pred relalg.Expr, anti, nullAware bool, outer []Term) (*Relation, error) {
	left, err := tr.plan(leftPlan, outer)
	if err != nil {
		return nil, err
	}
	out := &Relation{Cols: leftPlan.Columns()}
	for _, l := range left.Slots {
		sub, err := tr.plan(subPlan, l.Values)
		if err != nil {
			return nil, err
		}
		var witnesses []Formula
		for _, s := range sub.Slots {
			var hit Formula = True
			if pred != nil {
				f, err := tr.subPred(pred, s.Values, l.Values)
				if err != nil {
					return nil, err
				}
				if anti && nullAware {
					// Anything not definitely false disqualifies the row.
					hit = Not(IsFalse(f))
				} else {
					hit = IsTrue(f)
				}
			}
			witnesses = append(witnesses, And(s.Present, hit))
		}
		cond := Or(witnesses...)
		if anti {
			cond = Not(cond)
		}
		out.Slots = append(out.Slots, Slot{Present: And(l.Present, cond), Values: l.Values})
	}
	return out, nil
}

// subPred binds a semi/anti-join predicate: ColumnIndex refers to the
// subquery row, OuterColumn to the left row.
func (tr *translator) subPred(pred relalg.Expr, subVals, leftVals []Term) (Formula, error) {
	return tr.formula(pred, subVals, leftVals)
}

func (tr *translator) aggregate(n *relalg.Aggregate, outer []Term) (*Relation, error) {
	in, err := tr.plan(n.Input, outer)
	if err != nil {
		return nil, err
	}
	out := &Relation{Cols: n.Cols}

	// Group-key terms per input slot.
	groupTerms := make([][]Term, len(in.Slots))
	for i, s := range in.Slots {
		for _, g := range n.GroupBy {
			t, err := tr.term(g, s.Values, outer)
			if err != nil {
				return nil, err
			}
			groupTerms[i] = append(groupTerms[i], t)
		}
	}
	// Aggregate argument terms per input slot.
	argTerms := make([][]Term, len(n.Aggs))
	for ai, a := range n.Aggs {
		if a.Arg == nil {
			continue
		}
		for _, s := range in.Slots {
			t, err := tr.term(a.Arg, s.Values, outer)
			if err != nil {
				return nil, err
			}
			argTerms[ai] = append(argTerms[ai], t)
		}
	}

	if len(n.GroupBy) == 0 {
		// One global group, present even on empty input.
		members := make([]Formula, len(in.Slots))
		for i, s := range in.Slots {
			members[i] = s.Present
		}
		vals := make([]Term, 0, len(n.Aggs))
		for ai, a := range n.Aggs {
			vals = append(vals, aggFold(a, members, argTerms[ai], n.Cols[ai].Type))
		}
		out.Slots = append(out.Slots, Slot{Present: True, Values: vals})
		return out, nil
	}

	// One candidate output slot per input slot; it materializes only when
	// the input row is present and is the first of its group. Membership
	// uses null-safe group-key equality: NULL groups with NULL.
	for i, si := range in.Slots {
		members := make([]Formula, len(in.Slots))
		for j, sj := range in.Slots {
			members[j] = And(sj.Present, tupleEqNullSafe(groupTerms[i], groupTerms[j]))
		}
		var earlier []Formula
		for j := 0; j < i; j++ {
			earlier = append(earlier, Not(members[j]))
		}
		vals := make([]Term, 0, len(n.Cols))
		vals = append(vals, groupTerms[i]...)
		for ai, a := range n.Aggs {
			vals = append(vals, aggFold(a, members, argTerms[ai], n.Cols[len(n.GroupBy)+ai].Type))
		}
		out.Slots = append(out.Slots, Slot{
			Present: And(si.Present, And(earlier...)),
			Values:  vals,
		})
	}
	return out, nil
}

// aggFold unrolls one aggregate over the member slots.
func aggFold(a relalg.AggExpr, members []Formula, args []Term, typ schema.Type) Term {
	zero := &Const{Val: IntValue(0)}
	one := &Const{Val: IntValue(1)}

	// contrib(j): this slot feeds the aggregate. COUNT(*) counts all
	// members; the rest skip NULL arguments; DISTINCT keeps only the
	// first occurrence of each value among the members.
	contrib := func(j int) Formula {
		if a.Func == relalg.AggCountStar {
			return members[j]
		}
		f := And(members[j], &NullTest{T: args[j], Neg: true})
		if !a.Distinct {
			return f
		}
		var firsts []Formula
		for l := 0; l < j; l++ {
			firsts = append(firsts, Not(And(
				members[l],
				&NullTest{T: args[l], Neg: true},
				IsTrue(&Cmp{Op: sqlparse.OpEq, L: args[l], R: args[j]}),
			)))
		}
		return And(f, And(firsts...))
	}

	count := func() Term {
		var t Term = zero
		for j := range members {
			t = addInt(t, &If{Cond: contrib(j), Then: one, Else: zero, Typ: schema.TypeInt})
		}
		return t
	}

	switch a.Func {
	case relalg.AggCountStar, relalg.AggCount:
		return count()

	case relalg.AggSum, relalg.AggAvg:
		argTyp := args[0].Type()
		zeroArg := &Const{Val: IntValue(0)}
		if argTyp == schema.TypeReal {
			zeroArg = &Const{Val: RealValue(0)}
		}
		var sum Term = zeroArg
		for j := range members {
			sum = &Arith{Op: sqlparse.OpAdd, Typ: argTyp, L: sum,
				R: &If{Cond: contrib(j), Then: args[j], Else: zeroArg, Typ: argTyp}}
		}
		nonEmpty := IsTrue(&Cmp{Op: sqlparse.OpGt, L: count(), R: zero})
		if a.Func == relalg.AggSum {
			return &If{Cond: nonEmpty, Then: sum, Else: &Const{Val: NullValue(typ)}, Typ: typ}
		}
		avg := &Arith{
			Op:  sqlparse.OpDiv,
			Typ: schema.TypeReal,
			L:   &Cast{To: schema.TypeReal, T: sum},
			R:   &Cast{To: schema.TypeReal, T: count()},
		}
		return &If{Cond: nonEmpty, Then: avg, Else: &Const{Val: NullValue(schema.TypeReal)}, Typ: schema.TypeReal}

	default: // MIN, MAX
		op := sqlparse.OpLt
		if a.Func == relalg.AggMax {
			op = sqlparse.OpGt
		}
		var best Term = &Const{Val: NullValue(typ)}
		for j := range members {
			better := Or(
				&NullTest{T: best},
				IsTrue(&Cmp{Op: op, L: args[j], R: best}),
			)
			best = &If{
				Cond: And(contrib(j), better),
				Then: args[j],
				Else: best,
				Typ:  typ,
			}
		}
		return best
	}
}

func addInt(l, r Term) Term {
	return &Arith{Op: sqlparse.OpAdd, Typ: schema.TypeInt, L: l, R: r}
}

// tupleEqNullSafe is row equality where NULL equals NULL, the matching
// used by DISTINCT, GROUP BY and set operations.
func tupleEqNullSafe(a, b []Term) Formula {
	var fs []Formula
	for i := range a {
		fs = append(fs, Or(
			And(&NullTest{T: a[i]}, &NullTest{T: b[i]}),
			IsTrue(&Cmp{Op: sqlparse.OpEq, L: a[i], R: b[i]}),
		))
	}
	return And(fs...)
}

// distinctify keeps only the first occurrence of each tuple.
func distinctify(rel *Relation, cols []relalg.ColInfo) *Relation {
	out := &Relation{Cols: cols}
	for i, s := range rel.Slots {
		var earlier []Formula
		for j := 0; j < i; j++ {
			earlier = append(earlier, Not(And(
				rel.Slots[j].Present,
				tupleEqNullSafe(rel.Slots[j].Values, s.Values),
			)))
		}
		out.Slots = append(out.Slots, Slot{
			Present: And(s.Present, And(earlier...)),
			Values:  s.Values,
		})
	}
	return out
}

func (tr *translator) setOp(n *relalg.SetOp, outer []Term) (*Relation, error) {
	left, err := tr.plan(n.Left, outer)
	if err != nil {
		return nil, err
	}
	right, err := tr.plan(n.Right, outer)
	if err != nil {
		return nil, err
	}
	widenRelation(left, n.Cols)
	widenRelation(right, n.Cols)

	switch n.Op {
	case sqlparse.SetUnion:
		all := &Relation{Cols: n.Cols}
		all.Slots = append(all.Slots, left.Slots...)
		all.Slots = append(all.Slots, right.Slots...)
		if n.All {
			return all, nil
		}
		return distinctify(all, n.Cols), nil

	case sqlparse.SetIntersect:
		out := &Relation{Cols: n.Cols}
		for i, l := range left.Slots {
			inRight := matchCount(right, l.Values)
			if !n.All {
				var earlier []Formula
				for j := 0; j < i; j++ {
					earlier = append(earlier, Not(And(
						left.Slots[j].Present,
						tupleEqNullSafe(left.Slots[j].Values, l.Values),
					)))
				}
				any := IsTrue(&Cmp{Op: sqlparse.OpGt, L: inRight, R: &Const{Val: IntValue(0)}})
				out.Slots = append(out.Slots, Slot{
					Present: And(l.Present, And(earlier...), any),
					Values:  l.Values,
				})
				continue
			}
			// INTERSECT ALL keeps min(m, n) copies: the p-th occurrence on
			// the left survives when the right has at least p.
			occ := occurrenceIndex(left, i)
			out.Slots = append(out.Slots, Slot{
				Present: And(l.Present, IsTrue(&Cmp{Op: sqlparse.OpLe, L: occ, R: inRight})),
				Values:  l.Values,
			})
		}
		return out, nil

	default: // EXCEPT
		out := &Relation{Cols: n.Cols}
		for i, l := range left.Slots {
			inRight := matchCount(right, l.Values)
			if !n.All {
				var earlier []Formula
				for j := 0; j < i; j++ {
					earlier = append(earlier, Not(And(
						left.Slots[j].Present,
						tupleEqNullSafe(left.Slots[j].Values, l.Values),
					)))
				}
				none := IsTrue(&Cmp{Op: sqlparse.OpEq, L: inRight, R: &Const{Val: IntValue(0)}})
				out.Slots = append(out.Slots, Slot{
					Present: And(l.Present, And(earlier...), none),
					Values:  l.Values,
				})
				continue
			}
			// EXCEPT ALL keeps max(m-n, 0) copies: the p-th occurrence
			// survives when the right has fewer than p.
			occ := occurrenceIndex(left, i)
			out.Slots = append(out.Slots, Slot{
				Present: And(l.Present, IsTrue(&Cmp{Op: sqlparse.OpGt, L: occ, R: inRight})),
				Values:  l.Values,
			})
		}
		return out, nil
	}
}

// widenRelation casts integer columns to real where the combined column
// type widened.
func widenRelation(rel *Relation, cols []relalg.ColInfo) {
	for si := range rel.Slots {
		for ci, want := range cols {
			v := rel.Slots[si].Values[ci]
			if want.Type == schema.TypeReal && v.Type() == schema.TypeInt {
				rel.Slots[si].Values[ci] = &Cast{To: schema.TypeReal, T: v}
			}
		}
	}
	rel.Cols = cols
}

// matchCount is the number of present rows of rel equal to the tuple.
func matchCount(rel *Relation, tuple []Term) Term {
	zero := &Const{Val: IntValue(0)}
	one := &Const{Val: IntValue(1)}
	var t Term = zero
	for _, s := range rel.Slots {
		t = addInt(t, &If{
			Cond: And(s.Present, tupleEqNullSafe(s.Values, tuple)),
			Then: one, Else: zero, Typ: schema.TypeInt,
		})
	}
	return t
}

// occurrenceIndex is the 1-based rank of slot i among equal present
// slots at or before it.
func occurrenceIndex(rel *Relation, i int) Term {
	zero := &Const{Val: IntValue(0)}
	one := &Const{Val: IntValue(1)}
	var t Term = one // slot i itself
	for j := 0; j < i; j++ {
		t = addInt(t, &If{
			Cond: And(rel.Slots[j].Present, tupleEqNullSafe(rel.Slots[j].Values, rel.Slots[i].Values)),
			Then: one, Else: zero, Typ: schema.TypeInt,
		})
	}
	return t
}

// limit encodes LIMIT n, optionally over a Sort. A slot survives when
// fewer than n slots rank strictly before it. Ranking is the sort-key
// order (NULLs first ascending, last descending, as in SQLite) with
// slot position as the final tie break; without a Sort, position alone
// ranks.
func (tr *translator) limit(n *relalg.Limit, outer []Term) (*Relation, error) {
	inner := n.Input
	var keys []relalg.SortKey
	if s, ok := inner.(*relalg.Sort); ok {
		keys = s.Keys
		inner = s.Input
	}
	rel, err := tr.plan(inner, outer)
	if err != nil {
		return nil, err
	}

	keyTerms := make([][]Term, len(rel.Slots))
	for i, s := range rel.Slots {
		for _, k := range keys {
			t, err := tr.term(k.Expr, s.Values, outer)
			if err != nil {
				return nil, err
			}
			keyTerms[i] = append(keyTerms[i], t)
		}
	}

	// before(j,i): slot j is present and ranks strictly before slot i.
	before := func(j, i int) Formula {
		var tie Formula = False
		if j < i {
			tie = True
		}
		ord := tie
		for k := len(keys) - 1; k >= 0; k-- {
			a, b := keyTerms[j][k], keyTerms[i][k]
			var less, eq Formula
			if keys[k].Desc {
				less = Or(
					And(&NullTest{T: a, Neg: true}, &NullTest{T: b}),
					IsTrue(&Cmp{Op: sqlparse.OpGt, L: a, R: b}),
				)
			} else {
				less = Or(
					And(&NullTest{T: a}, &NullTest{T: b, Neg: true}),
					IsTrue(&Cmp{Op: sqlparse.OpLt, L: a, R: b}),
				)
			}
			eq = Or(
				And(&NullTest{T: a}, &NullTest{T: b}),
				IsTrue(&Cmp{Op: sqlparse.OpEq, L: a, R: b}),
			)
			ord = Or(less, And(eq, ord))
		}
		return And(rel.Slots[j].Present, ord)
	}

	zero := &Const{Val: IntValue(0)}
	one := &Const{Val: IntValue(1)}
	limitConst := &Const{Val: IntValue(n.N)}

	out := &Relation{Cols: n.Columns()}
	for i, s := range rel.Slots {
		var rank Term = zero
		for j := range rel.Slots {
			if j == i {
				continue
			}
			rank = addInt(rank, &If{Cond: before(j, i), Then: one, Else: zero, Typ: schema.TypeInt})
		}
		out.Slots = append(out.Slots, Slot{
			Present: And(s.Present, IsTrue(&Cmp{Op: sqlparse.OpLt, L: rank, R: limitConst})),
			Values:  s.Values,
		})
	}
	return out, nil
}

// formula translates a boolean-typed expression. Value-shaped boolean
// expressions (a boolean column or CASE) coerce through equality with
// TRUE, which maps NULL to unknown.
func (tr *translator) formula(e relalg.Expr, vals, outer []Term) (Formula, error) {
	switch x := e.(type) {
	case *relalg.Compare:
		l, err := tr.term(x.L, vals, outer)
		if err != nil {
			return nil, err
		}
		r, err := tr.term(x.R, vals, outer)
		if err != nil {
			return nil, err
		}
		return &Cmp{Op: x.Op, L: l, R: r}, nil

	case *relalg.And:
		l, err := tr.formula(x.L, vals, outer)
		if err != nil {
			return nil, err
		}
		r, err := tr.formula(x.R, vals, outer)
		if err != nil {
			return nil, err
		}
		return And(l, r), nil

	case *relalg.Or:
		l, err := tr.formula(x.L, vals, outer)
		if err != nil {
			return nil, err
		}
		r, err := tr.formula(x.R, vals, outer)
		if err != nil {
			return nil, err
		}
		return Or(l, r), nil

	case *relalg.Not:
		f, err := tr.formula(x.E, vals, outer)
		if err != nil {
			return nil, err
		}
		return Not(f), nil

	case *relalg.IsNull:
		t, err := tr.term(x.E, vals, outer)
		if err != nil {
			return nil, err
		}
		return &NullTest{T: t, Neg: x.Neg}, nil

	case *relalg.InList:
		needle, err := tr.term(x.E, vals, outer)
		if err != nil {
			return nil, err
		}
		var eqs []Formula
		for _, el := range x.List {
			t, err := tr.term(el, vals, outer)
			if err != nil {
				return nil, err
			}
			eqs = append(eqs, &Cmp{Op: sqlparse.OpEq, L: needle, R: t})
		}
		// Three-valued OR gives IN its SQL semantics exactly.
		f := Or(eqs...)
		if x.Neg {
			f = Not(f)
		}
		return f, nil

	default:
		t, err := tr.term(e, vals, outer)
		if err != nil {
			return nil, err
		}
		if t.Type() != schema.TypeBool {
			return nil, fmt.Errorf("translation: %T used as predicate", e)
		}
		return &Cmp{Op: sqlparse.OpEq, L: t, R: &Const{Val: BoolValue(true)}}, nil
	}
}

func (tr *translator) term(e relalg.Expr, vals, outer []Term) (Term, error) {
	switch x := e.(type) {
	case *relalg.ColumnIndex:
		if x.Index >= len(vals) {
			return nil, fmt.Errorf("translation: column %d out of range", x.Index)
		}
		return vals[x.Index], nil

	case *relalg.OuterColumn:
		if outer == nil {
			return nil, fmt.Errorf("translation: outer reference %q outside a subquery", x.Name)
		}
		if x.Index >= len(outer) {
			return nil, fmt.Errorf("translation: outer column %d out of range", x.Index)
		}
		return outer[x.Index], nil

	case *relalg.Literal:
		return &Const{Val: literalValue(x)}, nil

	case *relalg.Arith:
		l, err := tr.term(x.L, vals, outer)
		if err != nil {
			return nil, err
		}
		r, err := tr.term(x.R, vals, outer)
		if err != nil {
			return nil, err
		}
		return &Arith{Op: x.Op, Typ: x.Typ, L: l, R: r}, nil

	case *relalg.Case:
		var result Term = &Const{Val: NullValue(x.Typ)}
		if x.Else != nil {
			t, err := tr.term(x.Else, vals, outer)
			if err != nil {
				return nil, err
			}
			result = t
		}
		for i := len(x.Whens) - 1; i >= 0; i-- {
			cond, err := tr.formula(x.Whens[i].Cond, vals, outer)
			if err != nil {
				return nil, err
			}
			then, err := tr.term(x.Whens[i].Result, vals, outer)
			if err != nil {
				return nil, err
			}
			result = &If{Cond: IsTrue(cond), Then: then, Else: result, Typ: x.Typ}
		}
		return result, nil

	case *relalg.ScalarSubquery:
		sub, err := tr.plan(x.Sub, nil)
		if err != nil {
			return nil, err
		}
		typ := x.Type()
		var result Term = &Const{Val: NullValue(typ)}
		for i := len(sub.Slots) - 1; i >= 0; i-- {
			result = &If{
				Cond: IsTrue(sub.Slots[i].Present),
				Then: sub.Slots[i].Values[0],
				Else: result,
				Typ:  typ,
			}
		}
		return result, nil

	case *relalg.Compare, *relalg.And, *relalg.Or, *relalg.Not, *relalg.IsNull, *relalg.InList:
		f, err := tr.formula(e, vals, outer)
		if err != nil {
			return nil, err
		}
		return &FromBool{F: f}, nil

	default:
		return nil, fmt.Errorf("translation: unknown expression %T", e)
	}
}

func literalValue(l *relalg.Literal) Value {
	if l.Null {
		return NullValue(l.Typ)
	}
	switch l.Typ {
	case schema.TypeInt:
		return IntValue(l.Int)
	case schema.TypeReal:
		return RealValue(l.Real)
	case schema.TypeText:
		return TextValue(l.Str)
	default:
		return BoolValue(l.Bool)
	}
}
