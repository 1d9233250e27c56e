package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// Executable renders a bound plan as SQL the embedded engine can run
// directly. Every subquery names its output columns positionally
// (c0, c1, ...), so the rendering never depends on source-level names
// or aliases. EXCEPT ALL and INTERSECT ALL, which SQLite does not
// accept, are rewritten as plain set operations over per-duplicate
// occurrence numbers.
func Executable(p relalg.Plan) string {
	r := &planRenderer{}
	var b strings.Builder
	r.writePlan(&b, p, nil)
	return b.String()
}

// colRef resolves a column index to its SQL reference in the current
// FROM context.
type colRef func(i int) string

func aliasCols(alias string) colRef {
	return func(i int) string { return fmt.Sprintf("%s.c%d", alias, i) }
}

// planRenderer numbers subquery aliases so correlated references stay
// unambiguous at any nesting depth.
type planRenderer struct {
	n int
}

func (r *planRenderer) alias() string {
	r.n++
	return fmt.Sprintf("s%d", r.n)
}

func (r *planRenderer) writePlan(b *strings.Builder, p relalg.Plan, outer colRef) {
	switch n := p.(type) {
	case *relalg.Scan:
		b.WriteString("SELECT ")
		for i, c := range n.Cols {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q AS c%d", c.Name, i)
		}
		fmt.Fprintf(b, " FROM %q", n.Table)

	case *relalg.Filter:
		a := r.alias()
		b.WriteString("SELECT * FROM (")
		r.writePlan(b, n.Input, outer)
		fmt.Fprintf(b, ") AS %s WHERE ", a)
		r.writeExpr(b, n.Pred, aliasCols(a), outer)

	case *relalg.Project:
		a := r.alias()
		cols := aliasCols(a)
		b.WriteString("SELECT ")
		for i, e := range n.Exprs {
			if i > 0 {
				b.WriteString(", ")
			}
			r.writeExpr(b, e, cols, outer)
			fmt.Fprintf(b, " AS c%d", i)
		}
		b.WriteString(" FROM (")
		r.writePlan(b, n.Input, outer)
		fmt.Fprintf(b, ") AS %s", a)

	case *relalg.Join:
		r.writeJoin(b, n, outer)

	case *relalg.SemiJoin:
		r.writeExistence(b, n.Left, n.Sub, n.Pred, false, false, outer)

	case *relalg.AntiJoin:
		r.writeExistence(b, n.Left, n.Sub, n.Pred, true, n.NullAware, outer)

	case *relalg.Aggregate:
		r.writeAggregate(b, n, outer)

	case *relalg.Distinct:
		a := r.alias()
		b.WriteString("SELECT DISTINCT * FROM (")
		r.writePlan(b, n.Input, outer)
		fmt.Fprintf(b, ") AS %s", a)

	case *relalg.Sort:
		// Ordering alone is unobservable; Sort matters only under Limit,
		// which consumes its keys directly.
		r.writePlan(b, n.Input, outer)

	case *relalg.Limit:
		a := r.alias()
		input := n.Input
		var keys []relalg.SortKey
		if s, ok := input.(*relalg.Sort); ok {
			keys = s.Keys
			input = s.Input
		}
		b.WriteString("SELECT * FROM (")
		r.writePlan(b, input, outer)
		fmt.Fprintf(b, ") AS %s", a)
		if len(keys) > 0 {
			b.WriteString(" ORDER BY ")
			for i, k := range keys {
				if i > 0 {
					b.WriteString(", ")
				}
				r.writeExpr(b, k.Expr, aliasCols(a), outer)
				if k.Desc {
					b.WriteString(" DESC")
				}
			}
		}
		fmt.Fprintf(b, " LIMIT %d", n.N)

	case *relalg.SetOp:
		r.writeSetOpPlan(b, n, outer)
	}
}

func (r *planRenderer) writeJoin(b *strings.Builder, n *relalg.Join, outer colRef) {
	la, ra := r.alias(), r.alias()
	nl := len(n.Left.Columns())
	b.WriteString("SELECT ")
	for i := range n.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		if i < nl {
			fmt.Fprintf(b, "%s.c%d AS c%d", la, i, i)
		} else {
			fmt.Fprintf(b, "%s.c%d AS c%d", ra, i-nl, i)
		}
	}
	b.WriteString(" FROM (")
	r.writePlan(b, n.Left, outer)
	fmt.Fprintf(b, ") AS %s ", la)
	switch n.Kind {
	case relalg.JoinCross:
		b.WriteString("CROSS JOIN (")
	case relalg.JoinLeft:
		b.WriteString("LEFT JOIN (")
	case relalg.JoinFull:
		b.WriteString("FULL JOIN (")
	default:
		b.WriteString("JOIN (")
	}
	r.writePlan(b, n.Right, outer)
	fmt.Fprintf(b, ") AS %s", ra)
	if n.Kind == relalg.JoinCross {
		return
	}
	b.WriteString(" ON ")
	if n.Pred == nil {
		b.WriteString("1 = 1")
		return
	}
	cols := func(i int) string {
		if i < nl {
			return fmt.Sprintf("%s.c%d", la, i)
		}
		return fmt.Sprintf("%s.c%d", ra, i-nl)
	}
	r.writeExpr(b, n.Pred, cols, outer)
}

// writeExistence renders semi and anti joins through EXISTS. For a
// null-aware anti join (NOT IN) a row is dropped when any comparison is
// true or unknown, so the inner match also catches NULL predicates.
func (r *planRenderer) writeExistence(b *strings.Builder, left, sub relalg.Plan, pred relalg.Expr, anti, nullAware bool, outer colRef) {
	oa := r.alias()
	sa := r.alias()
	b.WriteString("SELECT * FROM (")
	r.writePlan(b, left, outer)
	fmt.Fprintf(b, ") AS %s WHERE ", oa)
	if anti {
		b.WriteString("NOT ")
	}
	b.WriteString("EXISTS (SELECT 1 FROM (")
	r.writePlan(b, sub, aliasCols(oa))
	fmt.Fprintf(b, ") AS %s", sa)
	if pred != nil {
		b.WriteString(" WHERE ")
		var pb strings.Builder
		r.writeExpr(&pb, pred, aliasCols(sa), aliasCols(oa))
		if nullAware {
			fmt.Fprintf(b, "(%s) OR (%s) IS NULL", pb.String(), pb.String())
		} else {
			b.WriteString(pb.String())
		}
	}
	b.WriteString(")")
}

func (r *planRenderer) writeAggregate(b *strings.Builder, n *relalg.Aggregate, outer colRef) {
	a := r.alias()
	cols := aliasCols(a)
	b.WriteString("SELECT ")
	idx := 0
	for _, g := range n.GroupBy {
		if idx > 0 {
			b.WriteString(", ")
		}
		r.writeExpr(b, g, cols, outer)
		fmt.Fprintf(b, " AS c%d", idx)
		idx++
	}
	for _, agg := range n.Aggs {
		if idx > 0 {
			b.WriteString(", ")
		}
		if agg.Func == relalg.AggCountStar {
			b.WriteString("COUNT(*)")
		} else {
			b.WriteString(agg.Func.String())
			b.WriteString("(")
			if agg.Distinct {
				b.WriteString("DISTINCT ")
			}
			r.writeExpr(b, agg.Arg, cols, outer)
			b.WriteString(")")
		}
		fmt.Fprintf(b, " AS c%d", idx)
		idx++
	}
	b.WriteString(" FROM (")
	r.writePlan(b, n.Input, outer)
	fmt.Fprintf(b, ") AS %s", a)
	if len(n.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, g := range n.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			r.writeExpr(b, g, cols, outer)
		}
	}
}

func (r *planRenderer) writeSetOpPlan(b *strings.Builder, n *relalg.SetOp, outer colRef) {
	if n.All && n.Op != sqlparse.SetUnion {
		r.writeBagSetOp(b, n, outer)
		return
	}
	la, ra := r.alias(), r.alias()
	b.WriteString("SELECT * FROM (")
	r.writePlan(b, n.Left, outer)
	fmt.Fprintf(b, ") AS %s ", la)
	b.WriteString(n.Op.String())
	if n.All {
		b.WriteString(" ALL")
	}
	b.WriteString(" SELECT * FROM (")
	r.writePlan(b, n.Right, outer)
	fmt.Fprintf(b, ") AS %s", ra)
}

// writeBagSetOp rewrites EXCEPT ALL and INTERSECT ALL into forms the
// engine accepts. Numbering the duplicates of each row within an
// operand makes every (row, occurrence) pair unique, so the plain set
// operation over the numbered rows computes exactly the bag semantics:
// max(m-n, 0) copies for EXCEPT ALL, min(m, n) for INTERSECT ALL.
func (r *planRenderer) writeBagSetOp(b *strings.Builder, n *relalg.SetOp, outer colRef) {
	la, ra, ua := r.alias(), r.alias(), r.alias()
	names := make([]string, len(n.Cols))
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
	}
	list := strings.Join(names, ", ")

	b.WriteString("SELECT ")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s AS %s", name, name)
	}
	b.WriteString(" FROM (")
	r.writeNumbered(b, n.Left, la, list, outer)
	b.WriteString(" ")
	b.WriteString(n.Op.String())
	b.WriteString(" ")
	r.writeNumbered(b, n.Right, ra, list, outer)
	fmt.Fprintf(b, ") AS %s", ua)
}

func (r *planRenderer) writeNumbered(b *strings.Builder, p relalg.Plan, alias, list string, outer colRef) {
	fmt.Fprintf(b, "SELECT %s, ROW_NUMBER() OVER (PARTITION BY %s) AS occurrence FROM (", list, list)
	r.writePlan(b, p, outer)
	fmt.Fprintf(b, ") AS %s", alias)
}

func (r *planRenderer) writeExpr(b *strings.Builder, e relalg.Expr, cols, outer colRef) {
	switch x := e.(type) {
	case *relalg.ColumnIndex:
		b.WriteString(cols(x.Index))
	case *relalg.OuterColumn:
		b.WriteString(outer(x.Index))
	case *relalg.Literal:
		writeBoundLiteral(b, x)
	case *relalg.Compare:
		b.WriteString("(")
		r.writeExpr(b, x.L, cols, outer)
		fmt.Fprintf(b, ") %s (", string(x.Op))
		r.writeExpr(b, x.R, cols, outer)
		b.WriteString(")")
	case *relalg.Arith:
		b.WriteString("(")
		r.writeExpr(b, x.L, cols, outer)
		fmt.Fprintf(b, ") %s (", string(x.Op))
		r.writeExpr(b, x.R, cols, outer)
		b.WriteString(")")
	case *relalg.And:
		b.WriteString("(")
		r.writeExpr(b, x.L, cols, outer)
		b.WriteString(") AND (")
		r.writeExpr(b, x.R, cols, outer)
		b.WriteString(")")
	case *relalg.Or:
		b.WriteString("(")
		r.writeExpr(b, x.L, cols, outer)
		b.WriteString(") OR (")
		r.writeExpr(b, x.R, cols, outer)
		b.WriteString(")")
	case *relalg.Not:
		b.WriteString("NOT (")
		r.writeExpr(b, x.E, cols, outer)
		b.WriteString(")")
	case *relalg.IsNull:
		b.WriteString("(")
		r.writeExpr(b, x.E, cols, outer)
		b.WriteString(") IS ")
		if x.Neg {
			b.WriteString("NOT ")
		}
		b.WriteString("NULL")
	case *relalg.Case:
		b.WriteString("CASE")
		for _, w := range x.Whens {
			b.WriteString(" WHEN ")
			r.writeExpr(b, w.Cond, cols, outer)
			b.WriteString(" THEN ")
			r.writeExpr(b, w.Result, cols, outer)
		}
		if x.Else != nil {
			b.WriteString(" ELSE ")
			r.writeExpr(b, x.Else, cols, outer)
		}
		b.WriteString(" END")
	case *relalg.InList:
		b.WriteString("(")
		r.writeExpr(b, x.E, cols, outer)
		b.WriteString(")")
		if x.Neg {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		for i, v := range x.List {
			if i > 0 {
				b.WriteString(", ")
			}
			r.writeExpr(b, v, cols, outer)
		}
		b.WriteString(")")
	case *relalg.ScalarSubquery:
		b.WriteString("(")
		r.writePlan(b, x.Sub, nil)
		b.WriteString(")")
	}
}

func writeBoundLiteral(b *strings.Builder, l *relalg.Literal) {
	switch {
	case l.Null:
		b.WriteString("NULL")
	case l.Typ == schema.TypeInt:
		b.WriteString(strconv.FormatInt(l.Int, 10))
	case l.Typ == schema.TypeReal:
		b.WriteString(strconv.FormatFloat(l.Real, 'g', -1, 64))
	case l.Typ == schema.TypeText:
		b.WriteString("'")
		b.WriteString(strings.ReplaceAll(l.Str, "'", "''"))
		b.WriteString("'")
	default:
		// Boolean literals as the engine stores them.
		if l.Bool {
			b.WriteString("1")
		} else {
			b.WriteString("0")
		}
	}
}
