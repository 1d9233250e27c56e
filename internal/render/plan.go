package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
)

// PlanTree renders a bound plan as an indented operator tree, one node
// per line, children indented two spaces below their parent.
func PlanTree(p relalg.Plan) string {
	var b strings.Builder
	writePlan(&b, p, 0)
	return b.String()
}

func writePlan(b *strings.Builder, p relalg.Plan, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)

	switch p := p.(type) {
	case *relalg.Scan:
		fmt.Fprintf(b, "Scan %s %s\n", p.Table, colList(p.Cols))
	case *relalg.Filter:
		fmt.Fprintf(b, "Filter %s\n", ExprString(p.Pred))
		writePlan(b, p.Input, depth+1)
	case *relalg.Project:
		exprs := make([]string, len(p.Exprs))
		for i, e := range p.Exprs {
			exprs[i] = ExprString(e)
		}
		fmt.Fprintf(b, "Project [%s]\n", strings.Join(exprs, ", "))
		writePlan(b, p.Input, depth+1)
	case *relalg.Join:
		if p.Pred != nil {
			fmt.Fprintf(b, "Join %s ON %s\n", p.Kind, ExprString(p.Pred))
		} else {
			fmt.Fprintf(b, "Join %s\n", p.Kind)
		}
		writePlan(b, p.Left, depth+1)
		writePlan(b, p.Right, depth+1)
	case *relalg.SemiJoin:
		if p.Pred != nil {
			fmt.Fprintf(b, "SemiJoin ON %s\n", ExprString(p.Pred))
		} else {
			b.WriteString("SemiJoin\n")
		}
		writePlan(b, p.Left, depth+1)
		writePlan(b, p.Sub, depth+1)
	case *relalg.AntiJoin:
		label := "AntiJoin"
		if p.NullAware {
			label = "AntiJoin null-aware"
		}
		if p.Pred != nil {
			fmt.Fprintf(b, "%s ON %s\n", label, ExprString(p.Pred))
		} else {
			fmt.Fprintf(b, "%s\n", label)
		}
		writePlan(b, p.Left, depth+1)
		writePlan(b, p.Sub, depth+1)
	case *relalg.Aggregate:
		var parts []string
		for _, g := range p.GroupBy {
			parts = append(parts, ExprString(g))
		}
		for _, a := range p.Aggs {
			parts = append(parts, aggString(a))
		}
		fmt.Fprintf(b, "Aggregate [%s]\n", strings.Join(parts, ", "))
		writePlan(b, p.Input, depth+1)
	case *relalg.Distinct:
		b.WriteString("Distinct\n")
		writePlan(b, p.Input, depth+1)
	case *relalg.Sort:
		keys := make([]string, len(p.Keys))
		for i, k := range p.Keys {
			keys[i] = ExprString(k.Expr)
			if k.Desc {
				keys[i] += " DESC"
			}
		}
		fmt.Fprintf(b, "Sort [%s]\n", strings.Join(keys, ", "))
		writePlan(b, p.Input, depth+1)
	case *relalg.Limit:
		fmt.Fprintf(b, "Limit %d\n", p.N)
		writePlan(b, p.Input, depth+1)
	case *relalg.SetOp:
		op := p.Op.String()
		if p.All {
			op += " ALL"
		}
		fmt.Fprintf(b, "SetOp %s\n", op)
		writePlan(b, p.Left, depth+1)
		writePlan(b, p.Right, depth+1)
	}
}

func colList(cols []relalg.ColInfo) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func aggString(a relalg.AggExpr) string {
	if a.Func == relalg.AggCountStar {
		return "COUNT(*)"
	}
	arg := ExprString(a.Arg)
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return fmt.Sprintf("%s(%s)", a.Func, arg)
}

// ExprString renders a bound expression. Column references show the
// original name with their position, e.g. b@1.
func ExprString(e relalg.Expr) string {
	switch e := e.(type) {
	case *relalg.ColumnIndex:
		return fmt.Sprintf("%s@%d", e.Name, e.Index)
	case *relalg.OuterColumn:
		return fmt.Sprintf("outer.%s@%d", e.Name, e.Index)
	case *relalg.Literal:
		return literalString(e)
	case *relalg.Compare:
		return fmt.Sprintf("(%s %s %s)", ExprString(e.L), e.Op, ExprString(e.R))
	case *relalg.Arith:
		return fmt.Sprintf("(%s %s %s)", ExprString(e.L), e.Op, ExprString(e.R))
	case *relalg.And:
		return fmt.Sprintf("(%s AND %s)", ExprString(e.L), ExprString(e.R))
	case *relalg.Or:
		return fmt.Sprintf("(%s OR %s)", ExprString(e.L), ExprString(e.R))
	case *relalg.Not:
		return fmt.Sprintf("NOT %s", ExprString(e.E))
	case *relalg.IsNull:
		if e.Neg {
			return fmt.Sprintf("%s IS NOT NULL", ExprString(e.E))
		}
		return fmt.Sprintf("%s IS NULL", ExprString(e.E))
	case *relalg.Case:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range e.Whens {
			fmt.Fprintf(&b, " WHEN %s THEN %s", ExprString(w.Cond), ExprString(w.Result))
		}
		if e.Else != nil {
			fmt.Fprintf(&b, " ELSE %s", ExprString(e.Else))
		}
		b.WriteString(" END")
		return b.String()
	case *relalg.InList:
		items := make([]string, len(e.List))
		for i, v := range e.List {
			items[i] = ExprString(v)
		}
		not := ""
		if e.Neg {
			not = " NOT"
		}
		return fmt.Sprintf("%s%s IN (%s)", ExprString(e.E), not, strings.Join(items, ", "))
	case *relalg.ScalarSubquery:
		return "(subquery)"
	default:
		return fmt.Sprintf("%T", e)
	}
}

func literalString(l *relalg.Literal) string {
	if l.Null {
		return "NULL"
	}
	switch l.Typ {
	case schema.TypeInt:
		return strconv.FormatInt(l.Int, 10)
	case schema.TypeReal:
		return strconv.FormatFloat(l.Real, 'g', -1, 64)
	case schema.TypeText:
		return "'" + strings.ReplaceAll(l.Str, "'", "''") + "'"
	default:
		if l.Bool {
			return "TRUE"
		}
		return "FALSE"
	}
}
