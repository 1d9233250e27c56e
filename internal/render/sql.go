// Package render turns parsed queries and bound plans back into text:
// normalized SQL for reports, and indented operator trees for explain
// output. Rendering is purely syntactic; it never consults a schema.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// SQL renders a statement as normalized SQL: uppercase keywords, single
// spaces, explicit parentheses around set-operation operands. Parsing
// the output yields the same tree, so two queries that normalize to the
// same text are trivially equivalent.
func SQL(stmt sqlparse.Stmt) string {
	var b strings.Builder
	writeStmt(&b, stmt)
	return b.String()
}

func writeStmt(b *strings.Builder, stmt sqlparse.Stmt) {
	switch s := stmt.(type) {
	case *sqlparse.SelectStmt:
		writeSelect(b, s)
	case *sqlparse.SetOpStmt:
		writeSetOp(b, s)
	}
}

func writeSelect(b *strings.Builder, s *sqlparse.SelectStmt) {
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, item := range s.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeSelectItem(b, item)
	}
	if len(s.From) > 0 {
		b.WriteString(" FROM ")
		for i, t := range s.From {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTableExpr(b, t)
		}
	}
	if s.Where != nil {
		b.WriteString(" WHERE ")
		writeExpr(b, s.Where)
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, e := range s.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, e)
		}
	}
	if s.Having != nil {
		b.WriteString(" HAVING ")
		writeExpr(b, s.Having)
	}
	writeOrderLimit(b, s.OrderBy, s.Limit)
}

func writeSetOp(b *strings.Builder, s *sqlparse.SetOpStmt) {
	b.WriteString("(")
	writeStmt(b, s.Left)
	b.WriteString(") ")
	b.WriteString(s.Op.String())
	if s.All {
		b.WriteString(" ALL")
	}
	b.WriteString(" (")
	writeStmt(b, s.Right)
	b.WriteString(")")
	writeOrderLimit(b, s.OrderBy, s.Limit)
}

func writeOrderLimit(b *strings.Builder, order []sqlparse.OrderItem, limit *int64) {
	if len(order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range order {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, o.Expr)
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	if limit != nil {
		fmt.Fprintf(b, " LIMIT %d", *limit)
	}
}

func writeSelectItem(b *strings.Builder, item sqlparse.SelectItem) {
	if item.Star {
		if item.Table != "" {
			b.WriteString(item.Table)
			b.WriteString(".")
		}
		b.WriteString("*")
		return
	}
	writeExpr(b, item.Expr)
	if item.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(item.Alias)
	}
}

func writeTableExpr(b *strings.Builder, t sqlparse.TableExpr) {
	switch t := t.(type) {
	case *sqlparse.TableName:
		b.WriteString(t.Name)
		if t.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(t.Alias)
		}
	case *sqlparse.SubqueryTable:
		b.WriteString("(")
		writeStmt(b, t.Stmt)
		b.WriteString(") AS ")
		b.WriteString(t.Alias)
	case *sqlparse.JoinExpr:
		writeJoin(b, t)
	}
}

func writeJoin(b *strings.Builder, j *sqlparse.JoinExpr) {
	writeTableExpr(b, j.Left)
	b.WriteString(" ")
	if j.Natural {
		b.WriteString("NATURAL ")
	}
	switch j.Kind {
	case sqlparse.JoinInner:
		// Plain JOIN; INNER is implied.
	case sqlparse.JoinCross:
		b.WriteString("CROSS ")
	default:
		b.WriteString(j.Kind.String())
		b.WriteString(" ")
	}
	b.WriteString("JOIN ")
	writeTableExpr(b, j.Right)
	if len(j.Using) > 0 {
		b.WriteString(" USING (")
		b.WriteString(strings.Join(j.Using, ", "))
		b.WriteString(")")
	}
	if j.On != nil {
		b.WriteString(" ON ")
		writeExpr(b, j.On)
	}
}

func writeExpr(b *strings.Builder, e sqlparse.Expr) {
	switch e := e.(type) {
	case *sqlparse.ColRef:
		if e.Table != "" {
			b.WriteString(e.Table)
			b.WriteString(".")
		}
		b.WriteString(e.Name)
	case *sqlparse.Lit:
		writeLit(b, e)
	case *sqlparse.BinExpr:
		writeOperand(b, e.L)
		b.WriteString(" ")
		b.WriteString(string(e.Op))
		b.WriteString(" ")
		writeOperand(b, e.R)
	case *sqlparse.LogicExpr:
		writeOperand(b, e.L)
		if e.Op == sqlparse.LogicAnd {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" OR ")
		}
		writeOperand(b, e.R)
	case *sqlparse.NotExpr:
		b.WriteString("NOT ")
		writeOperand(b, e.E)
	case *sqlparse.IsNullExpr:
		writeOperand(b, e.E)
		if e.Neg {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *sqlparse.DistinctFromExpr:
		writeOperand(b, e.L)
		b.WriteString(" IS ")
		if e.Neg {
			b.WriteString("NOT ")
		}
		b.WriteString("DISTINCT FROM ")
		writeOperand(b, e.R)
	case *sqlparse.BetweenExpr:
		writeOperand(b, e.E)
		if e.Neg {
			b.WriteString(" NOT")
		}
		b.WriteString(" BETWEEN ")
		writeOperand(b, e.Lo)
		b.WriteString(" AND ")
		writeOperand(b, e.Hi)
	case *sqlparse.InExpr:
		writeOperand(b, e.E)
		if e.Neg {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		if e.Sub != nil {
			writeStmt(b, e.Sub)
		} else {
			for i, v := range e.List {
				if i > 0 {
					b.WriteString(", ")
				}
				writeExpr(b, v)
			}
		}
		b.WriteString(")")
	case *sqlparse.ExistsExpr:
		if e.Neg {
			b.WriteString("NOT ")
		}
		b.WriteString("EXISTS (")
		writeStmt(b, e.Sub)
		b.WriteString(")")
	case *sqlparse.CaseExpr:
		writeCase(b, e)
	case *sqlparse.FuncExpr:
		writeFunc(b, e)
	case *sqlparse.SubqueryExpr:
		b.WriteString("(")
		writeStmt(b, e.Stmt)
		b.WriteString(")")
	}
}

// writeOperand parenthesizes compound operands, sidestepping precedence
// questions entirely.
func writeOperand(b *strings.Builder, e sqlparse.Expr) {
	switch e.(type) {
	case *sqlparse.ColRef, *sqlparse.Lit, *sqlparse.FuncExpr, *sqlparse.SubqueryExpr:
		writeExpr(b, e)
	default:
		b.WriteString("(")
		writeExpr(b, e)
		b.WriteString(")")
	}
}

func writeLit(b *strings.Builder, l *sqlparse.Lit) {
	switch l.Kind {
	case sqlparse.LitInt:
		b.WriteString(strconv.FormatInt(l.Int, 10))
	case sqlparse.LitReal:
		b.WriteString(strconv.FormatFloat(l.Real, 'g', -1, 64))
	case sqlparse.LitString:
		b.WriteString("'")
		b.WriteString(strings.ReplaceAll(l.Str, "'", "''"))
		b.WriteString("'")
	case sqlparse.LitBool:
		if l.Bool {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case sqlparse.LitNull:
		b.WriteString("NULL")
	}
}

func writeCase(b *strings.Builder, c *sqlparse.CaseExpr) {
	b.WriteString("CASE")
	if c.Operand != nil {
		b.WriteString(" ")
		writeOperand(b, c.Operand)
	}
	for _, w := range c.Whens {
		b.WriteString(" WHEN ")
		writeExpr(b, w.Cond)
		b.WriteString(" THEN ")
		writeExpr(b, w.Result)
	}
	if c.Else != nil {
		b.WriteString(" ELSE ")
		writeExpr(b, c.Else)
	}
	b.WriteString(" END")
}

func writeFunc(b *strings.Builder, f *sqlparse.FuncExpr) {
	b.WriteString(f.Name)
	b.WriteString("(")
	if f.Star {
		b.WriteString("*")
	} else {
		if f.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, a := range f.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a)
		}
	}
	b.WriteString(")")
}
