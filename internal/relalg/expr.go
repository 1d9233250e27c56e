package relalg

import (
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// Expr is the sealed interface for bound expressions.
//
// Bound expressions reference input columns by position, carry their
// derived type and nullability, and preserve SQL's three-valued
// semantics: any boolean-typed Expr may evaluate to unknown.
type Expr interface {
	exprNode()
	Type() schema.Type
	Nullable() bool
}

// ColumnIndex references a column of the node's input by position.
type ColumnIndex struct {
	Index int
	Typ   schema.Type
	Null  bool
	Name  string // original name, kept for diagnostics and rendering
}

func (*ColumnIndex) exprNode() {}

// Type returns the referenced column's type.
func (c *ColumnIndex) Type() schema.Type { return c.Typ }

// Nullable reports the referenced column's nullability.
func (c *ColumnIndex) Nullable() bool { return c.Null }

// OuterColumn references a column of the enclosing plan's row, used
// inside correlated subqueries (semi/anti-join subplans).
type OuterColumn struct {
	Index int
	Typ   schema.Type
	Null  bool
	Name  string
}

func (*OuterColumn) exprNode() {}

// Type returns the referenced outer column's type.
func (o *OuterColumn) Type() schema.Type { return o.Typ }

// Nullable reports the referenced outer column's nullability.
func (o *OuterColumn) Nullable() bool { return o.Null }

// Literal is a typed constant, possibly NULL.
type Literal struct {
	Typ  schema.Type
	Null bool
	Int  int64
	Real float64
	Str  string
	Bool bool
}

func (*Literal) exprNode() {}

// Type returns the literal's type. A bare NULL is typed by context
// during build.
func (l *Literal) Type() schema.Type { return l.Typ }

// Nullable reports whether the literal is NULL.
func (l *Literal) Nullable() bool { return l.Null }

// Compare applies a comparison operator. The result is boolean and
// evaluates to unknown whenever either operand is NULL.
type Compare struct {
	Op   sqlparse.BinOp
	L, R Expr
}

func (*Compare) exprNode() {}

// Type of a comparison is boolean.
func (c *Compare) Type() schema.Type { return schema.TypeBool }

// Nullable: unknown is possible when either side can be NULL.
func (c *Compare) Nullable() bool { return c.L.Nullable() || c.R.Nullable() }

// Arith applies an arithmetic operator. NULL propagates.
type Arith struct {
	Op   sqlparse.BinOp
	Typ  schema.Type
	L, R Expr
}

func (*Arith) exprNode() {}

// Type returns the derived numeric type (real if either side is real).
func (a *Arith) Type() schema.Type { return a.Typ }

// Nullable: NULL in either operand yields NULL.
func (a *Arith) Nullable() bool { return a.L.Nullable() || a.R.Nullable() }

// And is three-valued conjunction: false dominates, unknown otherwise
// when either side is unknown.
type And struct {
	L, R Expr
}

func (*And) exprNode() {}

// Type of a connective is boolean.
func (a *And) Type() schema.Type { return schema.TypeBool }

// Nullable reports whether unknown is possible.
func (a *And) Nullable() bool { return a.L.Nullable() || a.R.Nullable() }

// Or is three-valued disjunction: true dominates.
type Or struct {
	L, R Expr
}

func (*Or) exprNode() {}

// Type of a connective is boolean.
func (o *Or) Type() schema.Type { return schema.TypeBool }

// Nullable reports whether unknown is possible.
func (o *Or) Nullable() bool { return o.L.Nullable() || o.R.Nullable() }

// Not is three-valued negation: NOT unknown = unknown.
type Not struct {
	E Expr
}

func (*Not) exprNode() {}

// Type of a connective is boolean.
func (n *Not) Type() schema.Type { return schema.TypeBool }

// Nullable reports whether unknown is possible.
func (n *Not) Nullable() bool { return n.E.Nullable() }

// IsNull tests nullness exactly; the result is two-valued.
type IsNull struct {
	Neg bool
	E   Expr
}

func (*IsNull) exprNode() {}

// Type of the test is boolean.
func (i *IsNull) Type() schema.Type { return schema.TypeBool }

// Nullable: IS [NOT] NULL never yields unknown.
func (i *IsNull) Nullable() bool { return false }

// CaseWhen is one arm of a Case.
type CaseWhen struct {
	Cond   Expr
	Result Expr
}

// Case is a searched CASE; simple CASE is desugared to comparisons
// during build. Arms are evaluated in order; an unknown condition is
// treated as not-taken. A missing ELSE yields NULL.
type Case struct {
	Whens []CaseWhen
	Else  Expr // nil means NULL
	Typ   schema.Type
	Null  bool
}

func (*Case) exprNode() {}

// Type returns the common result type of the arms.
func (c *Case) Type() schema.Type { return c.Typ }

// Nullable reports whether any arm (or a missing ELSE) can yield NULL.
func (c *Case) Nullable() bool { return c.Null }

// InList is x [NOT] IN (v1, …, vn) with full three-valued semantics:
// true if some element equals x, unknown if no element matches but x or
// some element is NULL, false otherwise.
type InList struct {
	Neg  bool
	E    Expr
	List []Expr
}

func (*InList) exprNode() {}

// Type of the membership test is boolean.
func (i *InList) Type() schema.Type { return schema.TypeBool }

// Nullable reports whether unknown is possible.
func (i *InList) Nullable() bool {
	if i.E.Nullable() {
		return true
	}
	for _, e := range i.List {
		if e.Nullable() {
			return true
		}
	}
	return false
}

// ScalarSubquery embeds an uncorrelated subplan used as a scalar value:
// the value of the subplan's single column on its first present row, or
// NULL when the subplan yields no rows.
type ScalarSubquery struct {
	Sub Plan
}

func (*ScalarSubquery) exprNode() {}

// Type returns the subplan's single column type.
func (s *ScalarSubquery) Type() schema.Type { return s.Sub.Columns()[0].Type }

// Nullable: empty subquery results make NULL always possible.
func (s *ScalarSubquery) Nullable() bool { return true }
