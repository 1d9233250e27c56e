package relalg

import (
	"fmt"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// lookup finds a column without wrapping errors. Returns the column
// index, or -1 with ambiguous reporting whether the failure was an
// ambiguous match rather than a miss.
func (sc *scope) lookup(qualifier, name string) (idx int, ambiguous bool) {
	qf := schema.Fold(qualifier)
	nf := schema.Fold(name)
	idx = -1
	for i, c := range sc.cols {
		if schema.Fold(c.name) != nf {
			continue
		}
		if qualifier != "" && c.alias != qf {
			continue
		}
		if idx >= 0 {
			return -1, true
		}
		idx = i
	}
	return idx, false
}

// bindExpr lowers an AST expression into a bound expression over the
// scope's columns. Aggregate calls are rejected unless allowAgg; they
// are only legal in select lists and HAVING, which bind through the
// aggregate rewriter instead.
func (b *builder) bindExpr(e sqlparse.Expr, sc *scope, allowAgg bool) (Expr, error) {
	switch x := e.(type) {
	case *sqlparse.ColRef:
		idx, amb := sc.lookup(x.Table, x.Name)
		if amb {
			return nil, &schema.MismatchError{Stage: schema.StageBinding, Column: x.Name, Message: "ambiguous column reference"}
		}
		if idx >= 0 {
			return colRefAt(sc.cols, idx), nil
		}
		// Correlated reference into the enclosing query, one level deep.
		if sc.outer != nil {
			oidx, oamb := sc.outer.lookup(x.Table, x.Name)
			if oamb {
				return nil, &schema.MismatchError{Stage: schema.StageBinding, Column: x.Name, Message: "ambiguous column reference"}
			}
			if oidx >= 0 {
				c := sc.outer.cols[oidx]
				return &OuterColumn{Index: oidx, Typ: c.info.Type, Null: c.info.Nullable, Name: c.name}, nil
			}
		}
		return nil, &schema.MismatchError{Stage: schema.StageBinding, Table: x.Table, Column: x.Name, Message: "unknown column in scope"}

	case *sqlparse.Lit:
		return bindLiteral(x), nil

	case *sqlparse.BinExpr:
		l, err := b.bindExpr(x.L, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		r, err := b.bindExpr(x.R, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		return b.makeBinary(x.Op, l, r)

	case *sqlparse.LogicExpr:
		l, err := b.bindExpr(x.L, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		r, err := b.bindExpr(x.R, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		if l.Type() != schema.TypeBool {
			return nil, schema.TypeError(l.Type(), schema.TypeBool, "boolean connective")
		}
		if r.Type() != schema.TypeBool {
			return nil, schema.TypeError(r.Type(), schema.TypeBool, "boolean connective")
		}
		if x.Op == sqlparse.LogicAnd {
			return &And{L: l, R: r}, nil
		}
		return &Or{L: l, R: r}, nil

	case *sqlparse.NotExpr:
		inner, err := b.bindExpr(x.E, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		if inner.Type() != schema.TypeBool {
			return nil, schema.TypeError(inner.Type(), schema.TypeBool, "NOT")
		}
		return &Not{E: inner}, nil

	case *sqlparse.IsNullExpr:
		inner, err := b.bindExpr(x.E, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		return &IsNull{Neg: x.Neg, E: inner}, nil

	case *sqlparse.DistinctFromExpr:
		l, err := b.bindExpr(x.L, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		r, err := b.bindExpr(x.R, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		return makeDistinctFrom(x.Neg, l, r)

	case *sqlparse.BetweenExpr:
		// x BETWEEN lo AND hi  =>  x >= lo AND x <= hi
		lo, err := b.bindExpr(&sqlparse.BinExpr{Op: sqlparse.OpGe, L: x.E, R: x.Lo}, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		hi, err := b.bindExpr(&sqlparse.BinExpr{Op: sqlparse.OpLe, L: x.E, R: x.Hi}, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		var out Expr = &And{L: lo, R: hi}
		if x.Neg {
			out = &Not{E: out}
		}
		return out, nil

	case *sqlparse.InExpr:
		if x.Sub != nil {
			return nil, &sqlparse.UnsupportedError{Construct: "IN subquery outside a top-level WHERE conjunction"}
		}
		needle, err := b.bindExpr(x.E, sc, allowAgg)
		if err != nil {
			return nil, err
		}
		list := make([]Expr, len(x.List))
		for i, l := range x.List {
			el, err := b.bindExpr(l, sc, allowAgg)
			if err != nil {
				return nil, err
			}
			el = retypeNull(el, needle.Type())
			if !typesCompatible(needle.Type(), el.Type()) {
				return nil, schema.TypeError(needle.Type(), el.Type(), "IN list")
			}
			list[i] = el
		}
		return &InList{Neg: x.Neg, E: needle, List: list}, nil

	case *sqlparse.ExistsExpr:
		return nil, &sqlparse.UnsupportedError{Construct: "EXISTS outside a top-level WHERE conjunction"}

	case *sqlparse.CaseExpr:
		desugared, err := desugarSimpleCase(x)
		if err != nil {
			return nil, err
		}
		var whens []CaseWhen
		for _, w := range desugared.Whens {
			cond, err := b.bindExpr(w.Cond, sc, allowAgg)
			if err != nil {
				return nil, err
			}
			if cond.Type() != schema.TypeBool {
				return nil, schema.TypeError(cond.Type(), schema.TypeBool, "CASE condition")
			}
			res, err := b.bindExpr(w.Result, sc, allowAgg)
			if err != nil {
				return nil, err
			}
			whens = append(whens, CaseWhen{Cond: cond, Result: res})
		}
		var els Expr
		if desugared.Else != nil {
			els, err = b.bindExpr(desugared.Else, sc, allowAgg)
			if err != nil {
				return nil, err
			}
		}
		return finishCase(whens, els)

	case *sqlparse.FuncExpr:
		if !allowAgg {
			return nil, &schema.MismatchError{
				Stage:   schema.StageBinding,
				Message: x.Name + " is not allowed here; aggregates belong in the select list or HAVING",
			}
		}
		return nil, &schema.MismatchError{Stage: schema.StageBinding, Message: "misplaced aggregate " + x.Name}

	case *sqlparse.SubqueryExpr:
		// Scalar subqueries bind without the enclosing scope: they must
		// be uncorrelated.
		sub, err := b.buildStmt(x.Stmt, nil)
		if err != nil {
			return nil, err
		}
		if len(sub.Columns()) != 1 {
			return nil, &schema.MismatchError{
				Stage:   schema.StageBinding,
				Message: fmt.Sprintf("scalar subquery must return one column, got %d", len(sub.Columns())),
			}
		}
		return &ScalarSubquery{Sub: sub}, nil

	default:
		return nil, fmt.Errorf("translation: unknown expression %T", e)
	}
}

func bindLiteral(l *sqlparse.Lit) *Literal {
	switch l.Kind {
	case sqlparse.LitInt:
		return &Literal{Typ: schema.TypeInt, Int: l.Int}
	case sqlparse.LitReal:
		return &Literal{Typ: schema.TypeReal, Real: l.Real}
	case sqlparse.LitString:
		return &Literal{Typ: schema.TypeText, Str: l.Str}
	case sqlparse.LitBool:
		return &Literal{Typ: schema.TypeBool, Bool: l.Bool}
	default:
		// Bare NULL defaults to integer; comparisons retype it from the
		// other operand.
		return &Literal{Typ: schema.TypeInt, Null: true}
	}
}

// retypeNull gives an untyped NULL literal the type of its context.
func retypeNull(e Expr, typ schema.Type) Expr {
	if l, ok := e.(*Literal); ok && l.Null {
		return &Literal{Typ: typ, Null: true}
	}
	return e
}

func (b *builder) makeBinary(op sqlparse.BinOp, l, r Expr) (Expr, error) {
	switch op {
	case sqlparse.OpEq, sqlparse.OpNe, sqlparse.OpLt, sqlparse.OpLe, sqlparse.OpGt, sqlparse.OpGe:
		l = retypeNull(l, r.Type())
		r = retypeNull(r, l.Type())
		if !typesCompatible(l.Type(), r.Type()) {
			return nil, schema.TypeError(l.Type(), r.Type(), "comparison")
		}
		return &Compare{Op: op, L: l, R: r}, nil

	case sqlparse.OpMod:
		if l.Type() != schema.TypeInt || r.Type() != schema.TypeInt {
			return nil, schema.TypeError(l.Type(), r.Type(), "%")
		}
		return &Arith{Op: op, Typ: schema.TypeInt, L: l, R: r}, nil

	default:
		l = retypeNull(l, schema.TypeInt)
		r = retypeNull(r, schema.TypeInt)
		if !l.Type().Numeric() || !r.Type().Numeric() {
			return nil, schema.TypeError(l.Type(), r.Type(), string(op))
		}
		// Integer division stays integral, as in SQLite.
		return &Arith{Op: op, Typ: commonType(l.Type(), r.Type()), L: l, R: r}, nil
	}
}

// makeDistinctFrom desugars x IS [NOT] DISTINCT FROM y into a CASE over
// the null pattern: two NULLs are not distinct, one NULL is, and two
// values fall through to plain equality. The result is two-valued.
func makeDistinctFrom(neg bool, l, r Expr) (Expr, error) {
	l = retypeNull(l, r.Type())
	r = retypeNull(r, l.Type())
	if !typesCompatible(l.Type(), r.Type()) {
		return nil, schema.TypeError(l.Type(), r.Type(), "IS DISTINCT FROM")
	}
	notDistinct := &Case{
		Whens: []CaseWhen{
			{
				Cond:   &And{L: &IsNull{E: l}, R: &IsNull{E: r}},
				Result: &Literal{Typ: schema.TypeBool, Bool: true},
			},
			{
				Cond:   &Or{L: &IsNull{E: l}, R: &IsNull{E: r}},
				Result: &Literal{Typ: schema.TypeBool, Bool: false},
			},
		},
		Else: &Compare{Op: sqlparse.OpEq, L: l, R: r},
		Typ:  schema.TypeBool,
	}
	if neg {
		return notDistinct, nil
	}
	return &Not{E: notDistinct}, nil
}

func typesCompatible(a, b schema.Type) bool {
	return a == b || (a.Numeric() && b.Numeric())
}

func commonType(a, b schema.Type) schema.Type {
	if a == b {
		return a
	}
	if a.Numeric() && b.Numeric() {
		return schema.TypeReal
	}
	return a
}

// desugarSimpleCase rewrites CASE x WHEN v THEN r ... into the searched
// form CASE WHEN x = v THEN r ....
func desugarSimpleCase(c *sqlparse.CaseExpr) (*sqlparse.CaseExpr, error) {
	if c.Operand == nil {
		return c, nil
	}
	out := &sqlparse.CaseExpr{Else: c.Else}
	for _, w := range c.Whens {
		out.Whens = append(out.Whens, sqlparse.WhenClause{
			Cond:   &sqlparse.BinExpr{Op: sqlparse.OpEq, L: c.Operand, R: w.Cond},
			Result: w.Result,
		})
	}
	return out, nil
}

// finishCase derives the common result type across arms and builds the
// Case node. Untyped NULL arms adopt the common type; a missing ELSE
// makes the result nullable.
func finishCase(whens []CaseWhen, els Expr) (Expr, error) {
	var typ schema.Type
	typed := false
	consider := func(e Expr) error {
		if l, ok := e.(*Literal); ok && l.Null {
			return nil
		}
		if !typed {
			typ = e.Type()
			typed = true
			return nil
		}
		if !typesCompatible(typ, e.Type()) {
			return schema.TypeError(typ, e.Type(), "CASE arms")
		}
		typ = commonType(typ, e.Type())
		return nil
	}
	for _, w := range whens {
		if err := consider(w.Result); err != nil {
			return nil, err
		}
	}
	if els != nil {
		if err := consider(els); err != nil {
			return nil, err
		}
	}
	if !typed {
		typ = schema.TypeInt
	}

	nullable := els == nil
	for i, w := range whens {
		whens[i].Result = retypeNull(w.Result, typ)
		if whens[i].Result.Nullable() {
			nullable = true
		}
	}
	if els != nil {
		els = retypeNull(els, typ)
		if els.Nullable() {
			nullable = true
		}
	}
	return &Case{Whens: whens, Else: els, Typ: typ, Null: nullable}, nil
}
