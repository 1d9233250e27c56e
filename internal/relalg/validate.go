package relalg

import "fmt"

// Validate re-checks structural invariants of a built plan: output
// schemas are populated and consistent, column references stay in range,
// and Sort appears only directly beneath Limit. Build always produces
// valid plans; this guards against hand-constructed trees and future
// rewrites.
func Validate(plan Plan) error {
	return validateNode(plan, false)
}

func validateNode(p Plan, underLimit bool) error {
	if len(p.Columns()) == 0 {
		return fmt.Errorf("translation: %T has no output columns", p)
	}

	switch n := p.(type) {
	case *Scan:
		return nil

	case *Filter:
		if err := validateExpr(n.Pred, len(n.Input.Columns())); err != nil {
			return err
		}
		return validateNode(n.Input, false)

	case *Project:
		if len(n.Exprs) != len(n.Cols) {
			return fmt.Errorf("translation: projection has %d expressions for %d columns", len(n.Exprs), len(n.Cols))
		}
		width := len(n.Input.Columns())
		for _, e := range n.Exprs {
			if err := validateExpr(e, width); err != nil {
				return err
			}
		}
		return validateNode(n.Input, false)

	case *Join:
		want := len(n.Left.Columns()) + len(n.Right.Columns())
		if len(n.Cols) != want {
			return fmt.Errorf("translation: join outputs %d columns, inputs provide %d", len(n.Cols), want)
		}
		if n.Pred != nil {
			if err := validateExpr(n.Pred, want); err != nil {
				return err
			}
		}
		if err := validateNode(n.Left, false); err != nil {
			return err
		}
		return validateNode(n.Right, false)

	case *SemiJoin:
		if n.Pred != nil {
			if err := validateExpr(n.Pred, len(n.Sub.Columns())); err != nil {
				return err
			}
		}
		if err := validateNode(n.Left, false); err != nil {
			return err
		}
		return validateNode(n.Sub, false)

	case *AntiJoin:
		if n.Pred != nil {
			if err := validateExpr(n.Pred, len(n.Sub.Columns())); err != nil {
				return err
			}
		}
		if err := validateNode(n.Left, false); err != nil {
			return err
		}
		return validateNode(n.Sub, false)

	case *Aggregate:
		width := len(n.Input.Columns())
		if len(n.Cols) != len(n.GroupBy)+len(n.Aggs) {
			return fmt.Errorf("translation: aggregate outputs %d columns for %d groups and %d aggregates",
				len(n.Cols), len(n.GroupBy), len(n.Aggs))
		}
		for _, g := range n.GroupBy {
			if err := validateExpr(g, width); err != nil {
				return err
			}
		}
		for _, a := range n.Aggs {
			if a.Arg != nil {
				if err := validateExpr(a.Arg, width); err != nil {
					return err
				}
			}
		}
		return validateNode(n.Input, false)

	case *Distinct:
		return validateNode(n.Input, false)

	case *Sort:
		if !underLimit {
			return fmt.Errorf("translation: Sort outside Limit is unobservable")
		}
		width := len(n.Input.Columns())
		for _, k := range n.Keys {
			if err := validateExpr(k.Expr, width); err != nil {
				return err
			}
		}
		return validateNode(n.Input, false)

	case *Limit:
		if n.N < 0 {
			return fmt.Errorf("translation: negative LIMIT %d", n.N)
		}
		return validateNode(n.Input, true)

	case *SetOp:
		if len(n.Left.Columns()) != len(n.Right.Columns()) {
			return fmt.Errorf("translation: %s operand arity mismatch", n.Op)
		}
		if err := validateNode(n.Left, false); err != nil {
			return err
		}
		return validateNode(n.Right, false)

	default:
		return fmt.Errorf("translation: unknown plan node %T", p)
	}
}

func validateExpr(e Expr, width int) error {
	switch x := e.(type) {
	case *ColumnIndex:
		if x.Index < 0 || x.Index >= width {
			return fmt.Errorf("translation: column reference %d out of range [0,%d)", x.Index, width)
		}
	case *OuterColumn, *Literal:
	case *Compare:
		if err := validateExpr(x.L, width); err != nil {
			return err
		}
		return validateExpr(x.R, width)
	case *Arith:
		if err := validateExpr(x.L, width); err != nil {
			return err
		}
		return validateExpr(x.R, width)
	case *And:
		if err := validateExpr(x.L, width); err != nil {
			return err
		}
		return validateExpr(x.R, width)
	case *Or:
		if err := validateExpr(x.L, width); err != nil {
			return err
		}
		return validateExpr(x.R, width)
	case *Not:
		return validateExpr(x.E, width)
	case *IsNull:
		return validateExpr(x.E, width)
	case *Case:
		for _, w := range x.Whens {
			if err := validateExpr(w.Cond, width); err != nil {
				return err
			}
			if err := validateExpr(w.Result, width); err != nil {
				return err
			}
		}
		if x.Else != nil {
			return validateExpr(x.Else, width)
		}
	case *InList:
		if err := validateExpr(x.E, width); err != nil {
			return err
		}
		for _, l := range x.List {
			if err := validateExpr(l, width); err != nil {
				return err
			}
		}
	case *ScalarSubquery:
		return validateNode(x.Sub, false)
	default:
		return fmt.Errorf("translation: unknown expression %T", e)
	}
	return nil
}
