package symbolic

import (
	"fmt"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// TV is a three-valued truth value.
type TV int

const (
	TVFalse TV = iota
	TVUnknown
	TVTrue
)

// String returns the SQL name of the truth value.
func (t TV) String() string {
	switch t {
	case TVTrue:
		return "true"
	case TVFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Value is a concrete SQL value, possibly NULL.
type Value struct {
	Null bool
	Typ  schema.Type
	Int  int64
	Real float64
	Str  string
	Bool bool
}

// NullValue returns the NULL of the given type.
func NullValue(typ schema.Type) Value { return Value{Null: true, Typ: typ} }

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{Typ: schema.TypeInt, Int: v} }

// RealValue wraps a float.
func RealValue(v float64) Value { return Value{Typ: schema.TypeReal, Real: v} }

// TextValue wraps a string.
func TextValue(v string) Value { return Value{Typ: schema.TypeText, Str: v} }

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{Typ: schema.TypeBool, Bool: v} }

// String renders the value as a SQL literal.
func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	switch v.Typ {
	case schema.TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case schema.TypeReal:
		return fmt.Sprintf("%g", v.Real)
	case schema.TypeText:
		return fmt.Sprintf("'%s'", v.Str)
	default:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	}
}

// asReal widens a numeric value to float64.
func (v Value) asReal() float64 {
	if v.Typ == schema.TypeInt {
		return float64(v.Int)
	}
	return v.Real
}

// compareValues orders two non-NULL values of compatible types.
// Returns -1, 0 or 1. Integers and reals compare numerically; text
// compares lexicographically; false sorts before true.
func compareValues(a, b Value) int {
	if a.Typ.Numeric() && b.Typ.Numeric() {
		if a.Typ == schema.TypeInt && b.Typ == schema.TypeInt {
			switch {
			case a.Int < b.Int:
				return -1
			case a.Int > b.Int:
				return 1
			}
			return 0
		}
		ar, br := a.asReal(), b.asReal()
		switch {
		case ar < br:
			return -1
		case ar > br:
			return 1
		}
		return 0
	}
	switch a.Typ {
	case schema.TypeText:
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		}
		return 0
	default: // bool
		switch {
		case !a.Bool && b.Bool:
			return -1
		case a.Bool && !b.Bool:
			return 1
		}
		return 0
	}
}

// Term is the sealed interface for symbolic value expressions.
type Term interface {
	termNode()
	Type() schema.Type
}

// Cell references a base-table cell variable.
type Cell struct {
	Table, Row, Col int
	Typ             schema.Type
}

func (*Cell) termNode() {}

// Type returns the cell's column type.
func (c *Cell) Type() schema.Type { return c.Typ }

// Const is a fixed value.
type Const struct {
	Val Value
}

func (*Const) termNode() {}

// Type returns the constant's type.
func (c *Const) Type() schema.Type { return c.Val.Typ }

// Arith combines two numeric terms. NULL propagates.
type Arith struct {
	Op   sqlparse.BinOp
	Typ  schema.Type
	L, R Term
}

func (*Arith) termNode() {}

// Type returns the derived result type.
func (a *Arith) Type() schema.Type { return a.Typ }

// If selects Then exactly when Cond is true; unknown and false both
// select Else, matching CASE's arm semantics.
type If struct {
	Cond       Formula
	Then, Else Term
	Typ        schema.Type
}

func (*If) termNode() {}

// Type returns the common branch type.
func (i *If) Type() schema.Type { return i.Typ }

// Cast widens an integer term to real. NULL passes through.
type Cast struct {
	To schema.Type
	T  Term
}

func (*Cast) termNode() {}

// Type returns the target type.
func (c *Cast) Type() schema.Type { return c.To }

// FromBool reifies a formula as a boolean value: unknown becomes NULL.
type FromBool struct {
	F Formula
}

func (*FromBool) termNode() {}

// Type of a reified formula is boolean.
func (f *FromBool) Type() schema.Type { return schema.TypeBool }

// Formula is the sealed interface for three-valued symbolic predicates.
type Formula interface {
	formulaNode()
}

// Bool is a truth-value constant.
type Bool struct {
	TV TV
}

func (*Bool) formulaNode() {}

// True and False are the shared two-valued constants.
var (
	True  = &Bool{TV: TVTrue}
	False = &Bool{TV: TVFalse}
)

// Presence is a base-table row presence variable. Two-valued.
type Presence struct {
	Table, Row int
}

func (*Presence) formulaNode() {}

// Cmp compares two terms under SQL semantics: the result is unknown
// whenever either side is NULL.
type Cmp struct {
	Op   sqlparse.BinOp
	L, R Term
}

func (*Cmp) formulaNode() {}

// NullTest is IS [NOT] NULL. Two-valued.
type NullTest struct {
	T   Term
	Neg bool
}

func (*NullTest) formulaNode() {}

// All is n-ary conjunction. Empty All is true.
type All struct {
	Fs []Formula
}

func (*All) formulaNode() {}

// Any is n-ary disjunction. Empty Any is false.
type Any struct {
	Fs []Formula
}

func (*Any) formulaNode() {}

// Neg is three-valued negation.
type Neg struct {
	F Formula
}

func (*Neg) formulaNode() {}

// Is collapses three-valued F to a two-valued test: true exactly when F
// evaluates to Want.
type Is struct {
	F    Formula
	Want TV
}

func (*Is) formulaNode() {}

// IsTrue wraps f so that unknown counts as false, the coercion SQL
// applies to WHERE, HAVING and join predicates.
func IsTrue(f Formula) Formula { return &Is{F: f, Want: TVTrue} }

// IsFalse is true exactly when f is definitely false; a NOT IN row
// survives only under this stricter test.
func IsFalse(f Formula) Formula { return &Is{F: f, Want: TVFalse} }

// And builds a conjunction, flattening nested All nodes.
func And(fs ...Formula) Formula {
	flat := make([]Formula, 0, len(fs))
	for _, f := range fs {
		if a, ok := f.(*All); ok {
			flat = append(flat, a.Fs...)
			continue
		}
		if b, ok := f.(*Bool); ok && b.TV == TVTrue {
			continue
		}
		flat = append(flat, f)
	}
	switch len(flat) {
	case 0:
		return True
	case 1:
		return flat[0]
	}
	return &All{Fs: flat}
}

// Or builds a disjunction, flattening nested Any nodes.
func Or(fs ...Formula) Formula {
	flat := make([]Formula, 0, len(fs))
	for _, f := range fs {
		if a, ok := f.(*Any); ok {
			flat = append(flat, a.Fs...)
			continue
		}
		if b, ok := f.(*Bool); ok && b.TV == TVFalse {
			continue
		}
		flat = append(flat, f)
	}
	switch len(flat) {
	case 0:
		return False
	case 1:
		return flat[0]
	}
	return &Any{Fs: flat}
}

// Not negates a formula, collapsing double negation.
func Not(f Formula) Formula {
	if n, ok := f.(*Neg); ok {
		return n.F
	}
	if b, ok := f.(*Bool); ok {
		switch b.TV {
		case TVTrue:
			return False
		case TVFalse:
			return True
		}
	}
	return &Neg{F: f}
}

// Assignment provides (possibly partial) values for instance variables.
// The second return reports whether the variable is bound yet.
type Assignment interface {
	PresenceVal(table, row int) (bool, bool)
	CellVal(table, row, col int) (Value, bool)
}

// Eval evaluates a formula under a partial assignment. known is true
// when the truth value is already forced regardless of how the unbound
// variables are filled in.
func Eval(f Formula, a Assignment) (tv TV, known bool) {
	switch x := f.(type) {
	case *Bool:
		return x.TV, true

	case *Presence:
		p, ok := a.PresenceVal(x.Table, x.Row)
		if !ok {
			return TVUnknown, false
		}
		if p {
			return TVTrue, true
		}
		return TVFalse, true

	case *Cmp:
		l, lok := EvalTerm(x.L, a)
		r, rok := EvalTerm(x.R, a)
		// A NULL on either side forces unknown even if the other side is
		// still unbound.
		if lok && l.Null || rok && r.Null {
			return TVUnknown, true
		}
		if !lok || !rok {
			return TVUnknown, false
		}
		return evalCmp(x.Op, l, r), true

	case *NullTest:
		v, ok := EvalTerm(x.T, a)
		if !ok {
			return TVUnknown, false
		}
		if v.Null != x.Neg {
			return TVTrue, true
		}
		return TVFalse, true

	case *All:
		result := TVTrue
		determined := true
		for _, sub := range x.Fs {
			tv, ok := Eval(sub, a)
			if ok && tv == TVFalse {
				return TVFalse, true
			}
			if !ok {
				determined = false
				continue
			}
			if tv == TVUnknown {
				result = TVUnknown
			}
		}
		if !determined {
			return TVUnknown, false
		}
		return result, true

	case *Any:
		result := TVFalse
		determined := true
		for _, sub := range x.Fs {
			tv, ok := Eval(sub, a)
			if ok && tv == TVTrue {
				return TVTrue, true
			}
			if !ok {
				determined = false
				continue
			}
			if tv == TVUnknown {
				result = TVUnknown
			}
		}
		if !determined {
			return TVUnknown, false
		}
		return result, true

	case *Neg:
		tv, ok := Eval(x.F, a)
		if !ok {
			return TVUnknown, false
		}
		switch tv {
		case TVTrue:
			return TVFalse, true
		case TVFalse:
			return TVTrue, true
		}
		return TVUnknown, true

	case *Is:
		tv, ok := Eval(x.F, a)
		if !ok {
			return TVUnknown, false
		}
		if tv == x.Want {
			return TVTrue, true
		}
		return TVFalse, true

	default:
		panic(fmt.Sprintf("symbolic: unknown formula %T", f))
	}
}

func evalCmp(op sqlparse.BinOp, l, r Value) TV {
	c := compareValues(l, r)
	var hold bool
	switch op {
	case sqlparse.OpEq:
		hold = c == 0
	case sqlparse.OpNe:
		hold = c != 0
	case sqlparse.OpLt:
		hold = c < 0
	case sqlparse.OpLe:
		hold = c <= 0
	case sqlparse.OpGt:
		hold = c > 0
	default: // >=
		hold = c >= 0
	}
	if hold {
		return TVTrue
	}
	return TVFalse
}

// EvalTerm evaluates a term under a partial assignment. ok is false
// while some needed variable is unbound.
func EvalTerm(t Term, a Assignment) (v Value, ok bool) {
	switch x := t.(type) {
	case *Cell:
		return a.CellVal(x.Table, x.Row, x.Col)

	case *Const:
		return x.Val, true

	case *Arith:
		l, lok := EvalTerm(x.L, a)
		r, rok := EvalTerm(x.R, a)
		if lok && l.Null || rok && r.Null {
			return NullValue(x.Typ), true
		}
		if !lok || !rok {
			return Value{}, false
		}
		return evalArith(x.Op, x.Typ, l, r), true

	case *If:
		tv, ok := Eval(x.Cond, a)
		if !ok {
			return Value{}, false
		}
		if tv == TVTrue {
			return EvalTerm(x.Then, a)
		}
		return EvalTerm(x.Else, a)

	case *Cast:
		v, ok := EvalTerm(x.T, a)
		if !ok {
			return Value{}, false
		}
		if v.Null {
			return NullValue(x.To), true
		}
		if x.To == schema.TypeReal {
			return RealValue(v.asReal()), true
		}
		return v, true

	case *FromBool:
		tv, ok := Eval(x.F, a)
		if !ok {
			return Value{}, false
		}
		switch tv {
		case TVTrue:
			return BoolValue(true), true
		case TVFalse:
			return BoolValue(false), true
		}
		return NullValue(schema.TypeBool), true

	default:
		panic(fmt.Sprintf("symbolic: unknown term %T", t))
	}
}

func evalArith(op sqlparse.BinOp, typ schema.Type, l, r Value) Value {
	if typ == schema.TypeInt {
		switch op {
		case sqlparse.OpAdd:
			return IntValue(l.Int + r.Int)
		case sqlparse.OpSub:
			return IntValue(l.Int - r.Int)
		case sqlparse.OpMul:
			return IntValue(l.Int * r.Int)
		case sqlparse.OpDiv:
			if r.Int == 0 {
				return NullValue(schema.TypeInt) // SQLite: x/0 is NULL
			}
			return IntValue(l.Int / r.Int)
		default: // %
			if r.Int == 0 {
				return NullValue(schema.TypeInt)
			}
			return IntValue(l.Int % r.Int)
		}
	}
	lr, rr := l.asReal(), r.asReal()
	switch op {
	case sqlparse.OpAdd:
		return RealValue(lr + rr)
	case sqlparse.OpSub:
		return RealValue(lr - rr)
	case sqlparse.OpMul:
		return RealValue(lr * rr)
	default: // /
		if rr == 0 {
			return NullValue(schema.TypeReal)
		}
		return RealValue(lr / rr)
	}
}
