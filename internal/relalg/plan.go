package relalg

import (
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// ColInfo describes one output column of a plan node.
type ColInfo struct {
	Name     string
	Type     schema.Type
	Nullable bool
}

// Plan is the sealed interface for canonical operator tree nodes.
//
// Only the node types in this package implement it. The marker method
// seals the interface; Columns exposes the derived output schema, which
// is fully determined before any encoding happens.
type Plan interface {
	planNode()
	Columns() []ColInfo
}

// Scan reads one base table.
type Scan struct {
	Table      string
	TableIndex int
	Cols       []ColInfo
}

func (*Scan) planNode() {}

// Columns returns the table's column schema.
func (s *Scan) Columns() []ColInfo { return s.Cols }

// Filter keeps input rows whose predicate evaluates to true.
// Rows where the predicate is false or unknown are dropped.
type Filter struct {
	Input Plan
	Pred  Expr
}

func (*Filter) planNode() {}

// Columns passes the input schema through unchanged.
func (f *Filter) Columns() []ColInfo { return f.Input.Columns() }

// Project evaluates one expression per output column.
type Project struct {
	Input Plan
	Exprs []Expr
	Cols  []ColInfo
}

func (*Project) planNode() {}

// Columns returns the projected schema.
func (p *Project) Columns() []ColInfo { return p.Cols }

// JoinKind is the normalized join flavor. RIGHT joins are rewritten to
// LEFT joins during build, so only inner, left, full and cross remain.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinFull
	JoinCross
)

// String returns the SQL spelling of the kind.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinFull:
		return "FULL"
	default:
		return "CROSS"
	}
}

// Join combines two inputs. The predicate is bound over the concatenated
// column schemas (left columns first). For outer joins, columns of the
// non-preserved side become nullable in the output.
type Join struct {
	Kind  JoinKind
	Left  Plan
	Right Plan
	Pred  Expr // nil for cross joins
	Cols  []ColInfo
}

func (*Join) planNode() {}

// Columns returns the concatenated (and outer-nullable-adjusted) schema.
func (j *Join) Columns() []ColInfo { return j.Cols }

// SemiJoin keeps left rows for which the subplan produces at least one
// row whose predicate is true. Output schema is the left schema.
//
// The subplan may reference left columns through OuterColumn expressions
// (correlated subqueries).
type SemiJoin struct {
	Left Plan
	Sub  Plan
	Pred Expr // bound over sub columns, with OuterColumn refs to left
}

func (*SemiJoin) planNode() {}

// Columns returns the left input schema.
func (s *SemiJoin) Columns() []ColInfo { return s.Left.Columns() }

// AntiJoin keeps left rows for which no subplan row matches.
//
// NullAware selects NOT IN semantics: a left row is kept only when every
// comparison is definitely false; if any comparison is unknown (NULL on
// either side) the row is dropped, matching SQL's NOT IN. When false,
// the semantics are NOT EXISTS: kept unless some row matches with true.
type AntiJoin struct {
	Left      Plan
	Sub       Plan
	Pred      Expr
	NullAware bool
}

func (*AntiJoin) planNode() {}

// Columns returns the left input schema.
func (a *AntiJoin) Columns() []ColInfo { return a.Left.Columns() }

// AggFunc enumerates the supported aggregate functions.
type AggFunc int

const (
	AggCountStar AggFunc = iota
	AggCount
	AggSum
	AggAvg
	AggMin
	AggMax
)

// String returns the SQL name of the function.
func (f AggFunc) String() string {
	switch f {
	case AggCountStar:
		return "COUNT(*)"
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	default:
		return "MAX"
	}
}

// AggExpr is one aggregate computation over a group.
type AggExpr struct {
	Func     AggFunc
	Arg      Expr // nil for COUNT(*)
	Distinct bool
}

// Aggregate groups input rows by the group expressions and evaluates the
// aggregates per group. Output columns are the group expressions followed
// by the aggregates, in order. With no group expressions the input forms
// a single group and exactly one output row is produced even on empty
// input (COUNT yields 0, the other aggregates yield NULL).
type Aggregate struct {
	Input   Plan
	GroupBy []Expr
	Aggs    []AggExpr
	Cols    []ColInfo
}

func (*Aggregate) planNode() {}

// Columns returns group columns followed by aggregate columns.
func (a *Aggregate) Columns() []ColInfo { return a.Cols }

// Distinct collapses duplicate rows (set semantics).
// NULLs compare equal for duplicate elimination, as in SQL DISTINCT.
type Distinct struct {
	Input Plan
}

func (*Distinct) planNode() {}

// Columns passes the input schema through unchanged.
func (d *Distinct) Columns() []ColInfo { return d.Input.Columns() }

// SortKey is one ordering key bound over the input schema.
type SortKey struct {
	Expr Expr
	Desc bool
}

// Sort orders rows. A Sort node survives build only underneath a Limit;
// pure reordering is dropped because it cannot distinguish two queries
// under bag or set semantics.
type Sort struct {
	Input Plan
	Keys  []SortKey
}

func (*Sort) planNode() {}

// Columns passes the input schema through unchanged.
func (s *Sort) Columns() []ColInfo { return s.Input.Columns() }

// Limit keeps the first N rows of its input. NULLs sort first ascending,
// matching SQLite; ties beyond the declared keys are broken by row
// position, making the encoding deterministic.
type Limit struct {
	Input Plan
	N     int64
}

func (*Limit) planNode() {}

// Columns passes the input schema through unchanged.
func (l *Limit) Columns() []ColInfo { return l.Input.Columns() }

// SetOp combines two inputs with UNION/INTERSECT/EXCEPT. All=false
// applies set semantics (duplicates collapse, NULLs comparing equal).
type SetOp struct {
	Op    sqlparse.SetOpKind
	All   bool
	Left  Plan
	Right Plan
	Cols  []ColInfo
}

func (*SetOp) planNode() {}

// Columns returns the combined schema: names from the left input,
// nullability the union of both sides.
func (s *SetOp) Columns() []ColInfo { return s.Cols }
