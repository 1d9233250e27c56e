package sqlparse

// Stmt is the sealed interface for query statements.
// Only SelectStmt and SetOpStmt implement it.
type Stmt interface {
	stmtNode()
}

// SelectStmt is a single SELECT block.
type SelectStmt struct {
	Distinct bool
	Items    []SelectItem
	From     []TableExpr // comma-separated FROM entries; each may be a join tree
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    *int64
}

func (*SelectStmt) stmtNode() {}

// SetOpKind is a set operation between two statements.
type SetOpKind int

const (
	SetUnion SetOpKind = iota
	SetIntersect
	SetExcept
)

// String returns the SQL spelling of the operator.
func (k SetOpKind) String() string {
	switch k {
	case SetUnion:
		return "UNION"
	case SetIntersect:
		return "INTERSECT"
	default:
		return "EXCEPT"
	}
}

// SetOpStmt combines two statements with UNION/INTERSECT/EXCEPT.
// All selects set semantics off (bag semantics retained).
// ORDER BY/LIMIT on the combined result attach to the outermost SetOpStmt.
type SetOpStmt struct {
	Op      SetOpKind
	All     bool
	Left    Stmt
	Right   Stmt
	OrderBy []OrderItem
	Limit   *int64
}

func (*SetOpStmt) stmtNode() {}

// SelectItem is one projection: an expression with optional alias, or *.
type SelectItem struct {
	Star  bool   // SELECT * (or t.*)
	Table string // qualifier for t.*; empty for bare *
	Expr  Expr
	Alias string
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// TableExpr is the sealed interface for FROM entries.
type TableExpr interface {
	tableNode()
}

// TableName is a base-table reference with optional alias.
type TableName struct {
	Name  string
	Alias string
}

func (*TableName) tableNode() {}

// SubqueryTable is a derived table: FROM (SELECT ...) AS alias.
type SubqueryTable struct {
	Stmt  Stmt
	Alias string
}

func (*SubqueryTable) tableNode() {}

// JoinKind distinguishes join flavors before normalization.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

// String returns the SQL spelling of the join kind.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	default:
		return "CROSS"
	}
}

// JoinExpr is an explicit join. NATURAL and USING joins keep their sugar
// here; normalization into equality predicates happens during plan build,
// once column schemas are known.
type JoinExpr struct {
	Kind    JoinKind
	Natural bool
	Using   []string
	Left    TableExpr
	Right   TableExpr
	On      Expr // nil for NATURAL/USING/CROSS
}

func (*JoinExpr) tableNode() {}

// Expr is the sealed interface for scalar and boolean expressions.
type Expr interface {
	exprNode()
}

// ColRef is a possibly-qualified column reference.
type ColRef struct {
	Table string // empty when unqualified
	Name  string
}

func (*ColRef) exprNode() {}

// LitKind classifies literal values.
type LitKind int

const (
	LitInt LitKind = iota
	LitReal
	LitString
	LitBool
	LitNull
)

// Lit is a literal constant.
type Lit struct {
	Kind LitKind
	Int  int64
	Real float64
	Str  string
	Bool bool
}

func (*Lit) exprNode() {}

// BinOp covers arithmetic and comparison operators.
type BinOp string

const (
	OpAdd BinOp = "+"
	OpSub BinOp = "-"
	OpMul BinOp = "*"
	OpDiv BinOp = "/"
	OpMod BinOp = "%"
	OpEq  BinOp = "="
	OpNe  BinOp = "<>"
	OpLt  BinOp = "<"
	OpLe  BinOp = "<="
	OpGt  BinOp = ">"
	OpGe  BinOp = ">="
)

// BinExpr is a binary arithmetic or comparison expression.
type BinExpr struct {
	Op   BinOp
	L, R Expr
}

func (*BinExpr) exprNode() {}

// LogicOp is AND or OR.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// LogicExpr is a binary boolean connective under three-valued logic.
type LogicExpr struct {
	Op   LogicOp
	L, R Expr
}

func (*LogicExpr) exprNode() {}

// NotExpr negates a boolean expression (three-valued: NOT unknown = unknown).
type NotExpr struct {
	E Expr
}

func (*NotExpr) exprNode() {}

// IsNullExpr tests nullness exactly (never unknown).
type IsNullExpr struct {
	Neg bool // IS NOT NULL
	E   Expr
}

func (*IsNullExpr) exprNode() {}

// DistinctFromExpr is x IS [NOT] DISTINCT FROM y: null-safe comparison.
// Unlike = and <>, the result is never unknown; two NULLs are not
// distinct. Desugared during plan build.
type DistinctFromExpr struct {
	Neg  bool // IS NOT DISTINCT FROM
	L, R Expr
}

func (*DistinctFromExpr) exprNode() {}

// BetweenExpr is x [NOT] BETWEEN lo AND hi. Desugared during plan build.
type BetweenExpr struct {
	Neg    bool
	E      Expr
	Lo, Hi Expr
}

func (*BetweenExpr) exprNode() {}

// InExpr is x [NOT] IN (list) or x [NOT] IN (subquery).
type InExpr struct {
	Neg  bool
	E    Expr
	List []Expr // nil when Sub is set
	Sub  Stmt   // nil when List is set
}

func (*InExpr) exprNode() {}

// ExistsExpr is [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Neg bool
	Sub Stmt
}

func (*ExistsExpr) exprNode() {}

// WhenClause is one WHEN cond THEN result arm of a CASE.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CaseExpr is a searched or simple CASE. For simple CASE, Operand is
// non-nil and each WHEN condition compares Operand to the arm value.
type CaseExpr struct {
	Operand Expr // nil for searched CASE
	Whens   []WhenClause
	Else    Expr // nil means ELSE NULL
}

func (*CaseExpr) exprNode() {}

// FuncExpr is an aggregate call: COUNT/SUM/AVG/MIN/MAX.
// Star is COUNT(*). Distinct is e.g. COUNT(DISTINCT x).
type FuncExpr struct {
	Name     string // uppercased
	Star     bool
	Distinct bool
	Args     []Expr
}

func (*FuncExpr) exprNode() {}

// SubqueryExpr is a scalar subquery used in expression position.
type SubqueryExpr struct {
	Stmt Stmt
}

func (*SubqueryExpr) exprNode() {}
