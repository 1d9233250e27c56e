package relalg

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// Build lowers a parsed statement into a canonical plan bound against
// the schema. All desugaring happens here; the resulting plan carries
// derived output schemas on every node.
func Build(stmt sqlparse.Stmt, sch *schema.Schema) (Plan, error) {
	b := &builder{schema: sch}
	plan, err := b.buildStmt(stmt, nil)
	if err != nil {
		return nil, err
	}
	if err := Validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// scopeCol is one visible column during binding: the (folded) table
// alias it belongs to and its schema info. Position in the scope slice
// is the column index in the current intermediate plan.
type scopeCol struct {
	alias string
	name  string
	info  ColInfo
}

// scope is a lexical binding scope. outer links to the enclosing query
// for correlated subqueries.
type scope struct {
	cols  []scopeCol
	outer *scope
}

type builder struct {
	schema *schema.Schema
}

func (b *builder) buildStmt(stmt sqlparse.Stmt, outer *scope) (Plan, error) {
	switch s := stmt.(type) {
	case *sqlparse.SelectStmt:
		plan, _, err := b.buildSelect(s, outer)
		return plan, err
	case *sqlparse.SetOpStmt:
		return b.buildSetOp(s, outer)
	default:
		return nil, fmt.Errorf("translation: unknown statement type %T", stmt)
	}
}

func (b *builder) buildSetOp(s *sqlparse.SetOpStmt, outer *scope) (Plan, error) {
	left, err := b.buildStmt(s.Left, outer)
	if err != nil {
		return nil, err
	}
	right, err := b.buildStmt(s.Right, outer)
	if err != nil {
		return nil, err
	}
	lc, rc := left.Columns(), right.Columns()
	if len(lc) != len(rc) {
		return nil, &schema.MismatchError{
			Stage:   schema.StageBinding,
			Message: fmt.Sprintf("%s operands have different arity (%d vs %d)", s.Op, len(lc), len(rc)),
		}
	}
	cols := make([]ColInfo, len(lc))
	for i := range lc {
		if !typesCompatible(lc[i].Type, rc[i].Type) {
			return nil, schema.TypeError(lc[i].Type, rc[i].Type, fmt.Sprintf("%s column %d", s.Op, i+1))
		}
		cols[i] = ColInfo{
			Name:     lc[i].Name,
			Type:     commonType(lc[i].Type, rc[i].Type),
			Nullable: lc[i].Nullable || rc[i].Nullable,
		}
	}
	var plan Plan = &SetOp{Op: s.Op, All: s.All, Left: left, Right: right, Cols: cols}

	// ORDER BY on a set operation matters only under LIMIT.
	if s.Limit != nil {
		plan, err = b.applyOrderLimit(plan, s.OrderBy, s.Limit, nil)
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (b *builder) buildSelect(sel *sqlparse.SelectStmt, outer *scope) (Plan, *scope, error) {
	// FROM clause: fold entries into one plan with a flat scope.
	var plan Plan
	var sc *scope
	if len(sel.From) == 0 {
		return nil, nil, &sqlparse.UnsupportedError{Construct: "SELECT without FROM"}
	}
	for _, te := range sel.From {
		p, s, err := b.buildTableExpr(te, outer)
		if err != nil {
			return nil, nil, err
		}
		if plan == nil {
			plan, sc = p, s
			continue
		}
		// Comma join: plain cross product.
		joined := append(append([]scopeCol{}, sc.cols...), s.cols...)
		plan = &Join{Kind: JoinCross, Left: plan, Right: p, Cols: scopeInfos(joined)}
		sc = &scope{cols: joined, outer: outer}
	}
	sc.outer = outer

	// WHERE: plain conjuncts become a Filter; subquery conjuncts become
	// semi/anti joins over the filtered plan.
	if sel.Where != nil {
		plain, subs := splitConjuncts(sel.Where)
		var pred Expr
		for _, c := range plain {
			e, err := b.bindExpr(c, sc, false)
			if err != nil {
				return nil, nil, err
			}
			if e.Type() != schema.TypeBool {
				return nil, nil, schema.TypeError(e.Type(), schema.TypeBool, "WHERE clause")
			}
			if pred == nil {
				pred = e
			} else {
				pred = &And{L: pred, R: e}
			}
		}
		if pred != nil {
			plan = &Filter{Input: plan, Pred: pred}
		}
		for _, c := range subs {
			var err error
			plan, err = b.buildSubqueryConjunct(c, plan, sc)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	// Aggregation.
	hasAggs := len(sel.GroupBy) > 0 || sel.Having != nil
	for _, it := range sel.Items {
		if !it.Star && containsAggregate(it.Expr) {
			hasAggs = true
		}
	}

	if hasAggs {
		var err error
		plan, _, err = b.buildAggregate(sel, plan, sc)
		if err != nil {
			return nil, nil, err
		}
	} else {
		var err error
		plan, _, err = b.buildProjection(sel.Items, plan, sc)
		if err != nil {
			return nil, nil, err
		}
	}

	if sel.Distinct {
		plan = &Distinct{Input: plan}
	}

	// ORDER BY is observable only under LIMIT; otherwise dropped.
	if sel.Limit != nil {
		var err error
		plan, err = b.applyOrderLimit(plan, sel.OrderBy, sel.Limit, sel.Items)
		if err != nil {
			return nil, nil, err
		}
	}

	outScope := &scope{outer: outer}
	for _, ci := range plan.Columns() {
		outScope.cols = append(outScope.cols, scopeCol{name: ci.Name, info: ci})
	}
	return plan, outScope, nil
}

func scopeInfos(cols []scopeCol) []ColInfo {
	infos := make([]ColInfo, len(cols))
	for i, c := range cols {
		infos[i] = c.info
	}
	return infos
}

func (b *builder) buildTableExpr(te sqlparse.TableExpr, outer *scope) (Plan, *scope, error) {
	switch t := te.(type) {
	case *sqlparse.TableName:
		tbl, ok := b.schema.Table(t.Name)
		if !ok {
			return nil, nil, &schema.MismatchError{Stage: schema.StageBinding, Table: t.Name, Message: "unknown table"}
		}
		ti, _ := b.schema.TableIndex(t.Name)
		alias := t.Alias
		if alias == "" {
			alias = tbl.Name
		}
		sc := &scope{outer: outer}
		var cols []ColInfo
		for _, c := range tbl.Columns {
			info := ColInfo{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
			cols = append(cols, info)
			sc.cols = append(sc.cols, scopeCol{alias: schema.Fold(alias), name: c.Name, info: info})
		}
		return &Scan{Table: tbl.Name, TableIndex: ti, Cols: cols}, sc, nil

	case *sqlparse.SubqueryTable:
		sub, err := b.buildStmt(t.Stmt, outer)
		if err != nil {
			return nil, nil, err
		}
		sc := &scope{outer: outer}
		for _, ci := range sub.Columns() {
			sc.cols = append(sc.cols, scopeCol{alias: schema.Fold(t.Alias), name: ci.Name, info: ci})
		}
		return sub, sc, nil

	case *sqlparse.JoinExpr:
		return b.buildJoin(t, outer)

	default:
		return nil, nil, fmt.Errorf("translation: unknown table expression %T", te)
	}
}

func (b *builder) buildJoin(j *sqlparse.JoinExpr, outer *scope) (Plan, *scope, error) {
	// RIGHT JOIN is LEFT JOIN with swapped inputs plus a projection that
	// restores the written column order.
	if j.Kind == sqlparse.JoinRight {
		swapped := &sqlparse.JoinExpr{
			Kind:    sqlparse.JoinLeft,
			Natural: j.Natural,
			Using:   j.Using,
			Left:    j.Right,
			Right:   j.Left,
			On:      j.On,
		}
		plan, sc, err := b.buildJoin(swapped, outer)
		if err != nil {
			return nil, nil, err
		}
		// Count columns contributed by the written left side (now on the
		// right of the swapped join).
		_, leftScope, err := b.buildTableExpr(j.Left, outer)
		if err != nil {
			return nil, nil, err
		}
		nLeft := len(leftScope.cols)
		nRight := len(sc.cols) - nLeft
		perm := make([]int, 0, len(sc.cols))
		for i := 0; i < nLeft; i++ {
			perm = append(perm, nRight+i)
		}
		for i := 0; i < nRight; i++ {
			perm = append(perm, i)
		}
		exprs := make([]Expr, len(perm))
		cols := make([]ColInfo, len(perm))
		newScope := &scope{outer: outer}
		for out, in := range perm {
			c := sc.cols[in]
			exprs[out] = &ColumnIndex{Index: in, Typ: c.info.Type, Null: c.info.Nullable, Name: c.name}
			cols[out] = c.info
			newScope.cols = append(newScope.cols, c)
		}
		return &Project{Input: plan, Exprs: exprs, Cols: cols}, newScope, nil
	}

	left, lsc, err := b.buildTableExpr(j.Left, outer)
	if err != nil {
		return nil, nil, err
	}
	right, rsc, err := b.buildTableExpr(j.Right, outer)
	if err != nil {
		return nil, nil, err
	}

	kind := JoinInner
	switch j.Kind {
	case sqlparse.JoinLeft:
		kind = JoinLeft
	case sqlparse.JoinFull:
		kind = JoinFull
	case sqlparse.JoinCross:
		kind = JoinCross
	}

	// Outer joins make the non-preserved side nullable.
	lcols := append([]scopeCol{}, lsc.cols...)
	rcols := append([]scopeCol{}, rsc.cols...)
	if kind == JoinFull {
		for i := range lcols {
			lcols[i].info.Nullable = true
		}
	}
	if kind == JoinLeft || kind == JoinFull {
		for i := range rcols {
			rcols[i].info.Nullable = true
		}
	}
	joined := append(append([]scopeCol{}, lcols...), rcols...)
	jscope := &scope{cols: joined, outer: outer}

	var common []string // USING/NATURAL column names, in left order
	var pred Expr
	switch {
	case j.Natural:
		for _, lc := range lsc.cols {
			for _, rc := range rsc.cols {
				if schema.Fold(lc.name) == schema.Fold(rc.name) {
					common = append(common, lc.name)
				}
			}
		}
		// NATURAL JOIN with no shared columns degenerates to a cross join.
		if len(common) == 0 && kind == JoinInner {
			kind = JoinCross
		}
	case len(j.Using) > 0:
		common = j.Using
	case j.On != nil:
		pred, err = b.bindExpr(j.On, jscope, false)
		if err != nil {
			return nil, nil, err
		}
		if pred.Type() != schema.TypeBool {
			return nil, nil, schema.TypeError(pred.Type(), schema.TypeBool, "join condition")
		}
	}

	// Desugar common-column joins into explicit equality predicates.
	commonRight := make(map[int]bool)
	for _, name := range common {
		li := -1
		for i, c := range lsc.cols {
			if schema.Fold(c.name) == schema.Fold(name) {
				li = i
				break
			}
		}
		ri := -1
		for i, c := range rsc.cols {
			if schema.Fold(c.name) == schema.Fold(name) {
				ri = i
				break
			}
		}
		if li < 0 || ri < 0 {
			return nil, nil, &schema.MismatchError{Stage: schema.StageBinding, Column: name, Message: "USING column missing from join input"}
		}
		if !typesCompatible(lsc.cols[li].info.Type, rsc.cols[ri].info.Type) {
			return nil, nil, schema.TypeError(lsc.cols[li].info.Type, rsc.cols[ri].info.Type, "join USING column "+name)
		}
		commonRight[ri] = true
		lref := colRefAt(joined, li)
		rref := colRefAt(joined, len(lcols)+ri)
		eq := &Compare{Op: sqlparse.OpEq, L: lref, R: rref}
		if pred == nil {
			pred = eq
		} else {
			pred = &And{L: pred, R: eq}
		}
	}

	join := &Join{Kind: kind, Left: left, Right: right, Pred: pred, Cols: scopeInfos(joined)}

	if len(common) == 0 {
		return join, jscope, nil
	}

	// NATURAL/USING output the shared columns once. For outer joins the
	// merged column takes the non-NULL side.
	var exprs []Expr
	var cols []ColInfo
	outScope := &scope{outer: outer}
	for i, c := range lcols {
		var e Expr = colRefAt(joined, i)
		info := c.info
		if kind == JoinFull && isCommon(common, c.name) {
			ri := -1
			for k, rc := range rsc.cols {
				if schema.Fold(rc.name) == schema.Fold(c.name) {
					ri = k
					break
				}
			}
			r := colRefAt(joined, len(lcols)+ri)
			e = &Case{
				Whens: []CaseWhen{{Cond: &IsNull{Neg: true, E: e}, Result: e}},
				Else:  r,
				Typ:   info.Type,
				Null:  info.Nullable && joined[len(lcols)+ri].info.Nullable,
			}
		}
		exprs = append(exprs, e)
		cols = append(cols, info)
		outScope.cols = append(outScope.cols, scopeCol{alias: c.alias, name: c.name, info: info})
	}
	for i, c := range rcols {
		if commonRight[i] {
			continue
		}
		exprs = append(exprs, colRefAt(joined, len(lcols)+i))
		cols = append(cols, c.info)
		outScope.cols = append(outScope.cols, scopeCol{alias: c.alias, name: c.name, info: c.info})
	}
	return &Project{Input: join, Exprs: exprs, Cols: cols}, outScope, nil
}

func colRefAt(cols []scopeCol, i int) *ColumnIndex {
	return &ColumnIndex{Index: i, Typ: cols[i].info.Type, Null: cols[i].info.Nullable, Name: cols[i].name}
}

func isCommon(common []string, name string) bool {
	for _, c := range common {
		if schema.Fold(c) == schema.Fold(name) {
			return true
		}
	}
	return false
}

// splitConjuncts separates a WHERE clause into plain predicates and
// top-level subquery predicates (EXISTS / IN with subquery, possibly
// negated). Subqueries nested anywhere else are handled by bindExpr and
// only uncorrelated scalar subqueries are legal there.
func splitConjuncts(e sqlparse.Expr) (plain, subs []sqlparse.Expr) {
	if logic, ok := e.(*sqlparse.LogicExpr); ok && logic.Op == sqlparse.LogicAnd {
		lp, ls := splitConjuncts(logic.L)
		rp, rs := splitConjuncts(logic.R)
		return append(lp, rp...), append(ls, rs...)
	}
	if isSubqueryConjunct(e) {
		return nil, []sqlparse.Expr{e}
	}
	return []sqlparse.Expr{e}, nil
}

func isSubqueryConjunct(e sqlparse.Expr) bool {
	switch x := e.(type) {
	case *sqlparse.ExistsExpr:
		return true
	case *sqlparse.InExpr:
		return x.Sub != nil
	case *sqlparse.NotExpr:
		return isSubqueryConjunct(x.E)
	}
	return false
}

func (b *builder) buildSubqueryConjunct(e sqlparse.Expr, plan Plan, sc *scope) (Plan, error) {
	neg := false
	for {
		if n, ok := e.(*sqlparse.NotExpr); ok {
			neg = !neg
			e = n.E
			continue
		}
		break
	}

	switch x := e.(type) {
	case *sqlparse.ExistsExpr:
		if x.Neg {
			neg = !neg
		}
		sub, err := b.buildStmt(x.Sub, sc)
		if err != nil {
			return nil, err
		}
		if neg {
			return &AntiJoin{Left: plan, Sub: sub}, nil
		}
		return &SemiJoin{Left: plan, Sub: sub}, nil

	case *sqlparse.InExpr:
		if x.Neg {
			neg = !neg
		}
		sub, err := b.buildStmt(x.Sub, sc)
		if err != nil {
			return nil, err
		}
		if len(sub.Columns()) != 1 {
			return nil, &schema.MismatchError{
				Stage:   schema.StageBinding,
				Message: fmt.Sprintf("IN subquery must return one column, got %d", len(sub.Columns())),
			}
		}
		needle, err := b.bindExpr(x.E, sc, false)
		if err != nil {
			return nil, err
		}
		subCol := sub.Columns()[0]
		if !typesCompatible(needle.Type(), subCol.Type) {
			return nil, schema.TypeError(needle.Type(), subCol.Type, "IN subquery")
		}
		pred := &Compare{
			Op: sqlparse.OpEq,
			L:  liftOuter(needle),
			R:  &ColumnIndex{Index: 0, Typ: subCol.Type, Null: subCol.Nullable, Name: subCol.Name},
		}
		if neg {
			// NOT IN: null-aware anti join (an unknown comparison anywhere
			// disqualifies the row).
			return &AntiJoin{Left: plan, Sub: sub, Pred: pred, NullAware: true}, nil
		}
		return &SemiJoin{Left: plan, Sub: sub, Pred: pred}, nil
	}
	return nil, fmt.Errorf("translation: unexpected subquery conjunct %T", e)
}

// liftOuter rewrites ColumnIndex references into OuterColumn references,
// turning an expression bound over the outer row into one usable inside
// a semi/anti-join predicate.
func liftOuter(e Expr) Expr {
	switch x := e.(type) {
	case *ColumnIndex:
		return &OuterColumn{Index: x.Index, Typ: x.Typ, Null: x.Null, Name: x.Name}
	case *Compare:
		return &Compare{Op: x.Op, L: liftOuter(x.L), R: liftOuter(x.R)}
	case *Arith:
		return &Arith{Op: x.Op, Typ: x.Typ, L: liftOuter(x.L), R: liftOuter(x.R)}
	case *And:
		return &And{L: liftOuter(x.L), R: liftOuter(x.R)}
	case *Or:
		return &Or{L: liftOuter(x.L), R: liftOuter(x.R)}
	case *Not:
		return &Not{E: liftOuter(x.E)}
	case *IsNull:
		return &IsNull{Neg: x.Neg, E: liftOuter(x.E)}
	case *Case:
		whens := make([]CaseWhen, len(x.Whens))
		for i, w := range x.Whens {
			whens[i] = CaseWhen{Cond: liftOuter(w.Cond), Result: liftOuter(w.Result)}
		}
		var els Expr
		if x.Else != nil {
			els = liftOuter(x.Else)
		}
		return &Case{Whens: whens, Else: els, Typ: x.Typ, Null: x.Null}
	case *InList:
		list := make([]Expr, len(x.List))
		for i, e := range x.List {
			list[i] = liftOuter(e)
		}
		return &InList{Neg: x.Neg, E: liftOuter(x.E), List: list}
	default:
		return e
	}
}

func containsAggregate(e sqlparse.Expr) bool {
	switch x := e.(type) {
	case *sqlparse.FuncExpr:
		return true
	case *sqlparse.BinExpr:
		return containsAggregate(x.L) || containsAggregate(x.R)
	case *sqlparse.LogicExpr:
		return containsAggregate(x.L) || containsAggregate(x.R)
	case *sqlparse.NotExpr:
		return containsAggregate(x.E)
	case *sqlparse.IsNullExpr:
		return containsAggregate(x.E)
	case *sqlparse.DistinctFromExpr:
		return containsAggregate(x.L) || containsAggregate(x.R)
	case *sqlparse.BetweenExpr:
		return containsAggregate(x.E) || containsAggregate(x.Lo) || containsAggregate(x.Hi)
	case *sqlparse.InExpr:
		if containsAggregate(x.E) {
			return true
		}
		for _, l := range x.List {
			if containsAggregate(l) {
				return true
			}
		}
	case *sqlparse.CaseExpr:
		if x.Operand != nil && containsAggregate(x.Operand) {
			return true
		}
		for _, w := range x.Whens {
			if containsAggregate(w.Cond) || containsAggregate(w.Result) {
				return true
			}
		}
		if x.Else != nil && containsAggregate(x.Else) {
			return true
		}
	}
	return false
}

// buildProjection binds the select list over the current scope.
func (b *builder) buildProjection(items []sqlparse.SelectItem, plan Plan, sc *scope) (Plan, []ColInfo, error) {
	var exprs []Expr
	var cols []ColInfo
	for i, it := range items {
		if it.Star {
			before := len(exprs)
			for j, c := range sc.cols {
				if it.Table != "" && c.alias != schema.Fold(it.Table) {
					continue
				}
				exprs = append(exprs, colRefAt(sc.cols, j))
				cols = append(cols, c.info)
			}
			if it.Table != "" && len(exprs) == before {
				return nil, nil, &schema.MismatchError{Stage: schema.StageBinding, Table: it.Table, Message: "unknown table in qualified star"}
			}
			continue
		}
		e, err := b.bindExpr(it.Expr, sc, false)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, e)
		cols = append(cols, ColInfo{Name: itemName(it, i), Type: e.Type(), Nullable: e.Nullable()})
	}
	if len(exprs) == 0 {
		return nil, nil, &schema.MismatchError{Stage: schema.StageBinding, Message: "empty projection"}
	}
	return &Project{Input: plan, Exprs: exprs, Cols: cols}, cols, nil
}

func itemName(it sqlparse.SelectItem, i int) string {
	if it.Alias != "" {
		return it.Alias
	}
	if cr, ok := it.Expr.(*sqlparse.ColRef); ok {
		return cr.Name
	}
	if fe, ok := it.Expr.(*sqlparse.FuncExpr); ok {
		return strings.ToLower(fe.Name)
	}
	return fmt.Sprintf("col%d", i+1)
}

// buildAggregate lowers a grouped (or implicitly single-group) select.
//
// The aggregate node outputs group expressions then aggregates; the
// select list and HAVING are rewritten over that output. A bare column
// reference that is not structurally a group expression is a binding
// error, as in standard SQL.
func (b *builder) buildAggregate(sel *sqlparse.SelectStmt, plan Plan, sc *scope) (Plan, []ColInfo, error) {
	agg := &Aggregate{Input: plan}

	for _, g := range sel.GroupBy {
		e, err := b.bindExpr(g, sc, false)
		if err != nil {
			return nil, nil, err
		}
		agg.GroupBy = append(agg.GroupBy, e)
		agg.Cols = append(agg.Cols, ColInfo{Name: groupName(g), Type: e.Type(), Nullable: e.Nullable()})
	}

	rw := &aggRewriter{b: b, sc: sc, sel: sel, agg: agg}

	var exprs []Expr
	var cols []ColInfo
	for i, it := range sel.Items {
		if it.Star {
			return nil, nil, &schema.MismatchError{Stage: schema.StageBinding, Message: "SELECT * is not valid with GROUP BY or aggregates"}
		}
		e, err := rw.rewrite(it.Expr)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, e)
		cols = append(cols, ColInfo{Name: itemName(it, i), Type: e.Type(), Nullable: e.Nullable()})
	}

	var result Plan = agg
	if sel.Having != nil {
		h, err := rw.rewrite(sel.Having)
		if err != nil {
			return nil, nil, err
		}
		if h.Type() != schema.TypeBool {
			return nil, nil, schema.TypeError(h.Type(), schema.TypeBool, "HAVING clause")
		}
		result = &Filter{Input: agg, Pred: h}
	}

	return &Project{Input: result, Exprs: exprs, Cols: cols}, cols, nil
}

func groupName(g sqlparse.Expr) string {
	if cr, ok := g.(*sqlparse.ColRef); ok {
		return cr.Name
	}
	return "group"
}

// aggRewriter rebinds post-aggregation expressions over the aggregate's
// output columns: group expressions map to their group column, aggregate
// calls allocate (or reuse) an aggregate column.
type aggRewriter struct {
	b   *builder
	sc  *scope
	sel *sqlparse.SelectStmt
	agg *Aggregate
}

func (rw *aggRewriter) rewrite(e sqlparse.Expr) (Expr, error) {
	// A subtree structurally equal to a group expression becomes a
	// reference to that group column.
	for i, g := range rw.sel.GroupBy {
		if reflect.DeepEqual(e, g) {
			ci := rw.agg.Cols[i]
			return &ColumnIndex{Index: i, Typ: ci.Type, Null: ci.Nullable, Name: ci.Name}, nil
		}
	}

	switch x := e.(type) {
	case *sqlparse.FuncExpr:
		return rw.addAggregate(x)
	case *sqlparse.ColRef:
		return nil, &schema.MismatchError{
			Stage:   schema.StageBinding,
			Column:  x.Name,
			Message: "column must appear in GROUP BY or inside an aggregate",
		}
	case *sqlparse.Lit:
		return rw.b.bindExpr(x, rw.sc, true)
	case *sqlparse.BinExpr:
		l, err := rw.rewrite(x.L)
		if err != nil {
			return nil, err
		}
		r, err := rw.rewrite(x.R)
		if err != nil {
			return nil, err
		}
		return rw.b.makeBinary(x.Op, l, r)
	case *sqlparse.LogicExpr:
		l, err := rw.rewrite(x.L)
		if err != nil {
			return nil, err
		}
		r, err := rw.rewrite(x.R)
		if err != nil {
			return nil, err
		}
		if x.Op == sqlparse.LogicAnd {
			return &And{L: l, R: r}, nil
		}
		return &Or{L: l, R: r}, nil
	case *sqlparse.NotExpr:
		inner, err := rw.rewrite(x.E)
		if err != nil {
			return nil, err
		}
		return &Not{E: inner}, nil
	case *sqlparse.IsNullExpr:
		inner, err := rw.rewrite(x.E)
		if err != nil {
			return nil, err
		}
		return &IsNull{Neg: x.Neg, E: inner}, nil
	case *sqlparse.DistinctFromExpr:
		l, err := rw.rewrite(x.L)
		if err != nil {
			return nil, err
		}
		r, err := rw.rewrite(x.R)
		if err != nil {
			return nil, err
		}
		return makeDistinctFrom(x.Neg, l, r)
	case *sqlparse.CaseExpr:
		return rw.rewriteCase(x)
	default:
		return nil, &sqlparse.UnsupportedError{Construct: fmt.Sprintf("%T after aggregation", e)}
	}
}

func (rw *aggRewriter) rewriteCase(x *sqlparse.CaseExpr) (Expr, error) {
	desugared, err := desugarSimpleCase(x)
	if err != nil {
		return nil, err
	}
	var whens []CaseWhen
	for _, w := range desugared.Whens {
		cond, err := rw.rewrite(w.Cond)
		if err != nil {
			return nil, err
		}
		res, err := rw.rewrite(w.Result)
		if err != nil {
			return nil, err
		}
		whens = append(whens, CaseWhen{Cond: cond, Result: res})
	}
	var els Expr
	if desugared.Else != nil {
		els, err = rw.rewrite(desugared.Else)
		if err != nil {
			return nil, err
		}
	}
	return finishCase(whens, els)
}

func (rw *aggRewriter) addAggregate(fe *sqlparse.FuncExpr) (Expr, error) {
	var fn AggFunc
	switch fe.Name {
	case "COUNT":
		if fe.Star {
			fn = AggCountStar
		} else {
			fn = AggCount
		}
	case "SUM":
		fn = AggSum
	case "AVG":
		fn = AggAvg
	case "MIN":
		fn = AggMin
	case "MAX":
		fn = AggMax
	default:
		return nil, &sqlparse.UnsupportedError{Construct: "function " + fe.Name}
	}

	var arg Expr
	if !fe.Star {
		if len(fe.Args) != 1 {
			return nil, &schema.MismatchError{Stage: schema.StageBinding, Message: fe.Name + " takes exactly one argument"}
		}
		if containsAggregate(fe.Args[0]) {
			return nil, &schema.MismatchError{Stage: schema.StageBinding, Message: "nested aggregate"}
		}
		var err error
		arg, err = rw.b.bindExpr(fe.Args[0], rw.sc, false)
		if err != nil {
			return nil, err
		}
		if (fn == AggSum || fn == AggAvg) && !arg.Type().Numeric() {
			return nil, schema.TypeError(arg.Type(), schema.TypeInt, fe.Name)
		}
	}

	a := AggExpr{Func: fn, Arg: arg, Distinct: fe.Distinct}
	typ, nullable := aggResult(a)
	idx := len(rw.agg.GroupBy) + len(rw.agg.Aggs)
	rw.agg.Aggs = append(rw.agg.Aggs, a)
	name := strings.ToLower(fe.Name)
	rw.agg.Cols = append(rw.agg.Cols, ColInfo{Name: name, Type: typ, Nullable: nullable})
	return &ColumnIndex{Index: idx, Typ: typ, Null: nullable, Name: name}, nil
}

// aggResult derives an aggregate's output type and nullability.
// COUNT never yields NULL; SUM/AVG/MIN/MAX yield NULL on empty or
// all-NULL groups.
func aggResult(a AggExpr) (schema.Type, bool) {
	switch a.Func {
	case AggCountStar, AggCount:
		return schema.TypeInt, false
	case AggAvg:
		return schema.TypeReal, true
	case AggSum:
		return a.Arg.Type(), true
	default: // MIN, MAX
		return a.Arg.Type(), true
	}
}

// applyOrderLimit binds ORDER BY keys over the projected output and
// wraps the plan in Sort+Limit. Keys may be output ordinals, output
// column names or aliases, or expressions structurally equal to a
// select item.
func (b *builder) applyOrderLimit(plan Plan, orderBy []sqlparse.OrderItem, limit *int64, items []sqlparse.SelectItem) (Plan, error) {
	cols := plan.Columns()
	var keys []SortKey
	for _, oi := range orderBy {
		idx := -1
		switch k := oi.Expr.(type) {
		case *sqlparse.Lit:
			if k.Kind == sqlparse.LitInt {
				if k.Int < 1 || k.Int > int64(len(cols)) {
					return nil, &schema.MismatchError{
						Stage:   schema.StageBinding,
						Message: fmt.Sprintf("ORDER BY position %d out of range", k.Int),
					}
				}
				idx = int(k.Int - 1)
			}
		case *sqlparse.ColRef:
			if k.Table == "" {
				for i, c := range cols {
					if schema.Fold(c.Name) == schema.Fold(k.Name) {
						idx = i
						break
					}
				}
			}
		}
		if idx < 0 {
			// Structural match against a select item expression.
			for i, it := range items {
				if !it.Star && reflect.DeepEqual(oi.Expr, it.Expr) {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			return nil, &sqlparse.UnsupportedError{Construct: "ORDER BY key not present in select list"}
		}
		c := cols[idx]
		keys = append(keys, SortKey{
			Expr: &ColumnIndex{Index: idx, Typ: c.Type, Null: c.Nullable, Name: c.Name},
			Desc: oi.Desc,
		})
	}
	if len(keys) > 0 {
		plan = &Sort{Input: plan, Keys: keys}
	}
	return &Limit{Input: plan, N: *limit}, nil
}
