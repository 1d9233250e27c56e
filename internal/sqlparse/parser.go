package sqlparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses one query statement, which may be a set-operation chain.
// Trailing semicolons are tolerated.
func Parse(sql string) (Stmt, error) {
	toks, err := tokenize(sql)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	for p.acceptSymbol(";") {
	}
	if p.cur().Type != TokenEOF {
		return nil, p.errf("unexpected trailing input %q", p.cur().Val)
	}
	return stmt, nil
}

type parser struct {
	toks []Token
	i    int
}

func (p *parser) cur() Token { return p.toks[p.i] }

func (p *parser) peek() Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *parser) errf(format string, a ...any) error {
	return &ParseError{Pos: p.cur().Pos, Message: fmt.Sprintf(format, a...)}
}

func (p *parser) unsupported(construct string) error {
	return &UnsupportedError{Construct: construct, Pos: p.cur().Pos}
}

func (p *parser) atKeyword(kws ...string) bool {
	t := p.cur()
	if t.Type != TokenKeyword {
		return false
	}
	for _, kw := range kws {
		if t.Val == kw {
			return true
		}
	}
	return false
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errf("expected %s, found %q", kw, p.cur().Val)
	}
	return nil
}

func (p *parser) atSymbol(sym string) bool {
	t := p.cur()
	return t.Type == TokenSymbol && t.Val == sym
}

func (p *parser) acceptSymbol(sym string) bool {
	if p.atSymbol(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) error {
	if !p.acceptSymbol(sym) {
		return p.errf("expected %q, found %q", sym, p.cur().Val)
	}
	return nil
}

// parseStmt parses a select possibly chained with set operations.
// UNION/EXCEPT are left-associative and bind looser than INTERSECT.
func (p *parser) parseStmt() (Stmt, error) {
	// Reject statements outside the query subset up front with a
	// precise capability-boundary error.
	if p.atKeyword("WITH") {
		return nil, p.unsupported("WITH (common table expression)")
	}
	if p.atKeyword("INSERT", "UPDATE", "DELETE", "CREATE", "DROP") {
		return nil, p.unsupported(p.cur().Val + " statement")
	}

	left, err := p.parseIntersectChain()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("UNION") || p.atKeyword("EXCEPT") {
		op := SetUnion
		if p.cur().Val == "EXCEPT" {
			op = SetExcept
		}
		p.advance()
		all := p.acceptKeyword("ALL")
		p.acceptKeyword("DISTINCT") // explicit DISTINCT is the default
		right, err := p.parseIntersectChain()
		if err != nil {
			return nil, err
		}
		left = &SetOpStmt{Op: op, All: all, Left: left, Right: right}
	}
	return p.attachOrderLimit(left)
}

func (p *parser) parseIntersectChain() (Stmt, error) {
	left, err := p.parseSelectCore()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("INTERSECT") {
		p.advance()
		all := p.acceptKeyword("ALL")
		p.acceptKeyword("DISTINCT")
		right, err := p.parseSelectCore()
		if err != nil {
			return nil, err
		}
		left = &SetOpStmt{Op: SetIntersect, All: all, Left: left, Right: right}
	}
	return left, nil
}

// parseSelectCore parses a single SELECT block or a parenthesized statement.
// ORDER BY/LIMIT are consumed here only for a plain SELECT; for set-op
// chains they are attached by parseStmt to the outermost operator.
func (p *parser) parseSelectCore() (Stmt, error) {
	if p.acceptSymbol("(") {
		inner, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	sel := &SelectStmt{}
	if p.acceptKeyword("DISTINCT") {
		sel.Distinct = true
	} else {
		p.acceptKeyword("ALL")
	}

	// Projection list.
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		sel.Items = append(sel.Items, item)
		if !p.acceptSymbol(",") {
			break
		}
	}

	if p.acceptKeyword("FROM") {
		for {
			te, err := p.parseTableExpr()
			if err != nil {
				return nil, err
			}
			sel.From = append(sel.From, te)
			if !p.acceptSymbol(",") {
				break
			}
		}
	}

	if p.acceptKeyword("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = e
	}

	if p.atKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			if !p.acceptSymbol(",") {
				break
			}
		}
	}

	if p.acceptKeyword("HAVING") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Having = e
	}

	if err := p.parseOrderLimit(&sel.OrderBy, &sel.Limit); err != nil {
		return nil, err
	}
	return sel, nil
}

// attachOrderLimit hoists a trailing ORDER BY/LIMIT onto a set-op chain.
func (p *parser) attachOrderLimit(stmt Stmt) (Stmt, error) {
	so, ok := stmt.(*SetOpStmt)
	if !ok {
		return stmt, nil
	}
	if err := p.parseOrderLimit(&so.OrderBy, &so.Limit); err != nil {
		return nil, err
	}
	return so, nil
}

func (p *parser) parseOrderLimit(orderBy *[]OrderItem, limit **int64) error {
	if p.atKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			item := OrderItem{Expr: e}
			if p.acceptKeyword("DESC") {
				item.Desc = true
			} else {
				p.acceptKeyword("ASC")
			}
			*orderBy = append(*orderBy, item)
			if !p.acceptSymbol(",") {
				break
			}
		}
	}
	if p.acceptKeyword("LIMIT") {
		t := p.cur()
		if t.Type != TokenNumber || strings.Contains(t.Val, ".") {
			return p.errf("LIMIT requires an integer literal, found %q", t.Val)
		}
		n, err := strconv.ParseInt(t.Val, 10, 64)
		if err != nil || n < 0 {
			return p.errf("invalid LIMIT %q", t.Val)
		}
		p.advance()
		*limit = &n
	}
	if p.atKeyword("OFFSET") || p.atKeyword("FETCH") {
		return p.unsupported(p.cur().Val + " clause")
	}
	return nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	// Bare * or qualified t.*
	if p.atSymbol("*") {
		p.advance()
		return SelectItem{Star: true}, nil
	}
	if p.cur().Type == TokenIdent && p.peek().Type == TokenSymbol && p.peek().Val == "." {
		// Look ahead for t.* without committing.
		if p.i+2 < len(p.toks) && p.toks[p.i+2].Type == TokenSymbol && p.toks[p.i+2].Val == "*" {
			table := p.cur().Val
			p.advance() // ident
			p.advance() // .
			p.advance() // *
			return SelectItem{Star: true, Table: table}, nil
		}
	}

	e, err := p.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e}
	if p.acceptKeyword("AS") {
		if p.cur().Type != TokenIdent {
			return SelectItem{}, p.errf("expected alias after AS, found %q", p.cur().Val)
		}
		item.Alias = p.cur().Val
		p.advance()
	} else if p.cur().Type == TokenIdent {
		item.Alias = p.cur().Val
		p.advance()
	}
	return item, nil
}

// parseTableExpr parses one FROM entry including chained joins.
func (p *parser) parseTableExpr() (TableExpr, error) {
	left, err := p.parseTablePrimary()
	if err != nil {
		return nil, err
	}
	for {
		natural := false
		var kind JoinKind
		switch {
		case p.atKeyword("NATURAL"):
			p.advance()
			natural = true
			kind, err = p.parseJoinKind()
			if err != nil {
				return nil, err
			}
		case p.atKeyword("JOIN"), p.atKeyword("INNER"), p.atKeyword("LEFT"),
			p.atKeyword("RIGHT"), p.atKeyword("FULL"), p.atKeyword("CROSS"):
			kind, err = p.parseJoinKind()
			if err != nil {
				return nil, err
			}
		default:
			return left, nil
		}

		right, err := p.parseTablePrimary()
		if err != nil {
			return nil, err
		}
		join := &JoinExpr{Kind: kind, Natural: natural, Left: left, Right: right}

		switch {
		case natural, kind == JoinCross:
			// No join condition.
		case p.acceptKeyword("ON"):
			cond, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			join.On = cond
		case p.acceptKeyword("USING"):
			if err := p.expectSymbol("("); err != nil {
				return nil, err
			}
			for {
				if p.cur().Type != TokenIdent {
					return nil, p.errf("expected column name in USING, found %q", p.cur().Val)
				}
				join.Using = append(join.Using, p.cur().Val)
				p.advance()
				if !p.acceptSymbol(",") {
					break
				}
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
		default:
			return nil, p.errf("join requires ON or USING")
		}
		left = join
	}
}

func (p *parser) parseJoinKind() (JoinKind, error) {
	kind := JoinInner
	switch {
	case p.acceptKeyword("INNER"):
	case p.acceptKeyword("LEFT"):
		kind = JoinLeft
		p.acceptKeyword("OUTER")
	case p.acceptKeyword("RIGHT"):
		kind = JoinRight
		p.acceptKeyword("OUTER")
	case p.acceptKeyword("FULL"):
		kind = JoinFull
		p.acceptKeyword("OUTER")
	case p.acceptKeyword("CROSS"):
		kind = JoinCross
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return 0, err
	}
	return kind, nil
}

func (p *parser) parseTablePrimary() (TableExpr, error) {
	if p.acceptSymbol("(") {
		// Either a derived table or a parenthesized join tree.
		if p.atKeyword("SELECT") || p.atSymbol("(") {
			stmt, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			sub := &SubqueryTable{Stmt: stmt}
			p.acceptKeyword("AS")
			if p.cur().Type == TokenIdent {
				sub.Alias = p.cur().Val
				p.advance()
			}
			if sub.Alias == "" {
				return nil, p.errf("derived table requires an alias")
			}
			return sub, nil
		}
		inner, err := p.parseTableExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	if p.cur().Type != TokenIdent {
		return nil, p.errf("expected table name, found %q", p.cur().Val)
	}
	tn := &TableName{Name: p.cur().Val}
	p.advance()
	p.acceptKeyword("AS")
	if p.cur().Type == TokenIdent {
		tn.Alias = p.cur().Val
		p.advance()
	}
	return tn, nil
}

// Expression precedence, loosest first: OR, AND, NOT, comparison
// (including BETWEEN/IN/IS), additive, multiplicative, unary, primary.

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicExpr{Op: LogicOr, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicExpr{Op: LogicAnd, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.acceptKeyword("NOT") {
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{E: e}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	// Postfix predicates: IS [NOT] NULL, [NOT] BETWEEN, [NOT] IN.
	for {
		if p.atKeyword("IS") {
			p.advance()
			neg := p.acceptKeyword("NOT")
			if p.acceptKeyword("DISTINCT") {
				if err := p.expectKeyword("FROM"); err != nil {
					return nil, err
				}
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &DistinctFromExpr{Neg: neg, L: left, R: right}
				continue
			}
			if !p.acceptKeyword("NULL") {
				return nil, p.errf("expected NULL or DISTINCT FROM after IS%s", map[bool]string{true: " NOT", false: ""}[neg])
			}
			left = &IsNullExpr{Neg: neg, E: left}
			continue
		}
		neg := false
		if p.atKeyword("NOT") && (p.peek().Type == TokenKeyword && (p.peek().Val == "BETWEEN" || p.peek().Val == "IN" || p.peek().Val == "LIKE")) {
			p.advance()
			neg = true
		}
		if p.atKeyword("LIKE") {
			return nil, p.unsupported("LIKE predicate")
		}
		if p.acceptKeyword("BETWEEN") {
			lo, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AND"); err != nil {
				return nil, err
			}
			hi, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BetweenExpr{Neg: neg, E: left, Lo: lo, Hi: hi}
			continue
		}
		if p.acceptKeyword("IN") {
			in, err := p.parseInTail(left, neg)
			if err != nil {
				return nil, err
			}
			left = in
			continue
		}
		if neg {
			return nil, p.errf("dangling NOT")
		}
		break
	}

	t := p.cur()
	if t.Type == TokenSymbol {
		var op BinOp
		switch t.Val {
		case "=":
			op = OpEq
		case "<>", "!=":
			op = OpNe
		case "<":
			op = OpLt
		case "<=":
			op = OpLe
		case ">":
			op = OpGt
		case ">=":
			op = OpGe
		case "||":
			return nil, p.unsupported("string concatenation")
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinExpr{Op: op, L: left, R: right}, nil
	}
	return left, nil
}

func (p *parser) parseInTail(left Expr, neg bool) (Expr, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if p.atKeyword("SELECT") {
		sub, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &InExpr{Neg: neg, E: left, Sub: sub}, nil
	}
	var list []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.acceptSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &InExpr{Neg: neg, E: left, List: list}, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("+") || p.atSymbol("-") {
		op := OpAdd
		if p.cur().Val == "-" {
			op = OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinExpr{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("*") || p.atSymbol("/") || p.atSymbol("%") {
		var op BinOp
		switch p.cur().Val {
		case "*":
			op = OpMul
		case "/":
			op = OpDiv
		default:
			op = OpMod
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinExpr{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.acceptSymbol("-") {
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negative numeric literals immediately.
		if lit, ok := e.(*Lit); ok {
			switch lit.Kind {
			case LitInt:
				return &Lit{Kind: LitInt, Int: -lit.Int}, nil
			case LitReal:
				return &Lit{Kind: LitReal, Real: -lit.Real}, nil
			}
		}
		return &BinExpr{Op: OpSub, L: &Lit{Kind: LitInt, Int: 0}, R: e}, nil
	}
	p.acceptSymbol("+")
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Type {
	case TokenNumber:
		p.advance()
		if strings.Contains(t.Val, ".") {
			f, err := strconv.ParseFloat(t.Val, 64)
			if err != nil {
				return nil, p.errf("invalid number %q", t.Val)
			}
			return &Lit{Kind: LitReal, Real: f}, nil
		}
		n, err := strconv.ParseInt(t.Val, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer %q", t.Val)
		}
		return &Lit{Kind: LitInt, Int: n}, nil

	case TokenString:
		p.advance()
		return &Lit{Kind: LitString, Str: t.Val}, nil

	case TokenKeyword:
		switch t.Val {
		case "NULL":
			p.advance()
			return &Lit{Kind: LitNull}, nil
		case "TRUE", "FALSE":
			p.advance()
			return &Lit{Kind: LitBool, Bool: t.Val == "TRUE"}, nil
		case "CASE":
			return p.parseCase()
		case "EXISTS":
			p.advance()
			if err := p.expectSymbol("("); err != nil {
				return nil, err
			}
			sub, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return &ExistsExpr{Sub: sub}, nil
		case "COUNT", "SUM", "AVG", "MIN", "MAX":
			return p.parseAggregate()
		case "OVER", "PARTITION", "WINDOW":
			return nil, p.unsupported("window function")
		}
		return nil, p.errf("unexpected keyword %q", t.Val)

	case TokenIdent:
		// Qualified or bare column reference.
		name := t.Val
		p.advance()
		if p.acceptSymbol(".") {
			if p.cur().Type != TokenIdent {
				return nil, p.errf("expected column after %q.", name)
			}
			col := p.cur().Val
			p.advance()
			return &ColRef{Table: name, Name: col}, nil
		}
		if p.atSymbol("(") {
			// Non-aggregate function calls are outside the subset.
			return nil, p.unsupported("function " + name)
		}
		return &ColRef{Name: name}, nil

	case TokenSymbol:
		if t.Val == "(" {
			p.advance()
			if p.atKeyword("SELECT") {
				sub, err := p.parseStmt()
				if err != nil {
					return nil, err
				}
				if err := p.expectSymbol(")"); err != nil {
					return nil, err
				}
				return &SubqueryExpr{Stmt: sub}, nil
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, p.errf("unexpected token %q", t.Val)
}

func (p *parser) parseCase() (Expr, error) {
	if err := p.expectKeyword("CASE"); err != nil {
		return nil, err
	}
	ce := &CaseExpr{}
	if !p.atKeyword("WHEN") {
		op, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = op
	}
	for p.acceptKeyword("WHEN") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		res, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, WhenClause{Cond: cond, Result: res})
	}
	if len(ce.Whens) == 0 {
		return nil, p.errf("CASE requires at least one WHEN arm")
	}
	if p.acceptKeyword("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *parser) parseAggregate() (Expr, error) {
	name := p.cur().Val
	p.advance()
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	fe := &FuncExpr{Name: name}
	if p.acceptSymbol("*") {
		if name != "COUNT" {
			return nil, p.errf("%s(*) is not valid", name)
		}
		fe.Star = true
	} else {
		if p.acceptKeyword("DISTINCT") {
			fe.Distinct = true
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fe.Args = append(fe.Args, arg)
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if p.atKeyword("OVER") {
		return nil, p.unsupported("window function")
	}
	return fe, nil
}
