package solver

import (
	"sort"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/symbolic"
)

// Domains holds the candidate values for every cell variable, indexed
// by table then column. NULL, when admitted, is always the last entry
// so the search tries concrete values first.
type Domains struct {
	Cols [][][]symbolic.Value
}

// Domain returns the candidates for one column.
func (d *Domains) Domain(table, col int) []symbolic.Value {
	return d.Cols[table][col]
}

// HarvestConstants walks plans and collects every literal constant they
// mention, deduplicated per type.
func HarvestConstants(plans ...relalg.Plan) []symbolic.Value {
	h := &harvester{seen: map[symbolic.Value]bool{}}
	for _, p := range plans {
		h.plan(p)
	}
	return h.out
}

type harvester struct {
	seen map[symbolic.Value]bool
	out  []symbolic.Value
}

func (h *harvester) add(v symbolic.Value) {
	if v.Null || h.seen[v] {
		return
	}
	h.seen[v] = true
	h.out = append(h.out, v)
}

func (h *harvester) plan(p relalg.Plan) {
	switch n := p.(type) {
	case *relalg.Scan:
	case *relalg.Filter:
		h.expr(n.Pred)
		h.plan(n.Input)
	case *relalg.Project:
		for _, e := range n.Exprs {
			h.expr(e)
		}
		h.plan(n.Input)
	case *relalg.Join:
		if n.Pred != nil {
			h.expr(n.Pred)
		}
		h.plan(n.Left)
		h.plan(n.Right)
	case *relalg.SemiJoin:
		if n.Pred != nil {
			h.expr(n.Pred)
		}
		h.plan(n.Left)
		h.plan(n.Sub)
	case *relalg.AntiJoin:
		if n.Pred != nil {
			h.expr(n.Pred)
		}
		h.plan(n.Left)
		h.plan(n.Sub)
	case *relalg.Aggregate:
		for _, g := range n.GroupBy {
			h.expr(g)
		}
		for _, a := range n.Aggs {
			if a.Arg != nil {
				h.expr(a.Arg)
			}
		}
		h.plan(n.Input)
	case *relalg.Distinct:
		h.plan(n.Input)
	case *relalg.Sort:
		for _, k := range n.Keys {
			h.expr(k.Expr)
		}
		h.plan(n.Input)
	case *relalg.Limit:
		h.plan(n.Input)
	case *relalg.SetOp:
		h.plan(n.Left)
		h.plan(n.Right)
	}
}

func (h *harvester) expr(e relalg.Expr) {
	switch x := e.(type) {
	case *relalg.Literal:
		if !x.Null {
			h.add(literalToValue(x))
		}
	case *relalg.Compare:
		h.expr(x.L)
		h.expr(x.R)
	case *relalg.Arith:
		h.expr(x.L)
		h.expr(x.R)
	case *relalg.And:
		h.expr(x.L)
		h.expr(x.R)
	case *relalg.Or:
		h.expr(x.L)
		h.expr(x.R)
	case *relalg.Not:
		h.expr(x.E)
	case *relalg.IsNull:
		h.expr(x.E)
	case *relalg.Case:
		for _, w := range x.Whens {
			h.expr(w.Cond)
			h.expr(w.Result)
		}
		if x.Else != nil {
			h.expr(x.Else)
		}
	case *relalg.InList:
		h.expr(x.E)
		for _, l := range x.List {
			h.expr(l)
		}
	case *relalg.ScalarSubquery:
		h.plan(x.Sub)
	}
}

func literalToValue(l *relalg.Literal) symbolic.Value {
	switch l.Typ {
	case schema.TypeInt:
		return symbolic.IntValue(l.Int)
	case schema.TypeReal:
		return symbolic.RealValue(l.Real)
	case schema.TypeText:
		return symbolic.TextValue(l.Str)
	default:
		return symbolic.BoolValue(l.Bool)
	}
}

// BuildDomains derives per-column candidate sets: all harvested
// constants of a compatible type, boundary neighbors around integer
// constants, k+1 fresh sentinels beyond anything mentioned, and NULL
// for nullable columns.
func BuildDomains(sch *schema.Schema, k int, consts []symbolic.Value) *Domains {
	byType := map[schema.Type][]symbolic.Value{}
	for _, c := range consts {
		byType[c.Typ] = append(byType[c.Typ], c)
	}

	ints := intCandidates(byType[schema.TypeInt], k)
	reals := realCandidates(byType[schema.TypeReal], byType[schema.TypeInt], k)
	texts := textCandidates(byType[schema.TypeText], k)
	bools := []symbolic.Value{symbolic.BoolValue(false), symbolic.BoolValue(true)}

	d := &Domains{}
	for _, tbl := range sch.Tables() {
		var cols [][]symbolic.Value
		for _, col := range tbl.Columns {
			var base []symbolic.Value
			switch col.Type {
			case schema.TypeInt:
				base = ints
			case schema.TypeReal:
				base = reals
			case schema.TypeText:
				base = texts
			default:
				base = bools
			}
			vals := append([]symbolic.Value{}, base...)
			if col.Nullable {
				vals = append(vals, symbolic.NullValue(col.Type))
			}
			cols = append(cols, vals)
		}
		d.Cols = append(d.Cols, cols)
	}
	return d
}

func intCandidates(consts []symbolic.Value, k int) []symbolic.Value {
	set := map[int64]bool{}
	for _, c := range consts {
		// Boundary neighbors let strict and non-strict comparisons
		// disagree where they can.
		set[c.Int-1] = true
		set[c.Int] = true
		set[c.Int+1] = true
	}
	max := int64(0)
	for v := range set {
		if v > max {
			max = v
		}
	}
	for i := 0; i <= k; i++ {
		set[max+int64(i)+1] = true
	}
	out := make([]int64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	vals := make([]symbolic.Value, len(out))
	for i, v := range out {
		vals[i] = symbolic.IntValue(v)
	}
	return vals
}

func realCandidates(reals, ints []symbolic.Value, k int) []symbolic.Value {
	set := map[float64]bool{}
	for _, c := range reals {
		set[c.Real-0.5] = true
		set[c.Real] = true
		set[c.Real+0.5] = true
	}
	// Integer constants compare against real columns too.
	for _, c := range ints {
		set[float64(c.Int)-0.5] = true
		set[float64(c.Int)] = true
		set[float64(c.Int)+0.5] = true
	}
	max := 0.0
	for v := range set {
		if v > max {
			max = v
		}
	}
	for i := 0; i <= k; i++ {
		set[max+float64(i)+1] = true
	}
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	vals := make([]symbolic.Value, len(out))
	for i, v := range out {
		vals[i] = symbolic.RealValue(v)
	}
	return vals
}

func textCandidates(consts []symbolic.Value, k int) []symbolic.Value {
	seen := map[string]bool{}
	var out []string
	for _, c := range consts {
		if !seen[c.Str] {
			seen[c.Str] = true
			out = append(out, c.Str)
		}
	}
	for i := 0; i <= k; i++ {
		s := freshText(i)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	vals := make([]symbolic.Value, len(out))
	for i, s := range out {
		vals[i] = symbolic.TextValue(s)
	}
	return vals
}

func freshText(i int) string {
	return "v_" + string(rune('a'+i%26)) + "_fresh"
}
