package symbolic

import (
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// Instance is a symbolic database at bound K: every base table has K
// row slots, each with a presence variable and one cell variable per
// column. Variables are addressed positionally as (table, row) and
// (table, row, col).
type Instance struct {
	Schema *schema.Schema
	K      int
}

// NewInstance builds the symbolic instance shape for a schema at the
// given bound.
func NewInstance(sch *schema.Schema, k int) *Instance {
	return &Instance{Schema: sch, K: k}
}

// Constraints returns the integrity formula every admissible assignment
// must satisfy: primary key columns are non-NULL and unique among
// present rows, and every present non-NULL foreign key value has a
// matching referenced row.
func (in *Instance) Constraints() Formula {
	var fs []Formula
	tables := in.Schema.Tables()

	for ti, tbl := range tables {
		var pkCols []int
		for _, pk := range tbl.PrimaryKey {
			if _, idx, ok := tbl.Column(schema.Fold(pk)); ok {
				pkCols = append(pkCols, idx)
			}
		}
		if len(pkCols) > 0 {
			for r := 0; r < in.K; r++ {
				p := &Presence{Table: ti, Row: r}
				for _, c := range pkCols {
					cell := &Cell{Table: ti, Row: r, Col: c, Typ: tbl.Columns[c].Type}
					// present => pk cell not null
					fs = append(fs, Or(Not(p), &NullTest{T: cell, Neg: true}))
				}
			}
			for i := 0; i < in.K; i++ {
				for j := i + 1; j < in.K; j++ {
					var eq []Formula
					for _, c := range pkCols {
						typ := tbl.Columns[c].Type
						eq = append(eq, IsTrue(&Cmp{
							Op: sqlparse.OpEq,
							L:  &Cell{Table: ti, Row: i, Col: c, Typ: typ},
							R:  &Cell{Table: ti, Row: j, Col: c, Typ: typ},
						}))
					}
					fs = append(fs, Not(And(
						&Presence{Table: ti, Row: i},
						&Presence{Table: ti, Row: j},
						And(eq...),
					)))
				}
			}
		}

		for _, fk := range tbl.ForeignKeys {
			_, childCol, ok := tbl.Column(schema.Fold(fk.Column))
			if !ok {
				continue
			}
			ref, refOK := in.Schema.Table(fk.RefTable)
			refIdx, _ := in.Schema.TableIndex(fk.RefTable)
			if !refOK {
				continue
			}
			_, refCol, ok := ref.Column(schema.Fold(fk.RefColumn))
			if !ok {
				continue
			}
			childTyp := tbl.Columns[childCol].Type
			refTyp := ref.Columns[refCol].Type
			for r := 0; r < in.K; r++ {
				child := &Cell{Table: ti, Row: r, Col: childCol, Typ: childTyp}
				var matches []Formula
				for rr := 0; rr < in.K; rr++ {
					matches = append(matches, And(
						&Presence{Table: refIdx, Row: rr},
						IsTrue(&Cmp{
							Op: sqlparse.OpEq,
							L:  &Cell{Table: refIdx, Row: rr, Col: refCol, Typ: refTyp},
							R:  child,
						}),
					))
				}
				fs = append(fs, Or(
					Not(&Presence{Table: ti, Row: r}),
					&NullTest{T: child},
					Or(matches...),
				))
			}
		}
	}
	return And(fs...)
}
