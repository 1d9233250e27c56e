package symbolic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

func nullableSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Table{
		{
			Name: "t",
			Columns: []schema.Column{
				{Name: "a", Type: schema.TypeInt, Nullable: true},
				{Name: "b", Type: schema.TypeInt, Nullable: true},
			},
		},
	})
	require.NoError(t, err)
	return s
}

func translateQuery(t *testing.T, sch *schema.Schema, sql string, k int) *Relation {
	t.Helper()
	stmt, err := sqlparse.Parse(sql)
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, sch)
	require.NoError(t, err)
	rel, err := Translate(plan, NewInstance(sch, k))
	require.NoError(t, err)
	return rel
}

func diffFormula(t *testing.T, sch *schema.Schema, q1, q2 string, k int) Formula {
	t.Helper()
	r1 := translateQuery(t, sch, q1, k)
	r2 := translateQuery(t, sch, q2, k)
	d, err := Diff(r1, r2)
	require.NoError(t, err)
	return d
}

// row binds one row of table 0 in a testAssign.
func withRow(a *testAssign, row int, vals ...Value) {
	a.pres[[2]int{0, row}] = true
	for c, v := range vals {
		a.cells[[3]int{0, row, c}] = v
	}
}

func newAssign() *testAssign {
	return &testAssign{pres: map[[2]int]bool{}, cells: map[[3]int]Value{}}
}

func evalTV(t *testing.T, f Formula, a Assignment) TV {
	t.Helper()
	tv, known := Eval(f, a)
	require.True(t, known, "formula should be fully determined")
	return tv
}

func TestDiff_EquivalentPredicateRewrite(t *testing.T) {
	sch := nullableSchema(t)
	d := diffFormula(t, sch,
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE NOT (b <= 5)", 2)

	rows := [][]Value{
		{IntValue(1), IntValue(6)},
		{IntValue(2), IntValue(3)},
		{IntValue(3), NullValue(schema.TypeInt)},
		{NullValue(schema.TypeInt), IntValue(9)},
	}
	// No assignment over these rows can distinguish the two queries; in
	// particular b NULL fails both predicates.
	for i := 0; i < len(rows); i++ {
		for j := 0; j < len(rows); j++ {
			a := newAssign()
			withRow(a, 0, rows[i]...)
			withRow(a, 1, rows[j]...)
			assert.Equal(t, TVFalse, evalTV(t, d, a),
				"rows %v and %v should not distinguish the queries", rows[i], rows[j])
		}
	}

	// Empty instance either.
	assert.Equal(t, TVFalse, evalTV(t, d, newAssign()))
}

func TestDiff_CountStarVsCountColumn(t *testing.T) {
	sch := nullableSchema(t)
	d := diffFormula(t, sch,
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t", 2)

	// A NULL in column a separates the queries.
	a := newAssign()
	withRow(a, 0, NullValue(schema.TypeInt), IntValue(1))
	assert.Equal(t, TVTrue, evalTV(t, d, a))

	// Without NULLs they agree.
	b := newAssign()
	withRow(b, 0, IntValue(1), IntValue(1))
	withRow(b, 1, IntValue(2), IntValue(2))
	assert.Equal(t, TVFalse, evalTV(t, d, b))

	// Both count zero rows on the empty instance.
	assert.Equal(t, TVFalse, evalTV(t, d, newAssign()))
}

func TestDiff_UnionVsUnionAll(t *testing.T) {
	sch := nullableSchema(t)
	d := diffFormula(t, sch,
		"SELECT a FROM t UNION SELECT a FROM t",
		"SELECT a FROM t UNION ALL SELECT a FROM t", 2)

	// Any present row duplicates under UNION ALL.
	a := newAssign()
	withRow(a, 0, IntValue(1), IntValue(1))
	assert.Equal(t, TVTrue, evalTV(t, d, a))

	// Empty instances agree.
	assert.Equal(t, TVFalse, evalTV(t, d, newAssign()))
}

func TestTranslate_SumEmptyIsNull(t *testing.T) {
	sch := nullableSchema(t)
	rel := translateQuery(t, sch, "SELECT SUM(a) FROM t", 2)
	require.Len(t, rel.Slots, 1)

	// Global aggregate row exists even with no input rows.
	assert.Equal(t, TVTrue, evalTV(t, rel.Slots[0].Present, newAssign()))
	v, ok := EvalTerm(rel.Slots[0].Values[0], newAssign())
	require.True(t, ok)
	assert.True(t, v.Null, "SUM over no rows should be NULL")

	// All-NULL input also sums to NULL.
	a := newAssign()
	withRow(a, 0, NullValue(schema.TypeInt), IntValue(1))
	v, ok = EvalTerm(rel.Slots[0].Values[0], a)
	require.True(t, ok)
	assert.True(t, v.Null)

	// NULLs are skipped, not zeroed.
	b := newAssign()
	withRow(b, 0, IntValue(5), IntValue(1))
	withRow(b, 1, NullValue(schema.TypeInt), IntValue(1))
	v, ok = EvalTerm(rel.Slots[0].Values[0], b)
	require.True(t, ok)
	require.False(t, v.Null)
	assert.Equal(t, int64(5), v.Int)
}

func TestTranslate_AvgIsRealDivision(t *testing.T) {
	sch := nullableSchema(t)
	rel := translateQuery(t, sch, "SELECT AVG(a) FROM t", 2)

	a := newAssign()
	withRow(a, 0, IntValue(1), IntValue(1))
	withRow(a, 1, IntValue(2), IntValue(1))
	v, ok := EvalTerm(rel.Slots[0].Values[0], a)
	require.True(t, ok)
	require.False(t, v.Null)
	assert.InDelta(t, 1.5, v.Real, 1e-9)
}

func TestTranslate_GroupByNullsGroupTogether(t *testing.T) {
	sch := nullableSchema(t)
	rel := translateQuery(t, sch, "SELECT b, COUNT(*) FROM t GROUP BY b", 2)
	require.Len(t, rel.Slots, 2)

	// Two rows with NULL keys form a single group.
	a := newAssign()
	withRow(a, 0, IntValue(1), NullValue(schema.TypeInt))
	withRow(a, 1, IntValue(2), NullValue(schema.TypeInt))

	assert.Equal(t, TVTrue, evalTV(t, rel.Slots[0].Present, a))
	assert.Equal(t, TVFalse, evalTV(t, rel.Slots[1].Present, a))

	cnt, ok := EvalTerm(rel.Slots[0].Values[1], a)
	require.True(t, ok)
	assert.Equal(t, int64(2), cnt.Int)
}

func TestTranslate_DistinctNullsCollapse(t *testing.T) {
	sch := nullableSchema(t)
	rel := translateQuery(t, sch, "SELECT DISTINCT a FROM t", 2)
	require.Len(t, rel.Slots, 2)

	a := newAssign()
	withRow(a, 0, NullValue(schema.TypeInt), IntValue(1))
	withRow(a, 1, NullValue(schema.TypeInt), IntValue(2))

	assert.Equal(t, TVTrue, evalTV(t, rel.Slots[0].Present, a))
	assert.Equal(t, TVFalse, evalTV(t, rel.Slots[1].Present, a))
}

func TestTranslate_OrderByLimitPicksSmallest(t *testing.T) {
	sch := nullableSchema(t)
	rel := translateQuery(t, sch, "SELECT a FROM t ORDER BY a LIMIT 1", 2)
	require.Len(t, rel.Slots, 2)

	a := newAssign()
	withRow(a, 0, IntValue(5), IntValue(1))
	withRow(a, 1, IntValue(3), IntValue(1))

	// Row 1 holds the smaller a, so only its slot survives the limit.
	assert.Equal(t, TVFalse, evalTV(t, rel.Slots[0].Present, a))
	assert.Equal(t, TVTrue, evalTV(t, rel.Slots[1].Present, a))
}

func TestTranslate_OrderByLimitNullsFirst(t *testing.T) {
	sch := nullableSchema(t)
	rel := translateQuery(t, sch, "SELECT a FROM t ORDER BY a LIMIT 1", 2)

	a := newAssign()
	withRow(a, 0, IntValue(5), IntValue(1))
	withRow(a, 1, NullValue(schema.TypeInt), IntValue(1))

	// Ascending order puts NULL first.
	assert.Equal(t, TVFalse, evalTV(t, rel.Slots[0].Present, a))
	assert.Equal(t, TVTrue, evalTV(t, rel.Slots[1].Present, a))
}

func TestTranslate_NotInWithNullDropsAllRows(t *testing.T) {
	s, err := schema.New([]schema.Table{
		{Name: "t", Columns: []schema.Column{{Name: "a", Type: schema.TypeInt, Nullable: true}}},
		{Name: "u", Columns: []schema.Column{{Name: "x", Type: schema.TypeInt, Nullable: true}}},
	})
	require.NoError(t, err)

	rel := translateQuery(t, s, "SELECT a FROM t WHERE a NOT IN (SELECT x FROM u)", 1)
	require.Len(t, rel.Slots, 1)

	// u = {NULL}: the membership test is unknown for every row, so
	// NOT IN keeps nothing.
	a := newAssign()
	withRow(a, 0, IntValue(1))
	a.pres[[2]int{1, 0}] = true
	a.cells[[3]int{1, 0, 0}] = NullValue(schema.TypeInt)
	assert.Equal(t, TVFalse, evalTV(t, rel.Slots[0].Present, a))

	// u = {2}: 1 NOT IN {2} keeps the row.
	b := newAssign()
	withRow(b, 0, IntValue(1))
	b.pres[[2]int{1, 0}] = true
	b.cells[[3]int{1, 0, 0}] = IntValue(2)
	assert.Equal(t, TVTrue, evalTV(t, rel.Slots[0].Present, b))
}

func TestConstraints_PrimaryKeyUniqueness(t *testing.T) {
	s, err := schema.New([]schema.Table{
		{
			Name:       "t",
			Columns:    []schema.Column{{Name: "id", Type: schema.TypeInt}},
			PrimaryKey: []string{"id"},
		},
	})
	require.NoError(t, err)
	cons := NewInstance(s, 2).Constraints()

	dup := newAssign()
	withRow(dup, 0, IntValue(1))
	withRow(dup, 1, IntValue(1))
	assert.Equal(t, TVFalse, evalTV(t, cons, dup))

	ok := newAssign()
	withRow(ok, 0, IntValue(1))
	withRow(ok, 1, IntValue(2))
	assert.Equal(t, TVTrue, evalTV(t, cons, ok))
}

func TestConstraints_ForeignKey(t *testing.T) {
	s, err := schema.New([]schema.Table{
		{
			Name:       "users",
			Columns:    []schema.Column{{Name: "id", Type: schema.TypeInt}},
			PrimaryKey: []string{"id"},
		},
		{
			Name:        "orders",
			Columns:     []schema.Column{{Name: "user_id", Type: schema.TypeInt, Nullable: true}},
			ForeignKeys: []schema.ForeignKey{{Column: "user_id", RefTable: "users", RefColumn: "id"}},
		},
	})
	require.NoError(t, err)
	cons := NewInstance(s, 1).Constraints()

	// Dangling reference violates the constraint.
	bad := newAssign()
	bad.pres[[2]int{1, 0}] = true
	bad.cells[[3]int{1, 0, 0}] = IntValue(7)
	assert.Equal(t, TVFalse, evalTV(t, cons, bad))

	// Matching parent row satisfies it.
	good := newAssign()
	withRow(good, 0, IntValue(7))
	good.pres[[2]int{1, 0}] = true
	good.cells[[3]int{1, 0, 0}] = IntValue(7)
	assert.Equal(t, TVTrue, evalTV(t, cons, good))

	// NULL foreign keys are exempt.
	nullFK := newAssign()
	nullFK.pres[[2]int{1, 0}] = true
	nullFK.cells[[3]int{1, 0, 0}] = NullValue(schema.TypeInt)
	assert.Equal(t, TVTrue, evalTV(t, cons, nullFK))
}
