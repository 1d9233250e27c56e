package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
	"github.com/rklop/SURF-2025/internal/symbolic"
)

func solverSchema(t *testing.T, pk bool) *schema.Schema {
	t.Helper()
	tbl := schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "a", Type: schema.TypeInt, Nullable: !pk},
			{Name: "b", Type: schema.TypeInt, Nullable: true},
		},
	}
	if pk {
		tbl.PrimaryKey = []string{"a"}
	}
	s, err := schema.New([]schema.Table{tbl})
	require.NoError(t, err)
	return s
}

// problemFor assembles the full satisfiability problem for a query pair.
func problemFor(t *testing.T, sch *schema.Schema, q1, q2 string, k int) *Problem {
	t.Helper()
	p1 := mustPlan(t, sch, q1)
	p2 := mustPlan(t, sch, q2)

	in := symbolic.NewInstance(sch, k)
	r1, err := symbolic.Translate(p1, in)
	require.NoError(t, err)
	r2, err := symbolic.Translate(p2, in)
	require.NoError(t, err)
	diff, err := symbolic.Diff(r1, r2)
	require.NoError(t, err)

	return &Problem{
		Instance: in,
		Domains:  BuildDomains(sch, k, HarvestConstants(p1, p2)),
		Formula:  symbolic.And(in.Constraints(), diff),
	}
}

func mustPlan(t *testing.T, sch *schema.Schema, sql string) relalg.Plan {
	t.Helper()
	stmt, err := sqlparse.Parse(sql)
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, sch)
	require.NoError(t, err)
	return plan
}

func TestSolve_EquivalentRewriteUnsat(t *testing.T) {
	p := problemFor(t, solverSchema(t, false),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE NOT (b <= 5)", 2)

	res, err := (&EnumSolver{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.Satisfiable)
	assert.Greater(t, res.Steps, int64(0))
}

func TestSolve_CountStarVsCountColumnSat(t *testing.T) {
	p := problemFor(t, solverSchema(t, false),
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t", 2)

	res, err := (&EnumSolver{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.Satisfiable)
	require.NotNil(t, res.Model)

	// The witness must contain a row whose a is NULL.
	rows := res.Model.Rows(0)
	require.NotEmpty(t, rows)
	hasNull := false
	for _, r := range rows {
		if r[0].Null {
			hasNull = true
		}
	}
	assert.True(t, hasNull, "counterexample should use a NULL in column a")
}

func TestSolve_UnionVsUnionAllSat(t *testing.T) {
	p := problemFor(t, solverSchema(t, false),
		"SELECT a FROM t UNION SELECT a FROM t",
		"SELECT a FROM t UNION ALL SELECT a FROM t", 1)

	res, err := (&EnumSolver{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.Satisfiable)
	assert.NotEmpty(t, res.Model.Rows(0))
}

func TestSolve_PrimaryKeyMakesDistinctRedundant(t *testing.T) {
	// With a as primary key, duplicates are impossible, so DISTINCT
	// cannot be observed.
	p := problemFor(t, solverSchema(t, true),
		"SELECT a FROM t",
		"SELECT DISTINCT a FROM t", 2)

	res, err := (&EnumSolver{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.Satisfiable)
}

func TestSolve_BoundMonotonicity(t *testing.T) {
	// Without a key, DISTINCT needs two equal rows to show: invisible at
	// bound 1, visible at bound 2.
	sch := solverSchema(t, false)

	p1 := problemFor(t, sch, "SELECT b FROM t", "SELECT DISTINCT b FROM t", 1)
	res, err := (&EnumSolver{}).Solve(context.Background(), p1)
	require.NoError(t, err)
	assert.False(t, res.Satisfiable)

	p2 := problemFor(t, sch, "SELECT b FROM t", "SELECT DISTINCT b FROM t", 2)
	res, err = (&EnumSolver{}).Solve(context.Background(), p2)
	require.NoError(t, err)
	assert.True(t, res.Satisfiable)
}

func TestSolve_StepBudget(t *testing.T) {
	p := problemFor(t, solverSchema(t, false),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE NOT (b <= 5)", 2)

	_, err := (&EnumSolver{MaxSteps: 1}).Solve(context.Background(), p)
	require.Error(t, err)
	assert.True(t, IsResource(err))
}

func TestSolve_ContextCancellation(t *testing.T) {
	// A long IN list inflates the domains so the search cannot finish
	// within one deadline-check interval.
	p := problemFor(t, solverSchema(t, false),
		"SELECT a FROM t WHERE b IN (10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120)",
		"SELECT a FROM t WHERE b IN (120, 110, 100, 90, 80, 70, 60, 50, 40, 30, 20, 10)", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&EnumSolver{}).Solve(ctx, p)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestSolve_DeterministicModel(t *testing.T) {
	p := problemFor(t, solverSchema(t, false),
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t", 2)

	first, err := (&EnumSolver{}).Solve(context.Background(), p)
	require.NoError(t, err)
	second, err := (&EnumSolver{}).Solve(context.Background(), p)
	require.NoError(t, err)

	// Same ordered domains, same search order, same witness.
	assert.Equal(t, first.Model.Rows(0), second.Model.Rows(0))
	assert.Equal(t, first.Steps, second.Steps)
}

func TestBuildDomains_Shape(t *testing.T) {
	sch := solverSchema(t, false)
	d := BuildDomains(sch, 2, []symbolic.Value{symbolic.IntValue(5)})

	dom := d.Domain(0, 1) // column b
	require.NotEmpty(t, dom)
	// Boundary neighbors of the constant are present.
	vals := map[int64]bool{}
	for _, v := range dom {
		if !v.Null {
			vals[v.Int] = true
		}
	}
	assert.True(t, vals[4] && vals[5] && vals[6])
	// NULL comes last for nullable columns.
	assert.True(t, dom[len(dom)-1].Null)
}
