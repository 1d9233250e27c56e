package render

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

func renderSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Table{
		{
			Name: "t",
			Columns: []schema.Column{
				{Name: "a", Type: schema.TypeInt},
				{Name: "b", Type: schema.TypeInt, Nullable: true},
				{Name: "c", Type: schema.TypeText, Nullable: true},
			},
		},
		{
			Name: "u",
			Columns: []schema.Column{
				{Name: "a", Type: schema.TypeInt},
				{Name: "d", Type: schema.TypeReal, Nullable: true},
			},
		},
	})
	require.NoError(t, err)
	return s
}

func TestSQLNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keywords uppercased and spacing collapsed",
			in:   "select  a,b   from t where  b>5",
			want: "SELECT a, b FROM t WHERE b > 5",
		},
		{
			name: "qualified star and alias",
			in:   "SELECT t.*, a AS x FROM t",
			want: "SELECT t.*, a AS x FROM t",
		},
		{
			name: "parenthesized compound predicate",
			in:   "SELECT a FROM t WHERE NOT (b <= 5) AND c IS NOT NULL",
			want: "SELECT a FROM t WHERE (NOT (b <= 5)) AND (c IS NOT NULL)",
		},
		{
			name: "between and in list",
			in:   "SELECT a FROM t WHERE a BETWEEN 1 AND 3 OR b IN (1, 2)",
			want: "SELECT a FROM t WHERE (a BETWEEN 1 AND 3) OR (b IN (1, 2))",
		},
		{
			name: "join with on",
			in:   "SELECT t.a FROM t LEFT JOIN u ON t.a = u.a",
			want: "SELECT t.a FROM t LEFT JOIN u ON t.a = u.a",
		},
		{
			name: "using join",
			in:   "SELECT * FROM t JOIN u USING (a)",
			want: "SELECT * FROM t JOIN u USING (a)",
		},
		{
			name: "set operation parenthesized",
			in:   "SELECT a FROM t UNION ALL SELECT a FROM u",
			want: "(SELECT a FROM t) UNION ALL (SELECT a FROM u)",
		},
		{
			name: "group by having order limit",
			in:   "SELECT b, COUNT(*) FROM t GROUP BY b HAVING COUNT(*) > 1 ORDER BY b DESC LIMIT 3",
			want: "SELECT b, COUNT(*) FROM t GROUP BY b HAVING COUNT(*) > 1 ORDER BY b DESC LIMIT 3",
		},
		{
			name: "case expression",
			in:   "SELECT CASE WHEN b > 0 THEN 'pos' ELSE 'neg' END FROM t",
			want: "SELECT CASE WHEN b > 0 THEN 'pos' ELSE 'neg' END FROM t",
		},
		{
			name: "string literal escaping",
			in:   "SELECT a FROM t WHERE c = 'it''s'",
			want: "SELECT a FROM t WHERE c = 'it''s'",
		},
		{
			name: "exists subquery",
			in:   "SELECT a FROM t WHERE EXISTS (SELECT a FROM u)",
			want: "SELECT a FROM t WHERE EXISTS (SELECT a FROM u)",
		},
		{
			name: "distinct from",
			in:   "SELECT a FROM t WHERE a is not distinct from b",
			want: "SELECT a FROM t WHERE a IS NOT DISTINCT FROM b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := sqlparse.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SQL(stmt))
		})
	}
}

// Normalized output must parse back to the same normalized form.
func TestSQLRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT DISTINCT a, b FROM t WHERE b > 5 OR b IS NULL",
		"SELECT a FROM t INTERSECT SELECT a FROM u",
		"SELECT b, SUM(a) FROM t GROUP BY b",
		"SELECT a FROM t WHERE a NOT IN (SELECT a FROM u) ORDER BY a LIMIT 2",
		"SELECT a FROM t WHERE a IS DISTINCT FROM b",
	}
	for _, q := range queries {
		stmt, err := sqlparse.Parse(q)
		require.NoError(t, err)
		first := SQL(stmt)

		again, err := sqlparse.Parse(first)
		require.NoError(t, err, "normalized SQL must reparse: %s", first)
		assert.Equal(t, first, SQL(again))
	}
}

func TestPlanTree(t *testing.T) {
	sch := renderSchema(t)
	stmt, err := sqlparse.Parse("SELECT a FROM t WHERE b > 5")
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, sch)
	require.NoError(t, err)

	tree := PlanTree(plan)
	lines := strings.Split(strings.TrimRight(tree, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Project [a@0]", lines[0])
	assert.Equal(t, "  Filter (b@1 > 5)", lines[1])
	assert.Equal(t, "    Scan t [a, b, c]", lines[2])
}

func TestPlanTreeJoinAndAggregate(t *testing.T) {
	sch := renderSchema(t)
	stmt, err := sqlparse.Parse(
		"SELECT t.b, COUNT(*) FROM t JOIN u ON t.a = u.a GROUP BY t.b")
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, sch)
	require.NoError(t, err)

	tree := PlanTree(plan)
	assert.Contains(t, tree, "Aggregate [b@1, COUNT(*)]")
	assert.Contains(t, tree, "Join INNER ON (a@0 = a@3)")
	assert.Contains(t, tree, "Scan t [a, b, c]")
	assert.Contains(t, tree, "Scan u [a, d]")
}

// Golden snapshot of explain output: normalized SQL followed by the
// plan tree. Regenerate with: go test ./internal/render -update
func TestExplainGolden(t *testing.T) {
	sch := renderSchema(t)
	stmt, err := sqlparse.Parse("select a from t where b > 5")
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, sch)
	require.NoError(t, err)

	out := SQL(stmt) + "\n" + PlanTree(plan)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "filtered-projection", []byte(out))
}

func mustExecutable(t *testing.T, sql string) string {
	t.Helper()
	stmt, err := sqlparse.Parse(sql)
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, renderSchema(t))
	require.NoError(t, err)
	return Executable(plan)
}

func TestExecutablePositionalColumns(t *testing.T) {
	got := mustExecutable(t, "SELECT a, b FROM t")
	assert.Equal(t,
		`SELECT s1.c0 AS c0, s1.c1 AS c1 FROM (SELECT "a" AS c0, "b" AS c1, "c" AS c2 FROM "t") AS s1`,
		got)
}

func TestExecutableBagSetOpRewrite(t *testing.T) {
	// The engine rejects EXCEPT ALL and INTERSECT ALL outright, so the
	// executable form numbers duplicates and applies the plain set op.
	got := mustExecutable(t, "SELECT a FROM t EXCEPT ALL SELECT a FROM u")
	assert.NotContains(t, got, "EXCEPT ALL")
	assert.Contains(t, got, "ROW_NUMBER() OVER (PARTITION BY c0) AS occurrence")
	assert.Contains(t, got, " EXCEPT ")

	got = mustExecutable(t, "SELECT a FROM t INTERSECT ALL SELECT a FROM u")
	assert.NotContains(t, got, "INTERSECT ALL")
	assert.Contains(t, got, "ROW_NUMBER() OVER (PARTITION BY c0) AS occurrence")
	assert.Contains(t, got, " INTERSECT ")
}

func TestExecutableUnionAllUntouched(t *testing.T) {
	got := mustExecutable(t, "SELECT a FROM t UNION ALL SELECT a FROM u")
	assert.Contains(t, got, "UNION ALL")
	assert.NotContains(t, got, "ROW_NUMBER")
}

func TestExecutableNullAwareAntiJoin(t *testing.T) {
	got := mustExecutable(t, "SELECT a FROM t WHERE b NOT IN (SELECT a FROM u)")
	assert.Contains(t, got, "NOT EXISTS")
	assert.Contains(t, got, ") IS NULL")
}

func TestExecutableOrderByLimit(t *testing.T) {
	got := mustExecutable(t, "SELECT a FROM t ORDER BY a DESC LIMIT 2")
	assert.Contains(t, got, "ORDER BY ")
	assert.Contains(t, got, " DESC LIMIT 2")
}

func TestPlanTreeSetOpAndLimit(t *testing.T) {
	sch := renderSchema(t)
	stmt, err := sqlparse.Parse(
		"SELECT a FROM t UNION SELECT a FROM u ORDER BY a LIMIT 2")
	require.NoError(t, err)
	plan, err := relalg.Build(stmt, sch)
	require.NoError(t, err)

	tree := PlanTree(plan)
	assert.Contains(t, tree, "Limit 2")
	assert.Contains(t, tree, "Sort [a@0]")
	assert.Contains(t, tree, "SetOp UNION")
}
