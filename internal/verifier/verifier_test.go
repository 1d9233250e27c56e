package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/solver"
)

func verifierSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Table{
		{
			Name: "t",
			Columns: []schema.Column{
				{Name: "a", Type: schema.TypeInt, Nullable: true},
				{Name: "b", Type: schema.TypeInt, Nullable: true},
				{Name: "c", Type: schema.TypeText, Nullable: true},
			},
		},
	})
	require.NoError(t, err)
	return s
}

func TestVerify_NegatedGuardIsEquivalent(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE NOT (b <= 5)")
	require.NoError(t, err)

	assert.Equal(t, Equivalent, res.Verdict)
	assert.Equal(t, DefaultMaxBound, res.Bound)
	assert.Nil(t, res.Counterexample)
	assert.False(t, res.Cached)
	assert.Positive(t, res.SolverSteps)
}

func TestVerify_CountStarDiffersFromCountColumn(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t")
	require.NoError(t, err)

	assert.Equal(t, NotEquivalent, res.Verdict)
	assert.Equal(t, 1, res.Bound)
	require.NotNil(t, res.Counterexample)
	require.NotNil(t, res.Replay)
	assert.True(t, res.Replay.Differs)

	// The distinguishing instance must have a row whose a is NULL.
	rows := res.Counterexample.Rows[0]
	require.Len(t, rows, 1)
	assert.True(t, rows[0][0].Null)
}

func TestVerify_UnionVersusUnionAll(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t UNION SELECT a FROM t",
		"SELECT a FROM t UNION ALL SELECT a FROM t")
	require.NoError(t, err)

	assert.Equal(t, NotEquivalent, res.Verdict)
	require.NotNil(t, res.Replay)
	assert.True(t, res.Replay.Differs)
}

func TestVerify_SameQueryIsEquivalent(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a, b FROM t WHERE a = 1",
		"SELECT a, b FROM t WHERE a = 1")
	require.NoError(t, err)
	assert.Equal(t, Equivalent, res.Verdict)
}

func TestVerify_Deterministic(t *testing.T) {
	first, err := New(verifierSchema(t)).Verify(context.Background(),
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := New(verifierSchema(t)).Verify(context.Background(),
			"SELECT COUNT(*) FROM t",
			"SELECT COUNT(a) FROM t")
		require.NoError(t, err)
		assert.Equal(t, first.Verdict, again.Verdict)
		assert.Equal(t, first.Bound, again.Bound)
		assert.Equal(t, first.SolverSteps, again.SolverSteps)
		assert.Equal(t, first.Counterexample.Rows, again.Counterexample.Rows)
	}
}

func TestVerify_CacheServesSecondCall(t *testing.T) {
	cache := NewMemoryCache()
	v := New(verifierSchema(t), WithCache(cache))

	first, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE NOT (b <= 5)")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.Len())

	second, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE NOT (b <= 5)")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.SolverSteps, second.SolverSteps)
	assert.Equal(t, 1, cache.Len())
}

func TestVerify_CacheKeyIsDirectional(t *testing.T) {
	cache := NewMemoryCache()
	v := New(verifierSchema(t), WithCache(cache))

	_, err := v.Verify(context.Background(), "SELECT a FROM t", "SELECT b FROM t")
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "SELECT b FROM t", "SELECT a FROM t")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}

func TestVerify_ErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		left  string
		right string
		code  ErrorCode
	}{
		{
			name:  "syntax error",
			left:  "SELECT FROM WHERE",
			right: "SELECT a FROM t",
			code:  CodeUnsupportedSyntax,
		},
		{
			name:  "unknown table",
			left:  "SELECT a FROM missing",
			right: "SELECT a FROM t",
			code:  CodeSchemaMismatch,
		},
		{
			name:  "unknown column",
			left:  "SELECT a FROM t",
			right: "SELECT z FROM t",
			code:  CodeSchemaMismatch,
		},
		{
			name:  "result type mismatch",
			left:  "SELECT a FROM t",
			right: "SELECT c FROM t",
			code:  CodeSchemaMismatch,
		},
	}
	v := New(verifierSchema(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.left, tt.right)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestVerify_SolverResourceBudgetYieldsUnknown(t *testing.T) {
	v := New(verifierSchema(t), WithSolver(&solver.EnumSolver{MaxSteps: 1}))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE b > 6")
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Equal(t, 1, res.Bound)
	assert.Contains(t, res.Reason, string(CodeSolverResource))
	assert.Nil(t, res.Counterexample)
}

func TestVerify_BudgetUnknownIsNotCached(t *testing.T) {
	cache := NewMemoryCache()
	v := New(verifierSchema(t),
		WithSolver(&solver.EnumSolver{MaxSteps: 1}),
		WithCache(cache))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE b > 5",
		"SELECT a FROM t WHERE b > 6")
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Equal(t, 0, cache.Len())
}

func TestVerify_WithoutReplaySkipsEngine(t *testing.T) {
	v := New(verifierSchema(t), WithoutReplay())

	res, err := v.Verify(context.Background(),
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t")
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, res.Verdict)
	assert.NotNil(t, res.Counterexample)
	assert.Nil(t, res.Replay)
}

func TestVerify_HigherBoundNeededForDistinct(t *testing.T) {
	// One row can never expose a DISTINCT difference; two can.
	one, err := New(verifierSchema(t), WithMaxBound(1)).Verify(context.Background(),
		"SELECT a FROM t",
		"SELECT DISTINCT a FROM t")
	require.NoError(t, err)
	assert.Equal(t, Equivalent, one.Verdict)

	two, err := New(verifierSchema(t), WithMaxBound(2)).Verify(context.Background(),
		"SELECT a FROM t",
		"SELECT DISTINCT a FROM t")
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, two.Verdict)
	assert.Equal(t, 2, two.Bound)
}

func TestVerify_MinBoundSkipsSmallInstances(t *testing.T) {
	res, err := New(verifierSchema(t), WithMinBound(2)).Verify(context.Background(),
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(a) FROM t")
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, res.Verdict)
	assert.Equal(t, 2, res.Bound)
}

func TestVerify_BoundStepControlsEscalation(t *testing.T) {
	// Stepping by two checks k=1 then k=3, so the DISTINCT witness
	// first appears at bound three.
	res, err := New(verifierSchema(t), WithMaxBound(3), WithBoundStep(2)).Verify(context.Background(),
		"SELECT a FROM t",
		"SELECT DISTINCT a FROM t")
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, res.Verdict)
	assert.Equal(t, 3, res.Bound)
}

func TestVerifyBatch_InputOrderAndErrorIsolation(t *testing.T) {
	v := New(verifierSchema(t))
	pairs := []Pair{
		{Label: "eq", Candidate: "SELECT a FROM t WHERE b > 5", Reference: "SELECT a FROM t WHERE NOT (b <= 5)"},
		{Label: "bad", Candidate: "SELECT FROM", Reference: "SELECT a FROM t"},
		{Label: "neq", Candidate: "SELECT COUNT(*) FROM t", Reference: "SELECT COUNT(a) FROM t"},
	}

	results := v.VerifyBatch(context.Background(), pairs,
		WithWorkers(2),
		WithRunIDs(NewFixedGenerator("run-1", "run-2", "run-3")))
	require.Len(t, results, 3)

	assert.Equal(t, "run-1", results[0].RunID)
	assert.Equal(t, "eq", results[0].Pair.Label)
	require.NoError(t, results[0].Err)
	assert.Equal(t, Equivalent, results[0].Result.Verdict)

	assert.Equal(t, "run-2", results[1].RunID)
	require.Error(t, results[1].Err)
	assert.Equal(t, CodeUnsupportedSyntax, CodeOf(results[1].Err))
	assert.Nil(t, results[1].Result)

	assert.Equal(t, "run-3", results[2].RunID)
	require.NoError(t, results[2].Err)
	assert.Equal(t, NotEquivalent, results[2].Result.Verdict)
}

func TestVerifyBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := New(verifierSchema(t))
	results := v.VerifyBatch(ctx, []Pair{
		{Candidate: "SELECT a FROM t", Reference: "SELECT a FROM t"},
	})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestMemoryCache_FirstWriterWins(t *testing.T) {
	cache := NewMemoryCache()
	a := &Result{Verdict: Equivalent}
	b := &Result{Verdict: NotEquivalent}

	assert.Same(t, a, cache.Put("k", a))
	assert.Same(t, a, cache.Put("k", b))

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := g.Generate()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestVerify_TimeoutYieldsUnknown(t *testing.T) {
	v := New(verifierSchema(t), WithTimeout(time.Nanosecond))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE b IN (1,2,3,4,5,6,7,8,9,10,11,12)",
		"SELECT a FROM t WHERE b IN (12,11,10,9,8,7,6,5,4,3,2,1)")
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Contains(t, res.Reason, string(CodeSolverTimeout))
}

func TestVerify_ArityMismatchIsNotEquivalent(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a, b FROM t",
		"SELECT a FROM t")
	require.NoError(t, err)

	// Different result widths disagree everywhere, so the empty instance
	// is already a counterexample.
	assert.Equal(t, NotEquivalent, res.Verdict)
	assert.Equal(t, 0, res.Bound)
	require.NotNil(t, res.Counterexample)
	assert.Empty(t, res.Counterexample.Rows[0])
	require.NotNil(t, res.Replay)
	assert.True(t, res.Replay.Differs)
	assert.Zero(t, res.SolverSteps)
}

func TestVerify_ExceptAllVersusExcept(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t EXCEPT ALL SELECT b FROM t",
		"SELECT a FROM t EXCEPT SELECT b FROM t")
	require.NoError(t, err)

	assert.Equal(t, NotEquivalent, res.Verdict)
	require.NotNil(t, res.Replay)
	assert.True(t, res.Replay.Differs)
}

func TestVerify_IntersectAllVersusIntersect(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t INTERSECT ALL SELECT a FROM t",
		"SELECT a FROM t INTERSECT SELECT a FROM t")
	require.NoError(t, err)

	assert.Equal(t, NotEquivalent, res.Verdict)
	assert.Equal(t, 2, res.Bound)
	require.NotNil(t, res.Replay)
	assert.True(t, res.Replay.Differs)
}

func TestVerify_DistinctFromMatchesNullSafeEquality(t *testing.T) {
	v := New(verifierSchema(t))

	res, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE a IS NOT DISTINCT FROM b",
		"SELECT a FROM t WHERE a = b OR (a IS NULL AND b IS NULL)")
	require.NoError(t, err)
	assert.Equal(t, Equivalent, res.Verdict)
}

func TestVerify_DistinctFromDiffersFromInequality(t *testing.T) {
	v := New(verifierSchema(t))

	// a <> b is unknown when either side is NULL; IS DISTINCT FROM is
	// true there.
	res, err := v.Verify(context.Background(),
		"SELECT a FROM t WHERE a IS DISTINCT FROM b",
		"SELECT a FROM t WHERE a <> b")
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, res.Verdict)
	require.NotNil(t, res.Replay)
	assert.True(t, res.Replay.Differs)
}
