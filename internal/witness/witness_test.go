package witness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/symbolic"
)

func witnessSchema(t *testing.T) *schema.Schema {
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

func instance(t *testing.T, rows ...[]symbolic.Value) *Counterexample {
	t.Helper()
	return &Counterexample{
		Schema: witnessSchema(t),
		Rows:   [][][]symbolic.Value{rows},
	}
}

func TestReplay_ConfirmsCountDifference(t *testing.T) {
	ce := instance(t, []symbolic.Value{symbolic.NullValue(schema.TypeInt), symbolic.IntValue(1)})

	out, err := Replay(context.Background(),
		ce, "SELECT COUNT(*) FROM t", "SELECT COUNT(a) FROM t")
	require.NoError(t, err)
	assert.True(t, out.Differs)
	assert.Equal(t, 1, out.LeftRows)
	assert.Equal(t, 1, out.RightRows)
}

func TestReplay_EquivalentQueriesAgree(t *testing.T) {
	ce := instance(t,
		[]symbolic.Value{symbolic.IntValue(1), symbolic.IntValue(6)},
		[]symbolic.Value{symbolic.IntValue(2), symbolic.NullValue(schema.TypeInt)},
	)

	out, err := Replay(context.Background(),
		ce, "SELECT a FROM t WHERE b > 5", "SELECT a FROM t WHERE NOT (b <= 5)")
	require.NoError(t, err)
	assert.False(t, out.Differs)
}

func TestReplay_BagSemantics(t *testing.T) {
	// Duplicate rows distinguish UNION from UNION ALL.
	ce := instance(t, []symbolic.Value{symbolic.IntValue(1), symbolic.IntValue(1)})

	out, err := Replay(context.Background(),
		ce,
		"SELECT a FROM t UNION SELECT a FROM t",
		"SELECT a FROM t UNION ALL SELECT a FROM t")
	require.NoError(t, err)
	assert.True(t, out.Differs)
	assert.Equal(t, 1, out.LeftRows)
	assert.Equal(t, 2, out.RightRows)
}

func TestReplay_NullPatternMatters(t *testing.T) {
	ce := instance(t, []symbolic.Value{symbolic.NullValue(schema.TypeInt), symbolic.IntValue(2)})

	out, err := Replay(context.Background(),
		ce, "SELECT a FROM t", "SELECT b FROM t")
	require.NoError(t, err)
	assert.True(t, out.Differs)
}

func TestReplay_RowOrderIgnored(t *testing.T) {
	ce := instance(t,
		[]symbolic.Value{symbolic.IntValue(1), symbolic.IntValue(10)},
		[]symbolic.Value{symbolic.IntValue(2), symbolic.IntValue(20)},
	)

	out, err := Replay(context.Background(),
		ce,
		"SELECT a FROM t ORDER BY a",
		"SELECT a FROM t ORDER BY a DESC")
	require.NoError(t, err)
	assert.False(t, out.Differs, "pure ordering must not count as a difference")
}

func TestReplay_EmptyInstance(t *testing.T) {
	ce := instance(t)

	out, err := Replay(context.Background(),
		ce, "SELECT a FROM t", "SELECT b FROM t")
	require.NoError(t, err)
	assert.False(t, out.Differs)
	assert.Zero(t, out.LeftRows)
}

func TestReplay_ColumnCountDiffers(t *testing.T) {
	// A width mismatch is a difference even when both results are empty.
	ce := instance(t)

	out, err := Replay(context.Background(),
		ce, "SELECT a, b FROM t", "SELECT a FROM t")
	require.NoError(t, err)
	assert.True(t, out.Differs)
	assert.Zero(t, out.LeftRows)
	assert.Zero(t, out.RightRows)
}

func TestEmpty_CoversEveryTable(t *testing.T) {
	ce := Empty(witnessSchema(t))
	require.Len(t, ce.Rows, 1)
	assert.Empty(t, ce.Rows[0])
}

func TestReplay_BadQuerySurfacesError(t *testing.T) {
	ce := instance(t)

	_, err := Replay(context.Background(), ce, "SELECT nope FROM t", "SELECT a FROM t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left query")
}
