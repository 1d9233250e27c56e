package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTableSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New([]Table{
		{
			Name: "users",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeText, Nullable: true},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: "orders",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "user_id", Type: TypeInt, Nullable: true},
				{Name: "total", Type: TypeReal, Nullable: true},
			},
			ForeignKeys: []ForeignKey{{Column: "user_id", RefTable: "users", RefColumn: "id"}},
		},
	})
	require.NoError(t, err)
	return s
}

func TestResolve_CaseInsensitive(t *testing.T) {
	s := twoTableSchema(t)

	testCases := []struct {
		name   string
		table  string
		column string
	}{
		{"exact", "users", "id"},
		{"upper table", "USERS", "id"},
		{"mixed column", "orders", "User_ID"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := s.Resolve(tc.table, tc.column)
			require.NoError(t, err)
			assert.Equal(t, TypeInt, ref.Type)
		})
	}
}

func TestResolve_UnknownIdentifiers(t *testing.T) {
	s := twoTableSchema(t)

	_, err := s.Resolve("missing", "id")
	require.Error(t, err)
	assert.True(t, IsMismatch(err))

	_, err = s.Resolve("users", "missing")
	require.Error(t, err)
	assert.True(t, IsMismatch(err))
}

func TestResolveColumn_Ambiguity(t *testing.T) {
	s := twoTableSchema(t)

	// "id" exists in both tables: ambiguous over a two-table scope.
	_, err := s.ResolveColumn("id", []string{"users", "orders"})
	require.Error(t, err)
	assert.True(t, IsMismatch(err))

	// "total" is unique to orders.
	ref, err := s.ResolveColumn("total", []string{"users", "orders"})
	require.NoError(t, err)
	assert.Equal(t, "orders", ref.Table)
	assert.Equal(t, TypeReal, ref.Type)
}

func TestNew_RejectsBadForeignKey(t *testing.T) {
	_, err := New([]Table{
		{
			Name:        "orders",
			Columns:     []Column{{Name: "id", Type: TypeInt}},
			ForeignKeys: []ForeignKey{{Column: "id", RefTable: "nope", RefColumn: "id"}},
		},
	})
	require.Error(t, err)
	assert.True(t, IsMismatch(err))
}

func TestNew_AllowsForeignKeyCycle(t *testing.T) {
	s, err := New([]Table{
		{
			Name:        "a",
			Columns:     []Column{{Name: "id", Type: TypeInt}, {Name: "b_id", Type: TypeInt, Nullable: true}},
			ForeignKeys: []ForeignKey{{Column: "b_id", RefTable: "b", RefColumn: "id"}},
		},
		{
			Name:        "b",
			Columns:     []Column{{Name: "id", Type: TypeInt}, {Name: "a_id", Type: TypeInt, Nullable: true}},
			ForeignKeys: []ForeignKey{{Column: "a_id", RefTable: "a", RefColumn: "id"}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, s.ForeignKeyEdges(), 2)
}

func TestID_StableAcrossCase(t *testing.T) {
	a, err := New([]Table{{Name: "T", Columns: []Column{{Name: "A", Type: TypeInt}}}})
	require.NoError(t, err)
	b, err := New([]Table{{Name: "t", Columns: []Column{{Name: "a", Type: TypeInt}}}})
	require.NoError(t, err)
	assert.Equal(t, a.ID(), b.ID())

	c, err := New([]Table{{Name: "t", Columns: []Column{{Name: "a", Type: TypeInt, Nullable: true}}}})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), c.ID(), "nullability must change the hash")
}

func TestVerdictKey_DependsOnAllParts(t *testing.T) {
	base := VerdictKey("select 1", "select 2", "sid", 2)
	assert.NotEqual(t, base, VerdictKey("select 9", "select 2", "sid", 2))
	assert.NotEqual(t, base, VerdictKey("select 1", "select 9", "sid", 2))
	assert.NotEqual(t, base, VerdictKey("select 1", "select 2", "other", 2))
	assert.NotEqual(t, base, VerdictKey("select 1", "select 2", "sid", 3))
	assert.Equal(t, base, VerdictKey("select 1", "select 2", "sid", 2))
}
