package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/ir"
)

const employeeDescriptor = `
	tables: {
		dept: {
			columns: {
				id:   "int"
				name: {type: "text", nullable: true}
			}
			primary_key: ["id"]
		}
		emp: {
			columns: {
				id:      "int"
				dept_id: {type: "integer", nullable: true}
				salary:  {type: "real", nullable: true}
			}
			primary_key: ["id"]
			foreign_keys: [{column: "dept_id", ref_table: "dept", ref_column: "id"}]
		}
	}

	checks: "same-projection": {
		candidate: "SELECT id FROM emp"
		reference: "SELECT emp.id FROM emp"
		expect:    "equivalent"
		bound:     2
	}
`

func TestCompileBasic(t *testing.T) {
	bundle, err := Compile(employeeDescriptor)
	require.NoError(t, err)

	require.Len(t, bundle.Schema.Tables, 2)
	dept := bundle.Schema.Table("dept")
	require.NotNil(t, dept)
	assert.Equal(t, []string{"id"}, dept.PrimaryKey)
	assert.Equal(t, "int", dept.Columns[0].Type)
	assert.False(t, dept.Columns[0].Nullable)
	assert.Equal(t, "text", dept.Columns[1].Type)
	assert.True(t, dept.Columns[1].Nullable)

	emp := bundle.Schema.Table("emp")
	require.NotNil(t, emp)
	// Aliased type spellings are canonicalized.
	assert.Equal(t, "int", emp.Columns[1].Type)
	require.Len(t, emp.ForeignKeys, 1)
	assert.Equal(t, "dept", emp.ForeignKeys[0].RefTable)

	require.Len(t, bundle.Checks, 1)
	check := bundle.Checks[0]
	assert.Equal(t, "same-projection", check.Name)
	assert.Equal(t, "SELECT id FROM emp", check.Candidate)
	assert.Equal(t, "equivalent", check.Expect)
	assert.Equal(t, 2, check.Bound)
}

func TestCompileColumnOrderPreserved(t *testing.T) {
	bundle, err := Compile(`
		tables: t: {
			columns: {
				z: "int"
				a: "int"
				m: "int"
			}
		}
	`)
	require.NoError(t, err)

	cols := bundle.Schema.Tables[0].Columns
	require.Len(t, cols, 3)
	assert.Equal(t, "z", cols[0].Name)
	assert.Equal(t, "a", cols[1].Name)
	assert.Equal(t, "m", cols[2].Name)
}

func TestCompileWithoutChecks(t *testing.T) {
	bundle, err := Compile(`
		tables: t: columns: a: "int"
	`)
	require.NoError(t, err)
	assert.Empty(t, bundle.Checks)
	require.Len(t, bundle.Schema.Tables, 1)
	assert.Equal(t, "a", bundle.Schema.Tables[0].Columns[0].Name)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing tables",
			src:     `checks: {}`,
			wantErr: "tables is required",
		},
		{
			name:    "missing columns",
			src:     `tables: t: primary_key: ["a"]`,
			wantErr: "columns are required",
		},
		{
			name:    "invalid type",
			src:     `tables: t: columns: a: "decimal"`,
			wantErr: `invalid type "decimal"`,
		},
		{
			name:    "column without type",
			src:     `tables: t: columns: a: {nullable: true}`,
			wantErr: "column needs a type",
		},
		{
			name:    "foreign key missing field",
			src:     `tables: t: {columns: a: "int", foreign_keys: [{column: "a"}]}`,
			wantErr: "ref_table is required",
		},
		{
			name:    "check missing reference",
			src:     `tables: t: columns: a: "int", checks: c1: candidate: "SELECT a FROM t"`,
			wantErr: "reference is required",
		},
		{
			name:    "cue syntax error",
			src:     `tables: {`,
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCompileValidatesBundle(t *testing.T) {
	_, err := Compile(`
		tables: t: {
			columns: a: "int"
			primary_key: ["missing"]
		}
		checks: "bad check name!": {
			candidate: "SELECT a FROM t"
			reference: "SELECT a FROM t"
			expect:    "maybe"
		}
	`)
	require.Error(t, err)

	var ide *InvalidDescriptorError
	require.ErrorAs(t, err, &ide)
	codes := make(map[string]bool)
	for _, ve := range ide.Errors {
		codes[ve.Code] = true
	}
	assert.True(t, codes[ir.ErrInvalidPrimaryKey])
	assert.True(t, codes[ir.ErrInvalidCheckName])
	assert.True(t, codes[ir.ErrInvalidExpect])
}

func TestCompileDuplicateCheckName(t *testing.T) {
	// CUE unifies identical labels, so duplicates are modeled with two
	// bundles sharing a name after quote stripping.
	_, err := Compile(`
		tables: t: columns: a: "int"
		checks: {
			"c1": {candidate: "SELECT a FROM t", reference: "SELECT a FROM t"}
			c1:   {candidate: "SELECT a FROM t", reference: "SELECT a FROM t"}
		}
	`)
	// Unification merges the two declarations; compile succeeds with a
	// single check.
	require.NoError(t, err)
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := Compile(`
		tables: t: columns: a: "decimal"
	`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tables.t.columns.a", ce.Field)
}
