package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/ir"
	"github.com/rklop/SURF-2025/internal/schema"
)

func TestBuildSchema(t *testing.T) {
	bundle, err := Compile(employeeDescriptor)
	require.NoError(t, err)

	sch, err := BuildSchema(bundle.Schema)
	require.NoError(t, err)

	emp, ok := sch.Table("emp")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, emp.PrimaryKey)
	require.Len(t, emp.Columns, 3)
	assert.Equal(t, schema.TypeInt, emp.Columns[1].Type)
	assert.True(t, emp.Columns[1].Nullable)
	assert.Equal(t, schema.TypeReal, emp.Columns[2].Type)
	require.Len(t, emp.ForeignKeys, 1)
	assert.Equal(t, "dept", emp.ForeignKeys[0].RefTable)

	// The bound schema is queryable immediately.
	ref, err := sch.Resolve("emp", "salary")
	require.NoError(t, err)
	assert.Equal(t, schema.TypeReal, ref.Type)
}

func TestBuildSchemaRejectsInvalid(t *testing.T) {
	def := &ir.SchemaDef{Tables: []ir.TableDef{
		{Name: "t", Columns: []ir.ColumnDef{{Name: "a", Type: "decimal"}}},
	}}

	_, err := BuildSchema(def)
	require.Error(t, err)

	var ide *InvalidDescriptorError
	require.ErrorAs(t, err, &ide)
	require.Len(t, ide.Errors, 1)
	assert.Equal(t, ir.ErrInvalidColumnType, ide.Errors[0].Code)
}

func TestBuildSchemaStableID(t *testing.T) {
	bundle, err := Compile(employeeDescriptor)
	require.NoError(t, err)

	s1, err := BuildSchema(bundle.Schema)
	require.NoError(t, err)
	s2, err := BuildSchema(bundle.Schema)
	require.NoError(t, err)
	assert.Equal(t, s1.ID(), s2.ID())
}
