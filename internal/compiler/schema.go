package compiler

import (
	"fmt"

	"github.com/rklop/SURF-2025/internal/ir"
	"github.com/rklop/SURF-2025/internal/schema"
)

// typeNames maps canonical descriptor type names to bound schema types.
var typeNames = map[string]schema.Type{
	"int":  schema.TypeInt,
	"real": schema.TypeReal,
	"text": schema.TypeText,
	"bool": schema.TypeBool,
}

// BuildSchema converts a validated descriptor into a bound schema ready
// for verification.
func BuildSchema(def *ir.SchemaDef) (*schema.Schema, error) {
	if errs := def.Validate(); len(errs) > 0 {
		return nil, &InvalidDescriptorError{Errors: errs}
	}

	tables := make([]schema.Table, len(def.Tables))
	for i, t := range def.Tables {
		cols := make([]schema.Column, len(t.Columns))
		for j, c := range t.Columns {
			typ, ok := typeNames[c.Type]
			if !ok {
				return nil, fmt.Errorf("table %s column %s: unmapped type %q", t.Name, c.Name, c.Type)
			}
			cols[j] = schema.Column{Name: c.Name, Type: typ, Nullable: c.Nullable}
		}
		fks := make([]schema.ForeignKey, len(t.ForeignKeys))
		for j, fk := range t.ForeignKeys {
			fks[j] = schema.ForeignKey{
				Column:    fk.Column,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
			}
		}
		tables[i] = schema.Table{
			Name:        t.Name,
			Columns:     cols,
			PrimaryKey:  t.PrimaryKey,
			ForeignKeys: fks,
		}
	}
	return schema.New(tables)
}
