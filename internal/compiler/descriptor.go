// Package compiler lowers CUE schema descriptors into the ir types the
// verifier consumes.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/rklop/SURF-2025/internal/ir"
)

// Bundle is a compiled descriptor: the schema plus any checks declared
// alongside it.
type Bundle struct {
	Schema *ir.SchemaDef
	Checks []ir.CheckDef
}

// Compile parses CUE source into a validated Bundle.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// A descriptor looks like:
//
//	tables: emp: {
//		columns: {
//			id:      "int"
//			dept_id: {type: "int", nullable: true}
//		}
//		primary_key: ["id"]
//		foreign_keys: [{column: "dept_id", ref_table: "dept", ref_column: "id"}]
//	}
//	checks: "same-projection": {
//		candidate: "SELECT id FROM emp"
//		reference: "SELECT emp.id FROM emp"
//		expect:    "equivalent"
//	}
func Compile(src string) (*Bundle, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema, err := CompileSchema(v)
	if err != nil {
		return nil, err
	}
	checks, err := CompileChecks(v.LookupPath(cue.ParsePath("checks")))
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{Schema: schema, Checks: checks}
	if errs := validateBundle(bundle); len(errs) > 0 {
		return nil, &InvalidDescriptorError{Errors: errs}
	}
	return bundle, nil
}

// CompileSchema parses the tables of a CUE descriptor into a SchemaDef.
// The result is not yet validated; Compile runs validation after both
// schema and checks are parsed.
func CompileSchema(v cue.Value) (*ir.SchemaDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return nil, &CompileError{
			Field:   "tables",
			Message: "tables is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.SchemaDef{}
	for iter.Next() {
		table, err := parseTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		def.Tables = append(def.Tables, *table)
	}
	return def, nil
}

func parseTable(name string, v cue.Value) (*ir.TableDef, error) {
	table := &ir.TableDef{Name: name}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("tables.%s.columns", name),
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	colIter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for colIter.Next() {
		col, err := parseColumn(name, colIter.Label(), colIter.Value())
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, *col)
	}

	pkVal := v.LookupPath(cue.ParsePath("primary_key"))
	if pkVal.Exists() {
		table.PrimaryKey, err = stringList(pkVal)
		if err != nil {
			return nil, err
		}
	}

	fkVal := v.LookupPath(cue.ParsePath("foreign_keys"))
	if fkVal.Exists() {
		fkIter, err := fkVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fkIter.Next() {
			fk, err := parseForeignKey(name, fkIter.Value())
			if err != nil {
				return nil, err
			}
			table.ForeignKeys = append(table.ForeignKeys, *fk)
		}
	}

	return table, nil
}

// parseColumn accepts either the shorthand `name: "int"` or the full
// form `name: {type: "int", nullable: true}`. Shorthand columns are
// non-nullable.
func parseColumn(table, name string, v cue.Value) (*ir.ColumnDef, error) {
	col := &ir.ColumnDef{Name: name}

	if typ, err := v.String(); err == nil {
		col.Type = ir.ValidTypes[typ]
		if col.Type == "" {
			return nil, invalidTypeError(table, name, typ, v)
		}
		return col, nil
	}

	typVal := v.LookupPath(cue.ParsePath("type"))
	if !typVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("tables.%s.columns.%s", table, name),
			Message: "column needs a type string or a {type, nullable} struct",
			Pos:     v.Pos(),
		}
	}
	typ, err := typVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	col.Type = ir.ValidTypes[typ]
	if col.Type == "" {
		return nil, invalidTypeError(table, name, typ, typVal)
	}

	nullVal := v.LookupPath(cue.ParsePath("nullable"))
	if nullVal.Exists() {
		col.Nullable, err = nullVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
	}
	return col, nil
}

func invalidTypeError(table, name, typ string, v cue.Value) error {
	return &CompileError{
		Field:   fmt.Sprintf("tables.%s.columns.%s", table, name),
		Message: fmt.Sprintf("invalid type %q, must be one of: int, real, text, bool", typ),
		Pos:     v.Pos(),
	}
}

func parseForeignKey(table string, v cue.Value) (*ir.ForeignKeyDef, error) {
	fk := &ir.ForeignKeyDef{}
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{"column", &fk.Column},
		{"ref_table", &fk.RefTable},
		{"ref_column", &fk.RefColumn},
	} {
		fv := v.LookupPath(cue.ParsePath(f.path))
		if !fv.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("tables.%s.foreign_keys.%s", table, f.path),
				Message: fmt.Sprintf("%s is required", f.path),
				Pos:     v.Pos(),
			}
		}
		s, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*f.dst = s
	}
	return fk, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidDescriptorError aggregates validation errors for a descriptor
// that parsed but violates schema rules.
type InvalidDescriptorError struct {
	Errors []ir.ValidationError
}

func (e *InvalidDescriptorError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid descriptor: %s", e.Errors[0].Error())
	}
	return fmt.Sprintf("invalid descriptor: %s (and %d more)", e.Errors[0].Error(), len(e.Errors)-1)
}

func validateBundle(b *Bundle) []ir.ValidationError {
	errs := b.Schema.Validate()
	seen := make(map[string]bool)
	for i := range b.Checks {
		c := &b.Checks[i]
		if seen[c.Name] {
			errs = append(errs, ir.ValidationError{
				Field:   fmt.Sprintf("checks.%s", c.Name),
				Message: fmt.Sprintf("duplicate check name: %q", c.Name),
				Code:    ir.ErrDuplicateName,
			})
		}
		seen[c.Name] = true
		errs = append(errs, c.Validate()...)
	}
	return errs
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
