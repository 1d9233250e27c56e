package schema

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Type identifies a column's value domain.
//
// The verifier supports the four scalar domains of the target SQL subset.
// Nullability is tracked separately on Column, not as a distinct type.
type Type int

const (
	// TypeInt is a 64-bit signed integer column.
	TypeInt Type = iota
	// TypeReal is a double-precision floating point column.
	TypeReal
	// TypeText is a string column.
	TypeText
	// TypeBool is a boolean column.
	TypeBool
)

// String returns the SQL-ish name of the type.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	case TypeBool:
		return "BOOL"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Numeric reports whether the type participates in arithmetic and
// SUM/AVG aggregation.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeReal
}

// Column is one typed column of a table.
type Column struct {
	Name     string `yaml:"name"`
	Type     Type   `yaml:"-"`
	Nullable bool   `yaml:"nullable"`
}

// ForeignKey declares that Column references RefTable.RefColumn.
//
// Foreign keys are represented as an explicit edge list so the schema
// graph can be traversed (including cycles) without ownership concerns.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table is a named, ordered sequence of typed columns with optional keys.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Column returns the column with the given folded name and its position.
func (t *Table) Column(folded string) (Column, int, bool) {
	for i, c := range t.Columns {
		if Fold(c.Name) == folded {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// Schema is an ordered set of tables. Immutable after New.
type Schema struct {
	tables []Table

	// byName maps case-folded table name to index into tables.
	byName map[string]int

	// id caches the content hash; computed eagerly in New.
	id string
}

// ColumnRef is a fully resolved identifier: table, column, type, position.
type ColumnRef struct {
	Table    string
	Column   string
	Type     Type
	Nullable bool
	// TableIndex and ColumnIndex are positions within the schema and table.
	TableIndex  int
	ColumnIndex int
}

var folder = cases.Fold()

// Fold case-folds an identifier for case-insensitive matching.
func Fold(ident string) string {
	return folder.String(ident)
}

// New validates the table set and builds an immutable Schema.
//
// Validation covers duplicate table names, duplicate column names within
// a table, empty tables, and foreign keys whose target table or column
// does not exist. Cyclic foreign-key references are legal.
func New(tables []Table) (*Schema, error) {
	if len(tables) == 0 {
		return nil, &MismatchError{Stage: StageBinding, Message: "schema has no tables"}
	}
	s := &Schema{
		tables: make([]Table, len(tables)),
		byName: make(map[string]int, len(tables)),
	}
	copy(s.tables, tables)

	for i, t := range s.tables {
		if t.Name == "" {
			return nil, &MismatchError{Stage: StageBinding, Message: fmt.Sprintf("table %d has empty name", i)}
		}
		key := Fold(t.Name)
		if _, dup := s.byName[key]; dup {
			return nil, &MismatchError{Stage: StageBinding, Table: t.Name, Message: "duplicate table name"}
		}
		s.byName[key] = i

		if len(t.Columns) == 0 {
			return nil, &MismatchError{Stage: StageBinding, Table: t.Name, Message: "table has no columns"}
		}
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			ck := Fold(c.Name)
			if seen[ck] {
				return nil, &MismatchError{Stage: StageBinding, Table: t.Name, Column: c.Name, Message: "duplicate column name"}
			}
			seen[ck] = true
		}
	}

	// Foreign keys may only be checked once all tables are indexed;
	// self-references and cycles are permitted.
	for _, t := range s.tables {
		for _, fk := range t.ForeignKeys {
			if _, _, ok := t.Column(Fold(fk.Column)); !ok {
				return nil, &MismatchError{Stage: StageBinding, Table: t.Name, Column: fk.Column, Message: "foreign key source column not found"}
			}
			ti, ok := s.byName[Fold(fk.RefTable)]
			if !ok {
				return nil, &MismatchError{Stage: StageBinding, Table: fk.RefTable, Message: fmt.Sprintf("foreign key target table not found (from %s.%s)", t.Name, fk.Column)}
			}
			if _, _, ok := s.tables[ti].Column(Fold(fk.RefColumn)); !ok {
				return nil, &MismatchError{Stage: StageBinding, Table: fk.RefTable, Column: fk.RefColumn, Message: "foreign key target column not found"}
			}
		}
	}

	s.id = contentHash(s.tables)
	return s, nil
}

// Tables returns the tables in declaration order.
// The returned slice must not be mutated.
func (s *Schema) Tables() []Table {
	return s.tables
}

// Table looks up a table by name, case-insensitively.
func (s *Schema) Table(name string) (*Table, bool) {
	i, ok := s.byName[Fold(name)]
	if !ok {
		return nil, false
	}
	return &s.tables[i], true
}

// TableIndex returns the position of a table in declaration order.
func (s *Schema) TableIndex(name string) (int, bool) {
	i, ok := s.byName[Fold(name)]
	return i, ok
}

// Resolve binds (table, column) to a fully typed reference.
//
// Returns a MismatchError naming the missing identifier when either the
// table or the column is unknown. Pure function of the schema.
func (s *Schema) Resolve(table, column string) (ColumnRef, error) {
	ti, ok := s.byName[Fold(table)]
	if !ok {
		return ColumnRef{}, &MismatchError{Stage: StageBinding, Table: table, Message: "unknown table"}
	}
	t := &s.tables[ti]
	c, ci, ok := t.Column(Fold(column))
	if !ok {
		return ColumnRef{}, &MismatchError{Stage: StageBinding, Table: t.Name, Column: column, Message: "unknown column"}
	}
	return ColumnRef{
		Table:       t.Name,
		Column:      c.Name,
		Type:        c.Type,
		Nullable:    c.Nullable,
		TableIndex:  ti,
		ColumnIndex: ci,
	}, nil
}

// ResolveColumn binds a bare column name by searching all tables in scope.
//
// scope lists candidate table names (in FROM order). Ambiguous matches
// across multiple scope tables are a binding error, mirroring SQL.
func (s *Schema) ResolveColumn(column string, scope []string) (ColumnRef, error) {
	var found []ColumnRef
	for _, tn := range scope {
		ref, err := s.Resolve(tn, column)
		if err == nil {
			found = append(found, ref)
		}
	}
	switch len(found) {
	case 0:
		return ColumnRef{}, &MismatchError{Stage: StageBinding, Column: column, Message: "unknown column in scope"}
	case 1:
		return found[0], nil
	default:
		return ColumnRef{}, &MismatchError{Stage: StageBinding, Column: column, Message: fmt.Sprintf("ambiguous column (matches %d tables)", len(found))}
	}
}

// ForeignKeyEdges returns the schema graph as (from-table, to-table)
// pairs in declaration order. Used for cycle reporting.
func (s *Schema) ForeignKeyEdges() [][2]string {
	var edges [][2]string
	for _, t := range s.tables {
		for _, fk := range t.ForeignKeys {
			edges = append(edges, [2]string{t.Name, fk.RefTable})
		}
	}
	return edges
}

// ID returns the content hash of the schema.
//
// Schemas with identical tables, columns, types and keys share an ID.
// The ID participates in verdict cache keys.
func (s *Schema) ID() string {
	return s.id
}
