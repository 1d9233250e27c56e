package ir

// ValidTypes defines the allowed column type strings, keyed by the
// spelling accepted in descriptors. Values are the canonical name.
var ValidTypes = map[string]string{
	"int":     "int",
	"integer": "int",
	"real":    "real",
	"float":   "real",
	"double":  "real",
	"text":    "text",
	"string":  "text",
	"varchar": "text",
	"bool":    "bool",
	"boolean": "bool",
}

// ValidVerdicts defines the allowed expectation strings on a check.
var ValidVerdicts = map[string]bool{
	"equivalent":     true,
	"not_equivalent": true,
	"unknown":        true,
}

// SchemaDef is a parsed schema descriptor: the tables two queries are
// verified against.
type SchemaDef struct {
	Tables []TableDef `json:"tables"`
}

// TableDef is one table definition. Column order is the declaration
// order in the descriptor and is significant for star expansion.
type TableDef struct {
	Name        string          `json:"name"`
	Columns     []ColumnDef     `json:"columns"`
	PrimaryKey  []string        `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyDef `json:"foreign_keys,omitempty"`
}

// ColumnDef is a named, typed column. Type holds a canonical name from
// ValidTypes.
type ColumnDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ForeignKeyDef declares that Column references RefTable.RefColumn.
type ForeignKeyDef struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// CheckDef is a named equivalence check bundled with a descriptor: a
// candidate query verified against a reference query.
type CheckDef struct {
	Name      string `json:"name"`
	Candidate string `json:"candidate"`
	Reference string `json:"reference"`

	// Expect is the verdict the check asserts, or empty when the check
	// only runs the pair without asserting.
	Expect string `json:"expect,omitempty"`

	// Bound overrides the verifier's maximum bound; zero means default.
	Bound int `json:"bound,omitempty"`
}

// Table returns the table with the given name, or nil.
func (s *SchemaDef) Table(name string) *TableDef {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *TableDef) Column(name string) *ColumnDef {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
