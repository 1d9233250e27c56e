package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rklop/SURF-2025/internal/ir"
	"github.com/rklop/SURF-2025/internal/schema"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema declares the tables the checks run against.
	Schema SchemaSpec `yaml:"schema"`

	// Bound overrides the verifier's maximum row bound. Zero means the
	// verifier default.
	Bound int `yaml:"bound,omitempty"`

	// Checks are the query pairs to verify, in order.
	Checks []CheckStep `yaml:"checks"`

	// Assertions validate the final report.
	// Supported types: verdict, counterexample_confirmed, verdict_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SchemaSpec mirrors the descriptor table layout in YAML form.
type SchemaSpec struct {
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec is one table declaration.
type TableSpec struct {
	Name        string           `yaml:"name"`
	Columns     []ColumnSpec     `yaml:"columns"`
	PrimaryKey  []string         `yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKeySpec `yaml:"foreign_keys,omitempty"`
}

// ColumnSpec is one column declaration. Type accepts the spellings of
// ir.ValidTypes.
type ColumnSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

// ForeignKeySpec is one foreign key declaration.
type ForeignKeySpec struct {
	Column    string `yaml:"column"`
	RefTable  string `yaml:"ref_table"`
	RefColumn string `yaml:"ref_column"`
}

// CheckStep is one query pair to verify.
type CheckStep struct {
	Name      string `yaml:"name"`
	Candidate string `yaml:"candidate"`
	Reference string `yaml:"reference"`

	// Expect is the verdict this check asserts; empty runs the pair
	// without asserting.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final report.
type Assertion struct {
	// Type selects the assertion.
	Type string `yaml:"type"`

	// Check names the check the assertion applies to (verdict,
	// counterexample_confirmed).
	Check string `yaml:"check,omitempty"`

	// Verdict is the expected verdict (verdict, verdict_count).
	Verdict string `yaml:"verdict,omitempty"`

	// Count is the expected number of checks with Verdict
	// (verdict_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertVerdict      = "verdict"
	AssertConfirmed    = "counterexample_confirmed"
	AssertVerdictCount = "verdict_count"
)

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates YAML scenario bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by file
// name for deterministic execution order.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	var scenarios []*Scenario
	for _, path := range entries {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario needs a name")
	}
	if len(s.Schema.Tables) == 0 {
		return fmt.Errorf("scenario %s: schema has no tables", s.Name)
	}
	if len(s.Checks) == 0 {
		return fmt.Errorf("scenario %s: no checks", s.Name)
	}
	seen := make(map[string]bool)
	for i, c := range s.Checks {
		if c.Name == "" {
			return fmt.Errorf("scenario %s: check %d has no name", s.Name, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("scenario %s: duplicate check name %q", s.Name, c.Name)
		}
		seen[c.Name] = true
		if c.Candidate == "" || c.Reference == "" {
			return fmt.Errorf("scenario %s: check %s needs candidate and reference", s.Name, c.Name)
		}
		if c.Expect != "" && !ir.ValidVerdicts[c.Expect] {
			return fmt.Errorf("scenario %s: check %s: invalid expect %q", s.Name, c.Name, c.Expect)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertVerdict:
			if !seen[a.Check] || !ir.ValidVerdicts[a.Verdict] {
				return fmt.Errorf("scenario %s: assertion %d: verdict needs a known check and verdict", s.Name, i)
			}
		case AssertConfirmed:
			if !seen[a.Check] {
				return fmt.Errorf("scenario %s: assertion %d: unknown check %q", s.Name, i, a.Check)
			}
		case AssertVerdictCount:
			if !ir.ValidVerdicts[a.Verdict] {
				return fmt.Errorf("scenario %s: assertion %d: invalid verdict %q", s.Name, i, a.Verdict)
			}
		default:
			return fmt.Errorf("scenario %s: assertion %d: unknown type %q", s.Name, i, a.Type)
		}
	}
	return nil
}

// buildSchema converts the YAML schema spec into a bound schema.
func (s *Scenario) buildSchema() (*schema.Schema, error) {
	typeNames := map[string]schema.Type{
		"int":  schema.TypeInt,
		"real": schema.TypeReal,
		"text": schema.TypeText,
		"bool": schema.TypeBool,
	}

	tables := make([]schema.Table, len(s.Schema.Tables))
	for i, t := range s.Schema.Tables {
		cols := make([]schema.Column, len(t.Columns))
		for j, c := range t.Columns {
			canonical := ir.ValidTypes[c.Type]
			if canonical == "" {
				return nil, fmt.Errorf("table %s column %s: invalid type %q", t.Name, c.Name, c.Type)
			}
			cols[j] = schema.Column{Name: c.Name, Type: typeNames[canonical], Nullable: c.Nullable}
		}
		fks := make([]schema.ForeignKey, len(t.ForeignKeys))
		for j, fk := range t.ForeignKeys {
			fks[j] = schema.ForeignKey{Column: fk.Column, RefTable: fk.RefTable, RefColumn: fk.RefColumn}
		}
		tables[i] = schema.Table{Name: t.Name, Columns: cols, PrimaryKey: t.PrimaryKey, ForeignKeys: fks}
	}
	return schema.New(tables)
}
