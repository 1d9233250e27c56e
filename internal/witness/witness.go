// Package witness validates candidate counterexamples by replaying them
// through a real SQL engine.
//
// A satisfying assignment from the solver is only a claim about the
// symbolic encoding. Before the verifier reports NotEquivalent it
// materializes the assignment as a concrete in-memory SQLite database,
// runs both original query texts, and checks that the result bags
// actually differ. A counterexample the engine does not confirm is
// discarded and the verdict degrades to Unknown, never to Equivalent.
package witness

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/symbolic"
)

// Counterexample is a concrete database instance: rows per table, in
// schema table order.
type Counterexample struct {
	Schema *schema.Schema
	Rows   [][][]symbolic.Value
}

// FromModel extracts the present rows of a solver model.
func FromModel(sch *schema.Schema, rows func(table int) [][]symbolic.Value) *Counterexample {
	ce := &Counterexample{Schema: sch}
	for ti := range sch.Tables() {
		ce.Rows = append(ce.Rows, rows(ti))
	}
	return ce
}

// Empty is the counterexample with every table empty. It distinguishes
// query pairs that disagree even without data, such as a result-width
// mismatch.
func Empty(sch *schema.Schema) *Counterexample {
	return &Counterexample{Schema: sch, Rows: make([][][]symbolic.Value, len(sch.Tables()))}
}

// Outcome is the replay result for one counterexample.
type Outcome struct {
	// Differs reports whether the two queries returned different bags.
	// Results of different widths always differ.
	Differs bool
	// LeftRows and RightRows are the engine's row counts.
	LeftRows  int
	RightRows int
}

// Replay loads the counterexample into an in-memory SQLite database,
// executes both query texts, and compares the result bags. NULL
// patterns participate in the comparison; row order does not.
func Replay(ctx context.Context, ce *Counterexample, leftSQL, rightSQL string) (*Outcome, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("witness: open engine: %w", err)
	}
	defer db.Close()

	// Referential integrity was already enforced symbolically; keep the
	// engine permissive so table load order does not matter.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return nil, fmt.Errorf("witness: configure engine: %w", err)
	}

	if err := materialize(ctx, db, ce); err != nil {
		return nil, err
	}

	left, lcols, err := runQuery(ctx, db, leftSQL)
	if err != nil {
		return nil, fmt.Errorf("witness: left query: %w", err)
	}
	right, rcols, err := runQuery(ctx, db, rightSQL)
	if err != nil {
		return nil, fmt.Errorf("witness: right query: %w", err)
	}

	return &Outcome{
		Differs:   lcols != rcols || !bagsEqual(left, right),
		LeftRows:  len(left),
		RightRows: len(right),
	}, nil
}

func materialize(ctx context.Context, db *sql.DB, ce *Counterexample) error {
	for ti, tbl := range ce.Schema.Tables() {
		if _, err := db.ExecContext(ctx, createTableSQL(&tbl)); err != nil {
			return fmt.Errorf("witness: create table %s: %w", tbl.Name, err)
		}
		for _, row := range ce.Rows[ti] {
			args := make([]any, len(row))
			for i, v := range row {
				args[i] = driverValue(v)
			}
			stmt := insertSQL(&tbl)
			if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("witness: insert into %s: %w", tbl.Name, err)
			}
		}
	}
	return nil
}

func createTableSQL(tbl *schema.Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %q (", tbl.Name)
	for i, c := range tbl.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q %s", c.Name, sqliteType(c.Type))
	}
	sb.WriteByte(')')
	return sb.String()
}

func insertSQL(tbl *schema.Table) string {
	ph := make([]string, len(tbl.Columns))
	for i := range ph {
		ph[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %q VALUES (%s)", tbl.Name, strings.Join(ph, ", "))
}

func sqliteType(t schema.Type) string {
	switch t {
	case schema.TypeInt:
		return "INTEGER"
	case schema.TypeReal:
		return "REAL"
	case schema.TypeText:
		return "TEXT"
	default:
		return "BOOLEAN"
	}
}

func driverValue(v symbolic.Value) any {
	if v.Null {
		return nil
	}
	switch v.Typ {
	case schema.TypeInt:
		return v.Int
	case schema.TypeReal:
		return v.Real
	case schema.TypeText:
		return v.Str
	default:
		return v.Bool
	}
}

// runQuery executes a query and canonicalizes each row to a comparable
// string form. The column count is returned alongside the rows so
// callers can detect width mismatches even on empty results.
func runQuery(ctx context.Context, db *sql.DB, query string) ([]string, int, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, 0, err
	}

	var out []string
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, 0, err
		}
		parts := make([]string, len(raw))
		for i, v := range raw {
			parts[i] = canonValue(v)
		}
		out = append(out, strings.Join(parts, "\x1f"))
	}
	return out, len(cols), rows.Err()
}

// canonValue folds engine dynamic types into a stable representation:
// integral floats collapse to integers so 1 and 1.0 compare equal, the
// same coercion SQL applies when comparing the values themselves.
func canonValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "∅"
	case int64:
		return fmt.Sprintf("i:%d", x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("i:%d", int64(x))
		}
		return fmt.Sprintf("r:%g", x)
	case bool:
		return fmt.Sprintf("b:%t", x)
	case []byte:
		return "s:" + string(x)
	case string:
		return "s:" + x
	default:
		return fmt.Sprintf("?:%v", x)
	}
}

func bagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
