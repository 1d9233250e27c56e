package store

import (
	"encoding/json"
	"fmt"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/symbolic"
	"github.com/rklop/SURF-2025/internal/witness"
)

// marshalCounterexample converts a counterexample to JSON TEXT for
// storage: a map from table name to rows, NULL cells as JSON null.
// Map keys are sorted by json.Marshal, so equal instances produce
// equal TEXT.
func marshalCounterexample(ce *witness.Counterexample) (string, error) {
	m := make(map[string][][]any, len(ce.Rows))
	for ti, tbl := range ce.Schema.Tables() {
		rows := make([][]any, len(ce.Rows[ti]))
		for ri, row := range ce.Rows[ti] {
			cells := make([]any, len(row))
			for ci, v := range row {
				cells[ci] = cellJSON(v)
			}
			rows[ri] = cells
		}
		m[tbl.Name] = rows
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal counterexample: %w", err)
	}
	return string(data), nil
}

// unmarshalCounterexample parses stored JSON TEXT back into a
// counterexample bound to the given schema. Cell types come from the
// schema, not the JSON, so integers survive the float64 round trip.
func unmarshalCounterexample(sch *schema.Schema, data string) (*witness.Counterexample, error) {
	var m map[string][][]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal counterexample: %w", err)
	}

	ce := &witness.Counterexample{Schema: sch}
	for _, tbl := range sch.Tables() {
		raw := m[tbl.Name]
		rows := make([][]symbolic.Value, len(raw))
		for ri, row := range raw {
			if len(row) != len(tbl.Columns) {
				return nil, fmt.Errorf("unmarshal counterexample: table %s row %d has %d cells, schema has %d columns",
					tbl.Name, ri, len(row), len(tbl.Columns))
			}
			cells := make([]symbolic.Value, len(row))
			for ci, cell := range row {
				v, err := jsonCell(tbl.Columns[ci].Type, cell)
				if err != nil {
					return nil, fmt.Errorf("unmarshal counterexample: table %s row %d column %s: %w",
						tbl.Name, ri, tbl.Columns[ci].Name, err)
				}
				cells[ci] = v
			}
			rows[ri] = cells
		}
		ce.Rows = append(ce.Rows, rows)
	}
	return ce, nil
}

func cellJSON(v symbolic.Value) any {
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

func jsonCell(typ schema.Type, cell any) (symbolic.Value, error) {
	if cell == nil {
		return symbolic.Value{Null: true, Typ: typ}, nil
	}
	switch typ {
	case schema.TypeInt:
		f, ok := cell.(float64)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected integer, got %T", cell)
		}
		return symbolic.IntValue(int64(f)), nil
	case schema.TypeReal:
		f, ok := cell.(float64)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected number, got %T", cell)
		}
		return symbolic.RealValue(f), nil
	case schema.TypeText:
		s, ok := cell.(string)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected string, got %T", cell)
		}
		return symbolic.TextValue(s), nil
	default:
		b, ok := cell.(bool)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected boolean, got %T", cell)
		}
		return symbolic.BoolValue(b), nil
	}
}
