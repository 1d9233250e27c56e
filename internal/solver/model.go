package solver

import (
	"github.com/rklop/SURF-2025/internal/symbolic"
)

// Model is a dense, mutable assignment of the instance variables. It
// implements symbolic.Assignment; during search some variables are
// still unbound.
type Model struct {
	pres    [][]bool
	presSet [][]bool
	cells   [][][]symbolic.Value
	cellSet [][][]bool
}

// NewModel allocates an empty model for the instance shape.
func NewModel(in *symbolic.Instance) *Model {
	m := &Model{}
	for _, tbl := range in.Schema.Tables() {
		m.pres = append(m.pres, make([]bool, in.K))
		m.presSet = append(m.presSet, make([]bool, in.K))
		cells := make([][]symbolic.Value, in.K)
		set := make([][]bool, in.K)
		for r := 0; r < in.K; r++ {
			cells[r] = make([]symbolic.Value, len(tbl.Columns))
			set[r] = make([]bool, len(tbl.Columns))
		}
		m.cells = append(m.cells, cells)
		m.cellSet = append(m.cellSet, set)
	}
	return m
}

// PresenceVal implements symbolic.Assignment.
func (m *Model) PresenceVal(table, row int) (bool, bool) {
	return m.pres[table][row], m.presSet[table][row]
}

// CellVal implements symbolic.Assignment.
func (m *Model) CellVal(table, row, col int) (symbolic.Value, bool) {
	return m.cells[table][row][col], m.cellSet[table][row][col]
}

func (m *Model) setPresence(table, row int, v bool) {
	m.pres[table][row] = v
	m.presSet[table][row] = true
}

func (m *Model) unsetPresence(table, row int) {
	m.presSet[table][row] = false
}

func (m *Model) setCell(table, row, col int, v symbolic.Value) {
	m.cells[table][row][col] = v
	m.cellSet[table][row][col] = true
}

func (m *Model) unsetCell(table, row, col int) {
	m.cellSet[table][row][col] = false
}

// Rows returns the present rows of a table as value slices, in slot
// order. Only fully bound present rows are returned.
func (m *Model) Rows(table int) [][]symbolic.Value {
	var out [][]symbolic.Value
	for r := range m.pres[table] {
		if !m.presSet[table][r] || !m.pres[table][r] {
			continue
		}
		row := make([]symbolic.Value, len(m.cells[table][r]))
		copy(row, m.cells[table][r])
		out = append(out, row)
	}
	return out
}

// Clone deep-copies the model, detaching it from further search
// mutation.
func (m *Model) Clone() *Model {
	c := &Model{}
	for t := range m.pres {
		c.pres = append(c.pres, append([]bool{}, m.pres[t]...))
		c.presSet = append(c.presSet, append([]bool{}, m.presSet[t]...))
		cells := make([][]symbolic.Value, len(m.cells[t]))
		set := make([][]bool, len(m.cellSet[t]))
		for r := range m.cells[t] {
			cells[r] = append([]symbolic.Value{}, m.cells[t][r]...)
			set[r] = append([]bool{}, m.cellSet[t][r]...)
		}
		c.cells = append(c.cells, cells)
		c.cellSet = append(c.cellSet, set)
	}
	return c
}
