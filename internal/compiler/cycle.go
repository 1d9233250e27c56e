package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rklop/SURF-2025/internal/ir"
)

// CycleWarning represents a reference cycle between tables.
//
// Cycles are warnings, not errors, because they are legal SQL: a
// nullable foreign key column lets rows enter the cycle one at a time.
// A cycle whose every edge is non-nullable can only be satisfied by
// empty tables, which usually signals a descriptor mistake.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["emp", "dept", "emp"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on foreign keys.
//
// The algorithm:
//  1. Build a table → referenced-table graph from foreign keys
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// A DAG (no cycles) returns an empty warning list.
func AnalyzeCycles(def *ir.SchemaDef) []CycleWarning {
	graph := buildReferenceGraph(def)
	sccs := tarjanSCC(graph)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, sccToWarning(scc, def))
		}
	}
	return warnings
}

// referenceGraph maps table name → tables it references.
type referenceGraph map[string][]string

func buildReferenceGraph(def *ir.SchemaDef) referenceGraph {
	graph := make(referenceGraph)
	for _, t := range def.Tables {
		if graph[t.Name] == nil {
			graph[t.Name] = []string{}
		}
		for _, fk := range t.ForeignKeys {
			graph[t.Name] = append(graph[t.Name], fk.RefTable)
		}
	}
	return graph
}

func hasSelfLoop(node string, graph referenceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

func sccToWarning(scc []string, def *ir.SchemaDef) CycleWarning {
	path := append(append([]string{}, scc...), scc[0])

	// A cycle is escapable when some foreign key inside it is nullable:
	// rows can then be inserted with the reference deferred via NULL.
	escapable := false
	inCycle := make(map[string]bool, len(scc))
	for _, name := range scc {
		inCycle[name] = true
	}
	for _, name := range scc {
		t := def.Table(name)
		if t == nil {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if !inCycle[fk.RefTable] {
				continue
			}
			if col := t.Column(fk.Column); col != nil && col.Nullable {
				escapable = true
			}
		}
	}

	level := "warning"
	detail := "no nullable foreign key breaks the cycle, so only empty tables satisfy it"
	if escapable {
		level = "info"
		detail = "a nullable foreign key allows rows to enter the cycle"
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("reference cycle: %s (%s)", strings.Join(path, " -> "), detail),
		Level:   level,
	}
}

// tarjanSCC finds strongly connected components using Tarjan's
// algorithm. Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph referenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	// Sorted iteration keeps warning order deterministic.
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, seen := indices[node]; !seen {
			strongconnect(node)
		}
	}
	return sccs
}
