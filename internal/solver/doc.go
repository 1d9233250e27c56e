// Package solver decides satisfiability of difference formulas over a
// bounded symbolic instance by enumerating assignments from finite
// per-column domains.
//
// Domains are built from the constants the queries mention plus enough
// fresh sentinel values to express inequality, and NULL for nullable
// columns. The search assigns presence variables and cells row by row,
// prunes with partial evaluation, respects a step budget, and honors
// context cancellation. A table's present rows are restricted to a
// prefix of its slots; any instance can be compacted to that shape
// without changing either query's result, so the restriction loses no
// models.
package solver
