// Package sqlparse lexes and parses the supported SQL subset into an
// abstract syntax tree.
//
// The subset covers SELECT with DISTINCT, joins (inner/left/right/full/
// cross, NATURAL, USING, comma-joins), WHERE, GROUP BY, HAVING, ORDER BY,
// LIMIT, set operations (UNION/INTERSECT/EXCEPT with optional ALL),
// subqueries (IN, EXISTS, scalar), CASE, BETWEEN, and IS [NOT] NULL.
//
// Constructs outside the subset (window functions, CTEs, DDL/DML, …)
// fail with UnsupportedError. That is a declared capability boundary:
// pluggable dialect front-ends may pre-lower such constructs, but this
// parser targets exactly the canonical algebra.
//
// The AST is syntactic only; identifier binding and type checking happen
// in package relalg against a schema.
package sqlparse
