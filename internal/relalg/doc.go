// Package relalg defines the canonical relational operator tree and the
// builder that lowers a parsed AST into it against a schema.
//
// Every plan node carries its output column schema, derived bottom-up
// during build; encoding never has to infer types. Build also performs
// all desugaring: NATURAL/USING joins become explicit equality
// predicates, comma-joins become cross joins, BETWEEN becomes a
// conjunction, IN (subquery) and EXISTS become semi-joins and anti-joins,
// RIGHT joins become LEFT joins with a column-restoring projection, and
// ORDER BY without LIMIT is dropped since pure reordering is not
// observable under bag or set semantics.
//
// Expressions are index-bound: column references are positions into the
// node's input schema, so a built plan is self-contained and independent
// of the original identifier spelling.
package relalg
