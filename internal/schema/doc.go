// Package schema defines the relational schema shared by the two queries
// under comparison, and the binder that resolves identifiers against it.
//
// A Schema is immutable once constructed. Both queries of a verification
// pair bind against the same Schema value, and the schema's content hash
// participates in verdict cache keys.
//
// Identifier resolution is case-insensitive using Unicode case folding,
// matching the identifier cleanup the batch pipeline applies upstream.
package schema
