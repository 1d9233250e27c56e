// Package verifier orchestrates bounded equivalence checking of SQL
// query pairs.
//
// For each pair it binds both queries against the shared schema, lowers
// them to canonical plans, encodes the pair over symbolic instances at
// increasing bounds, and hands the difference formula to a solver. An
// unsatisfiable difference at every bound up to the maximum yields
// Equivalent (at that bound). A satisfying assignment is replayed
// through a real SQL engine before it is trusted: only an
// engine-confirmed counterexample yields NotEquivalent; an unconfirmed
// one degrades to Unknown.
//
// Verdicts are cached content-addressed by both query texts, the schema
// hash and the bound. The cache is write-once: the first verdict for a
// key wins and later identical runs are served from it.
package verifier
