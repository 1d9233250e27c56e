// Package symbolic encodes a canonical query plan over a bounded
// symbolic database instance.
//
// An instance at bound k gives every base table k row slots. Each slot
// has a presence variable and one cell variable per column. Translating
// a plan yields a Relation: a list of derived slots whose presence is a
// formula over the instance variables and whose column values are terms.
// Two translated relations combine into a single quantifier-free
// difference formula that is satisfiable exactly when some assignment of
// the instance variables makes the two queries return different bags.
//
// Formulas follow SQL's three-valued logic. Evaluation is tri-state and
// partial: given an assignment that binds only some variables, Eval
// reports a definite truth value whenever one is already forced, which
// is what the enumerative solver uses for pruning.
package symbolic
