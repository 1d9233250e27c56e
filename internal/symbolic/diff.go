package symbolic

import (
	"fmt"

	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// Diff builds the difference formula for two translated relations: it
// is satisfiable exactly when some admissible assignment gives a tuple
// different multiplicities in the two results. NULLs compare equal
// here, so results differing only in NULL placement still differ.
func Diff(a, b *Relation) (Formula, error) {
	if len(a.Cols) != len(b.Cols) {
		return nil, fmt.Errorf("translation: result arity mismatch (%d vs %d)", len(a.Cols), len(b.Cols))
	}
	var cases []Formula
	for _, s := range a.Slots {
		cases = append(cases, And(s.Present, countsDiffer(a, b, s.Values)))
	}
	// A tuple present only in b is not witnessed by any a slot.
	for _, s := range b.Slots {
		cases = append(cases, And(s.Present, countsDiffer(a, b, s.Values)))
	}
	return Or(cases...), nil
}

func countsDiffer(a, b *Relation, tuple []Term) Formula {
	return IsTrue(&Cmp{
		Op: sqlparse.OpNe,
		L:  matchCount(a, tuple),
		R:  matchCount(b, tuple),
	})
}
