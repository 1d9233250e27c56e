package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/rklop/SURF-2025/internal/ir"
)

// CompileChecks parses the checks block of a CUE descriptor. A missing
// block yields no checks. The CUE value should be the checks struct,
// keyed by check name:
//
//	checks: "count-null": {
//		candidate: "SELECT COUNT(a) FROM t"
//		reference: "SELECT COUNT(*) FROM t"
//		expect:    "not_equivalent"
//		bound:     2
//	}
func CompileChecks(v cue.Value) ([]ir.CheckDef, error) {
	if !v.Exists() {
		return nil, nil
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var checks []ir.CheckDef
	for iter.Next() {
		// Check names may be quoted in CUE; strip the quotes.
		name := strings.Trim(iter.Label(), `"`)
		check, err := parseCheck(name, iter.Value())
		if err != nil {
			return nil, err
		}
		checks = append(checks, *check)
	}
	return checks, nil
}

func parseCheck(name string, v cue.Value) (*ir.CheckDef, error) {
	check := &ir.CheckDef{Name: name}

	for _, f := range []struct {
		path     string
		dst      *string
		required bool
	}{
		{"candidate", &check.Candidate, true},
		{"reference", &check.Reference, true},
		{"expect", &check.Expect, false},
	} {
		fv := v.LookupPath(cue.ParsePath(f.path))
		if !fv.Exists() {
			if f.required {
				return nil, &CompileError{
					Field:   fmt.Sprintf("checks.%s.%s", name, f.path),
					Message: fmt.Sprintf("%s is required", f.path),
					Pos:     v.Pos(),
				}
			}
			continue
		}
		s, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*f.dst = s
	}

	boundVal := v.LookupPath(cue.ParsePath("bound"))
	if boundVal.Exists() {
		bound, err := boundVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		check.Bound = int(bound)
	}

	return check, nil
}
