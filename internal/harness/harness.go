package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rklop/SURF-2025/internal/render"
	"github.com/rklop/SURF-2025/internal/sqlparse"
	"github.com/rklop/SURF-2025/internal/verifier"
)

// CheckResult is the outcome of one check within a scenario.
type CheckResult struct {
	Name string `json:"name"`

	// Candidate and Reference hold the queries in normalized form, so
	// the report shows how the verifier read them.
	Candidate string `json:"candidate"`
	Reference string `json:"reference"`

	Verdict string `json:"verdict"`
	Bound   int    `json:"bound"`

	// Confirmed reports whether a counterexample was replayed through
	// the engine and showed differing results.
	Confirmed bool `json:"confirmed,omitempty"`

	// Rows counts counterexample rows per table, in table order.
	Rows []int `json:"rows,omitempty"`

	// Error holds the failure category for checks that did not produce
	// a verdict.
	Error string `json:"error,omitempty"`

	// failures collects expectation and assertion failures.
	failures []string
}

// Result is the outcome of running a scenario.
type Result struct {
	Scenario string        `json:"scenario"`
	Checks   []CheckResult `json:"checks"`

	// Failures lists every expectation or assertion that did not hold.
	// An empty list means the scenario passed.
	Failures []string `json:"failures,omitempty"`
}

// Passed reports whether every expectation and assertion held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// Run executes a scenario through the full verification pipeline and
// evaluates its expectations and assertions.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	sch, err := scenario.buildSchema()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	opts := []verifier.Option{
		verifier.WithCache(verifier.NewMemoryCache()),
		// Logs are suppressed; the report is the scenario's output.
		verifier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.Bound > 0 {
		opts = append(opts, verifier.WithMaxBound(scenario.Bound))
	}
	v := verifier.New(sch, opts...)

	result := &Result{Scenario: scenario.Name}
	for _, check := range scenario.Checks {
		cr := runCheck(ctx, v, check)
		result.Failures = append(result.Failures, cr.failures...)
		result.Checks = append(result.Checks, cr)
	}

	result.Failures = append(result.Failures, evaluateAssertions(scenario, result)...)
	return result, nil
}

func runCheck(ctx context.Context, v *verifier.Verifier, check CheckStep) CheckResult {
	cr := CheckResult{
		Name:      check.Name,
		Candidate: normalize(check.Candidate),
		Reference: normalize(check.Reference),
	}

	res, err := v.Verify(ctx, check.Candidate, check.Reference)
	if err != nil {
		cr.Error = string(verifier.CodeOf(err))
		if check.Expect != "" {
			cr.failures = append(cr.failures,
				fmt.Sprintf("check %s: expected %s, got error %s", check.Name, check.Expect, cr.Error))
		}
		return cr
	}

	cr.Verdict = string(res.Verdict)
	cr.Bound = res.Bound
	if res.Replay != nil {
		cr.Confirmed = res.Replay.Differs
	}
	if res.Counterexample != nil {
		for _, rows := range res.Counterexample.Rows {
			cr.Rows = append(cr.Rows, len(rows))
		}
	}

	if check.Expect != "" && cr.Verdict != check.Expect {
		cr.failures = append(cr.failures,
			fmt.Sprintf("check %s: expected %s, got %s", check.Name, check.Expect, cr.Verdict))
	}
	return cr
}

// normalize renders a query in normalized form, falling back to the
// raw text when it does not parse; the verdict carries the error.
func normalize(sql string) string {
	stmt, err := sqlparse.Parse(sql)
	if err != nil {
		return sql
	}
	return render.SQL(stmt)
}

func evaluateAssertions(scenario *Scenario, result *Result) []string {
	byName := make(map[string]*CheckResult, len(result.Checks))
	for i := range result.Checks {
		byName[result.Checks[i].Name] = &result.Checks[i]
	}

	var failures []string
	for _, a := range scenario.Assertions {
		switch a.Type {
		case AssertVerdict:
			cr := byName[a.Check]
			if cr.Verdict != a.Verdict {
				failures = append(failures,
					fmt.Sprintf("assert verdict: check %s: expected %s, got %s", a.Check, a.Verdict, cr.Verdict))
			}
		case AssertConfirmed:
			cr := byName[a.Check]
			if !cr.Confirmed {
				failures = append(failures,
					fmt.Sprintf("assert counterexample_confirmed: check %s: no confirmed counterexample", a.Check))
			}
		case AssertVerdictCount:
			count := 0
			for _, cr := range result.Checks {
				if cr.Verdict == a.Verdict {
					count++
				}
			}
			if count != a.Count {
				failures = append(failures,
					fmt.Sprintf("assert verdict_count: expected %d %s, got %d", a.Count, a.Verdict, count))
			}
		}
	}
	return failures
}
