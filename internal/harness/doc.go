// Package harness provides a conformance testing framework for the
// equivalence verifier.
//
// A scenario is a YAML file bundling a schema, a list of checks
// (candidate/reference query pairs with expected verdicts), and
// assertions over the verification report. Run executes every check
// through the real verifier pipeline, including counterexample replay,
// and produces a deterministic report.
//
// Reports can be compared against golden files with RunWithGolden;
// regenerate them with:
//
//	go test ./internal/harness -update
package harness
