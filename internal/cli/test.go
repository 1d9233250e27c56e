package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rklop/SURF-2025/internal/harness"
)

// TestReport is the JSON payload of the test command.
type TestReport struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

// ScenarioReport summarizes one scenario run.
type ScenarioReport struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Checks   int      `json:"checks"`
	Failures []string `json:"failures,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against the verifier",
		Long: `Load every *.yaml scenario in a directory, run its checks through the
verification pipeline, and evaluate its assertions. A scenario fails
when a check's verdict misses its expectation or an assertion does not
hold.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runTest(opts *RootOptions, cmd *cobra.Command, dir string) error {
	formatter := formatterFor(opts, cmd)

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		if outErr := formatter.Error(ErrCodeInput, err.Error(), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "cannot load scenarios")
	}
	if len(scenarios) == 0 {
		if outErr := formatter.Error(ErrCodeInput, fmt.Sprintf("no scenarios in %s", dir), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "no scenarios")
	}

	report := &TestReport{}
	for _, sc := range scenarios {
		sr := ScenarioReport{Name: sc.Name}
		res, err := harness.Run(cmd.Context(), sc)
		if err != nil {
			sr.Error = err.Error()
		} else {
			sr.Passed = res.Passed()
			sr.Checks = len(res.Checks)
			sr.Failures = res.Failures
		}
		if sr.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, sr)
	}

	if formatter.JSON() {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		writeTestText(formatter, report)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d scenario(s) failed", report.Failed, len(report.Scenarios)))
	}
	return nil
}

func writeTestText(formatter *OutputFormatter, report *TestReport) {
	for _, sr := range report.Scenarios {
		status := "PASS"
		if !sr.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(formatter.Writer, "%s  %s (%d check(s))\n", status, sr.Name, sr.Checks)
		if sr.Error != "" {
			fmt.Fprintf(formatter.Writer, "      error: %s\n", sr.Error)
		}
		for _, f := range sr.Failures {
			fmt.Fprintf(formatter.Writer, "      %s\n", f)
		}
	}
	fmt.Fprintf(formatter.Writer, "%d passed, %d failed\n", report.Passed, report.Failed)
}
