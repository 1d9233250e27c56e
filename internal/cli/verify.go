package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rklop/SURF-2025/internal/verifier"
)

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	Verdict        string             `json:"verdict"`
	Bound          int                `json:"bound"`
	Reason         string             `json:"reason,omitempty"`
	SolverSteps    int64              `json:"solver_steps"`
	ElapsedMS      int64              `json:"elapsed_ms"`
	Counterexample map[string][][]any `json:"counterexample,omitempty"`
	LeftRows       int                `json:"left_rows,omitempty"`
	RightRows      int                `json:"right_rows,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		bound     int
		minBound  int
		boundStep int
		timeout   time.Duration
		storePath string
	)

	cmd := &cobra.Command{
		Use:   "verify <descriptor.cue> <candidate-sql> <reference-sql>",
		Short: "Check two queries for bounded equivalence",
		Long: `Verify that a candidate query and a reference query return the same
results on every database instance with at most --bound rows per table.

Exit code 0 means equivalent, 1 means a confirmed difference or an
unknown verdict, 2 means the command itself failed.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := verifyOptions{
				bound:     bound,
				minBound:  minBound,
				boundStep: boundStep,
				timeout:   timeout,
				storePath: storePath,
			}
			return runVerify(rootOpts, cmd, args[0], args[1], args[2], opts)
		},
	}

	cmd.Flags().IntVar(&bound, "bound", verifier.DefaultMaxBound, "maximum rows per table")
	cmd.Flags().IntVar(&minBound, "min-bound", 1, "first instance size checked")
	cmd.Flags().IntVar(&boundStep, "bound-step", 1, "escalation increment between bounds")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "verification deadline")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite verdict store path (default in-memory)")

	return cmd
}

type verifyOptions struct {
	bound     int
	minBound  int
	boundStep int
	timeout   time.Duration
	storePath string
}

func runVerify(opts *RootOptions, cmd *cobra.Command, descPath, candidate, reference string, vopts verifyOptions) error {
	formatter := formatterFor(opts, cmd)

	desc, err := LoadDescriptor(descPath)
	if err != nil {
		return err
	}
	formatter.VerboseLog("descriptor %s: %d tables", desc.Path, len(desc.Schema.Tables()))

	cache, closeStore, err := openCache(vopts.storePath, desc.Schema)
	if err != nil {
		return err
	}
	defer closeStore()

	v := verifier.New(desc.Schema,
		verifier.WithMaxBound(vopts.bound),
		verifier.WithMinBound(vopts.minBound),
		verifier.WithBoundStep(vopts.boundStep),
		verifier.WithTimeout(vopts.timeout),
		verifier.WithCache(cache),
	)

	res, err := v.Verify(cmd.Context(), candidate, reference)
	if err != nil {
		code := string(verifier.CodeOf(err))
		if outErr := formatter.Error(code, err.Error(), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, code)
	}

	payload := &VerifyResult{
		Verdict:     string(res.Verdict),
		Bound:       res.Bound,
		Reason:      res.Reason,
		SolverSteps: res.SolverSteps,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
	if res.Counterexample != nil {
		payload.Counterexample = InstanceJSON(res.Counterexample)
	}
	if res.Replay != nil {
		payload.LeftRows = res.Replay.LeftRows
		payload.RightRows = res.Replay.RightRows
	}

	if formatter.JSON() {
		if err := formatter.Success(payload); err != nil {
			return err
		}
	} else {
		writeVerifyText(formatter, payload)
	}

	if res.Verdict != verifier.Equivalent {
		return NewExitError(ExitFailure, string(res.Verdict))
	}
	return nil
}

func writeVerifyText(f *OutputFormatter, r *VerifyResult) {
	fmt.Fprintf(f.Writer, "verdict: %s (bound %d, %d solver steps, %dms)\n",
		r.Verdict, r.Bound, r.SolverSteps, r.ElapsedMS)
	if r.Reason != "" {
		fmt.Fprintf(f.Writer, "reason: %s\n", r.Reason)
	}
	if r.Counterexample == nil {
		return
	}
	fmt.Fprintln(f.Writer, "counterexample:")
	tables := make([]string, 0, len(r.Counterexample))
	for table := range r.Counterexample {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Fprintf(f.Writer, "  %s:\n", table)
		for _, row := range r.Counterexample[table] {
			cells := make([]string, len(row))
			for i, c := range row {
				if c == nil {
					cells[i] = "NULL"
				} else {
					cells[i] = fmt.Sprintf("%v", c)
				}
			}
			fmt.Fprintf(f.Writer, "    (%s)\n", strings.Join(cells, ", "))
		}
	}
	if r.LeftRows != r.RightRows {
		fmt.Fprintf(f.Writer, "engine: candidate returned %d rows, reference %d\n",
			r.LeftRows, r.RightRows)
	}
}
