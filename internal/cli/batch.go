package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rklop/SURF-2025/internal/store"
	"github.com/rklop/SURF-2025/internal/verifier"
)

// batchPair is one input record of the batch command.
type batchPair struct {
	Label     string `json:"label,omitempty"`
	Candidate string `json:"candidate"`
	Reference string `json:"reference"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		bound     int
		timeout   time.Duration
		workers   int
		out       string
		storePath string
	)

	cmd := &cobra.Command{
		Use:   "batch <descriptor.cue> <pairs.json>",
		Short: "Verify many query pairs and write a CSV report",
		Long: `Run bounded equivalence checks for every pair in a JSON file and write
one CSV row per pair. A pair that fails with an error gets its error
code recorded and does not stop the batch.

The input file holds a JSON array of objects with "candidate",
"reference" and an optional "label".`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, cmd, args[0], args[1], bound, timeout, workers, out, storePath)
		},
	}

	cmd.Flags().IntVar(&bound, "bound", verifier.DefaultMaxBound, "maximum rows per table")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-pair deadline")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent verifications")
	cmd.Flags().StringVar(&out, "out", "", "CSV output path (default stdout)")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite verdict store path (default in-memory)")

	return cmd
}

func runBatch(opts *RootOptions, cmd *cobra.Command, descPath, pairsPath string, bound int, timeout time.Duration, workers int, out, storePath string) error {
	formatter := formatterFor(opts, cmd)

	desc, err := LoadDescriptor(descPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(pairsPath)
	if err != nil {
		return WrapExitError(ExitCommandError,
			fmt.Sprintf("cannot read pairs file %s", pairsPath), err)
	}
	var input []batchPair
	if err := json.Unmarshal(data, &input); err != nil {
		return WrapExitError(ExitCommandError,
			fmt.Sprintf("pairs file %s is not a JSON array of pairs", pairsPath), err)
	}
	if len(input) == 0 {
		return NewExitError(ExitCommandError, "pairs file holds no pairs")
	}

	pairs := make([]verifier.Pair, len(input))
	for i, p := range input {
		pairs[i] = verifier.Pair{Label: p.Label, Candidate: p.Candidate, Reference: p.Reference}
	}

	var st *store.Store
	cache := verifier.Cache(verifier.NewMemoryCache())
	if storePath != "" {
		st, err = store.Open(storePath)
		if err != nil {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("cannot open store %s", storePath), err)
		}
		defer st.Close()
		cache = store.NewVerdictCache(st, desc.Schema, nil)
	}

	v := verifier.New(desc.Schema,
		verifier.WithMaxBound(bound),
		verifier.WithTimeout(timeout),
		verifier.WithCache(cache),
	)

	formatter.VerboseLog("verifying %d pairs with %d workers", len(pairs), workers)
	results := v.VerifyBatch(cmd.Context(), pairs, verifier.WithWorkers(workers))

	if st != nil {
		for _, r := range results {
			if err := st.WriteRun(cmd.Context(), r); err != nil {
				return WrapExitError(ExitCommandError, "cannot record run", err)
			}
		}
	}

	w := cmd.OutOrStdout()
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("cannot create report %s", out), err)
		}
		defer file.Close()
		w = file
	}

	cw := csv.NewWriter(w)
	header := []string{"run_id", "label", "verdict", "bound", "solver_steps", "elapsed_ms", "error"}
	if err := cw.Write(header); err != nil {
		return err
	}

	failures := 0
	for _, r := range results {
		row := []string{r.RunID, r.Pair.Label, "", "", "", "", ""}
		switch {
		case r.Err != nil:
			row[6] = string(verifier.CodeOf(r.Err))
			failures++
		default:
			row[2] = string(r.Result.Verdict)
			row[3] = strconv.Itoa(r.Result.Bound)
			row[4] = strconv.FormatInt(r.Result.SolverSteps, 10)
			row[5] = strconv.FormatInt(r.Result.Elapsed.Milliseconds(), 10)
			if r.Result.Verdict != verifier.Equivalent {
				failures++
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	formatter.VerboseLog("%d of %d pairs equivalent", len(results)-failures, len(results))
	if failures > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d pairs not equivalent or failed", failures, len(results)))
	}
	return nil
}
