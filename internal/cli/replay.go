package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/render"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/sqlparse"
	"github.com/rklop/SURF-2025/internal/symbolic"
	"github.com/rklop/SURF-2025/internal/verifier"
	"github.com/rklop/SURF-2025/internal/witness"
)

// ReplayResult is the JSON payload of the replay command.
type ReplayResult struct {
	Differs   bool `json:"differs"`
	LeftRows  int  `json:"left_rows"`
	RightRows int  `json:"right_rows"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <descriptor.cue> <instance.json> <candidate-sql> <reference-sql>",
		Short: "Replay an instance through the SQL engine",
		Long: `Load a saved counterexample instance into an in-memory database, run
both queries against it, and report whether their results differ.

The instance file holds a JSON object mapping table names to arrays of
rows, with null for NULL cells, exactly as the verify command emits
counterexamples.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd, args[0], args[1], args[2], args[3])
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command, descPath, instPath, candidate, reference string) error {
	formatter := formatterFor(opts, cmd)

	desc, err := LoadDescriptor(descPath)
	if err != nil {
		return err
	}

	ce, err := loadInstance(desc.Schema, instPath)
	if err != nil {
		return err
	}

	// Queries run through their rendered plan form, not the raw text, so
	// surface syntax the engine lacks (EXCEPT ALL, INTERSECT ALL) still
	// replays.
	candidateExec, err := executableSQL(formatter, desc.Schema, candidate)
	if err != nil {
		return err
	}
	referenceExec, err := executableSQL(formatter, desc.Schema, reference)
	if err != nil {
		return err
	}

	out, err := witness.Replay(cmd.Context(), ce, candidateExec, referenceExec)
	if err != nil {
		if outErr := formatter.Error(ErrCodeVerify, err.Error(), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "replay failed")
	}

	result := &ReplayResult{Differs: out.Differs, LeftRows: out.LeftRows, RightRows: out.RightRows}
	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		if out.Differs {
			fmt.Fprintf(formatter.Writer, "queries differ: candidate %d row(s), reference %d row(s)\n",
				out.LeftRows, out.RightRows)
		} else {
			fmt.Fprintf(formatter.Writer, "queries agree: %d row(s) each\n", out.LeftRows)
		}
	}

	if out.Differs {
		return NewExitError(ExitFailure, "queries differ")
	}
	return nil
}

// executableSQL binds a query against the schema and renders it in the
// form the engine executes.
func executableSQL(formatter *OutputFormatter, sch *schema.Schema, sql string) (string, error) {
	stmt, err := sqlparse.Parse(sql)
	if err != nil {
		if outErr := formatter.Error(string(verifier.CodeOf(verifier.Classify(err))), err.Error(), nil); outErr != nil {
			return "", outErr
		}
		return "", NewExitError(ExitCommandError, "query does not parse")
	}
	plan, err := relalg.Build(stmt, sch)
	if err != nil {
		if outErr := formatter.Error(string(verifier.CodeOf(verifier.Classify(err))), err.Error(), nil); outErr != nil {
			return "", outErr
		}
		return "", NewExitError(ExitCommandError, "query does not bind")
	}
	return render.Executable(plan), nil
}

// loadInstance parses a JSON instance file into a counterexample bound
// to the descriptor's schema.
func loadInstance(sch *schema.Schema, path string) (*witness.Counterexample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("cannot read instance %s", path), err)
	}
	var raw map[string][][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("instance %s is not a JSON table map", path), err)
	}

	ce := &witness.Counterexample{Schema: sch}
	for _, tbl := range sch.Tables() {
		rows := raw[tbl.Name]
		out := make([][]symbolic.Value, len(rows))
		for ri, row := range rows {
			if len(row) != len(tbl.Columns) {
				return nil, NewExitError(ExitCommandError,
					fmt.Sprintf("instance table %s row %d has %d cells, schema has %d columns",
						tbl.Name, ri, len(row), len(tbl.Columns)))
			}
			cells := make([]symbolic.Value, len(row))
			for ci, cell := range row {
				v, err := cellValue(tbl.Columns[ci].Type, cell)
				if err != nil {
					return nil, WrapExitError(ExitCommandError,
						fmt.Sprintf("instance table %s row %d column %s", tbl.Name, ri, tbl.Columns[ci].Name), err)
				}
				cells[ci] = v
			}
			out[ri] = cells
		}
		ce.Rows = append(ce.Rows, out)
	}
	return ce, nil
}

func cellValue(typ schema.Type, cell any) (symbolic.Value, error) {
	if cell == nil {
		return symbolic.Value{Null: true, Typ: typ}, nil
	}
	switch typ {
	case schema.TypeInt:
		f, ok := cell.(float64)
		if !ok || f != float64(int64(f)) {
			return symbolic.Value{}, fmt.Errorf("expected integer, got %v", cell)
		}
		return symbolic.IntValue(int64(f)), nil
	case schema.TypeReal:
		f, ok := cell.(float64)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected number, got %v", cell)
		}
		return symbolic.RealValue(f), nil
	case schema.TypeText:
		s, ok := cell.(string)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected string, got %v", cell)
		}
		return symbolic.TextValue(s), nil
	default:
		b, ok := cell.(bool)
		if !ok {
			return symbolic.Value{}, fmt.Errorf("expected boolean, got %v", cell)
		}
		return symbolic.BoolValue(b), nil
	}
}
