package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rklop/SURF-2025/internal/relalg"
	"github.com/rklop/SURF-2025/internal/render"
	"github.com/rklop/SURF-2025/internal/sqlparse"
	"github.com/rklop/SURF-2025/internal/verifier"
)

// ExplainResult is the JSON payload of the explain command.
type ExplainResult struct {
	Normalized string   `json:"normalized"`
	Columns    []string `json:"columns"`
	Plan       string   `json:"plan"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <descriptor.cue> <sql>",
		Short: "Show how the verifier reads a query",
		Long: `Parse and bind a query against a descriptor's schema, then print its
normalized SQL and the operator tree the verifier encodes.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, cmd, args[0], args[1])
		},
	}
	return cmd
}

func runExplain(opts *RootOptions, cmd *cobra.Command, descPath, sql string) error {
	formatter := formatterFor(opts, cmd)

	desc, err := LoadDescriptor(descPath)
	if err != nil {
		return err
	}

	stmt, err := sqlparse.Parse(sql)
	if err != nil {
		if outErr := formatter.Error(string(verifier.CodeOf(verifier.Classify(err))), err.Error(), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "query does not parse")
	}
	plan, err := relalg.Build(stmt, desc.Schema)
	if err != nil {
		if outErr := formatter.Error(string(verifier.CodeOf(verifier.Classify(err))), err.Error(), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "query does not bind")
	}

	cols := plan.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
		if c.Nullable {
			names[i] += " NULL"
		}
	}

	result := &ExplainResult{
		Normalized: render.SQL(stmt),
		Columns:    names,
		Plan:       render.PlanTree(plan),
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "normalized: %s\n", result.Normalized)
	fmt.Fprintf(formatter.Writer, "columns:    %v\n", result.Columns)
	fmt.Fprintln(formatter.Writer, "plan:")
	fmt.Fprint(formatter.Writer, result.Plan)
	return nil
}
