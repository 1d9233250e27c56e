package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/verifier"
	"github.com/rklop/SURF-2025/internal/witness"
)

// ReadVerdict returns the stored result for a verdict key, or false
// when the key has never been written. The counterexample, if any, is
// rebuilt against the given schema.
func (s *Store) ReadVerdict(ctx context.Context, key string, sch *schema.Schema) (*verifier.Result, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT verdict, bound, solver_steps, elapsed_ns, counterexample, replay_differs, replay_left, replay_right
		FROM verdicts
		WHERE key = ?
	`, key)

	var (
		verdict     string
		bound       int
		solverSteps int64
		elapsedNS   int64
		ceJSON      sql.NullString
		differs     sql.NullInt64
		leftRows    sql.NullInt64
		rightRows   sql.NullInt64
	)
	err := row.Scan(&verdict, &bound, &solverSteps, &elapsedNS, &ceJSON, &differs, &leftRows, &rightRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read verdict: %w", err)
	}

	res := &verifier.Result{
		Verdict:     verifier.Verdict(verdict),
		Bound:       bound,
		SolverSteps: solverSteps,
		Elapsed:     time.Duration(elapsedNS),
	}
	if ceJSON.Valid {
		ce, err := unmarshalCounterexample(sch, ceJSON.String)
		if err != nil {
			return nil, false, fmt.Errorf("read verdict: %w", err)
		}
		res.Counterexample = ce
	}
	if differs.Valid {
		res.Replay = &witness.Outcome{
			Differs:   differs.Int64 != 0,
			LeftRows:  int(leftRows.Int64),
			RightRows: int(rightRows.Int64),
		}
	}

	return res, true, nil
}

// RunRecord is one stored batch item.
type RunRecord struct {
	RunID       string
	Label       string
	Candidate   string
	Reference   string
	Verdict     string
	Bound       int
	SolverSteps int64
	Elapsed     time.Duration
	Error       string
}

// ListRuns returns the run history in insertion order.
// Results are ordered deterministically: ORDER BY seq ASC, run_id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, label, candidate, reference, verdict, bound, solver_steps, elapsed_ns, error
		FROM runs
		ORDER BY seq ASC, run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			r         RunRecord
			elapsedNS int64
		)
		if err := rows.Scan(&r.RunID, &r.Label, &r.Candidate, &r.Reference, &r.Verdict, &r.Bound, &r.SolverSteps, &elapsedNS, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Elapsed = time.Duration(elapsedNS)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if records == nil {
		records = []RunRecord{}
	}
	return records, nil
}

// CountVerdicts reports how many verdicts a schema has accumulated.
func (s *Store) CountVerdicts(ctx context.Context, schemaID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verdicts WHERE schema_id = ?`, schemaID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count verdicts: %w", err)
	}
	return n, nil
}
