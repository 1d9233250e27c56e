package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rklop/SURF-2025/internal/verifier"
)

// WriteVerdict inserts a verification outcome under its verdict key.
// Uses ON CONFLICT(key) DO NOTHING for write-once semantics - the
// first stored verdict for a key is immutable and later writes are
// silently ignored. Reports whether this call inserted the row.
func (s *Store) WriteVerdict(ctx context.Context, key, schemaID string, r *verifier.Result) (bool, error) {
	var ceJSON sql.NullString
	if r.Counterexample != nil {
		data, err := marshalCounterexample(r.Counterexample)
		if err != nil {
			return false, fmt.Errorf("write verdict: %w", err)
		}
		ceJSON = sql.NullString{String: data, Valid: true}
	}

	var differs, left, right sql.NullInt64
	if r.Replay != nil {
		differs = sql.NullInt64{Int64: boolInt(r.Replay.Differs), Valid: true}
		left = sql.NullInt64{Int64: int64(r.Replay.LeftRows), Valid: true}
		right = sql.NullInt64{Int64: int64(r.Replay.RightRows), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verdicts
		(key, schema_id, verdict, bound, solver_steps, elapsed_ns, counterexample, replay_differs, replay_left, replay_right)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		key,
		schemaID,
		string(r.Verdict),
		r.Bound,
		r.SolverSteps,
		r.Elapsed.Nanoseconds(),
		ceJSON,
		differs,
		left,
		right,
	)
	if err != nil {
		return false, fmt.Errorf("write verdict: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write verdict: %w", err)
	}
	return n > 0, nil
}

// WriteRun appends one batch item to the run history.
// Uses ON CONFLICT(run_id) DO NOTHING so a replayed batch does not
// duplicate rows.
func (s *Store) WriteRun(ctx context.Context, r verifier.BatchResult) error {
	var (
		verdict     string
		bound       int
		solverSteps int64
		elapsedNS   int64
		errCode     string
	)
	if r.Err != nil {
		errCode = string(verifier.CodeOf(r.Err))
	} else {
		verdict = string(r.Result.Verdict)
		bound = r.Result.Bound
		solverSteps = r.Result.SolverSteps
		elapsedNS = r.Result.Elapsed.Nanoseconds()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, label, candidate, reference, verdict, bound, solver_steps, elapsed_ns, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		r.RunID,
		r.Pair.Label,
		r.Pair.Candidate,
		r.Pair.Reference,
		verdict,
		bound,
		solverSteps,
		elapsedNS,
		errCode,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
