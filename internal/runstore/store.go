package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store is a thin, hand-written query layer over the run-history database.
// Unlike the teacher's sqlc-generated Store, there is no code generator here
// — the schema is small enough (two tables) that raw SQL stays readable, and
// loom never needs the teacher's batched-query abstraction since it issues
// one query at a time from a single CLI process.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-open, already-migrated *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run row; it returns only an error, since callers
// already know the fields.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	const q = `
		INSERT INTO runs (
			id, created_at, subject, strategy, strategy_param,
			seed, iterations
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		run.ID, run.CreatedAt, run.Subject, run.Strategy,
		run.StrategyParam, run.Seed, run.Iterations,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	return nil
}

// FinishRun stamps a run's completion time and exit code.
func (s *Store) FinishRun(ctx context.Context, runID string, exitCode int) error {
	const q = `
		UPDATE runs SET finished_at = ?, exit_code = ? WHERE id = ?`

	_, err := s.db.ExecContext(ctx, q, time.Now(), exitCode, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	return nil
}

// RecordIteration inserts or replaces the result of one iteration.
func (s *Store) RecordIteration(ctx context.Context, it Iteration) error {
	const q = `
		INSERT INTO iterations (
			run_id, iteration_index, verdict, error_kind,
			error_message, steps_taken, duration_ms,
			text_trace_path, replay_trace_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, iteration_index) DO UPDATE SET
			verdict = excluded.verdict,
			error_kind = excluded.error_kind,
			error_message = excluded.error_message,
			steps_taken = excluded.steps_taken,
			duration_ms = excluded.duration_ms,
			text_trace_path = excluded.text_trace_path,
			replay_trace_path = excluded.replay_trace_path`

	_, err := s.db.ExecContext(ctx, q,
		it.RunID, it.Index, string(it.Verdict), it.ErrorKind,
		it.ErrorMessage, it.StepsTaken, it.Duration.Milliseconds(),
		it.TextTracePath, it.ReplayTracePath,
	)
	if err != nil {
		return fmt.Errorf("record iteration: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
		SELECT id, created_at, finished_at, subject, strategy,
			strategy_param, seed, iterations, exit_code
		FROM runs ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finishedAt sql.NullTime
		var exitCode sql.NullInt64

		err := rows.Scan(
			&r.ID, &r.CreatedAt, &finishedAt, &r.Subject,
			&r.Strategy, &r.StrategyParam, &r.Seed, &r.Iterations,
			&exitCode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if finishedAt.Valid {
			r.FinishedAt = &finishedAt.Time
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			r.ExitCode = &code
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// FailingIterations returns every recorded iteration for a run whose verdict
// was not VerdictPass, ordered by iteration index.
func (s *Store) FailingIterations(ctx context.Context, runID string) ([]Iteration, error) {
	const q = `
		SELECT run_id, iteration_index, verdict, error_kind,
			error_message, steps_taken, duration_ms,
			text_trace_path, replay_trace_path
		FROM iterations
		WHERE run_id = ? AND verdict != ?
		ORDER BY iteration_index ASC`

	rows, err := s.db.QueryContext(ctx, q, runID, string(VerdictPass))
	if err != nil {
		return nil, fmt.Errorf("failing iterations: %w", err)
	}
	defer rows.Close()

	var out []Iteration
	for rows.Next() {
		var it Iteration
		var verdict string
		var durationMs int64

		err := rows.Scan(
			&it.RunID, &it.Index, &verdict, &it.ErrorKind,
			&it.ErrorMessage, &it.StepsTaken, &durationMs,
			&it.TextTracePath, &it.ReplayTracePath,
		)
		if err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}

		it.Verdict = Verdict(verdict)
		it.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, it)
	}

	return out, rows.Err()
}
