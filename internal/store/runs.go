package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/linkcheck/internal/harness"
)

// Run is one recorded suite run.
type Run struct {
	ID         string    `json:"id"`
	Suite      string    `json:"suite"`
	Tool       string    `json:"tool,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"` // zero while in progress
	Total      int       `json:"total"`
	Run        int       `json:"run"`
	Failed     int       `json:"failed"`
}

// Finished reports whether the run completed.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// VerdictRecord is a stored verdict.
type VerdictRecord struct {
	RunID       string        `json:"run_id"`
	Seq         int           `json:"seq"`
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Label       string        `json:"label,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	ExitCode    *int          `json:"exit_code,omitempty"`
	Duration    time.Duration `json:"duration"`
	TeardownErr string        `json:"teardown_error,omitempty"`
}

// timeLayout is fixed width so timestamps stored as TEXT sort
// chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BeginRun inserts an unfinished run and returns it.
func (s *Store) BeginRun(ctx context.Context, suite, tool string) (Run, error) {
	r := Run{
		ID:        s.newID(),
		Suite:     suite,
		Tool:      tool,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, suite, tool, started_at)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.Suite, r.Tool, r.StartedAt.Format(timeLayout))
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return r, nil
}

// RecordVerdict stores the verdict at position seq of a run. Recording the
// same position twice keeps the first verdict.
func (s *Store) RecordVerdict(ctx context.Context, runID string, seq int, v harness.Verdict) error {
	if err := insertVerdict(ctx, s.db, runID, seq, v); err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertVerdict(ctx context.Context, db execer, runID string, seq int, v harness.Verdict) error {
	var exit sql.NullInt64
	if v.ExitCode != nil {
		exit = sql.NullInt64{Int64: int64(*v.ExitCode), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO verdicts
		(run_id, seq, name, status, reason, label, detail, exit_code, duration_ms, teardown_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		seq,
		v.Name,
		v.Status.String(),
		v.Reason,
		v.Label,
		v.Detail,
		exit,
		v.Duration.Milliseconds(),
		v.TeardownErr,
	)
	return err
}

// FinishRun stores the final counts of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, sum harness.Summary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, total = ?, run = ?, failed = ?
		WHERE id = ?
	`, s.now().UTC().Format(timeLayout), sum.Total, sum.Run, sum.Failed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SaveRun records a completed run and all its verdicts in one transaction.
func (s *Store) SaveRun(ctx context.Context, tool string, sum harness.Summary) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	r := Run{
		ID:        s.newID(),
		Suite:     sum.Suite,
		Tool:      tool,
		StartedAt: s.now().UTC(),
		Total:     sum.Total,
		Run:       sum.Run,
		Failed:    sum.Failed,
	}
	r.FinishedAt = s.now().UTC()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, suite, tool, started_at, finished_at, total, run, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Suite, r.Tool, r.StartedAt.Format(timeLayout), r.FinishedAt.Format(timeLayout),
		r.Total, r.Run, r.Failed); err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}

	for i, v := range sum.Verdicts {
		if err := insertVerdict(ctx, tx, r.ID, i, v); err != nil {
			return Run{}, fmt.Errorf("save run: verdict %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("save run: commit: %w", err)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, suite, tool, started_at, finished_at, total, run, failed
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

// GetRun returns one run. Returns ErrNotFound if it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, suite, tool, started_at, finished_at, total, run, failed
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// RunVerdicts returns the verdicts of a run in suite order.
func (s *Store) RunVerdicts(ctx context.Context, runID string) ([]VerdictRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, name, status, reason, label, detail, exit_code, duration_ms, teardown_error
		FROM verdicts
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []VerdictRecord
	for rows.Next() {
		var (
			v    VerdictRecord
			exit sql.NullInt64
			ms   int64
		)
		if err := rows.Scan(&v.RunID, &v.Seq, &v.Name, &v.Status, &v.Reason, &v.Label,
			&v.Detail, &exit, &ms, &v.TeardownErr); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		if exit.Valid {
			code := int(exit.Int64)
			v.ExitCode = &code
		}
		v.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}

	if out == nil {
		out = []VerdictRecord{}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Suite, &r.Tool, &started, &finished, &r.Total, &r.Run, &r.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		if r.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return r, nil
}
