package history

import (
	"context"
	"database/sql"
	"time"
)

// Run outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	Number     int64
	Pipeline   string
	Image      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Error      string
}

// StageRecord is the recorded outcome of one stage within a run.
type StageRecord struct {
	RunID      string
	Position   int
	Name       string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// NextRunNumber returns the number the next run should carry. Numbers are
// monotonically increasing and start at 1.
func (s *Store) NextRunNumber() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(number) FROM runs").Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

// RecordRun persists one run together with its stage records in a single
// transaction.
func (s *Store) RecordRun(run Run, stages []StageRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, number, pipeline, image, started_at, finished_at, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Number, run.Pipeline, run.Image, run.StartedAt, run.FinishedAt, run.Outcome, run.Error)
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, st := range stages {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_stages (run_id, position, name, status, started_at, finished_at, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, st.Position, st.Name, st.Status, st.StartedAt, st.FinishedAt, st.Error)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, pipeline, image, started_at, finished_at, outcome, error
		 FROM runs ORDER BY number DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Number, &r.Pipeline, &r.Image, &r.StartedAt, &r.FinishedAt, &r.Outcome, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stages returns the stage records of one run in execution order.
func (s *Store) Stages(runID string) ([]StageRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, position, name, status, started_at, finished_at, error
		 FROM run_stages WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var st StageRecord
		if err := rows.Scan(&st.RunID, &st.Position, &st.Name, &st.Status, &st.StartedAt, &st.FinishedAt, &st.Error); err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}
