package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Run is the persisted record of one pipeline or follow-up question.
type Run struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	NeedsVisual bool      `json:"needs_visual"`
	Categories  []string  `json:"categories"`
	FrameIDs    []string  `json:"frame_ids"`
	Answer      string    `json:"answer"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// RunRepository provides access to run history.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a run and its selected frame ids in one transaction.
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	categories, err := json.Marshal(nonNil(run.Categories))
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, question, needs_visual, categories, answer, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Question, run.NeedsVisual, string(categories), run.Answer, run.Status, run.Error,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_frames (run_id, position, frame_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range run.FrameIDs {
		if _, err := stmt.ExecContext(ctx, run.ID, i, id); err != nil {
			return fmt.Errorf("insert run frame: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx,
		`SELECT id, question, needs_visual, categories, answer, status, error, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	run.FrameIDs, err = r.frameIDs(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List retrieves the most recent runs, newest first. A limit of zero or
// less returns all runs.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, question, needs_visual, categories, answer, status, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.FrameIDs, err = r.frameIDs(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Delete removes a run and its frame references.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RunRepository) frameIDs(ctx context.Context, runID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT frame_id FROM run_frames WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var categories string
	if err := row.Scan(&run.ID, &run.Question, &run.NeedsVisual, &categories, &run.Answer,
		&run.Status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(categories), &run.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
