package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/glance/internal/framestore"
)

// FrameRepository keeps frame JPEGs in the local database. It satisfies
// framestore.FrameStore.
type FrameRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db, now: time.Now}
}

// Store saves jpeg under a fresh frame id.
func (r *FrameRepository) Store(ctx context.Context, jpeg []byte) (string, error) {
	now := r.now()
	id := framestore.NewFrameID(now)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO frames (id, data, created_at) VALUES (?, ?, ?)`,
		id, jpeg, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert frame: %w", err)
	}
	return id, nil
}

// Fetch returns the JPEG stored under id, or framestore.ErrNotFound.
func (r *FrameRepository) Fetch(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM frames WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, framestore.ErrNotFound
		}
		return nil, fmt.Errorf("select frame: %w", err)
	}
	return data, nil
}

// Count returns the number of stored frames.
func (r *FrameRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
