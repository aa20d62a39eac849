package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per answered question
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			needs_visual INTEGER NOT NULL DEFAULT 0,
			categories TEXT NOT NULL DEFAULT '[]',
			answer TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('answered', 'direct', 'no_relevant_frames', 'video_failed', 'classify_failed', 'answer_failed', 'canceled')),
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,

		// Frames table - annotated JPEGs for the local frame store
		`CREATE TABLE IF NOT EXISTS frames (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Run frames table - frame ids handed to the describer, in selection order
		`CREATE TABLE IF NOT EXISTS run_frames (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			frame_id TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_frames_run_id ON run_frames(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
