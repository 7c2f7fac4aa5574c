package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Events table - one row per command the controller fired
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL,
			command TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			sink TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL DEFAULT 1,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,

		// Settings table - runtime state kept across restarts
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_command ON events(command)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
