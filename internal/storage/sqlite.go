package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite snapshot cache.
type DB struct {
	db     *sql.DB
	source string
	now    func() int64
}

// OpenDB opens or creates a SQLite database at the given path. Parent
// directories are created as needed.
func OpenDB(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, now: unixMilli}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// SetSource records which backend subsequent snapshots come from.
func (d *DB) SetSource(source string) {
	d.source = source
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			node_count INTEGER NOT NULL,
			link_count INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot_nodes (
			snapshot_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			id TEXT NOT NULL,
			type TEXT NOT NULL,
			name TEXT,
			title TEXT,
			year TEXT,
			journal TEXT,
			authors_json TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			PRIMARY KEY (snapshot_id, idx)
		);

		CREATE TABLE IF NOT EXISTS snapshot_links (
			snapshot_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			type TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, idx)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`

	_, err := db.Exec(schema)
	return err
}
