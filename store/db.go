// Package store keeps a registry of training runs in a SQLite database,
// recording the hyperparameters, evaluation metrics, and exported artifact
// of every run.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

const currentVersion = 1

// DB wraps a SQLite database connection for the run registry.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for testing).
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	// Set connection pool to 1 for SQLite
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	store := &DB{db: sqlDB}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "running migrations")
	}

	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	var version int
	if err := d.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "reading user_version")
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := d.migrateV1(); err != nil {
			return err
		}
	}

	if _, err := d.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion)); err != nil {
		return errors.Wrap(err, "setting user_version")
	}
	return nil
}

func (d *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			samples INTEGER NOT NULL,
			features INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			learning_rate REAL NOT NULL,
			num_leaves INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			accuracy REAL,
			auc REAL,
			log_loss REAL,
			duration_ms INTEGER NOT NULL,
			artifact_path TEXT NOT NULL,
			artifact_sha256 TEXT NOT NULL,
			artifact_bytes INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}

	tx, err := d.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning migration transaction")
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Wrap(err, "executing migration statement")
		}
	}
	return tx.Commit()
}
