package kv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jimmcbubbles/usertags/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// SQLite is a Storage backed by a single-table SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite initializes the SQLite database at baseDir/usertags.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.usertags.
func OpenSQLite(baseDir string) (*SQLite, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "usertags.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return &SQLite{db: db}, nil
}

// DB exposes the underlying handle for pool tuning and tests.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func (s *SQLite) ConfigurePool(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		s.db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		s.db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// Load implements Storage.
func (s *SQLite) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// Save implements Storage.
func (s *SQLite) Save(ctx context.Context, namespace, key string, value []byte) error {
	return s.SaveBatch(ctx, namespace, []Entry{{Key: key, Value: value}})
}

// SaveBatch implements Batcher. All entries are written in one transaction.
func (s *SQLite) SaveBatch(ctx context.Context, namespace string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().Unix()
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (namespace, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, namespace, e.Key, e.Value, now)
		if err != nil {
			return fmt.Errorf("save %s/%s: %w", namespace, e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS kv (
		  namespace  TEXT NOT NULL,
		  key        TEXT NOT NULL,
		  value      BLOB NOT NULL,
		  updated_at INTEGER NOT NULL,
		  PRIMARY KEY (namespace, key)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
