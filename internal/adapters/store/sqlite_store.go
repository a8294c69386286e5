package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/link-joiner/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the CacheStore interface. Several
// caches share one table, separated by name.
type SQLiteStore struct {
	db     *sql.DB
	name   string
	logger *zap.Logger
}

// NewSQLiteStore opens the database and prepares the table
func NewSQLiteStore(dbPath, name string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			cache_name TEXT NOT NULL,
			seq INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (cache_name, seq)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		name:   name,
		logger: logger,
	}, nil
}

// Load returns the records of this cache in insertion order
func (s *SQLiteStore) Load(ctx context.Context) ([]core.CacheRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, content
		FROM cache_entries
		WHERE cache_name = ?
		ORDER BY seq
	`, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var records []core.CacheRecord
	for rows.Next() {
		var r core.CacheRecord
		if err := rows.Scan(&r.Fingerprint, &r.Content); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save replaces the records of this cache in one transaction
func (s *SQLiteStore) Save(ctx context.Context, records []core.CacheRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_name = ?`, s.name); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_entries (cache_name, seq, fingerprint, content)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, s.name, i, r.Fingerprint, r.Content); err != nil {
			return fmt.Errorf("failed to insert cache entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entries: %w", err)
	}
	s.logger.Debug("Saved cache to SQLite", zap.String("cache", s.name), zap.Int("entries", len(records)))
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
