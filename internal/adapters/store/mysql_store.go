package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/link-joiner/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the CacheStore interface
type MySQLStore struct {
	db     *sql.DB
	name   string
	logger *zap.Logger
}

// NewMySQLStore connects to MySQL and prepares the table
func NewMySQLStore(dsn, name string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			cache_name VARCHAR(64) NOT NULL,
			seq INT NOT NULL,
			fingerprint VARCHAR(2048) NOT NULL,
			content MEDIUMTEXT NOT NULL,
			PRIMARY KEY (cache_name, seq)
		) CHARACTER SET utf8mb4
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		name:   name,
		logger: logger,
	}, nil
}

// Load returns the records of this cache in insertion order
func (s *MySQLStore) Load(ctx context.Context) ([]core.CacheRecord, error) {
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
func (s *MySQLStore) Save(ctx context.Context, records []core.CacheRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_name = ?`, s.name); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cache_entries (cache_name, seq, fingerprint, content)
			VALUES (?, ?, ?, ?)
		`, s.name, i, r.Fingerprint, r.Content); err != nil {
			return fmt.Errorf("failed to insert cache entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entries: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
		return err
	}
	return nil
}
