package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores keys in a local database file.
type SQLite struct {
	db     *sql.DB
	sealer *Sealer
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// key table exists.
func OpenSQLite(path string, sealer *Sealer) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + Table + ` (
			user_id TEXT PRIMARY KEY,
			api_key_encrypted TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init key table: %w", err)
	}

	return &SQLite{db: db, sealer: sealer}, nil
}

// APIKey returns the user's key, ErrNotFound when no row exists.
func (s *SQLite) APIKey(ctx context.Context, userID string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key_encrypted FROM `+Table+` WHERE user_id = ?`, userID,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("query api key: %w", err)
	}
	if value == "" {
		return "", ErrEmptyKey
	}
	return s.sealer.Open(value)
}

// PutAPIKey inserts or replaces the user's key.
func (s *SQLite) PutAPIKey(ctx context.Context, userID, apiKey string) error {
	sealed, err := s.sealer.Seal(apiKey)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+Table+` (user_id, api_key_encrypted, updated_at)
		VALUES (?, ?, unixepoch())
		ON CONFLICT(user_id) DO UPDATE SET
			api_key_encrypted = excluded.api_key_encrypted,
			updated_at = excluded.updated_at`,
		userID, sealed)
	if err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the user's key.
func (s *SQLite) DeleteAPIKey(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+Table+` WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
