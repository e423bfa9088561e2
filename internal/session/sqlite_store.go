// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/idp-client/pkg/types"
)

// SQLiteStore keeps the session as two rows of a key/value table, mirroring
// the browser's local storage. Both rows change inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads both keys. The user row holds the JSON-serialized record.
func (s *SQLiteStore) Load() (string, *types.User, error) {
	token, err := s.get(keyToken)
	if err != nil {
		return "", nil, err
	}
	raw, err := s.get(keyUser)
	if err != nil {
		return "", nil, err
	}
	if raw == "" {
		return token, nil, nil
	}

	var u types.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return token, nil, fmt.Errorf("%w: user record: %v", ErrCorrupt, err)
	}
	return token, &u, nil
}

func (s *SQLiteStore) get(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// Save upserts both keys in one transaction.
func (s *SQLiteStore) Save(token string, user types.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}
	return s.tx(func(tx *sql.Tx) error {
		const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.Exec(upsert, keyToken, token); err != nil {
			return fmt.Errorf("writing %s: %w", keyToken, err)
		}
		if _, err := tx.Exec(upsert, keyUser, string(data)); err != nil {
			return fmt.Errorf("writing %s: %w", keyUser, err)
		}
		return nil
	})
}

// Clear deletes both keys in one transaction.
func (s *SQLiteStore) Clear() error {
	return s.tx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key IN (?, ?)`, keyToken, keyUser); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) tx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
