package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the pairing in a single-row SQLite table. Useful when
// the hosting application already carries a database and a loose JSON file
// next to the binary is unwelcome.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) a pairing store at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bridge_pairing (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			ip TEXT NOT NULL,
			username TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() (*Credentials, error) {
	var creds Credentials
	err := s.db.QueryRow(`SELECT ip, username FROM bridge_pairing WHERE id = 1`).
		Scan(&creds.IP, &creds.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pairing: %w", err)
	}
	return &creds, nil
}

func (s *SQLiteStore) Save(creds *Credentials) error {
	_, err := s.db.Exec(`
		INSERT INTO bridge_pairing (id, ip, username, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ip = excluded.ip,
			username = excluded.username,
			updated_at = excluded.updated_at
	`, creds.IP, creds.Username, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to save pairing: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM bridge_pairing WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to clear pairing: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
