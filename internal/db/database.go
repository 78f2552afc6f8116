// Package db provides sqlite-backed storage for pending requests and
// bookings.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking engine.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Pending slot requests, keyed by single-use token. Rows live
		// until confirmed or purged past the TTL.
		`CREATE TABLE IF NOT EXISTS pending_requests (
			token TEXT PRIMARY KEY,
			page_ref TEXT NOT NULL,
			name TEXT NOT NULL,
			contact TEXT NOT NULL,
			reason TEXT NOT NULL,
			notes TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Confirmed bookings, append-only.
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			page_ref TEXT NOT NULL,
			name TEXT NOT NULL,
			contact TEXT NOT NULL,
			reason TEXT NOT NULL,
			notes TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_requests(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_page_start ON bookings(page_ref, start_time)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
