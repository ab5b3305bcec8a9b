// Package auditlog persists correlation outcomes in SQLite.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tendant/simple-scanmatch/internal/correlate"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

// Sink is the audit table for one station run. Safe for concurrent use.
type Sink struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates the database at path (and its directory) if needed.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Sink, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create audit log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	// one connection keeps in-memory databases visible to every call
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit log: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Sink{db: db, path: path}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Sink) createTables() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS scan_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		ip_address TEXT NOT NULL,
		message TEXT NOT NULL,
		logged_at TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_log_logged_at ON scan_log(logged_at DESC);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *Sink) Path() string { return s.path }

// Append writes one audit row.
func (s *Sink) Append(ctx context.Context, entry correlate.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_log (id, ip_address, message, logged_at, status) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.SourceAddress, entry.Message, entry.Timestamp.Format(correlate.TimeLayout), entry.Status,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]schema.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ip_address, message, logged_at, status FROM scan_log ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var records []schema.AuditRecord
	for rows.Next() {
		var r schema.AuditRecord
		if err := rows.Scan(&r.ID, &r.SourceAddress, &r.Message, &r.LoggedAt, &r.Status); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close acquires the lock so no write is in flight while closing.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
