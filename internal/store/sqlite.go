package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/tradedesk/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY

	maxRetries int
	baseDelay  time.Duration
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, maxRetries: 3, baseDelay: 100 * time.Millisecond}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS browser_sessions (
		session_id TEXT PRIMARY KEY,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_browser_sessions_last_seen ON browser_sessions(last_seen_at);

	CREATE TABLE IF NOT EXISTS documents (
		session_id TEXT NOT NULL,
		doc_key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, doc_key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetDocument returns the document stored under key for the session.
func (s *SQLiteStore) GetDocument(ctx context.Context, sessionID, key string) ([]byte, error) {
	query := `SELECT value FROM documents WHERE session_id = ? AND doc_key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	return value, nil
}

// PutDocument replaces the document stored under key for the session.
func (s *SQLiteStore) PutDocument(ctx context.Context, sessionID, key string, value []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO documents (session_id, doc_key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id, doc_key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, query, sessionID, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("put document %s: %w", key, err)
	}
	return nil
}

// DeleteDocument removes a document, retrying on SQLITE_BUSY.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, sessionID, key string) error {
	return s.withRetry(ctx, "delete document", sessionID, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ? AND doc_key = ?`, sessionID, key)
		if err != nil {
			return fmt.Errorf("delete document %s: %w", key, err)
		}
		return nil
	})
}

// TouchSession records activity for a browser session.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO browser_sessions (session_id, last_seen_at, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		last_seen_at = excluded.last_seen_at`

	if _, err := s.db.ExecContext(ctx, query, sessionID, at.Unix(), at.Unix()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// GetSession retrieves a browser session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.BrowserSession, error) {
	query := `SELECT session_id, last_seen_at, created_at FROM browser_sessions WHERE session_id = ?`

	var sess domain.BrowserSession
	var lastSeen, createdAt int64
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&sess.SessionID, &lastSeen, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sess.LastSeenAt = time.Unix(lastSeen, 0)
	sess.CreatedAt = time.Unix(createdAt, 0)
	return &sess, nil
}

// ExpiredSessions lists sessions idle for longer than ttl.
func (s *SQLiteStore) ExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error) {
	threshold := time.Now().Add(-ttl).Unix()

	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM browser_sessions WHERE last_seen_at < ?`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close expired sessions rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired session row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}
	return ids, nil
}

// DeleteSession removes a session and its documents, retrying on SQLITE_BUSY.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.withRetry(ctx, "delete session", sessionID, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete session: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("delete session documents: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM browser_sessions WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return tx.Commit()
	})
}

// withRetry runs op with exponential backoff while it fails with a SQLite
// conflict: 100ms, 200ms, 400ms.
func (s *SQLiteStore) withRetry(ctx context.Context, what, sessionID string, op func() error) error {
	var err error
	attempts := 0
	for i := 0; i < s.maxRetries; i++ {
		attempts++
		err = op()
		if err == nil {
			return nil
		}
		if !IsConflictError(err) || i == s.maxRetries-1 {
			break
		}

		delay := s.baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying",
			"op", what,
			"session_id", sessionID,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s for %s after %d attempts: %w", what, sessionID, attempts, err)
}
