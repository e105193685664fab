// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/tradedesk/internal/domain"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("store: not found")

// Repository persists per-session documents and session activity.
// Documents are opaque blobs replaced as a whole on every write.
type Repository interface {
	// GetDocument returns the document stored under key for the session.
	// It returns ErrNotFound if nothing is stored.
	GetDocument(ctx context.Context, sessionID, key string) ([]byte, error)

	// PutDocument replaces the document stored under key for the session.
	PutDocument(ctx context.Context, sessionID, key string, value []byte) error

	// DeleteDocument removes a document. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, sessionID, key string) error

	// TouchSession records activity for a browser session, creating it if needed.
	TouchSession(ctx context.Context, sessionID string, at time.Time) error

	// GetSession retrieves a browser session, or nil if unknown.
	GetSession(ctx context.Context, sessionID string) (*domain.BrowserSession, error)

	// ExpiredSessions lists sessions idle for longer than ttl.
	ExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error)

	// DeleteSession removes a session and all of its documents.
	DeleteSession(ctx context.Context, sessionID string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
