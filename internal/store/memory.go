package store

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/tradedesk/internal/domain"
)

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)

// MemoryStore is an in-process Repository. It backs tests and is used when
// the SQLite database cannot be opened.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]map[string][]byte
	sessions map[string]*domain.BrowserSession
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]map[string][]byte),
		sessions: make(map[string]*domain.BrowserSession),
	}
}

// GetDocument returns a copy of the stored document.
func (m *MemoryStore) GetDocument(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.docs[sessionID][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// PutDocument replaces the stored document.
func (m *MemoryStore) PutDocument(_ context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[sessionID]; !ok {
		m.docs[sessionID] = make(map[string][]byte)
	}
	m.docs[sessionID][key] = append([]byte(nil), value...)
	return nil
}

// DeleteDocument removes a document.
func (m *MemoryStore) DeleteDocument(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if docs, ok := m.docs[sessionID]; ok {
		delete(docs, key)
		if len(docs) == 0 {
			delete(m.docs, sessionID)
		}
	}
	return nil
}

// TouchSession records activity for a session.
func (m *MemoryStore) TouchSession(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sessionID]; ok {
		sess.LastSeenAt = at
		return nil
	}
	m.sessions[sessionID] = &domain.BrowserSession{SessionID: sessionID, LastSeenAt: at, CreatedAt: at}
	return nil
}

// GetSession returns a copy of the session, or nil.
func (m *MemoryStore) GetSession(_ context.Context, sessionID string) (*domain.BrowserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// ExpiredSessions lists sessions idle for longer than ttl.
func (m *MemoryStore) ExpiredSessions(_ context.Context, ttl time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var ids []string
	for id, sess := range m.sessions {
		if sess.Idle(now) > ttl {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DeleteSession removes a session and its documents.
func (m *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, sessionID)
	delete(m.sessions, sessionID)
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
