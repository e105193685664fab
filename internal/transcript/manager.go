package transcript

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/tradedesk/internal/store"
)

// Manager keeps one Store per browser session. Stores are restored from the
// repository the first time a session is seen.
type Manager struct {
	mu     sync.Mutex
	repo   store.Repository
	active map[string]*Store
	opts   []Option
}

// NewManager creates a new transcript manager.
func NewManager(repo store.Repository, opts ...Option) *Manager {
	return &Manager{
		repo:   repo,
		active: make(map[string]*Store),
		opts:   opts,
	}
}

// Get returns the store for sessionID, restoring it on first access.
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.active[sessionID]; ok {
		return s
	}

	s := New(RepoStorage{Repo: m.repo, SessionID: sessionID}, m.opts...)
	restored := s.Restore(ctx)
	m.active[sessionID] = s
	slog.Debug("Transcript loaded", "session_id", sessionID, "messages", len(restored))
	return s
}

// Evict drops the in-memory store for sessionID. Persisted state is untouched.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[sessionID]; ok {
		delete(m.active, sessionID)
		slog.Info("Transcript evicted", "session_id", sessionID)
	}
}

// Active returns the number of sessions held in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
