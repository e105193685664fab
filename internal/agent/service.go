package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/tradedesk/internal/transcript"
)

// Service hands out one chat Session per browser session.
type Service struct {
	client      *Client
	transcripts *transcript.Manager
	convLog     ConversationLogger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a chat service. convLog may be nil.
func NewService(client *Client, transcripts *transcript.Manager, convLog ConversationLogger) *Service {
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	return &Service{
		client:      client,
		transcripts: transcripts,
		convLog:     convLog,
		sessions:    make(map[string]*Session),
	}
}

// Session returns the chat session for sessionID, restoring its transcript on
// first use.
func (s *Service) Session(ctx context.Context, sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess := NewSession(sessionID, s.transcripts.Get(ctx, sessionID), s.client, s.convLog)
	s.sessions[sessionID] = sess
	return sess
}

// Evict forgets the in-memory session. Used by the transcript sweeper.
func (s *Service) Evict(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	s.transcripts.Evict(sessionID)
}

// Close flushes the conversation log.
func (s *Service) Close() {
	if err := s.convLog.Close(); err != nil {
		slog.Warn("failed to close conversation logger", "error", err)
	}
}
