// Package transcript owns the chat transcript of a browser session and its
// persisted copy.
//
// The whole transcript is rewritten on every mutation: the persisted form is
// a JSON array of {sender, content, timestamp} stored under StorageKey.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/tradedesk/internal/domain"
	"github.com/ashureev/tradedesk/internal/store"
)

// StorageKey is the document key the transcript is persisted under.
const StorageKey = "chatHistory"

// Storage persists the serialized transcript of one session.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

// RepoStorage adapts a store.Repository to Storage for a single session.
type RepoStorage struct {
	Repo      store.Repository
	SessionID string
}

// Load reads the persisted transcript. A missing document yields nil data.
func (s RepoStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.Repo.GetDocument(ctx, s.SessionID, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// Save replaces the persisted transcript.
func (s RepoStorage) Save(ctx context.Context, data []byte) error {
	return s.Repo.PutDocument(ctx, s.SessionID, StorageKey, data)
}

// Delete removes the persisted transcript.
func (s RepoStorage) Delete(ctx context.Context) error {
	return s.Repo.DeleteDocument(ctx, s.SessionID, StorageKey)
}

// Store is the ordered, append-only transcript of a single session.
type Store struct {
	mu       sync.Mutex
	storage  Storage
	messages []domain.ChatMessage
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for soft persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty store backed by storage. Call Restore to load
// previously persisted messages.
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stamps a new message with the current time, appends it and persists
// the full transcript. Content is stored as given; empty content is allowed.
//
// The message stays in memory even if persisting fails; the error is returned
// so the caller can log it.
func (s *Store) Append(ctx context.Context, sender domain.Sender, content string) (domain.ChatMessage, error) {
	if !sender.Valid() {
		return domain.ChatMessage{}, fmt.Errorf("transcript: unknown sender %q", sender)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.ChatMessage{
		Sender:    sender,
		Content:   content,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
	}
	s.messages = append(s.messages, msg)

	if err := s.persistLocked(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}

// Restore replaces the in-memory transcript with the persisted one. Missing
// or corrupt data is logged and yields an empty transcript; it never fails.
func (s *Store) Restore(ctx context.Context) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil

	data, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn("failed to load chat transcript; starting empty", "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var restored []domain.ChatMessage
	if err := json.Unmarshal(data, &restored); err != nil {
		s.log.Warn("discarding corrupt chat transcript", "error", err, "bytes", len(data))
		return nil
	}
	for i, m := range restored {
		if !m.Sender.Valid() {
			s.log.Warn("discarding chat transcript with unknown sender", "index", i, "sender", m.Sender)
			return nil
		}
	}

	s.messages = restored
	return s.snapshotLocked()
}

// Clear empties the transcript and deletes its persisted state.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	if err := s.storage.Delete(ctx); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	return nil
}

// Messages returns a copy of the transcript in insertion order.
func (s *Store) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) snapshotLocked() []domain.ChatMessage {
	if len(s.messages) == 0 {
		return nil
	}
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) persistLocked(ctx context.Context) error {
	msgs := s.messages
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := s.storage.Save(ctx, data); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}
	return nil
}
