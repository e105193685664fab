package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/ashureev/tradedesk/internal/domain"
	"github.com/ashureev/tradedesk/internal/transcript"
)

// Submission lifecycle states and triggers.
const (
	StateIdle          = "Idle"
	StateAwaitingReply = "AwaitingReply"
	StateClearing      = "Clearing"

	triggerSubmit  = "Submit"
	triggerReplied = "Replied"
	triggerClear   = "Clear"
	triggerCleared = "Cleared"
)

// loadingFlag is the session's loading indicator.
type loadingFlag struct {
	on atomic.Bool
}

func (f *loadingFlag) Show() { f.on.Store(true) }
func (f *loadingFlag) Hide() { f.on.Store(false) }

// Session is the chat pipeline of one browser session. At most one
// submission or clear is in flight at a time.
type Session struct {
	id         string
	transcript *transcript.Store
	client     *Client
	convLog    ConversationLogger
	now        func() time.Time

	mu      sync.Mutex
	fsm     *stateless.StateMachine
	loading loadingFlag
}

// NewSession creates a session over an already restored transcript.
func NewSession(id string, ts *transcript.Store, client *Client, convLog ConversationLogger) *Session {
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	fsm := stateless.NewStateMachine(StateIdle)
	fsm.Configure(StateIdle).
		Permit(triggerSubmit, StateAwaitingReply).
		Permit(triggerClear, StateClearing)
	fsm.Configure(StateAwaitingReply).
		Permit(triggerReplied, StateIdle)
	fsm.Configure(StateClearing).
		Permit(triggerCleared, StateIdle)

	return &Session{
		id:         id,
		transcript: ts,
		client:     client,
		convLog:    convLog,
		now:        time.Now,
		fsm:        fsm,
	}
}

// ID returns the browser session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _ := s.fsm.MustState().(string)
	return state
}

// Loading reports whether the loading indicator is showing.
func (s *Session) Loading() bool {
	return s.loading.on.Load()
}

// Submit records the user's message, queries the assistant and records its
// reply. The agent message is returned. Empty input is rejected before
// anything is recorded, and a submission made while another submission or a
// clear is in flight fails with ErrBusy.
func (s *Session) Submit(ctx context.Context, text string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}
	if err := s.fire(triggerSubmit); err != nil {
		return domain.ChatMessage{}, ErrBusy
	}
	defer func() {
		if err := s.fire(triggerReplied); err != nil {
			slog.Error("chat session left in flight", "session_id", s.id, "error", err)
		}
	}()

	if _, err := s.transcript.Append(ctx, domain.SenderUser, text); err != nil {
		slog.Warn("failed to persist user message", "session_id", s.id, "error", err)
	}
	s.logEvent(ctx, "outbound", "chat_user_message", text, nil)

	started := s.now()
	reply := s.client.Query(ctx, text, &s.loading)

	msg, err := s.transcript.Append(ctx, domain.SenderAgent, reply.Text)
	if err != nil {
		slog.Warn("failed to persist agent message", "session_id", s.id, "error", err)
	}
	s.logEvent(ctx, "inbound", "chat_assistant_message", reply.Text, map[string]any{
		"ok":          reply.OK,
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})
	return msg, nil
}

// View returns the messages to display. An empty transcript shows the
// welcome message instead.
func (s *Session) View() []domain.ChatMessage {
	msgs := s.transcript.Messages()
	if len(msgs) > 0 {
		return msgs
	}
	return []domain.ChatMessage{{
		Sender:    domain.SenderAgent,
		Content:   WelcomeMessage,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
	}}
}

// Clear empties the transcript. It is refused while a query is in flight, and
// submissions are refused until it completes.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.fire(triggerClear); err != nil {
		return ErrBusy
	}
	defer func() {
		if err := s.fire(triggerCleared); err != nil {
			slog.Error("chat session left clearing", "session_id", s.id, "error", err)
		}
	}()

	if err := s.transcript.Clear(ctx); err != nil {
		return err
	}
	s.logEvent(ctx, "outbound", "chat_cleared", "", nil)
	return nil
}

func (s *Session) fire(trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fsm.Fire(trigger)
}

func (s *Session) logEvent(ctx context.Context, direction, eventType, content string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	if reqID := requestID(ctx); reqID != "" {
		meta["request_id"] = reqID
	}
	s.convLog.Log(ConversationLogEvent{
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		SessionID:  s.id,
		Channel:    "chat_http",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}
