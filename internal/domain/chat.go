// Package domain contains core domain types for the tradedesk dashboard.
package domain

import (
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	// SenderUser marks messages typed by the person using the dashboard.
	SenderUser Sender = "user"
	// SenderAgent marks replies produced by the trading assistant.
	SenderAgent Sender = "agent"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAgent
}

// ChatMessage is a single transcript entry. Timestamp is assigned once by the
// transcript store and never changed afterwards.
type ChatMessage struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// BrowserSession tracks the last activity of a browser session.
type BrowserSession struct {
	SessionID  string
	LastSeenAt time.Time
	CreatedAt  time.Time
}

// Idle returns how long the session has been inactive relative to now.
func (s *BrowserSession) Idle(now time.Time) time.Duration {
	if s.LastSeenAt.IsZero() || now.Before(s.LastSeenAt) {
		return 0
	}
	return now.Sub(s.LastSeenAt)
}
