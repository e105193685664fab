// Package agent runs the chat pipeline between a browser session and the
// trading assistant: the user message is recorded, the backend is queried and
// the reply is recorded in the session transcript.
package agent

import (
	"errors"

	"github.com/ashureev/tradedesk/internal/render"
)

var (
	// ErrEmptyMessage is returned when a submission has no visible text.
	ErrEmptyMessage = errors.New("message is required")
	// ErrBusy is returned when a submission arrives while a query is in flight.
	ErrBusy = errors.New("a query is already in progress")
)

// WelcomeMessage is shown when a session has no transcript. It is never
// persisted.
const WelcomeMessage = "Hello! I'm your trading assistant. Ask me about market conditions, " +
	"your open trades, or how a trader is performing."

// User-facing replies for failed queries.
const (
	errorReplyFormat = "Sorry, I encountered an error: %s"
	unreachableReply = "Sorry, I couldn't reach the trading assistant. Please try again later."
)

// Reply is the outcome of a query. Text is always set; OK is false when it
// describes a failure.
type Reply struct {
	Text string
	OK   bool
}

// ChatRequest is the body of a chat submission.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by the chat endpoints.
type ChatResponse struct {
	Reply    *render.Bubble  `json:"reply,omitempty"`
	Messages []render.Bubble `json:"messages"`
	Loading  bool            `json:"loading"`
}
