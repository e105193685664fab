package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/tradedesk/internal/backend"
)

// Querier sends a chat query to the trading backend.
type Querier interface {
	ChatQuery(ctx context.Context, query string) (string, error)
}

// Indicator is a loading indicator bound to one query.
type Indicator interface {
	Show()
	Hide()
}

type nopIndicator struct{}

func (nopIndicator) Show() {}
func (nopIndicator) Hide() {}

// DefaultQueryTimeout bounds a chat query when no other timeout is set.
const DefaultQueryTimeout = 30 * time.Second

// Client queries the assistant and turns every outcome into a reply.
type Client struct {
	backend Querier
	timeout time.Duration
	log     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithQueryTimeout bounds every query. A non-positive d keeps the default.
func WithQueryTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client over q.
func NewClient(q Querier, opts ...ClientOption) *Client {
	c := &Client{backend: q, timeout: DefaultQueryTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query sends text to the assistant. The indicator is shown for the duration
// of the call and hidden on every return path. Failures never surface as
// errors: a backend-reported failure embeds the server's message, while a
// transport failure or a query that outlives the timeout yields a generic
// apology.
func (c *Client) Query(ctx context.Context, text string, ind Indicator) Reply {
	if ind == nil {
		ind = nopIndicator{}
	}
	ind.Show()
	defer ind.Hide()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.backend.ChatQuery(ctx, text)
	if err == nil {
		return Reply{Text: resp, OK: true}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		c.log.Warn("assistant reported an error", "status", apiErr.StatusCode, "error", apiErr.Error())
		return Reply{Text: fmt.Sprintf(errorReplyFormat, apiErr.Error())}
	}

	c.log.Error("assistant query failed", "error", err)
	return Reply{Text: unreachableReply}
}
