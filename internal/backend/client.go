// Package backend is the HTTP client for the external trading backend API.
//
// Every endpoint replies with a JSON envelope carrying "success" and, on
// failure, "error". Logical failures surface as *APIError; transport and
// decoding failures are returned wrapped.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/tradedesk/internal/domain"
)

// DefaultTimeout bounds a backend request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a backend reply is read (4MB).
const maxResponseSize = 4 << 20

// APIError is a failure reported by the backend itself.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return e.Message
}

// IsAPIError reports whether err carries a backend-reported failure.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Client talks to the trading backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimeout sets the request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the backend at baseURL. apiKey, when set, is
// sent as a bearer token. Requests time out after DefaultTimeout unless
// configured otherwise; context deadlines still apply.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChatQueryResponse is the reply of POST /api/chat/query.
type ChatQueryResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatQuery sends a natural language query to the assistant.
func (c *Client) ChatQuery(ctx context.Context, query string) (string, error) {
	var resp ChatQueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/query", nil, map[string]string{"query": query}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.Response, nil
}

// GetTrade fetches a trade by id.
func (c *Client) GetTrade(ctx context.Context, id int) (*domain.Trade, error) {
	var resp struct {
		envelope
		Data *domain.Trade `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/trades/"+strconv.Itoa(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.Data, nil
}

// AnalyzeMarket fetches the market analysis for a trading pair symbol.
func (c *Client) AnalyzeMarket(ctx context.Context, symbol string) (*domain.MarketAnalysis, error) {
	if symbol == "" {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Message: "Symbol parameter is required"}
	}
	var resp domain.MarketAnalysis
	q := url.Values{"symbol": {symbol}}
	if err := c.do(ctx, http.MethodGet, "/api/market/analyze", q, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	if resp.Symbol == "" {
		resp.Symbol = symbol
	}
	return &resp, nil
}

// OptimizeTrader asks the backend to re-tune the trader of a pair.
func (c *Client) OptimizeTrader(ctx context.Context, pairID int) error {
	var resp envelope
	if err := c.do(ctx, http.MethodPost, "/api/trader/optimize/"+strconv.Itoa(pairID), nil, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return nil
}

// CheckAPI reports whether the backend's upstream trading API is available.
func (c *Client) CheckAPI(ctx context.Context) (bool, error) {
	var resp struct {
		APIAvailable bool `json:"api_available"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/status/check-api", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.APIAvailable, nil
}

// RecentActions fetches the most recent logged agent actions, newest first.
func (c *Client) RecentActions(ctx context.Context, limit int) ([]domain.LoggedAction, error) {
	var resp struct {
		envelope
		Actions []domain.LoggedAction `json:"actions"`
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if err := c.do(ctx, http.MethodGet, "/api/actions/recent", q, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.Actions, nil
}

// TradingPairs lists the pairs the backend trades on.
func (c *Client) TradingPairs(ctx context.Context) ([]domain.TradingPair, error) {
	var pairs []domain.TradingPair
	if err := c.getData(ctx, "/api/trading-pairs", nil, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// TradingPair fetches one trading pair.
func (c *Client) TradingPair(ctx context.Context, pairID int) (*domain.TradingPair, error) {
	var pair domain.TradingPair
	if err := c.getData(ctx, "/api/trading-pairs/"+strconv.Itoa(pairID), nil, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// TraderStatuses fetches the live status of every trader.
func (c *Client) TraderStatuses(ctx context.Context) ([]domain.TraderStatus, error) {
	var statuses []domain.TraderStatus
	if err := c.getData(ctx, "/api/trader-status", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// TraderStatus fetches the live status of the trader of one pair.
func (c *Client) TraderStatus(ctx context.Context, pairID int) (*domain.TraderStatus, error) {
	var st domain.TraderStatus
	if err := c.getData(ctx, "/api/trader-status/"+strconv.Itoa(pairID), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// MonitorTrader runs the backend's health checks on the trader of one pair.
func (c *Client) MonitorTrader(ctx context.Context, pairID int) (*domain.TraderCheck, error) {
	var resp domain.TraderCheck
	if err := c.do(ctx, http.MethodGet, "/api/trader/monitor/"+strconv.Itoa(pairID), nil, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return &resp, nil
}

// MonitorAllTraders runs the backend's health checks on every trader.
func (c *Client) MonitorAllTraders(ctx context.Context) (*domain.MonitorReport, error) {
	var resp domain.MonitorReport
	if err := c.do(ctx, http.MethodGet, "/api/trader/monitor/all", nil, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return &resp, nil
}

// InactiveTraders lists traders idle for longer than thresholdHours. A
// non-positive threshold leaves the backend default (24h).
func (c *Client) InactiveTraders(ctx context.Context, thresholdHours int) (*domain.InactiveReport, error) {
	q := url.Values{}
	if thresholdHours > 0 {
		q.Set("threshold", strconv.Itoa(thresholdHours))
	}
	var resp domain.InactiveReport
	if err := c.do(ctx, http.MethodGet, "/api/trader/inactive", q, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return &resp, nil
}

// PlaceTrade asks the backend to place a trade for the pair's trader when
// market conditions allow it.
func (c *Client) PlaceTrade(ctx context.Context, pairID int) (*domain.PlaceTradeResult, error) {
	var resp domain.PlaceTradeResult
	if err := c.do(ctx, http.MethodPost, "/api/trader/place-trade/"+strconv.Itoa(pairID), nil, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return &resp, nil
}

// getData fetches a {success, data} envelope and decodes data into out.
func (c *Client) getData(ctx context.Context, path string, query url.Values, out any) error {
	var resp struct {
		envelope
		Data json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return err
	}
	if !resp.Success || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

// do performs a request and decodes the JSON reply into out. Non-2xx replies
// are turned into *APIError using the envelope's error text when present.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if reqID := chiMiddleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(chiMiddleware.RequestIDHeader, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Debug("failed to close backend response body", "path", path, "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		c.log.Warn("backend returned error status", "method", method, "path", path, "status", resp.StatusCode, "error", env.Error)
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
