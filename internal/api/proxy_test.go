package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/tradedesk/internal/backend"
	"github.com/ashureev/tradedesk/internal/domain"
)

func proxyRouter(b *fakeBackend, s *fakeStatus) http.Handler {
	r := chi.NewRouter()
	NewProxyHandler(b, s).RegisterRoutes(r)
	return r
}

func serve(h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestProxyChatQuery(t *testing.T) {
	h := proxyRouter(&fakeBackend{reply: "BTC looks calm"}, &fakeStatus{})

	rec, out := serve(h, http.MethodPost, "/api/chat/query", `{"query":"how is BTC?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "BTC looks calm", out["response"])

	rec, out = serve(h, http.MethodPost, "/api/chat/query", `{"query":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query is required", out["error"])
	assert.Equal(t, false, out["success"])

	rec, _ = serve(h, http.MethodPost, "/api/chat/query", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyChatQueryBackendErrors(t *testing.T) {
	rec, out := serve(proxyRouter(&fakeBackend{err: &backend.APIError{StatusCode: 200, Message: "rate limited"}}, &fakeStatus{}),
		http.MethodPost, "/api/chat/query", `{"query":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "rate limited", out["error"])

	rec, out = serve(proxyRouter(&fakeBackend{err: errTransport}, &fakeStatus{}),
		http.MethodPost, "/api/chat/query", `{"query":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "trading backend unavailable", out["error"])
}

func TestProxyGetTrade(t *testing.T) {
	b := &fakeBackend{trade: &domain.Trade{ID: 7, Status: "open", TradingPair: domain.TradingPair{ID: 3, PairName: "BTC/USDT"}}}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodGet, "/api/trades/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := out["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "open", data["status"])

	rec, _ = serve(h, http.MethodGet, "/api/trades/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = serve(h, http.MethodGet, "/api/trades/8", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trade not found", out["error"])
}

func TestProxyAnalyzeMarket(t *testing.T) {
	h := proxyRouter(&fakeBackend{analysis: &domain.MarketAnalysis{Success: true, CurrentPrice: 50000}}, &fakeStatus{})

	rec, out := serve(h, http.MethodGet, "/api/market/analyze?symbol=BTC/USDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC/USDT", out["symbol"])
	assert.Equal(t, float64(50000), out["current_price"])

	rec, out = serve(h, http.MethodGet, "/api/market/analyze", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Symbol parameter is required", out["error"])
}

func TestProxyOptimizeTrader(t *testing.T) {
	b := &fakeBackend{}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodPost, "/api/trader/optimize/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, []int{3}, b.optimized)

	rec, _ = serve(h, http.MethodPost, "/api/trader/optimize/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyCheckAPIRunsFreshCheck(t *testing.T) {
	s := &fakeStatus{}
	s.snap.APIAvailable = true
	h := proxyRouter(&fakeBackend{}, s)

	rec, out := serve(h, http.MethodGet, "/api/status/check-api", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["api_available"])
	assert.Equal(t, 1, s.checks)
}

func TestProxyRecentActions(t *testing.T) {
	b := &fakeBackend{actions: []domain.LoggedAction{
		{ID: 1, ActionType: "market_analysis", Description: "scan", Timestamp: "2024-05-01T10:00:00"},
	}}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodGet, "/api/actions/recent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRecentActions, b.lastLimit)
	assert.Len(t, out["actions"], 1)

	rec, _ = serve(h, http.MethodGet, "/api/actions/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, b.lastLimit)

	rec, _ = serve(h, http.MethodGet, "/api/actions/recent?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyMonitorTrader(t *testing.T) {
	b := &fakeBackend{}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodGet, "/api/trader/monitor/4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), out["pair_id"])
	assert.Equal(t, []int{4}, b.checked)

	rec, _ = serve(h, http.MethodGet, "/api/trader/monitor/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyMonitorAllTraders(t *testing.T) {
	b := &fakeBackend{report: &domain.MonitorReport{
		Success:           true,
		TradersChecked:    3,
		TradersWithIssues: 1,
		Results:           []domain.TraderCheck{{PairID: 2, IssuesDetected: true, Severity: "high"}},
	}}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodGet, "/api/trader/monitor/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), out["traders_checked"])
	assert.Len(t, out["results"], 1)
	assert.Empty(t, b.checked, "the all route must not be taken for a pair id")

	rec, out = serve(proxyRouter(&fakeBackend{err: errTransport}, &fakeStatus{}), http.MethodGet, "/api/trader/monitor/all", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, false, out["success"])
}

func TestProxyInactiveTraders(t *testing.T) {
	b := &fakeBackend{inactive: &domain.InactiveReport{
		Success:                  true,
		InactiveTradersCount:     1,
		InactiveTraders:          []domain.InactiveTrader{{PairID: 5, PairName: "ETH/USDT", Recommendation: "place_trade"}},
		InactivityThresholdHours: 48,
	}}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodGet, "/api/trader/inactive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultInactiveHours, b.lastThreshold)
	assert.Equal(t, float64(1), out["inactive_traders_count"])

	rec, _ = serve(h, http.MethodGet, "/api/trader/inactive?threshold=48", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 48, b.lastThreshold)

	for _, bad := range []string{"0", "-3", "soon"} {
		rec, _ = serve(h, http.MethodGet, "/api/trader/inactive?threshold="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestProxyPlaceTrade(t *testing.T) {
	b := &fakeBackend{placeResult: &domain.PlaceTradeResult{
		Success:   true,
		Message:   "Trade placed",
		TradeData: &domain.Trade{ID: 77, Status: "open"},
	}}
	h := proxyRouter(b, &fakeStatus{})

	rec, out := serve(h, http.MethodPost, "/api/trader/place-trade/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, []int{3}, b.placed)

	rec, _ = serve(h, http.MethodGet, "/api/trader/place-trade/3", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	refused := &fakeBackend{err: &backend.APIError{StatusCode: 200, Message: "Market conditions not favorable"}}
	rec, out = serve(proxyRouter(refused, &fakeStatus{}), http.MethodPost, "/api/trader/place-trade/3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Market conditions not favorable", out["error"])
}
