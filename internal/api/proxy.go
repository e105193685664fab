package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	defaultRecentActions = 20
	defaultInactiveHours = 24
)

// ProxyHandler exposes the trading backend to the page scripts, keeping the
// backend's JSON contract.
type ProxyHandler struct {
	backend Backend
	status  StatusSource
}

// NewProxyHandler creates a proxy handler.
func NewProxyHandler(backend Backend, status StatusSource) *ProxyHandler {
	return &ProxyHandler{backend: backend, status: status}
}

// RegisterRoutes registers the /api routes.
func (h *ProxyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat/query", h.ChatQuery)
		r.Get("/trades/{id}", h.GetTrade)
		r.Get("/market/analyze", h.AnalyzeMarket)
		r.Post("/trader/optimize/{pairId}", h.OptimizeTrader)
		r.Get("/trader/monitor/all", h.MonitorAllTraders)
		r.Get("/trader/monitor/{pairId}", h.MonitorTrader)
		r.Get("/trader/inactive", h.InactiveTraders)
		r.Post("/trader/place-trade/{pairId}", h.PlaceTrade)
		r.Get("/status/check-api", h.CheckAPI)
		r.Get("/actions/recent", h.RecentActions)
	})
}

func failure(w http.ResponseWriter, code int, message string) {
	JSON(w, code, map[string]interface{}{"success": false, "error": message})
}

func (h *ProxyHandler) backendFailed(w http.ResponseWriter, r *http.Request, err error) {
	code, message := backendFailure(err)
	slog.Warn("backend call failed", "path", r.URL.Path, "status", code, "error", err)
	failure(w, code, message)
}

// ChatQuery handles POST /api/chat/query.
func (h *ProxyHandler) ChatQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		failure(w, http.StatusBadRequest, "Query is required")
		return
	}

	resp, err := h.backend.ChatQuery(r.Context(), req.Query)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "response": resp})
}

// GetTrade handles GET /api/trades/{id}.
func (h *ProxyHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		failure(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	trade, err := h.backend.GetTrade(r.Context(), id)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": trade})
}

// AnalyzeMarket handles GET /api/market/analyze?symbol=.
func (h *ProxyHandler) AnalyzeMarket(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		failure(w, http.StatusBadRequest, "Symbol parameter is required")
		return
	}
	analysis, err := h.backend.AnalyzeMarket(r.Context(), symbol)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, analysis)
}

// OptimizeTrader handles POST /api/trader/optimize/{pairId}.
func (h *ProxyHandler) OptimizeTrader(w http.ResponseWriter, r *http.Request) {
	pairID, err := strconv.Atoi(chi.URLParam(r, "pairId"))
	if err != nil {
		failure(w, http.StatusBadRequest, "invalid trading pair id")
		return
	}
	if err := h.backend.OptimizeTrader(r.Context(), pairID); err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MonitorTrader handles GET /api/trader/monitor/{pairId}.
func (h *ProxyHandler) MonitorTrader(w http.ResponseWriter, r *http.Request) {
	pairID, ok := pairIDParam(w, r)
	if !ok {
		return
	}
	check, err := h.backend.MonitorTrader(r.Context(), pairID)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, check)
}

// MonitorAllTraders handles GET /api/trader/monitor/all.
func (h *ProxyHandler) MonitorAllTraders(w http.ResponseWriter, r *http.Request) {
	report, err := h.backend.MonitorAllTraders(r.Context())
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, report)
}

// InactiveTraders handles GET /api/trader/inactive?threshold=, the threshold
// being in hours.
func (h *ProxyHandler) InactiveTraders(w http.ResponseWriter, r *http.Request) {
	threshold := defaultInactiveHours
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			failure(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = n
	}
	report, err := h.backend.InactiveTraders(r.Context(), threshold)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, report)
}

// PlaceTrade handles POST /api/trader/place-trade/{pairId}. The backend
// decides whether market conditions allow the trade.
func (h *ProxyHandler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	pairID, ok := pairIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.backend.PlaceTrade(r.Context(), pairID)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	slog.Info("trade placed", "pair_id", pairID)
	JSON(w, http.StatusOK, result)
}

func pairIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	pairID, err := strconv.Atoi(chi.URLParam(r, "pairId"))
	if err != nil || pairID <= 0 {
		failure(w, http.StatusBadRequest, "invalid trading pair id")
		return 0, false
	}
	return pairID, true
}

// CheckAPI handles GET /api/status/check-api. It runs a fresh check, which
// also refreshes the monitor's snapshot.
func (h *ProxyHandler) CheckAPI(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Check(r.Context())
	JSON(w, http.StatusOK, map[string]bool{"api_available": snap.APIAvailable})
}

// RecentActions handles GET /api/actions/recent?limit=.
func (h *ProxyHandler) RecentActions(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentActions
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			failure(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	actions, err := h.backend.RecentActions(r.Context(), limit)
	if err != nil {
		h.backendFailed(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "actions": actions})
}
