package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/tradedesk/internal/actions"
	"github.com/ashureev/tradedesk/internal/domain"
	"github.com/ashureev/tradedesk/web"
)

const (
	// dashboardActions is how many actions the dashboard lists.
	dashboardActions = 10
	// pairActions is how many actions the trader page lists.
	pairActions = 20
	// pairActionScan is how many recent actions are searched for a pair's own.
	pairActionScan = 200
)

// PageHandler renders the dashboard pages.
type PageHandler struct {
	backend    Backend
	status     StatusSource
	templates  *web.Templates
	actionPage int
}

// NewPageHandler creates a page handler. actionPage is the number of actions
// per activity log page.
func NewPageHandler(backend Backend, status StatusSource, templates *web.Templates, actionPage int) *PageHandler {
	return &PageHandler{
		backend:    backend,
		status:     status,
		templates:  templates,
		actionPage: actionPage,
	}
}

// RegisterRoutes registers the page routes.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Dashboard)
	r.Get("/actions", h.ActionLog)
	r.Get("/trades/{id}", h.Trade)
	r.Get("/trader/{pairId}", h.Trader)
	r.Get("/market", h.Market)
}

// DashboardPage is the data of the dashboard template.
type DashboardPage struct {
	ActivePairs  int
	OpenTrades   int
	Traders      []domain.TraderStatus
	TradersError string
	Actions      []domain.LoggedAction
	Error        string
}

// ActionLogPage is the data of the activity log template.
type ActionLogPage struct {
	Page  actions.Page
	Chart actions.ChartData
	Error string
}

// TraderPage is the data of the trader template.
type TraderPage struct {
	Pair         *domain.TradingPair
	Status       *domain.TraderStatus
	StatusError  string
	Market       *domain.MarketAnalysis
	MarketError  string
	Actions      []domain.LoggedAction
	ActionsError string
}

// TradePage is the data of the trade template.
type TradePage struct {
	Trade *domain.Trade
}

// MarketPage is the data of the market template.
type MarketPage struct {
	Symbol   string
	Analysis *domain.MarketAnalysis
	Error    string
}

func (h *PageHandler) page(title, nav string, data any) web.Page {
	return web.Page{
		Title:        title,
		Nav:          nav,
		APIAvailable: h.status.Available(),
		Data:         data,
	}
}

// Dashboard renders GET / with the trader totals and the latest actions.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := DashboardPage{}

	statuses, err := h.backend.TraderStatuses(ctx)
	if err != nil {
		_, data.TradersError = backendFailure(err)
	} else {
		data.Traders = statuses
		for _, s := range statuses {
			data.OpenTrades += s.OpenTrades
		}
	}

	pairs, err := h.backend.TradingPairs(ctx)
	if err != nil {
		slog.Debug("trading pairs unavailable, counting traders instead", "error", err)
		data.ActivePairs = len(data.Traders)
	} else {
		data.ActivePairs = len(pairs)
	}

	recent, err := h.backend.RecentActions(ctx, dashboardActions)
	if err != nil {
		_, data.Error = backendFailure(err)
	} else {
		data.Actions = recent
	}
	h.templates.Render(w, http.StatusOK, web.PageIndex, h.page("Dashboard", "dashboard", data))
}

// ActionLog renders GET /actions?page= with the category and per-day chart
// data of the shown page.
func (h *PageHandler) ActionLog(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		n = 1
	}
	n = actions.ClampPage(n)

	data := ActionLogPage{Page: actions.Page{Number: n, Size: h.actionPage, HasPrev: n > 1}}
	recent, err := h.backend.RecentActions(r.Context(), actions.FetchLimit(n, h.actionPage))
	if err != nil {
		_, data.Error = backendFailure(err)
	} else {
		data.Page = actions.Paginate(recent, n, h.actionPage)
	}
	data.Chart = actions.BuildChartData(data.Page.Actions)
	h.templates.Render(w, http.StatusOK, web.PageActions, h.page("Activity Log", "actions", data))
}

// Trader renders GET /trader/{pairId}: the pair's trader state, the market
// of its pair and the actions logged against it.
func (h *PageHandler) Trader(w http.ResponseWriter, r *http.Request) {
	pairID, err := strconv.Atoi(chi.URLParam(r, "pairId"))
	if err != nil || pairID <= 0 {
		h.Error(w, http.StatusBadRequest, "Invalid trading pair", "Trading pair ids are positive numbers.")
		return
	}

	ctx := r.Context()
	pair, err := h.backend.TradingPair(ctx, pairID)
	if err != nil {
		code, message := backendFailure(err)
		if code == http.StatusOK {
			code = http.StatusNotFound
		}
		h.Error(w, code, "Trader unavailable", message)
		return
	}

	data := TraderPage{Pair: pair}
	if st, err := h.backend.TraderStatus(ctx, pairID); err != nil {
		_, data.StatusError = backendFailure(err)
	} else {
		data.Status = st
	}
	if analysis, err := h.backend.AnalyzeMarket(ctx, pair.PairName); err != nil {
		_, data.MarketError = backendFailure(err)
	} else {
		data.Market = analysis
	}
	if recent, err := h.backend.RecentActions(ctx, pairActionScan); err != nil {
		_, data.ActionsError = backendFailure(err)
	} else {
		data.Actions = actions.ForPair(recent, pairID, pairActions)
	}
	h.templates.Render(w, http.StatusOK, web.PageTrader, h.page("Trader "+pair.PairName, "", data))
}

// Trade renders GET /trades/{id}.
func (h *PageHandler) Trade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.Error(w, http.StatusBadRequest, "Invalid trade", "Trade ids are positive numbers.")
		return
	}

	trade, err := h.backend.GetTrade(r.Context(), id)
	if err != nil {
		code, message := backendFailure(err)
		if code == http.StatusOK {
			code = http.StatusNotFound
		}
		h.Error(w, code, "Trade unavailable", message)
		return
	}
	h.templates.Render(w, http.StatusOK, web.PageTrade, h.page("Trade #"+strconv.Itoa(trade.ID), "", TradePage{Trade: trade}))
}

// Market renders GET /market?symbol=. Without a symbol only the form is shown.
func (h *PageHandler) Market(w http.ResponseWriter, r *http.Request) {
	data := MarketPage{Symbol: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))}
	if data.Symbol != "" {
		analysis, err := h.backend.AnalyzeMarket(r.Context(), data.Symbol)
		if err != nil {
			_, data.Error = backendFailure(err)
		} else {
			data.Analysis = analysis
		}
	}
	h.templates.Render(w, http.StatusOK, web.PageMarket, h.page("Market Analysis", "", data))
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(w http.ResponseWriter, _ *http.Request) {
	h.Error(w, http.StatusNotFound, "Page not found", "The page you requested does not exist.")
}

// Error renders the error page.
func (h *PageHandler) Error(w http.ResponseWriter, code int, title, message string) {
	h.templates.Render(w, code, web.PageError, h.page(title, "", message))
}
