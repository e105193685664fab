// Package api provides the dashboard's page handlers and the JSON routes the
// page scripts call.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/tradedesk/internal/backend"
	"github.com/ashureev/tradedesk/internal/domain"
	"github.com/ashureev/tradedesk/internal/status"
)

// Backend is the subset of the trading backend the handlers use.
type Backend interface {
	ChatQuery(ctx context.Context, query string) (string, error)
	GetTrade(ctx context.Context, id int) (*domain.Trade, error)
	AnalyzeMarket(ctx context.Context, symbol string) (*domain.MarketAnalysis, error)
	OptimizeTrader(ctx context.Context, pairID int) error
	RecentActions(ctx context.Context, limit int) ([]domain.LoggedAction, error)
	TradingPairs(ctx context.Context) ([]domain.TradingPair, error)
	TradingPair(ctx context.Context, pairID int) (*domain.TradingPair, error)
	TraderStatuses(ctx context.Context) ([]domain.TraderStatus, error)
	TraderStatus(ctx context.Context, pairID int) (*domain.TraderStatus, error)
	MonitorTrader(ctx context.Context, pairID int) (*domain.TraderCheck, error)
	MonitorAllTraders(ctx context.Context) (*domain.MonitorReport, error)
	InactiveTraders(ctx context.Context, thresholdHours int) (*domain.InactiveReport, error)
	PlaceTrade(ctx context.Context, pairID int) (*domain.PlaceTradeResult, error)
}

// StatusSource reports upstream API availability.
type StatusSource interface {
	Current() status.Snapshot
	Check(ctx context.Context) status.Snapshot
	Available() *bool
}

var (
	_ Backend      = (*backend.Client)(nil)
	_ StatusSource = (*status.Monitor)(nil)
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// backendFailure maps a backend error to a status code and a message that is
// safe to show. Backend-reported failures keep their status and text;
// transport failures become 502.
func backendFailure(err error) (int, string) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code == 0 {
			code = http.StatusBadGateway
		}
		return code, apiErr.Error()
	}
	return http.StatusBadGateway, "trading backend unavailable"
}
