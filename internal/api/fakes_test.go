package api

import (
	"context"
	"errors"

	"github.com/ashureev/tradedesk/internal/backend"
	"github.com/ashureev/tradedesk/internal/domain"
	"github.com/ashureev/tradedesk/internal/status"
)

var errTransport = errors.New("dial tcp: connection refused")

type fakeBackend struct {
	reply         string
	trade         *domain.Trade
	analysis      *domain.MarketAnalysis
	actions       []domain.LoggedAction
	pairs         []domain.TradingPair
	statuses      []domain.TraderStatus
	report        *domain.MonitorReport
	inactive      *domain.InactiveReport
	placeResult   *domain.PlaceTradeResult
	err           error
	statusErr     error
	lastLimit     int
	lastThreshold int
	optimized     []int
	checked       []int
	placed        []int
}

func (f *fakeBackend) ChatQuery(_ context.Context, _ string) (string, error) {
	return f.reply, f.err
}

func (f *fakeBackend) GetTrade(_ context.Context, id int) (*domain.Trade, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.trade == nil || f.trade.ID != id {
		return nil, &backend.APIError{StatusCode: 200, Message: "Trade not found"}
	}
	return f.trade, nil
}

func (f *fakeBackend) AnalyzeMarket(_ context.Context, symbol string) (*domain.MarketAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := *f.analysis
	a.Symbol = symbol
	return &a, nil
}

func (f *fakeBackend) OptimizeTrader(_ context.Context, pairID int) error {
	if f.err != nil {
		return f.err
	}
	f.optimized = append(f.optimized, pairID)
	return nil
}

func (f *fakeBackend) RecentActions(_ context.Context, limit int) ([]domain.LoggedAction, error) {
	f.lastLimit = limit
	return f.actions, f.err
}

func (f *fakeBackend) TradingPairs(context.Context) ([]domain.TradingPair, error) {
	return f.pairs, f.err
}

func (f *fakeBackend) TradingPair(_ context.Context, pairID int) (*domain.TradingPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.pairs {
		if f.pairs[i].ID == pairID {
			return &f.pairs[i], nil
		}
	}
	return nil, &backend.APIError{StatusCode: 200, Message: "Trading pair not found"}
}

func (f *fakeBackend) TraderStatuses(context.Context) ([]domain.TraderStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statuses, f.err
}

func (f *fakeBackend) TraderStatus(_ context.Context, pairID int) (*domain.TraderStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	for i := range f.statuses {
		if f.statuses[i].PairID == pairID {
			return &f.statuses[i], nil
		}
	}
	return nil, &backend.APIError{StatusCode: 200, Message: "Trader not found"}
}

func (f *fakeBackend) MonitorTrader(_ context.Context, pairID int) (*domain.TraderCheck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.checked = append(f.checked, pairID)
	return &domain.TraderCheck{Success: true, PairID: pairID, Severity: "low"}, nil
}

func (f *fakeBackend) MonitorAllTraders(context.Context) (*domain.MonitorReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeBackend) InactiveTraders(_ context.Context, thresholdHours int) (*domain.InactiveReport, error) {
	f.lastThreshold = thresholdHours
	if f.err != nil {
		return nil, f.err
	}
	return f.inactive, nil
}

func (f *fakeBackend) PlaceTrade(_ context.Context, pairID int) (*domain.PlaceTradeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.placed = append(f.placed, pairID)
	return f.placeResult, nil
}

type fakeStatus struct {
	snap   status.Snapshot
	checks int
}

func (f *fakeStatus) Current() status.Snapshot { return f.snap }

func (f *fakeStatus) Check(context.Context) status.Snapshot {
	f.checks++
	f.snap.Checked = true
	return f.snap
}

func (f *fakeStatus) Available() *bool {
	if !f.snap.Checked {
		return nil
	}
	v := f.snap.APIAvailable
	return &v
}

func intPtr(v int) *int { return &v }
