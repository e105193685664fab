package domain

import "strings"

// LoggedAction is an action recorded by the trading backend's autonomous agent.
// It is read-only on this side.
type LoggedAction struct {
	ID            int    `json:"id,omitempty"`
	ActionType    string `json:"action_type"`
	Description   string `json:"description"`
	Timestamp     string `json:"timestamp"`
	TradingPairID *int   `json:"trading_pair_id,omitempty"`
	TradeID       *int   `json:"trade_id,omitempty"`
}

// Day returns the date portion of the action timestamp. Both
// "2024-01-01 10:00" and "2024-01-01T10:00:00" yield "2024-01-01".
func (a LoggedAction) Day() string {
	ts := strings.TrimSpace(a.Timestamp)
	if i := strings.IndexAny(ts, " T"); i >= 0 {
		return ts[:i]
	}
	return ts
}

// Category classifies the action by its type string.
func (a LoggedAction) Category() ActionCategory {
	return CategoryOf(a.ActionType)
}

// ActionCategory is one of the fixed buckets used to summarize logged actions.
type ActionCategory string

const (
	CategoryMarketAnalysis        ActionCategory = "market_analysis"
	CategoryParameterOptimization ActionCategory = "parameter_optimization"
	CategoryTraderMonitoring      ActionCategory = "trader_monitoring"
	CategoryTradePlacement        ActionCategory = "trade_placement"
	CategoryChatQuery             ActionCategory = "chat_query"
	CategoryOther                 ActionCategory = "other"
)

// Categories lists every category in display order. Other is always last.
var Categories = []ActionCategory{
	CategoryMarketAnalysis,
	CategoryParameterOptimization,
	CategoryTraderMonitoring,
	CategoryTradePlacement,
	CategoryChatQuery,
	CategoryOther,
}

// Label returns a human readable name for charts.
func (c ActionCategory) Label() string {
	switch c {
	case CategoryMarketAnalysis:
		return "Market Analysis"
	case CategoryParameterOptimization:
		return "Parameter Optimization"
	case CategoryTraderMonitoring:
		return "Trader Monitoring"
	case CategoryTradePlacement:
		return "Trade Placement"
	case CategoryChatQuery:
		return "Chat Query"
	default:
		return "Other"
	}
}

// CategoryOf returns the first category whose name appears in actionType,
// or CategoryOther when none does.
func CategoryOf(actionType string) ActionCategory {
	for _, c := range Categories {
		if c == CategoryOther {
			break
		}
		if strings.Contains(actionType, string(c)) {
			return c
		}
	}
	return CategoryOther
}
