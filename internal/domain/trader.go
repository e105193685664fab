package domain

// TraderStatus is the backend's live state of the trader of one pair.
type TraderStatus struct {
	PairID              int      `json:"pair_id"`
	PairName            string   `json:"pair_name"`
	OpenTrades          int      `json:"open_trades"`
	MaxConcurrentTrades int      `json:"max_concurrent_trades"`
	LastTradeTime       *string  `json:"last_trade_time,omitempty"`
	RecentIssues        []string `json:"recent_issues,omitempty"`
}

// FreeSlots returns how many more trades the trader may open.
func (s TraderStatus) FreeSlots() int {
	if n := s.MaxConcurrentTrades - s.OpenTrades; n > 0 {
		return n
	}
	return 0
}

// TraderMetrics are the performance figures a trader check is based on.
type TraderMetrics struct {
	OpenTrades          int     `json:"open_trades"`
	MaxConcurrentTrades int     `json:"max_concurrent_trades"`
	SuccessRate         float64 `json:"success_rate"`
	AvgProfitLoss       float64 `json:"avg_profit_loss"`
	AvgDuration         float64 `json:"avg_duration"`
	LastTradeDate       *string `json:"last_trade_date,omitempty"`
}

// TraderCheck is the result of GET /api/trader/monitor/{pair_id}.
type TraderCheck struct {
	Success            bool          `json:"success"`
	PairID             int           `json:"pair_id"`
	PairName           string        `json:"pair_name"`
	IssuesDetected     bool          `json:"issues_detected"`
	IssueSummary       string        `json:"issue_summary"`
	Severity           string        `json:"severity"`
	RecommendedActions []string      `json:"recommended_actions"`
	Metrics            TraderMetrics `json:"metrics"`
	Error              string        `json:"error,omitempty"`
}

// MonitorReport is the result of GET /api/trader/monitor/all.
type MonitorReport struct {
	Success           bool          `json:"success"`
	Timestamp         string        `json:"timestamp"`
	TradersChecked    int           `json:"traders_checked"`
	TradersWithIssues int           `json:"traders_with_issues"`
	Results           []TraderCheck `json:"results"`
	Error             string        `json:"error,omitempty"`
}

// MarketConditions is the condensed market view attached to trader reports.
type MarketConditions struct {
	Trend              string  `json:"trend"`
	Volatility         float64 `json:"volatility"`
	TradingRecommended bool    `json:"trading_recommended"`
	Reasoning          string  `json:"reasoning,omitempty"`
}

// InactiveTrader is a trader that has not traded within the threshold.
type InactiveTrader struct {
	PairID              int              `json:"pair_id"`
	PairName            string           `json:"pair_name"`
	InactivityDuration  string           `json:"inactivity_duration"`
	CurrentOpenTrades   int              `json:"current_open_trades"`
	MaxConcurrentTrades int              `json:"max_concurrent_trades"`
	MarketConditions    MarketConditions `json:"market_conditions"`
	Recommendation      string           `json:"recommendation"`
	Reasoning           string           `json:"reasoning"`
}

// InactiveReport is the result of GET /api/trader/inactive.
type InactiveReport struct {
	Success                  bool             `json:"success"`
	Timestamp                string           `json:"timestamp"`
	InactiveTradersCount     int              `json:"inactive_traders_count"`
	InactiveTraders          []InactiveTrader `json:"inactive_traders"`
	InactivityThresholdHours int              `json:"inactivity_threshold_hours"`
	Error                    string           `json:"error,omitempty"`
}

// PlaceTradeResult is the result of POST /api/trader/place-trade/{pair_id}.
type PlaceTradeResult struct {
	Success          bool             `json:"success"`
	Message          string           `json:"message,omitempty"`
	TradeData        *Trade           `json:"trade_data,omitempty"`
	MarketConditions MarketConditions `json:"market_conditions"`
	Error            string           `json:"error,omitempty"`
}
