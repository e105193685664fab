package domain

// TradingPair is a market the backend trades on.
type TradingPair struct {
	ID       int    `json:"id"`
	PairName string `json:"pair_name"`
}

// Trade mirrors the backend's trade record.
type Trade struct {
	ID                   int         `json:"id"`
	TradingPair          TradingPair `json:"trading_pair"`
	Status               string      `json:"status"`
	EntryPrice           float64     `json:"entry_price"`
	TargetPrice          float64     `json:"target_price"`
	Size                 float64     `json:"size"`
	OpenedAt             string      `json:"opened_at"`
	ClosedAt             *string     `json:"closed_at,omitempty"`
	ProfitLoss           *float64    `json:"profit_loss,omitempty"`
	AIRecommended        bool        `json:"ai_recommended"`
	RecommendationReason *string     `json:"recommendation_reason,omitempty"`
}

// IsOpen reports whether the trade is still open.
func (t *Trade) IsOpen() bool {
	return t.Status == "open"
}

// Trend describes price direction.
type Trend struct {
	Direction string  `json:"direction"`
	Strength  float64 `json:"strength"`
}

// MACD holds the indicator values the market page shows.
type MACD struct {
	Histogram *float64 `json:"histogram,omitempty"`
}

// TradeActivity summarizes buy/sell pressure.
type TradeActivity struct {
	Pressure         string  `json:"pressure"`
	PressureStrength float64 `json:"pressure_strength"`
}

// OrderBookAnalysis summarizes order book depth.
type OrderBookAnalysis struct {
	BidDepth float64 `json:"bid_depth"`
	AskDepth float64 `json:"ask_depth"`
	Spread   float64 `json:"spread"`
}

// MarketAnalysis is the backend's market analysis payload.
type MarketAnalysis struct {
	Success            bool              `json:"success"`
	Symbol             string            `json:"symbol,omitempty"`
	CurrentPrice       float64           `json:"current_price"`
	Volume24h          float64           `json:"volume_24h"`
	PriceChange24h     float64           `json:"price_change_24h"`
	Volatility         float64           `json:"volatility"`
	Trend              Trend             `json:"trend"`
	RSI                *float64          `json:"rsi,omitempty"`
	MACD               MACD              `json:"macd"`
	TradeActivity      TradeActivity     `json:"trade_activity"`
	OrderBookAnalysis  OrderBookAnalysis `json:"order_book_analysis"`
	TradingRecommended bool              `json:"trading_recommended"`
	Reasoning          string            `json:"reasoning"`
	Error              string            `json:"error,omitempty"`
}
