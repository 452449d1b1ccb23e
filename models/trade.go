package models

// Trade directions
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// TradeIndicators entry/exit snapshots attached to a trade in a response
type TradeIndicators struct {
	Entry *IndicatorSnapshot `json:"entry,omitempty"`
	Exit  *IndicatorSnapshot `json:"exit,omitempty"`
}

// Trade journal trade as submitted to and returned from the analysis endpoint
type Trade struct {
	ID         *uint            `json:"id,omitempty"`
	Ticker     string           `json:"ticker"`
	Direction  string           `json:"direction,omitempty"`
	EntryTime  string           `json:"entryTime,omitempty"`
	ExitTime   string           `json:"exitTime,omitempty"`
	EntryPrice float64          `json:"entryPrice,omitempty"`
	ExitPrice  float64          `json:"exitPrice,omitempty"`
	Profit     float64          `json:"profit"`
	Volume     float64          `json:"volume,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	Indicators *TradeIndicators `json:"indicators,omitempty"`
}

// TradeMetrics aggregate metrics computed directly from trades
type TradeMetrics struct {
	TradesCount int     `json:"tradesCount"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"winRate"`
	TotalProfit float64 `json:"totalProfit"`
	AvgProfit   float64 `json:"avgProfit"`
}
