package models

// Timespan values accepted by the aggregates provider
const (
	TimespanMinute = "minute"
	TimespanHour   = "hour"
	TimespanDay    = "day"
)

// Candle one OHLC bar, t in epoch milliseconds
type Candle struct {
	T int64    `json:"t"`
	O float64  `json:"o"`
	H float64  `json:"h"`
	L float64  `json:"l"`
	C float64  `json:"c"`
	V *float64 `json:"v,omitempty"`
}

// OHLCSummary close-price statistics of one candle series
type OHLCSummary struct {
	Count      int     `json:"count"`
	FirstClose float64 `json:"firstClose"`
	LastClose  float64 `json:"lastClose"`
	MinClose   float64 `json:"minClose"`
	MaxClose   float64 `json:"maxClose"`
	AvgClose   float64 `json:"avgClose"`
}

// EMA200 slope labels
const (
	SlopeUp   = "up"
	SlopeDown = "down"
	SlopeFlat = "flat"
)

// IndicatorSnapshot point-in-time indicator values; nil means not enough history
type IndicatorSnapshot struct {
	TimeIndex        int      `json:"timeIndex"`
	Time             int64    `json:"time"`
	Close            *float64 `json:"close"`
	EMA20            *float64 `json:"ema20"`
	EMA50            *float64 `json:"ema50"`
	EMA200           *float64 `json:"ema200"`
	SMA20            *float64 `json:"sma20"`
	SMA50            *float64 `json:"sma50"`
	SMA200           *float64 `json:"sma200"`
	RSI14            *float64 `json:"rsi14"`
	ATR14            *float64 `json:"atr14"`
	ATRPct           *float64 `json:"atrPct"`
	EMA200Slope      string   `json:"ema200Slope,omitempty"`
	CloseVsEMA200Bps *float64 `json:"closeVsEma200Bps"`
}

// SymbolMarket candles and derived data of one symbol in an analysis
type SymbolMarket struct {
	Symbol  string             `json:"symbol"`
	Candles []Candle           `json:"candles"`
	Summary *OHLCSummary       `json:"summary,omitempty"`
	Last    *IndicatorSnapshot `json:"last,omitempty"`
}
