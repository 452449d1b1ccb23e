package indicators

import (
	"math"

	"trading_journal/models"
	"trading_journal/pkg/utils"
)

// Decimal places used in snapshots
const (
	pricePlaces = 6
	rsiPlaces   = 2
	ratioPlaces = 4
	bpsPlaces   = 2

	// slope threshold as a fraction of the EMA200 value (5 bps)
	slopeThreshold = 0.0005
)

// Series all indicator series of one candle set, computed once.
type Series struct {
	Candles []models.Candle
	Close   []float64
	EMA20   []float64
	EMA50   []float64
	EMA200  []float64
	SMA20   []float64
	SMA50   []float64
	SMA200  []float64
	RSI14   []float64
	ATR14   []float64
}

// Compute builds every series for candles.
func Compute(candles []models.Candle) *Series {
	closes := Closes(candles)
	return &Series{
		Candles: candles,
		Close:   closes,
		EMA20:   EMA(closes, 20),
		EMA50:   EMA(closes, 50),
		EMA200:  EMA(closes, 200),
		SMA20:   SMA(closes, 20),
		SMA50:   SMA(closes, 50),
		SMA200:  SMA(closes, 200),
		RSI14:   RSI(closes, 14),
		ATR14:   ATR(candles, 14),
	}
}

// At snapshot at index idx; nil when idx is out of range.
func (s *Series) At(idx int) *models.IndicatorSnapshot {
	if s == nil || idx < 0 || idx >= len(s.Candles) {
		return nil
	}

	closeVal := s.Close[idx]
	ema200 := s.EMA200[idx]
	atr := s.ATR14[idx]

	snap := &models.IndicatorSnapshot{
		TimeIndex: idx,
		Time:      s.Candles[idx].T,
		Close:     utils.RoundedPtr(closeVal, pricePlaces),
		EMA20:     utils.RoundedPtr(s.EMA20[idx], pricePlaces),
		EMA50:     utils.RoundedPtr(s.EMA50[idx], pricePlaces),
		EMA200:    utils.RoundedPtr(ema200, pricePlaces),
		SMA20:     utils.RoundedPtr(s.SMA20[idx], pricePlaces),
		SMA50:     utils.RoundedPtr(s.SMA50[idx], pricePlaces),
		SMA200:    utils.RoundedPtr(s.SMA200[idx], pricePlaces),
		RSI14:     utils.RoundedPtr(s.RSI14[idx], rsiPlaces),
		ATR14:     utils.RoundedPtr(atr, pricePlaces),
	}

	if isFinite(atr) && isFinite(closeVal) && closeVal != 0 {
		snap.ATRPct = utils.RoundedPtr(atr/closeVal*100, ratioPlaces)
	}
	if isFinite(ema200) && ema200 != 0 && isFinite(closeVal) {
		snap.CloseVsEMA200Bps = utils.RoundedPtr((closeVal-ema200)/ema200*10000, bpsPlaces)
	}
	snap.EMA200Slope = s.slopeAt(idx)
	return snap
}

// slopeAt compares EMA200 with its value two bars back.
func (s *Series) slopeAt(idx int) string {
	if idx < 2 {
		return ""
	}
	cur, back := s.EMA200[idx], s.EMA200[idx-2]
	if !isFinite(cur) || !isFinite(back) {
		return ""
	}
	delta := cur - back
	threshold := math.Abs(cur) * slopeThreshold
	switch {
	case delta > threshold:
		return models.SlopeUp
	case delta < -threshold:
		return models.SlopeDown
	default:
		return models.SlopeFlat
	}
}

// AtTime snapshot of the latest candle at or before tsMs.
func (s *Series) AtTime(tsMs int64) *models.IndicatorSnapshot {
	if s == nil {
		return nil
	}
	return s.At(FindCandleIndexAtOrBefore(s.Candles, tsMs))
}

// GetIndicatorsAt computes every series and snapshots the candle at or before tsMs.
func GetIndicatorsAt(candles []models.Candle, tsMs int64) *models.IndicatorSnapshot {
	if len(candles) == 0 {
		return nil
	}
	return Compute(candles).AtTime(tsMs)
}

// Summarize close-price statistics; nil for an empty series.
func Summarize(candles []models.Candle) *models.OHLCSummary {
	if len(candles) == 0 {
		return nil
	}
	summary := &models.OHLCSummary{
		Count:      len(candles),
		FirstClose: candles[0].C,
		LastClose:  candles[len(candles)-1].C,
		MinClose:   candles[0].C,
		MaxClose:   candles[0].C,
	}
	var sum float64
	for _, c := range candles {
		sum += c.C
		summary.MinClose = math.Min(summary.MinClose, c.C)
		summary.MaxClose = math.Max(summary.MaxClose, c.C)
	}
	summary.AvgClose = utils.RoundToDecimalPlaces(sum/float64(len(candles)), pricePlaces)
	return summary
}
