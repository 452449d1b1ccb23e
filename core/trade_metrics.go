package core

import (
	"trading_journal/models"
	"trading_journal/pkg/utils"
)

// ComputeTradeMetrics counts a trade with positive profit as a win.
func ComputeTradeMetrics(trades []models.Trade) models.TradeMetrics {
	m := models.TradeMetrics{TradesCount: len(trades)}
	if len(trades) == 0 {
		return m
	}
	var total float64
	for _, t := range trades {
		total += t.Profit
		if t.Profit > 0 {
			m.Wins++
		}
	}
	m.TotalProfit = utils.RoundToDecimalPlaces(total, 6)
	m.AvgProfit = utils.RoundToDecimalPlaces(total/float64(len(trades)), 6)
	m.WinRate = utils.RoundToDecimalPlaces(float64(m.Wins)/float64(len(trades)), 4)
	return m
}

// MetricsBySymbol per normalized ticker.
func MetricsBySymbol(trades []models.Trade, prefix string) map[string]models.TradeMetrics {
	groups := map[string][]models.Trade{}
	for _, t := range trades {
		key := utils.NormalizeTicker(t.Ticker, prefix)
		groups[key] = append(groups[key], t)
	}
	out := make(map[string]models.TradeMetrics, len(groups))
	for sym, list := range groups {
		out[sym] = ComputeTradeMetrics(list)
	}
	return out
}
