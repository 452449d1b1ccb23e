package indicators

import (
	"math"

	"trading_journal/models"
)

// nanSeries returns n undefined values.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SMA trailing arithmetic mean; the first period-1 values are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA seeded with the first finite value, k = 2/(period+1).
// Non-finite inputs after the seed repeat the previous value.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	k := 2.0 / float64(period+1)
	prev := math.NaN()
	for i, v := range values {
		if !isFinite(prev) {
			if isFinite(v) {
				prev = v
				out[i] = prev
			}
			continue
		}
		if isFinite(v) {
			prev = prev*(1-k) + v*k
		}
		out[i] = prev
	}
	return out
}

// RSI Wilder's relative strength index aligned to closes; the first period values are NaN.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := splitDelta(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		gain, loss := splitDelta(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func splitDelta(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) float64 {
	rs := 100.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}

// TrueRange per bar; the first bar only has high-low.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.H - c.L
		if i > 0 {
			prevClose := candles[i-1].C
			tr = math.Max(tr, math.Max(math.Abs(c.H-prevClose), math.Abs(c.L-prevClose)))
		}
		out[i] = tr
	}
	return out
}

// ATR Wilder average true range; the first period-1 values are NaN.
func ATR(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}

	tr := TrueRange(candles)
	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[period-1] = atr

	p := float64(period)
	for i := period; i < len(candles); i++ {
		atr = atr*(p-1)/p + tr[i]/p
		out[i] = atr
	}
	return out
}

// FindCandleIndexAtOrBefore index of the latest candle with t <= ts.
// Returns 0 when ts precedes every candle and -1 for an empty series.
func FindCandleIndexAtOrBefore(candles []models.Candle, ts int64) int {
	if len(candles) == 0 {
		return -1
	}
	if ts < candles[0].T {
		return 0
	}
	last := len(candles) - 1
	if ts >= candles[last].T {
		return last
	}

	lo, hi := 0, last
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if candles[mid].T <= ts {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Closes extracts close prices.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.C
	}
	return out
}
