package macro

import (
	"trading_journal/models"
	"trading_journal/pkg/utils"
)

// YoYChange change against the observation twelve periods earlier
type YoYChange struct {
	Abs float64 `json:"abs"`
	Pct float64 `json:"pct"`
}

// YoY nil for fewer than 13 points or a zero base value.
func YoY(points []models.MacroPoint) *YoYChange {
	if len(points) < 13 {
		return nil
	}
	last := points[len(points)-1].Value
	old := points[len(points)-13].Value
	if old == 0 {
		return nil
	}
	abs := last - old
	return &YoYChange{Abs: abs, Pct: abs / old * 100}
}

// IndicatorSummary compact form of one series for prompts
type IndicatorSummary struct {
	Last   float64    `json:"last"`
	Date   string     `json:"date"`
	Points int        `json:"points"`
	Unit   string     `json:"unit,omitempty"`
	YoY    *YoYChange `json:"yoy,omitempty"`
}

// Summarize last value and YoY per indicator; empty series are skipped.
func Summarize(record models.MacroRecord) map[string]IndicatorSummary {
	out := make(map[string]IndicatorSummary, len(record))
	for key, series := range record {
		if series == nil || len(series.Series) == 0 {
			continue
		}
		last := series.Series[len(series.Series)-1]
		summary := IndicatorSummary{
			Last:   utils.RoundToDecimalPlaces(last.Value, 4),
			Date:   last.Time,
			Points: len(series.Series),
			Unit:   series.Meta.Unit,
		}
		if yoy := YoY(series.Series); yoy != nil {
			summary.YoY = &YoYChange{
				Abs: utils.RoundToDecimalPlaces(yoy.Abs, 4),
				Pct: utils.RoundToDecimalPlaces(yoy.Pct, 2),
			}
		}
		out[key] = summary
	}
	return out
}
