package core

import (
	"strings"
	"time"
	"unicode"

	"trading_journal/models"
	"trading_journal/pkg/utils"
)

// maxRangeDays longest accepted window per timespan
var maxRangeDays = map[string]int{
	models.TimespanMinute: 7,
	models.TimespanHour:   30,
	models.TimespanDay:    365,
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts RFC3339, "YYYY-MM-DD HH:MM[:SS]" and "YYYY-MM-DD"; zone-less values are UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type window struct {
	from       time.Time
	to         time.Time
	timespan   string
	multiplier int
}

// validateRequest resolves symbols and the window; no I/O.
func validateRequest(req *models.PeriodAnalysisRequest, prefix string) ([]string, window, error) {
	var w window

	raw := append([]string{}, req.Symbols...)
	for _, t := range req.Trades {
		raw = append(raw, t.Ticker)
	}
	var symbols []string
	seen := map[string]bool{}
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		n := utils.NormalizeTicker(r, prefix)
		if !validTicker(n) {
			return nil, w, newValidationError(CodeInvalidSymbol, "invalid symbol %q", r)
		}
		if !seen[n] {
			seen[n] = true
			symbols = append(symbols, n)
		}
	}
	if len(symbols) == 0 {
		return nil, w, newValidationError(CodeMissingSymbols, "symbols or trades with tickers are required")
	}

	if req.From == "" || req.To == "" {
		return nil, w, newValidationError(CodeMissingPeriod, "from and to are required")
	}
	from, ok := ParseTime(req.From)
	if !ok {
		return nil, w, newValidationError(CodeInvalidDate, "invalid from date %q", req.From)
	}
	to, ok := ParseTime(req.To)
	if !ok {
		return nil, w, newValidationError(CodeInvalidDate, "invalid to date %q", req.To)
	}
	if to.Before(from) {
		return nil, w, newValidationError(CodeInvalidDate, "to must not be before from")
	}

	timespan := strings.ToLower(strings.TrimSpace(req.Timespan))
	if timespan == "" {
		timespan = models.TimespanDay
	}
	maxDays, ok := maxRangeDays[timespan]
	if !ok {
		return nil, w, newValidationError(CodeInvalidTimespan, "timespan must be minute, hour or day")
	}
	if to.Sub(from) > time.Duration(maxDays)*24*time.Hour {
		return nil, w, newValidationError(CodeRangeTooLarge, "%s range is limited to %d days", timespan, maxDays)
	}

	multiplier := req.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return symbols, window{from: from, to: to, timespan: timespan, multiplier: multiplier}, nil
}

func validTicker(t string) bool {
	bare := utils.BareTicker(t)
	if bare == "" {
		return false
	}
	for _, r := range bare {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' {
			return false
		}
	}
	return true
}
