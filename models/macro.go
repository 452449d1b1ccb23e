package models

// MacroPoint one observation, Time formatted YYYY-MM-DD
type MacroPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type MacroMeta struct {
	Country string `json:"country"`
	Unit    string `json:"unit,omitempty"`
	Name    string `json:"name,omitempty"`
}

// MacroSeries observations of one indicator for one country
type MacroSeries struct {
	Series []MacroPoint `json:"series"`
	Meta   MacroMeta    `json:"meta"`
}

// MacroRecord indicator key (cpi, gdp, ...) to series; any key may be absent
type MacroRecord map[string]*MacroSeries

// EconomicEvent scheduled calendar release
type EconomicEvent struct {
	Time     string   `json:"time"`
	Country  string   `json:"country"`
	Event    string   `json:"event"`
	Actual   *float64 `json:"actual,omitempty"`
	Estimate *float64 `json:"estimate,omitempty"`
	Prev     *float64 `json:"prev,omitempty"`
	Impact   string   `json:"impact,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}
