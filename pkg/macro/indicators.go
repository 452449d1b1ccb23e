package macro

import "strings"

// Indicator keys of a MacroRecord
const (
	KeyCPI          = "cpi"
	KeyGDP          = "gdp"
	KeyPolicyRate   = "policy_rate"
	KeyUnemployment = "unemployment"
	KeyPMI          = "pmi"
)

// Providers recorded on macro_series rows
const (
	ProviderFRED    = "fred"
	ProviderFinnhub = "finnhub"
)

// CoreKeys fetched from the observations API
var CoreKeys = []string{KeyCPI, KeyGDP, KeyPolicyRate, KeyUnemployment}

// AllKeys every indicator served from storage
var AllKeys = []string{KeyCPI, KeyGDP, KeyPolicyRate, KeyUnemployment, KeyPMI}

type seriesSpec struct {
	ID        string
	Name      string
	Frequency string
	Unit      string
}

// fredSeries FRED series ids by country and indicator
var fredSeries = map[string]map[string]seriesSpec{
	"US": {
		KeyCPI:          {ID: "CPIAUCSL", Name: "Consumer Price Index", Frequency: "monthly", Unit: "index"},
		KeyGDP:          {ID: "GDP", Name: "Gross Domestic Product", Frequency: "quarterly", Unit: "bn USD"},
		KeyPolicyRate:   {ID: "FEDFUNDS", Name: "Federal Funds Rate", Frequency: "monthly", Unit: "%"},
		KeyUnemployment: {ID: "UNRATE", Name: "Unemployment Rate", Frequency: "monthly", Unit: "%"},
	},
	"EA": {
		KeyCPI:          {ID: "CP0000EZ19M086NEST", Name: "HICP", Frequency: "monthly", Unit: "index"},
		KeyGDP:          {ID: "CLVMNACSCAB1GQEA19", Name: "Real GDP", Frequency: "quarterly", Unit: "mn EUR"},
		KeyPolicyRate:   {ID: "ECBDFR", Name: "ECB Deposit Facility Rate", Frequency: "daily", Unit: "%"},
		KeyUnemployment: {ID: "LRHUTTTTEZM156S", Name: "Unemployment Rate", Frequency: "monthly", Unit: "%"},
	},
	"GB": {
		KeyCPI:          {ID: "GBRCPIALLMINMEI", Name: "Consumer Price Index", Frequency: "monthly", Unit: "index"},
		KeyGDP:          {ID: "NGDPRSAXDCGBQ", Name: "Real GDP", Frequency: "quarterly", Unit: "mn GBP"},
		KeyPolicyRate:   {ID: "IRSTCB01GBM156N", Name: "Bank Rate", Frequency: "monthly", Unit: "%"},
		KeyUnemployment: {ID: "LRHUTTTTGBM156S", Name: "Unemployment Rate", Frequency: "monthly", Unit: "%"},
	},
}

// SeriesCode "US_CPI"
func SeriesCode(country, key string) string {
	return strings.ToUpper(country) + "_" + strings.ToUpper(key)
}

func providerFor(key string) string {
	if key == KeyPMI {
		return ProviderFinnhub
	}
	return ProviderFRED
}
