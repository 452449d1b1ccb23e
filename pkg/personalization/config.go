package personalization

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Weights struct {
	BaseV2               float64 `yaml:"base_v2"`
	BaseV1               float64 `yaml:"base_v1"`
	SymbolBoost          float64 `yaml:"symbol_boost"`
	DirectionBoost       float64 `yaml:"direction_boost"`
	RecommendationFactor float64 `yaml:"recommendation_factor"`
	WindowDays           int     `yaml:"window_days"`
	MaxRecords           int     `yaml:"max_records"`
	MaxSymbols           int     `yaml:"max_symbols"`
	TopPerSymbol         int     `yaml:"top_per_symbol"`
	MaxChars             int     `yaml:"max_chars"`
}

// Config loaded once at startup, read-only afterwards.
type Config struct {
	Weights  Weights       `yaml:"weights"`
	Synonyms []SynonymRule `yaml:"synonyms"`
}

func DefaultWeights() Weights {
	return Weights{
		BaseV2:               1.0,
		BaseV1:               0.7,
		SymbolBoost:          1.5,
		DirectionBoost:       1.2,
		RecommendationFactor: 0.5,
		WindowDays:           90,
		MaxRecords:           50,
		MaxSymbols:           3,
		TopPerSymbol:         3,
		MaxChars:             800,
	}
}

func DefaultConfig() *Config {
	rules, _ := compileRules(DefaultSynonyms)
	return &Config{Weights: DefaultWeights(), Synonyms: rules}
}

// LoadConfig defaults merged with the YAML file at path. An empty path
// yields the defaults. A synonyms list in the file replaces the default one.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personalization config: %w", err)
	}
	return mergeYAML(cfg, data)
}

func mergeYAML(cfg *Config, data []byte) (*Config, error) {
	override := Config{Weights: cfg.Weights}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse personalization config: %w", err)
	}
	cfg.Weights = override.Weights
	if len(override.Synonyms) > 0 {
		rules, err := compileRules(override.Synonyms)
		if err != nil {
			return nil, err
		}
		cfg.Synonyms = rules
	}
	cfg.Weights.sanitize()

	logrus.WithFields(logrus.Fields{
		"synonyms":   len(cfg.Synonyms),
		"windowDays": cfg.Weights.WindowDays,
		"maxChars":   cfg.Weights.MaxChars,
	}).Info("personalization config loaded")
	return cfg, nil
}

func (w *Weights) sanitize() {
	def := DefaultWeights()
	if w.WindowDays <= 0 {
		w.WindowDays = def.WindowDays
	}
	if w.MaxRecords <= 0 {
		w.MaxRecords = def.MaxRecords
	}
	if w.MaxSymbols <= 0 {
		w.MaxSymbols = def.MaxSymbols
	}
	if w.TopPerSymbol <= 0 {
		w.TopPerSymbol = def.TopPerSymbol
	}
	if w.MaxChars <= 0 {
		w.MaxChars = def.MaxChars
	}
}
