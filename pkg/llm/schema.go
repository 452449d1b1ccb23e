package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema versions of the structured answer.
const (
	SchemaV1 = "v1"
	SchemaV2 = "v2"
)

// Insight structured analysis returned by the model. The last three fields
// belong to schema v2 only.
type Insight struct {
	Summary         string   `json:"summary" validate:"required"`
	Strengths       []string `json:"strengths" validate:"required,dive,required"`
	Weaknesses      []string `json:"weaknesses" validate:"required,dive,required"`
	Recommendations []string `json:"recommendations" validate:"required,dive,required"`
	RiskAssessment  string   `json:"riskAssessment,omitempty"`
	Assumptions     []string `json:"assumptions,omitempty" validate:"omitempty,dive,required"`

	MarketContext string `json:"marketContext,omitempty"`
	TradeAnalysis string `json:"tradeAnalysis,omitempty"`
	Psychology    string `json:"psychology,omitempty"`
}

type v2Fields struct {
	MarketContext string `validate:"required"`
	TradeAnalysis string `validate:"required"`
	Psychology    string `validate:"required"`
}

var validate = validator.New()

// ParseKind discriminates ParseResult.
type ParseKind int

const (
	ParseOK ParseKind = iota
	ParseError
	ValidationError
)

func (k ParseKind) String() string {
	switch k {
	case ParseOK:
		return "ok"
	case ParseError:
		return "parse_error"
	default:
		return "validation_error"
	}
}

// ParseResult Insight is set only for ParseOK; Reason otherwise.
type ParseResult struct {
	Kind    ParseKind
	Insight *Insight
	Reason  string
}

// Parse decodes text as an Insight and validates it against version.
func Parse(text, version string) ParseResult {
	body, ok := extractJSONObject(text)
	if !ok {
		return ParseResult{Kind: ParseError, Reason: "no JSON object in response"}
	}
	var insight Insight
	if err := json.Unmarshal([]byte(body), &insight); err != nil {
		return ParseResult{Kind: ParseError, Reason: err.Error()}
	}
	insight.trim()
	if err := insight.Validate(version); err != nil {
		return ParseResult{Kind: ValidationError, Reason: err.Error()}
	}
	return ParseResult{Kind: ParseOK, Insight: &insight}
}

// Validate checks the fields required by version.
func (i *Insight) Validate(version string) error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("schema %s: %w", version, err)
	}
	if version == SchemaV1 {
		return nil
	}
	if err := validate.Struct(v2Fields{
		MarketContext: i.MarketContext,
		TradeAnalysis: i.TradeAnalysis,
		Psychology:    i.Psychology,
	}); err != nil {
		return fmt.Errorf("schema %s: %w", version, err)
	}
	return nil
}

func (i *Insight) trim() {
	i.Summary = strings.TrimSpace(i.Summary)
	i.RiskAssessment = strings.TrimSpace(i.RiskAssessment)
	i.MarketContext = strings.TrimSpace(i.MarketContext)
	i.TradeAnalysis = strings.TrimSpace(i.TradeAnalysis)
	i.Psychology = strings.TrimSpace(i.Psychology)
	for _, list := range [][]string{i.Strengths, i.Weaknesses, i.Recommendations, i.Assumptions} {
		for j := range list {
			list[j] = strings.TrimSpace(list[j])
		}
	}
}

// extractJSONObject tolerates code fences and prose around one object.
func extractJSONObject(text string) (string, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
