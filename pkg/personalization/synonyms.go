package personalization

import (
	"fmt"
	"regexp"
	"strings"
)

// SynonymRule maps phrases matching Pattern to Label.
type SynonymRule struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`

	re *regexp.Regexp
}

// DefaultSynonyms common journal phrasings of the same mistake.
var DefaultSynonyms = []SynonymRule{
	{Pattern: `(нет|без|отсутств\pL*)\s+стоп`, Label: "отсутствие стоп-лосса"},
	{Pattern: `стоп\pL*.*(широк|дал[её]к|слишком больш)`, Label: "слишком широкий стоп"},
	{Pattern: `(поздн\pL*|опозда\pL*)\s+(вход|вош)`, Label: "поздний вход"},
	{Pattern: `(ранн\pL*|преждевремен\pL*|поспешн\pL*)\s+(выход|закрыт)`, Label: "преждевременный выход"},
	{Pattern: `(овертрейд|пересиживан|слишком много сделок|overtrad)`, Label: "овертрейдинг"},
	{Pattern: `(против тренда|контртренд)`, Label: "торговля против тренда"},
	{Pattern: `(эмоци|fomo|страх|жадност|тильт)`, Label: "эмоциональные решения"},
	{Pattern: `(риск|лот|объ[её]м)\pL*.*(завыш|превыш|слишком)`, Label: "завышенный риск на сделку"},
	{Pattern: `(игнор\pL*|не уч\pL*).*(новост|макро)`, Label: "игнорирование новостей"},
	{Pattern: `усредн`, Label: "усреднение убыточной позиции"},
	{Pattern: `(наруш\pL*|не соблюд\pL*).*(план|правил)`, Label: "нарушение торгового плана"},
}

func compileRules(rules []SynonymRule) ([]SynonymRule, error) {
	out := make([]SynonymRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Pattern == "" || rule.Label == "" {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("synonym %q: %w", rule.Pattern, err)
		}
		rule.re = re
		out = append(out, rule)
	}
	return out, nil
}

// NormalizePhrase lower-cases phrase and returns the label of the first
// matching rule, or the lower-cased phrase itself.
func NormalizePhrase(phrase string, rules []SynonymRule) string {
	key := strings.ToLower(strings.TrimSpace(phrase))
	for _, rule := range rules {
		re := rule.re
		if re == nil {
			var err error
			if re, err = regexp.Compile(rule.Pattern); err != nil {
				continue
			}
		}
		if re.MatchString(key) {
			return rule.Label
		}
	}
	return key
}
