package compliance

import (
	"math"
	"regexp"
	"strings"

	"storefront-service/internal/rules"
)

// DefaultHideThreshold is the rule confidence at or above which a product is
// hidden without asking the LLM.
const DefaultHideThreshold = 0.7

// additionalHitBonus is added per matched pattern beyond the strongest one.
const additionalHitBonus = 0.05

// TriggeredRule records one keyword hit
type TriggeredRule struct {
	Category string  `json:"category"`
	Keyword  string  `json:"keyword"`
	Weight   float64 `json:"weight"`
}

// Analysis is the outcome of the rule-based classifier
type Analysis struct {
	ShouldHide     bool            `json:"shouldHide"`
	Category       string          `json:"category,omitempty"`
	Confidence     float64         `json:"confidence"`
	TriggeredRules []TriggeredRule `json:"triggeredRules"`
}

// Flagged reports whether any rule fired at all, however weakly
func (a Analysis) Flagged() bool {
	return len(a.TriggeredRules) > 0
}

type compiledPattern struct {
	rules.Pattern
	re *regexp.Regexp
}

type compiledCategory struct {
	rule     *rules.CategoryRule
	patterns []compiledPattern
}

// Engine evaluates product text against the regulated-category table.
// It holds only compiled, read-only state and is safe for concurrent use.
type Engine struct {
	threshold  float64
	categories []compiledCategory
}

// NewEngine compiles the shared rule table. A non-positive threshold selects
// DefaultHideThreshold.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultHideThreshold
	}
	e := &Engine{threshold: threshold}
	for i := range rules.Categories {
		rule := &rules.Categories[i]
		cc := compiledCategory{rule: rule}
		for _, p := range rule.Patterns {
			cc.patterns = append(cc.patterns, compiledPattern{Pattern: p, re: rules.KeywordPattern(p.Keyword)})
		}
		e.categories = append(e.categories, cc)
	}
	return e
}

func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Analyze scores the product name and description against every category.
// The highest-confidence category wins; ties go to the earlier table entry.
func (e *Engine) Analyze(productName, description string) Analysis {
	text := strings.TrimSpace(productName + "\n" + description)
	result := Analysis{TriggeredRules: []TriggeredRule{}}
	if text == "" {
		return result
	}

	for _, cc := range e.categories {
		var best float64
		hits := 0
		for _, p := range cc.patterns {
			if !rules.Mentions(p.re, text) {
				continue
			}
			hits++
			if p.Weight > best {
				best = p.Weight
			}
			result.TriggeredRules = append(result.TriggeredRules, TriggeredRule{
				Category: cc.rule.Category,
				Keyword:  p.Keyword,
				Weight:   p.Weight,
			})
		}
		if hits == 0 {
			continue
		}
		confidence := roundConfidence(math.Min(1.0, best+float64(hits-1)*additionalHitBonus))
		if confidence > result.Confidence {
			result.Confidence = confidence
			result.Category = cc.rule.Category
		}
	}

	result.ShouldHide = result.Confidence >= e.threshold
	return result
}

func roundConfidence(v float64) float64 {
	return math.Round(v*100) / 100
}
