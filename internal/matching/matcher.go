// Package matching pairs internal catalog records with external content records
// using SKU equality, SKU containment and brand/model/size token overlap.
package matching

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"storefront-service/internal/rules"
)

// Signals reported on a match
const (
	SignalSKUExact   = "sku_exact"
	SignalSKUPartial = "sku_partial"
	SignalBrand      = "brand"
	SignalModel      = "model"
	SignalSize       = "size"
	SignalKeywords   = "keywords"
)

const (
	scoreSKUExact   = 1.0
	scoreSKUPartial = 0.8
	weightBrand     = 0.4
	weightModel     = 0.3
	weightSize      = 0.15
	weightKeywords  = 0.15

	minPartialSKULength = 3
)

// DefaultThreshold is the minimum score for a pair to be accepted
const DefaultThreshold = 0.5

// Record is one catalog entry on either side of a match
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku,omitempty"`
}

// Match pairs one internal record with one external record
type Match struct {
	Internal Record   `json:"internal"`
	External Record   `json:"external"`
	Score    float64  `json:"score"`
	Signals  []string `json:"matchedOn"`
}

type Result struct {
	Matches   []Match  `json:"matches"`
	Unmatched []Record `json:"unmatched"`
	Skipped   int      `json:"skipped"`
}

type Config struct {
	Threshold float64
}

func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

type brandPattern struct {
	canonical string
	re        *regexp.Regexp
}

// Matcher is stateless after construction and safe for concurrent use
type Matcher struct {
	cfg    Config
	brands []brandPattern
}

func NewMatcher(cfg Config) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	vocabulary := make(map[string]struct{}, len(rules.Brands)+len(rules.BrandAliases))
	for _, b := range rules.Brands {
		vocabulary[b] = struct{}{}
	}
	for alias := range rules.BrandAliases {
		vocabulary[alias] = struct{}{}
	}
	names := make([]string, 0, len(vocabulary))
	for b := range vocabulary {
		names = append(names, b)
	}
	// longest phrase first so "geek bar" wins over a shorter overlapping entry
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	m := &Matcher{cfg: cfg}
	for _, b := range names {
		m.brands = append(m.brands, brandPattern{
			canonical: Fold(rules.CanonicalBrand(b)),
			re:        rules.KeywordPattern(Fold(b)),
		})
	}
	return m
}

func (m *Matcher) Threshold() float64 {
	return m.cfg.Threshold
}

// features are the pre-extracted tokens of one record
type features struct {
	record   Record
	sku      string
	brand    string
	models   map[string]struct{}
	sizes    map[string]struct{}
	keywords map[string]struct{}
}

func (m *Matcher) extract(r Record) (features, bool) {
	folded := Fold(r.Name)
	f := features{record: r, sku: NormalizeSKU(r.SKU)}
	if !hasAlnum(folded) && f.sku == "" {
		return f, false
	}

	for _, b := range m.brands {
		if b.re.MatchString(folded) {
			f.brand = b.canonical
			break
		}
	}

	tokens := tokenize(folded)
	f.models = extractModels(tokens)
	f.sizes = extractSizes(folded)
	f.keywords = make(map[string]struct{})
	for _, tok := range tokens {
		c := compact(tok)
		if len(c) < 3 || isNumeric(c) {
			continue
		}
		if _, stop := rules.StopWords[c]; stop {
			continue
		}
		f.keywords[c] = struct{}{}
	}
	return f, true
}

// Score compares two records and returns the pair score with the signals that produced it
func (m *Matcher) Score(internal, external Record) (float64, []string) {
	a, ok := m.extract(internal)
	if !ok {
		return 0, nil
	}
	b, ok := m.extract(external)
	if !ok {
		return 0, nil
	}
	return score(a, b)
}

func score(a, b features) (float64, []string) {
	skuScore, skuSignal := skuStage(a.sku, b.sku)

	var tokenScore float64
	var signals []string
	if a.brand != "" && a.brand == b.brand {
		tokenScore += weightBrand
		signals = append(signals, SignalBrand)
	}
	if intersects(a.models, b.models) {
		tokenScore += weightModel
		signals = append(signals, SignalModel)
	}
	if intersects(a.sizes, b.sizes) {
		tokenScore += weightSize
		signals = append(signals, SignalSize)
	}
	if len(a.keywords) > 0 {
		shared := 0
		for k := range a.keywords {
			if _, ok := b.keywords[k]; ok {
				shared++
			}
		}
		if shared > 0 {
			tokenScore += float64(shared) / float64(len(a.keywords)) * weightKeywords
			signals = append(signals, SignalKeywords)
		}
	}
	tokenScore = round(math.Min(1.0, tokenScore))

	if skuScore > 0 && skuScore >= tokenScore {
		return skuScore, []string{skuSignal}
	}
	return tokenScore, signals
}

func skuStage(a, b string) (float64, string) {
	if a == "" || b == "" {
		return 0, ""
	}
	if a == b {
		return scoreSKUExact, SignalSKUExact
	}
	if len(a) >= minPartialSKULength && len(b) >= minPartialSKULength &&
		(strings.Contains(a, b) || strings.Contains(b, a)) {
		return scoreSKUPartial, SignalSKUPartial
	}
	return 0, ""
}

type candidate struct {
	internal int
	external int
	score    float64
	signals  []string
}

// Match scores every internal/external pair and assigns greedily by score.
// Each external record is consumed at most once and each internal record
// receives at most one match. Records with neither a usable name nor a SKU
// are skipped and counted.
func (m *Matcher) Match(internal, external []Record) Result {
	result := Result{Matches: []Match{}, Unmatched: []Record{}}

	in := make([]features, 0, len(internal))
	for _, r := range internal {
		f, ok := m.extract(r)
		if !ok {
			result.Skipped++
			continue
		}
		in = append(in, f)
	}
	ex := make([]features, 0, len(external))
	for _, r := range external {
		f, ok := m.extract(r)
		if !ok {
			result.Skipped++
			continue
		}
		ex = append(ex, f)
	}

	var candidates []candidate
	for i := range in {
		for j := range ex {
			s, signals := score(in[i], ex[j])
			if s < m.cfg.Threshold {
				continue
			}
			candidates = append(candidates, candidate{internal: i, external: j, score: s, signals: signals})
		}
	}
	// stable sort keeps input order among equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	usedInternal := make([]bool, len(in))
	usedExternal := make([]bool, len(ex))
	for _, c := range candidates {
		if usedInternal[c.internal] || usedExternal[c.external] {
			continue
		}
		usedInternal[c.internal] = true
		usedExternal[c.external] = true
		result.Matches = append(result.Matches, Match{
			Internal: in[c.internal].record,
			External: ex[c.external].record,
			Score:    c.score,
			Signals:  c.signals,
		})
	}

	for i, f := range in {
		if !usedInternal[i] {
			result.Unmatched = append(result.Unmatched, f.record)
		}
	}
	return result
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
