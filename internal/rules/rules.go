// Package rules holds the declarative keyword tables shared by the product
// matcher and the compliance engine.
package rules

import (
	"regexp"
	"strings"

	"storefront-service/internal/models"
)

// Regulated category names
const (
	CategoryTHCA         = "THCA"
	CategoryKratom       = "Kratom"
	CategorySevenHydroxy = "7-Hydroxy"
	CategoryNicotine     = "Nicotine"
)

// Pattern is a keyword or phrase and the confidence it contributes on a hit
type Pattern struct {
	Keyword string
	Weight  float64
}

// CategoryRule is one row of the compliance table
type CategoryRule struct {
	Category              string
	SubstanceType         string
	Patterns              []Pattern
	RestrictedStates      []string
	MinimumAge            int
	RequiresLabTesting    bool
	RequiresBatchTracking bool
	WarningLabels         []string
	Shipping              models.ShippingRestrictions
	// Tobacco marks categories the LLM may report as tobacco
	Tobacco bool
}

// Categories is the static regulated-category table, in tie-break order.
var Categories = []CategoryRule{
	{
		Category:      CategoryNicotine,
		SubstanceType: "nicotine",
		Patterns: []Pattern{
			{"nicotine pouch", 0.95},
			{"nicotine pouches", 0.95},
			{"nicotine", 0.9},
			{"zyn", 0.9},
			{"snus", 0.9},
			{"e-liquid", 0.85},
			{"eliquid", 0.85},
			{"vape juice", 0.85},
			{"salt nic", 0.85},
			{"disposable vape", 0.85},
			{"e-cig", 0.8},
			{"tobacco", 0.6},
			{"hookah tobacco", 0.9},
			{"shisha", 0.75},
			{"cigarillo", 0.75},
			{"vape", 0.4},
		},
		MinimumAge: 21,
		WarningLabels: []string{
			"WARNING: This product contains nicotine. Nicotine is an addictive chemical.",
		},
		Shipping: models.ShippingRestrictions{
			AdultSignatureRequired: true,
			PACTAct:                true,
			ProhibitedCarriers:     []string{"USPS"},
			DomesticOnly:           true,
		},
		Tobacco: true,
	},
	{
		Category:      CategoryTHCA,
		SubstanceType: "cannabinoid",
		Patterns: []Pattern{
			{"thca", 0.95},
			{"thc-a", 0.95},
			{"delta-8", 0.9},
			{"delta 8", 0.9},
			{"delta-9", 0.9},
			{"delta 9", 0.9},
			{"hhc", 0.85},
			{"thc", 0.8},
			{"hemp flower", 0.75},
			{"live resin", 0.5},
			{"pre-roll", 0.5},
			{"hemp", 0.3},
		},
		RestrictedStates:      []string{"AK", "AR", "DE", "HI", "ID", "IA", "KS", "MN", "MS", "NE", "OR", "RI", "SD", "UT", "VT"},
		MinimumAge:            21,
		RequiresLabTesting:    true,
		RequiresBatchTracking: true,
		WarningLabels: []string{
			"Keep out of reach of children and pets.",
			"This product has not been evaluated by the FDA.",
			"May cause a positive result on drug tests.",
		},
		Shipping: models.ShippingRestrictions{
			AdultSignatureRequired: true,
			DomesticOnly:           true,
		},
	},
	{
		Category:      CategoryKratom,
		SubstanceType: "botanical",
		Patterns: []Pattern{
			{"kratom", 0.95},
			{"mitragyna", 0.95},
			{"mitragynine", 0.9},
			{"maeng da", 0.8},
		},
		RestrictedStates:      []string{"AL", "AR", "IN", "RI", "VT", "WI"},
		MinimumAge:            21,
		RequiresLabTesting:    true,
		RequiresBatchTracking: true,
		WarningLabels: []string{
			"This product has not been evaluated by the FDA.",
			"Not for use by pregnant or nursing women.",
		},
		Shipping: models.ShippingRestrictions{
			DomesticOnly:        true,
			MaxQuantityPerOrder: 10,
		},
	},
	{
		Category:      CategorySevenHydroxy,
		SubstanceType: "alkaloid",
		Patterns: []Pattern{
			{"7-hydroxymitragynine", 0.95},
			{"7-hydroxy", 0.95},
			{"7-oh", 0.9},
			{"7oh", 0.9},
		},
		RestrictedStates:      []string{"AL", "AR", "FL", "IN", "LA", "OH", "RI", "VT", "WI"},
		MinimumAge:            21,
		RequiresLabTesting:    true,
		RequiresBatchTracking: true,
		WarningLabels: []string{
			"This product has not been evaluated by the FDA.",
			"Potent alkaloid. Do not exceed the recommended serving.",
		},
		Shipping: models.ShippingRestrictions{
			AdultSignatureRequired: true,
			DomesticOnly:           true,
			MaxQuantityPerOrder:    5,
		},
	},
}

// Brands is the brand vocabulary recognised in product names.
// Multi-word entries are matched as phrases.
var Brands = []string{
	"roor", "grav", "puffco", "raw", "zig-zag", "zig zag", "elements", "juicy jay's",
	"high tide", "empire glassworks", "mobius", "illadelph", "sesh supply", "hemper",
	"storz & bickel", "storz bickel", "volcano", "pax", "dynavap", "arizer", "lookah",
	"yocan", "dr. dabber", "smok", "geek vape", "vaporesso", "santa cruz shredder",
	"sharpstone", "cookies", "blazy susan", "vibes", "ooze", "kandypens", "cloud 9",
	"ispire", "eyce", "stündenglass", "stundenglass", "scorch", "clipper",
	"bic", "futurola", "chongz", "higher standards", "diamond glass", "pulsar",
	"boveda", "integra", "zyn", "juul", "geek bar", "elf bar", "lost mary",
}

// BrandAliases maps variant spellings to a canonical brand name.
var BrandAliases = map[string]string{
	"zig zag":      "zig-zag",
	"storz bickel": "storz & bickel",
	"stundenglass": "stündenglass",
	"geekvape":     "geek vape",
	"dr dabber":    "dr. dabber",
	"juicy jays":   "juicy jay's",
	"elfbar":       "elf bar",
	"geekbar":      "geek bar",
}

// CanonicalBrand folds a brand spelling onto its canonical form
func CanonicalBrand(brand string) string {
	b := strings.ToLower(strings.TrimSpace(brand))
	if canonical, ok := BrandAliases[b]; ok {
		return canonical
	}
	return b
}

// StopWords are ignored when computing keyword overlap.
var StopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "of": {}, "in": {}, "by": {},
	"a": {}, "an": {}, "to": {}, "new": {}, "set": {}, "pack": {}, "piece": {},
}

// Lookup returns the rule for a category name, case-insensitively.
func Lookup(category string) (*CategoryRule, bool) {
	for i := range Categories {
		if strings.EqualFold(Categories[i].Category, category) {
			return &Categories[i], true
		}
	}
	return nil, false
}

// IsRegulated reports whether the category name is in the table.
func IsRegulated(category string) bool {
	_, ok := Lookup(category)
	return ok
}

// KeywordPattern compiles a case-insensitive, word-bounded matcher for a keyword.
// Boundaries are enforced as "not a letter or digit" so hyphenated and
// punctuated keywords behave.
func KeywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(keyword) + `($|[^\p{L}\p{N}])`)
}

// negatedSuffix is what follows a keyword that is being ruled out, as in
// "nicotine-free" or "THC free".
var negatedSuffix = regexp.MustCompile(`(?i)^[\s-]*free\b`)

// Mentions reports whether re matches text at least once outside a negated
// "-free" form. re is expected to come from KeywordPattern.
func Mentions(re *regexp.Regexp, text string) bool {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if !negatedSuffix.MatchString(text[loc[1]:]) {
			return true
		}
	}
	return false
}
