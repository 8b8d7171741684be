package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var quoteReplacer = strings.NewReplacer(
	"″", `"`,
	"“", `"`,
	"”", `"`,
	"′′", `"`,
	"''", `"`,
)

// sizePattern captures a number followed by a unit, e.g. 18mm, 3.5 g, 14"
var sizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mm|cm|inches|inch|in|"|ml|grams|gram|g|oz|ct|count|packs|pack|pk)(?:[^\p{L}\p{N}]|$)`)

// sizeToken matches a whole token that is a size, so it is not mistaken for a model number
var sizeToken = regexp.MustCompile(`^\d+(?:\.\d+)?(?:mm|cm|inches|inch|in|ml|grams|gram|g|oz|ct|count|packs|pack|pk)$`)

var unitAliases = map[string]string{
	"inches": "in",
	"inch":   "in",
	`"`:      "in",
	"grams":  "g",
	"gram":   "g",
	"count":  "ct",
	"packs":  "pk",
	"pack":   "pk",
}

// Fold applies NFKD, strips combining marks, lower-cases and collapses whitespace
func Fold(s string) string {
	s = quoteReplacer.Replace(s)
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}

// NormalizeSKU lower-cases a SKU and removes all whitespace
func NormalizeSKU(sku string) string {
	return strings.Join(strings.Fields(Fold(sku)), "")
}

// tokenize splits folded text into word tokens; hyphens and dots inside a token are kept
func tokenize(folded string) []string {
	raw := strings.FieldsFunc(folded, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.')
	})
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.Trim(tok, "-.")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func compact(token string) string {
	return strings.NewReplacer("-", "", ".", "").Replace(token)
}

// extractSizes returns canonical size tokens such as "18mm" or "14in"
func extractSizes(folded string) map[string]struct{} {
	sizes := make(map[string]struct{})
	for _, m := range sizePattern.FindAllStringSubmatch(folded, -1) {
		unit := m[2]
		if alias, ok := unitAliases[unit]; ok {
			unit = alias
		}
		sizes[m[1]+unit] = struct{}{}
	}
	return sizes
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// extractModels returns alphanumeric reference tokens that are not sizes
func extractModels(tokens []string) map[string]struct{} {
	models := make(map[string]struct{})
	for _, tok := range tokens {
		c := compact(tok)
		if len(c) < 2 || !hasLetterAndDigit(c) {
			continue
		}
		if sizeToken.MatchString(c) {
			continue
		}
		models[c] = struct{}{}
	}
	return models
}
