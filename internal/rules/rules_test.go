package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentions(t *testing.T) {
	re := KeywordPattern("nicotine")

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "plain mention", text: "Nicotine Pouches 6mg", want: true},
		{name: "end of text", text: "contains nicotine", want: true},
		{name: "hyphenated free", text: "Nicotine-free herbal blend", want: false},
		{name: "spaced free", text: "nicotine free", want: false},
		{name: "free as a prefix of another word", text: "nicotine freebase salts", want: true},
		{name: "negated then mentioned", text: "nicotine-free or nicotine 3mg", want: true},
		{name: "inside another word", text: "antinicotinewash", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mentions(re, tt.text))
		})
	}
}

func TestLookup(t *testing.T) {
	rule, ok := Lookup("kratom")
	require.True(t, ok)
	assert.Equal(t, CategoryKratom, rule.Category)

	_, ok = Lookup("Glassware")
	assert.False(t, ok)
	assert.True(t, IsRegulated("7-HYDROXY"))
}

func TestCanonicalBrand(t *testing.T) {
	assert.Equal(t, "geek vape", CanonicalBrand(" GeekVape "))
	assert.Equal(t, "raw", CanonicalBrand("RAW"))
}
