package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{name: "clean term", in: "Micronaut", want: "Micronaut", changed: false},
		{name: "digits and spaces", in: "Dune 2", want: "Dune 2", changed: false},
		{name: "punctuation", in: "Micr0naut!", want: "Micr0naut", changed: true},
		{name: "only punctuation", in: "!!!", want: "", changed: true},
		{name: "empty", in: "", want: "", changed: true},
		{name: "accents", in: "Café", want: "Caf", changed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Micronaut", "micronaut"), 1e-9)
	assert.Zero(t, Similarity("abc", ""))
	assert.Zero(t, Similarity("Dune", "xyz"))

	// "cat" has 4 trigrams, "cats" has 5, and they share 3.
	assert.InDelta(t, 0.5, Similarity("cat", "cats"), 1e-9)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("The Micronaut Guide", "micronaut"))
	assert.True(t, Matches("Micro-naut Handbook", "Micronaut"))
	assert.True(t, Matches("Micronaut", "Micr0naut"))
	assert.True(t, Matches("Anything", ""))
	assert.False(t, Matches("Scary Nights", "Micronaut"))
}

func TestMatches_IgnoresSpacingAndPunctuationOnBothSides(t *testing.T) {
	long := "The Complete Scary Nights Omnibus Collection"
	assert.Less(t, Similarity(long, "ScaryNights"), DefaultThreshold)

	assert.True(t, Matches(long, "ScaryNights"))
	assert.True(t, Matches(long, "scary-nights"))
	assert.False(t, Matches(long, "Scary Days"))
}

func TestRank(t *testing.T) {
	titles := []string{"Scary Nights", "Micronaut in Action", "Micronaut", "Gardening"}

	got := Rank(titles, "Micronaut", func(s string) string { return s })

	assert.Equal(t, []string{"Micronaut", "Micronaut in Action"}, got)
}
