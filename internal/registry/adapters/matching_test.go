package adapters

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`[,\s]+a\.?\s?s\.?$`),
	regexp.MustCompile(`[,\s]+s\.?\s?r\.?\s?o\.?$`),
	regexp.MustCompile(`[,\s]+asa?$`),
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "ALZA", "alza"},
		{"strips joint stock suffix", "Alza a.s.", "alza"},
		{"strips suffix after comma", "Alza, a.s.", "alza"},
		{"strips sro suffix", "Muj Obchod s.r.o.", "muj obchod"},
		{"folds diacritics", "Škoda Auto", "skoda auto"},
		{"collapses whitespace", "  Twin   Peaks  ", "twin peaks"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input, testSuffixes))
		})
	}
}

func TestSimilarity_EqualAfterStripping(t *testing.T) {
	// Names identical after suffix stripping must score exactly 1.0.
	assert.Equal(t, 1.0, Similarity("Alza", "Alza a.s.", testSuffixes))
	assert.Equal(t, 1.0, Similarity("Alza a.s.", "ALZA", testSuffixes))
	assert.Equal(t, 1.0, Similarity("Škoda Auto", "skoda auto", testSuffixes))
}

func TestSimilarity_Containment(t *testing.T) {
	// One name containing the other scores min(len)/max(len).
	got := Similarity("Alza", "Alza Holding", testSuffixes)
	assert.InDelta(t, 4.0/12.0, got, 1e-9)
}

func TestSimilarity_DiceFallback(t *testing.T) {
	t.Run("unrelated names score low", func(t *testing.T) {
		got := Similarity("Apple", "Microsoft", testSuffixes)
		assert.Less(t, got, 0.3)
	})

	t.Run("near-identical names score high", func(t *testing.T) {
		// gorila vs gorily: bigrams go,or,ri,il shared out of 5+5.
		got := Similarity("Gorila", "Gorily", nil)
		assert.InDelta(t, 0.8, got, 1e-9)
	})

	t.Run("result always within unit interval", func(t *testing.T) {
		pairs := [][2]string{
			{"a", "b"},
			{"Kofola", "Kofila"},
			{"x", "xyzzy"},
			{"Dlouhé Jméno Firmy", "Jiná Firma"},
		}
		for _, p := range pairs {
			got := Similarity(p[0], p[1], testSuffixes)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	})
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	// Nothing can be asserted about an empty name.
	assert.Equal(t, 0.0, Similarity("", "Alza", testSuffixes))
	assert.Equal(t, 0.0, Similarity("Alza", "", testSuffixes))
	assert.Equal(t, 0.0, Similarity("", "", testSuffixes))
}

func TestDiceCoefficient_SingleRune(t *testing.T) {
	// Single-rune strings have no bigrams and cannot match.
	assert.Equal(t, 0.0, diceCoefficient("a", "b"))
	assert.Equal(t, 0.0, diceCoefficient("a", "ab"))
}
