package adapters

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName prepares a company name for comparison: lowercase, strip
// the adapter's legal-form suffixes, fold diacritics, collapse whitespace.
// "Alza a.s." and "ALZA" both normalize to "alza".
func NormalizeName(name string, suffixPatterns []*regexp.Regexp) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, p := range suffixPatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = foldDiacritics(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,.")
}

// foldDiacritics maps accented letters onto their base form so "Škoda"
// and "Skoda" compare equal. Transformers carry state, so build per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Similarity scores two company names in [0,1] after normalization:
// equal names score 1.0; containment scores min(len)/max(len); everything
// else falls back to the Dice coefficient over character bigrams.
func Similarity(query, candidate string, suffixPatterns []*regexp.Regexp) float64 {
	q := NormalizeName(query, suffixPatterns)
	c := NormalizeName(candidate, suffixPatterns)

	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}

	if strings.Contains(q, c) || strings.Contains(c, q) {
		ql, cl := len([]rune(q)), len([]rune(c))
		if ql > cl {
			return float64(cl) / float64(ql)
		}
		return float64(ql) / float64(cl)
	}

	return diceCoefficient(q, c)
}

// diceCoefficient computes 2*|bigrams(a) ∩ bigrams(b)| / (|bigrams(a)| +
// |bigrams(b)|) treating bigrams as multisets. Strings shorter than one
// bigram score 0.
func diceCoefficient(a, b string) float64 {
	ab := bigrams(a)
	bb := bigrams(b)
	if len(ab) == 0 && len(bb) == 0 {
		return 0
	}

	var totalA, totalB, overlap int
	for _, n := range ab {
		totalA += n
	}
	for gram, n := range bb {
		totalB += n
		if m, ok := ab[gram]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}
	if totalA+totalB == 0 {
		return 0
	}
	return 2 * float64(overlap) / float64(totalA+totalB)
}

// bigrams returns the multiset of rune pairs in s.
func bigrams(s string) map[string]int {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	grams := make(map[string]int, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		grams[string(r[i:i+2])]++
	}
	return grams
}
