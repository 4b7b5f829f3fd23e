// Package similarity compares game titles via bag-of-words Jaccard
// similarity. It backs two decisions: whether a record discovered
// during a traversal describes the same game as the canonical title,
// and whether two independently imported games should be merged.
package similarity

import (
	"strings"
	"unicode"
)

// Confidence thresholds used by callers. The asymmetry is intentional:
// it is better to leave two near-duplicate entries than to wrongly
// merge two different games.
const (
	// LowConfidence is the minimum similarity to accept any merge at
	// all; below it, records are treated as different games.
	LowConfidence = 0.67

	// HighConfidence is the similarity required to auto-merge two
	// independently discovered records into one game.
	HighConfidence = 0.9
)

// Bag is a set of lowercase word tokens.
type Bag map[string]struct{}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// BagOfWords tokenizes a title into its bag of words: alphanumeric
// runs (underscores and inner hyphens included), case-folded, with ё
// normalised to е so Russian spelling variants collide.
func BagOfWords(text string) Bag {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "ё", "е")

	bag := make(Bag)
	runes := []rune(text)
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := strings.Trim(string(runes[start:end]), "-")
		if tok != "" {
			bag[tok] = struct{}{}
		}
		start = -1
	}
	for i, r := range runes {
		if isTokenRune(r) || r == '-' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(runes))
	return bag
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either bag is empty.
func Jaccard(a, b Bag) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TitlesSimilar reports whether two titles clear the low-confidence
// threshold.
func TitlesSimilar(a, b string) bool {
	return Jaccard(BagOfWords(a), BagOfWords(b)) > LowConfidence
}
