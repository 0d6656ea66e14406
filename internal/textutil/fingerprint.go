package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// tokenSplitPattern matches runs of anything that is not a letter or digit.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize splits text into lowercase tokens. Single-rune tokens are dropped
// unless they are digits, which matter for titles like "Show 2".
func Tokenize(text string) []string {
	lowered := strings.ToLower(NormalizeNFC(text))
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		if utf8.RuneCountInString(token) < 2 && (token[0] < '0' || token[0] > '9') {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}
