package textutil

// CosineSimilarity scores two fingerprints in [0, 1]. A nil or empty
// fingerprint scores 0 against anything.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	// Walk the smaller vector.
	if len(b.tokens) < len(a.tokens) {
		a, b = b, a
	}
	var dot float64
	for token, count := range a.tokens {
		dot += count * b.tokens[token]
	}
	return dot / (a.norm * b.norm)
}

// BestMatch returns the index of the search tile title most similar to query
// and its score. The first title wins ties; -1 is returned when no title
// shares a token with the query.
func BestMatch(query string, titles []string) (int, float64) {
	target := NewFingerprint(query)
	if target == nil {
		return -1, 0
	}
	best, bestScore := -1, 0.0
	for i, title := range titles {
		if score := CosineSimilarity(target, NewFingerprint(title)); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}
