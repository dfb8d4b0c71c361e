package decision

import "strings"

// stopwords dropped before comparing question content. Kept small on
// purpose: over-aggressive stopword lists make short questions compare
// as empty sets.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"do": {}, "does": {}, "did": {}, "can": {}, "could": {}, "would": {},
	"you": {}, "your": {}, "it": {}, "its": {}, "this": {}, "that": {},
	"of": {}, "in": {}, "on": {}, "for": {}, "to": {}, "and": {}, "or": {},
	"what": {}, "how": {}, "why": {}, "when": {}, "which": {}, "about": {},
	"me": {}, "we": {}, "be": {}, "at": {}, "with": {}, "as": {}, "by": {},
}

// suffixes stripped for light stemming, longest first so "described"
// loses "ed" only after "es" fails to apply cleanly.
var stemSuffixes = []string{"ing", "ers", "ies", "ed", "es", "er", "s"}

// ContentWords normalizes text into its set of content words:
// lower-case, punctuation stripped, stopwords dropped, light suffix
// stemming.
func ContentWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		w := b.String()
		b.Reset()
		if _, stop := stopwords[w]; stop {
			return
		}
		words[stem(w)] = struct{}{}
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return words
}

func stem(w string) string {
	for _, suf := range stemSuffixes {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			return w[:len(w)-len(suf)]
		}
	}
	return w
}

// Overlap returns the content-word overlap ratio between two texts,
// measured against the smaller set so a short question embedded in a
// longer rephrasing still registers as a repeat.
func Overlap(a, b string) float64 {
	wa := ContentWords(a)
	wb := ContentWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	small, large := wa, wb
	if len(wb) < len(wa) {
		small, large = wb, wa
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// IsDuplicateQuestion reports whether candidate repeats any prior
// question at or above the threshold. The guard is deliberately
// stricter than the generator's own judgment: generated text is
// untrusted input here.
func IsDuplicateQuestion(prior []string, candidate string, threshold float64) bool {
	for _, q := range prior {
		if Overlap(q, candidate) >= threshold {
			return true
		}
	}
	return false
}
