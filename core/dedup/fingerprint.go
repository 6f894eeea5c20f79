package dedup

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

// stopwords is the light stopword set stripped from titles before
// fingerprinting. Deliberately small: over-stripping short headlines makes
// unrelated stories collide.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

// NormalizeTitle lowercases a title, strips punctuation and stopwords and
// returns the remaining tokens in original order
func NormalizeTitle(title string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// RegistrableDomain extracts the host of a URL without the www prefix.
// An unparsable or empty URL yields an empty domain, which still
// fingerprints consistently.
func RegistrableDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Fingerprint computes the deterministic content hash of an item: FNV-1a
// over the sorted normalized title tokens plus the registrable domain.
// Sorting makes token order irrelevant so minor headline reshuffles from
// different outlets about the same story still collide.
func Fingerprint(title, rawURL string) string {
	tokens := NormalizeTitle(title)
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)

	h := fnv.New64a()
	for _, tok := range sorted {
		h.Write([]byte(tok))
		h.Write([]byte{0})
	}
	h.Write([]byte(RegistrableDomain(rawURL)))

	return fmt.Sprintf("%016x", h.Sum64())
}

// TokenSimilarity returns the Jaccard similarity of two token lists,
// treating them as sets
func TokenSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}
