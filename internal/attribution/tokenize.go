// Package attribution implements the Attribution Engine (spec.md §4.6): the
// classification layers that decide which Feature(s) an incoming event
// belongs to. Grounded on the original implementation's
// smart-feature-match.py priority ordering and the stop-word tokenizer in
// _legacy/auto-feature-match.py, shared here with internal/planengine's
// drift detector per spec.md §9's supplemental tokenizer note.
package attribution

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9_]{2,}\b`)

// stopWords mirrors the source's stop-word list: common English function
// words plus development-noise tokens ("file", "test", "get", "set", ...)
// that carry no classification signal.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "need": true,
	"dare": true, "ought": true, "used": true, "to": true, "of": true,
	"in": true, "for": true, "on": true, "with": true, "at": true, "by": true,
	"from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true,
	"between": true, "under": true, "again": true, "further": true,
	"then": true, "once": true, "and": true, "but": true, "or": true,
	"nor": true, "so": true, "yet": true, "both": true, "either": true,
	"neither": true, "not": true, "only": true, "own": true, "same": true,
	"than": true, "too": true, "very": true, "just": true, "also": true,
	"now": true, "file": true, "path": true, "dir": true, "directory": true,
	"src": true, "test": true, "tests": true, "spec": true, "true": true,
	"false": true, "null": true, "none": true, "get": true, "set": true,
	"add": true, "remove": true, "update": true,
}

// Tokenize extracts meaningful lowercase words (3+ chars, alphanumeric)
// from text, dropping stop-words. Used by the scored matcher's keyword
// overlap term (§4.6(d)/(e)) and by planengine's drift check (§4.7).
func Tokenize(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if !stopWords[w] {
			out[w] = true
		}
	}
	return out
}

// OverlapCount returns the number of tokens present in both sets.
func OverlapCount(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// SharesAnyToken reports whether a and b share at least one non-stop-word
// token — the drift-detection primitive of spec.md §4.7.
func SharesAnyToken(a, b map[string]bool) bool {
	return OverlapCount(a, b) > 0
}
