package reasoning

import "strings"

// stopwords excluded from keyword extraction. Small on purpose; the
// fallback only has to be deterministic and roughly on-topic.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true,
	"then": true, "this": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "all": true, "any": true, "each": true,
	"their": true, "every": true, "should": true, "must": true, "user": true,
}

// ExtractKeywords returns up to limit significant words from text in
// first-appearance order with duplicates removed. Used as the
// deterministic fallback when the reasoning capability is unavailable or
// returns malformed output.
func ExtractKeywords(text string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(raw, ".,;:!?\"'()[]{}")
		if len(word) < 3 || stopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
