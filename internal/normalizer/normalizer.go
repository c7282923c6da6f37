package normalizer

import (
	"strings"
	"unicode"
)

// englishStopWords is the closed set stripped from English question text
// before retrieval embedding. Question words carry almost no signal for
// bag-of-phrasings retrieval; the re-ranking phase still sees them because
// it embeds the unnormalized text.
var englishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has",
	"he", "in", "is", "it", "its", "of", "on", "that", "the", "to", "was",
	"were", "will", "with", "what", "when", "where", "who", "whom", "why",
	"how",
}

// Normalizer applies the deterministic text-cleaning pass used before
// embedding question text for retrieval: lowercase, strip punctuation,
// collapse whitespace, and optionally remove stop words.
//
// Stop-word removal is a per-language policy: only languages with a
// registered set are stripped. Languages without one (Lithuanian included)
// pass through with cleaning only, since an English stop-word list applied
// to other languages removes real words.
type Normalizer struct {
	stopWords map[string]map[string]struct{}
}

// New creates a Normalizer with the default per-language stop-word policy:
// English stripped, everything else clean-only.
func New() *Normalizer {
	n := &Normalizer{stopWords: make(map[string]map[string]struct{})}
	n.Register("en", englishStopWords)
	return n
}

// NewWithoutStopWords creates a Normalizer that only cleans, for callers that
// want stop-word removal disabled across all languages.
func NewWithoutStopWords() *Normalizer {
	return &Normalizer{stopWords: make(map[string]map[string]struct{})}
}

// Register installs a stop-word set for a language, replacing any previous
// set for that language.
func (n *Normalizer) Register(language string, words []string) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	n.stopWords[strings.ToLower(language)] = set
}

// Normalize lowercases the text, strips every non-word non-space rune,
// removes the language's stop words if a set is registered, and collapses
// runs of whitespace. Total over all inputs: the empty string normalizes to
// the empty string.
func (n *Normalizer) Normalize(text, language string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	set := n.stopWords[strings.ToLower(language)]
	if len(set) == 0 {
		return strings.Join(words, " ")
	}

	kept := words[:0]
	for _, w := range words {
		if _, stop := set[w]; !stop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
