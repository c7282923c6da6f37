package domain

// DefaultLanguage is assumed when an entry or query carries no language tag.
const DefaultLanguage = "lt"

// QAEntry is the read-only projection of a curated question/answer pair that
// the core needs for indexing. The answer text itself stays behind the
// QAStore port; the core only resolves it when a match is confirmed.
type QAEntry struct {
	ID         string      `json:"qa_id"`
	Question   string      `json:"question,omitempty"` // canonical phrasing, optional
	Language   string      `json:"language"`
	Variations []Variation `json:"variations,omitempty"`
}

// EffectiveLanguage returns the entry's language tag, falling back to the
// default when unset.
func (e QAEntry) EffectiveLanguage() string {
	if e.Language == "" {
		return DefaultLanguage
	}
	return e.Language
}

// HasQuestions reports whether the entry contributes at least one vector to
// the QA collection. An entry may have only variations and no canonical
// question.
func (e QAEntry) HasQuestions() bool {
	return e.Question != "" || len(e.Variations) > 0
}

// Variation is an alternative phrasing of a QAEntry's question. Each
// variation is indexed as its own vector, tagged with the owning entry.
type Variation struct {
	ID       int64  `json:"id"`
	QAID     string `json:"qa_id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

// MatchResult identifies the QA pair that won two-phase matching.
// It is only produced for matches that cleared the re-ranking threshold;
// a low-confidence best candidate yields no result at all.
type MatchResult struct {
	QAID     string `json:"qa_id"`
	Language string `json:"language"`
	// Distance is 1 - best cosine similarity; lower is better.
	Distance float64 `json:"distance"`
}
