package detectors

import (
	"github.com/jonathan/ats-checker/internal/types"
)

// JobKeywords returns the known skills and role terms a job posting
// mentions, in order of first mention. One-letter terms such as "c" and "r"
// are skipped because prose mentions them by accident. A positive limit caps
// the list.
func (r *Registry) JobKeywords(posting *types.ResumeText, limit int) []string {
	vocabulary := r.jobVocabulary()

	seen := make(map[string]bool)
	var out []string
	for _, line := range posting.Lines() {
		for _, m := range vocabulary.find(line.Tokens) {
			term := m.phrase.text
			if len(term) < 2 || seen[term] {
				continue
			}
			seen[term] = true
			out = append(out, term)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}

// jobVocabulary merges the skill lexicons with every role preset.
func (r *Registry) jobVocabulary() *lexicon {
	var entries []string
	for _, l := range []*lexicon{r.rules.technical, r.rules.soft} {
		for _, p := range l.phrases {
			entries = append(entries, p.text)
		}
	}
	for _, role := range Roles() {
		entries = append(entries, roleKeywords[role]...)
	}
	return newLexicon(entries)
}
