package detectors

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// phrase is a lexicon entry split into tokens.
type phrase struct {
	text   string
	tokens []string
}

// lexicon matches single and multi-word phrases against token streams.
type lexicon struct {
	phrases []phrase // longest first
	words   map[string]bool
}

func newLexicon(entries []string) *lexicon {
	l := &lexicon{words: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, e := range entries {
		toks := ingestion.Tokenize(e)
		if len(toks) == 0 {
			continue
		}
		key := strings.Join(toks, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		l.phrases = append(l.phrases, phrase{text: key, tokens: toks})
		if len(toks) == 1 {
			l.words[toks[0]] = true
		}
	}
	sort.SliceStable(l.phrases, func(i, j int) bool {
		if len(l.phrases[i].tokens) != len(l.phrases[j].tokens) {
			return len(l.phrases[i].tokens) > len(l.phrases[j].tokens)
		}
		return l.phrases[i].text < l.phrases[j].text
	})
	return l
}

// has reports whether token is a single-word entry.
func (l *lexicon) has(token string) bool {
	return l.words[token]
}

// phraseMatch is a lexicon hit at a token index.
type phraseMatch struct {
	phrase phrase
	index  int
}

// find returns non-overlapping matches in token order, preferring the longest
// phrase at each position.
func (l *lexicon) find(tokens []string) []phraseMatch {
	var matches []phraseMatch
	for i := 0; i < len(tokens); {
		matched := false
		for _, p := range l.phrases {
			if hasTokensAt(tokens, i, p.tokens) {
				matches = append(matches, phraseMatch{phrase: p, index: i})
				i += len(p.tokens)
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return matches
}

// countDistinct returns the number of distinct phrases found in tokens.
func (l *lexicon) countDistinct(tokens []string) int {
	seen := make(map[string]bool)
	for _, m := range l.find(tokens) {
		seen[m.phrase.text] = true
	}
	return len(seen)
}

func hasTokensAt(tokens []string, i int, want []string) bool {
	if i+len(want) > len(tokens) {
		return false
	}
	for j, w := range want {
		if tokens[i+j] != w {
			return false
		}
	}
	return true
}

// spanFor locates needle in line, ignoring case, falling back to the whole
// line.
func spanFor(line types.Line, needle string) *types.Span {
	if needle == "" {
		return spanAt(line, 0, len(line.Text))
	}
	start, end := indexFold(line.Text, needle)
	if start < 0 {
		return spanAt(line, 0, len(line.Text))
	}
	return spanAt(line, start, end)
}

// spanAt cites the bytes [start, end) of the normalized line.
func spanAt(line types.Line, start, end int) *types.Span {
	offset, length := line.RawRange(start, end)
	return &types.Span{
		Line:   line.Number,
		Offset: offset,
		Length: length,
		Column: start,
		Text:   line.Text[start:end],
	}
}

// indexFold returns the byte range of the first case-insensitive match of
// needle in s, or -1, -1. Both bounds fall on rune boundaries of s.
func indexFold(s, needle string) (int, int) {
	for i := 0; i < len(s); {
		if end, ok := prefixFold(s[i:], needle); ok {
			return i, i + end
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// prefixFold reports whether s starts with needle under simple case folding
// and returns the length of the matched prefix of s.
func prefixFold(s, needle string) (int, bool) {
	i := 0
	for _, want := range needle {
		if i >= len(s) {
			return 0, false
		}
		got, size := utf8.DecodeRuneInString(s[i:])
		if !equalFoldRune(got, want) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}

// builder accumulates findings for one section.
type builder struct {
	kind     sections.Kind
	findings []types.Finding
}

func newBuilder(kind sections.Kind) *builder {
	return &builder{kind: kind, findings: []types.Finding{}}
}

func (b *builder) add(rule string, sev types.Severity, evidence *types.Span, message string) {
	b.findings = append(b.findings, types.Finding{
		RuleID:   string(b.kind) + "." + rule,
		Message:  message,
		Evidence: evidence,
		Severity: sev,
	})
}

func (b *builder) result(score float64, rationale string) types.SectionAnalysis {
	return types.SectionAnalysis{
		Section:   b.kind,
		Score:     types.ClampScore(score),
		MaxScore:  types.MaxSectionScore,
		Findings:  b.findings,
		Rationale: rationale,
	}
}

// block is a run of lines under one recognized heading.
type block struct {
	name    string // canonical heading, "" for the preamble
	heading *types.Line
	lines   []types.Line
}

var headingIndex = func() map[string]string {
	idx := make(map[string]string)
	for canonical, aliases := range headingAliases {
		for _, a := range aliases {
			idx[a] = canonical
		}
	}
	return idx
}()

var headingTrim = regexp.MustCompile(`[#*=_:|\-\s]+`)

// headingOf reports the canonical heading a line names.
func headingOf(text string) (string, bool) {
	if len(text) > 60 {
		return "", false
	}
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.ReplaceAll(t, "&", "and")
	t = strings.Trim(headingTrim.ReplaceAllString(t, " "), " ")
	if t == "" || len(strings.Fields(t)) > 5 {
		return "", false
	}
	canonical, ok := headingIndex[t]
	return canonical, ok
}

// splitBlocks groups lines by heading. Lines before the first heading form
// the preamble block.
func splitBlocks(lines []types.Line) []block {
	blocks := []block{{}}
	for _, l := range lines {
		if name, ok := headingOf(l.Text); ok {
			heading := l
			blocks = append(blocks, block{name: name, heading: &heading})
			continue
		}
		cur := &blocks[len(blocks)-1]
		cur.lines = append(cur.lines, l)
	}
	return blocks
}

// linesUnder returns the body lines of every block with one of names.
func linesUnder(blocks []block, names ...string) []types.Line {
	var out []types.Line
	for _, b := range blocks {
		for _, n := range names {
			if b.name == n {
				out = append(out, b.lines...)
			}
		}
	}
	return out
}

// hasHeading reports whether any block has the canonical name.
func hasHeading(blocks []block, name string) (*types.Line, bool) {
	for _, b := range blocks {
		if b.name == name && b.heading != nil {
			return b.heading, true
		}
	}
	return nil, false
}

// bodyTokens returns the tokens of a line without its bullet marker.
func bodyTokens(l types.Line) []string {
	if ingestion.IsBulletLine(l.Text) {
		return ingestion.Tokenize(ingestion.StripBullet(l.Text))
	}
	return l.Tokens
}

// looksLikeActionVerb accepts known strong verbs and past-tense words.
func looksLikeActionVerb(word string, strong *lexicon) bool {
	if strong.has(word) {
		return true
	}
	if len(word) < 5 || !strings.HasSuffix(word, "ed") {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// stem strips common English suffixes so inflections compare equal.
func stem(w string) string {
	if len(w) <= 3 || strings.HasSuffix(w, "ss") {
		return w
	}
	for _, suf := range []string{"ations", "ation", "ments", "ment", "ings", "ing", "ies", "ers", "er", "ed", "es", "s"} {
		if !strings.HasSuffix(w, suf) || len(w)-len(suf) < 3 {
			continue
		}
		base := w[:len(w)-len(suf)]
		if suf == "ies" {
			return base + "y"
		}
		return strings.TrimSuffix(base, "e")
	}
	return strings.TrimSuffix(w, "e")
}

// tokenMatches compares a document token with a keyword token.
func tokenMatches(doc, kw string) bool {
	if doc == kw || stem(doc) == stem(kw) {
		return true
	}
	if len(kw) < 4 || !strings.ContainsAny(doc, "-/.") {
		return false
	}
	// "kubernetes-based", "node.js" and "ci/cd" match their parts
	for _, part := range strings.FieldsFunc(doc, func(r rune) bool { return r == '-' || r == '/' || r == '.' }) {
		if part == kw || stem(part) == stem(kw) {
			return true
		}
	}
	return false
}

// containsKeyword finds the keyword tokens as a run in tokens.
func containsKeyword(tokens, kw []string) bool {
	if len(kw) == 0 {
		return false
	}
	for i := 0; i+len(kw) <= len(tokens); i++ {
		ok := true
		for j := range kw {
			if !tokenMatches(tokens[i+j], kw[j]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// normalizeKeywords lowercases, trims and deduplicates keywords in order.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.Join(strings.Fields(strings.ToLower(k)), " ")
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// metricSpans returns merged byte ranges of quantifiable results in s.
func metricSpans(s string) [][2]int {
	var spans [][2]int
	for _, re := range quantifiablePatterns {
		for _, m := range re.FindAllStringIndex(s, -1) {
			spans = append(spans, [2]int{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	merged := [][2]int{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp[0] <= last[1] {
			if sp[1] > last[1] {
				last[1] = sp[1]
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

var quantifiablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:%|percent\b)`),
	regexp.MustCompile(`(?i)[$£€₹]\s?\d[\d,]*(?:\.\d+)?(?:\s*(?:k|m|bn|million|billion|thousand|lakh|crore)\b)?`),
	regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s*(?:dollars|usd|gbp|eur|inr)\b`),
	regexp.MustCompile(`(?i)\b\d[\d,]*\+?\s*(?:people|users|customers|clients|engineers|developers|members|employees|students|projects|applications|systems|services|countries|markets|teams|stores|products|requests|transactions|hours|servers)\b`),
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:x|times|fold)\b`),
	regexp.MustCompile(`(?i)\b(?:increased|decreased|reduced|improved|grew|cut|boosted|raised|lowered)\s+(?:[a-z-]+\s+){0,3}by\s+\d[\d,.]*`),
	regexp.MustCompile(`(?i)\bfrom\s+[$£€₹]?\d[\d,.]*\s*\S*\s+to\s+[$£€₹]?\d[\d,.]*`),
}
