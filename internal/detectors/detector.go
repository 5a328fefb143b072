// Package detectors implements the deterministic section detectors. Each
// detector is a pure function of the normalized resume text and its
// parameters, so detectors can run concurrently over the same input.
package detectors

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/ats-checker/internal/config"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// Params carries the per-request inputs of a detector run.
type Params struct {
	// JobKeywords is the optional keyword list of the target job.
	JobKeywords []string
}

// Detector scores one resume section.
type Detector interface {
	Kind() sections.Kind
	Detect(text *types.ResumeText, params Params) (types.SectionAnalysis, error)
}

// Registry maps each section kind to its detector.
type Registry struct {
	rules     *ruleSet
	detectors map[sections.Kind]Detector
}

var constructors = map[sections.Kind]func(*ruleSet) Detector{
	sections.Summary:              func(r *ruleSet) Detector { return &summaryDetector{rules: r} },
	sections.ContactDetails:       func(r *ruleSet) Detector { return &contactDetector{rules: r} },
	sections.FormattingLayout:     func(r *ruleSet) Detector { return &formattingDetector{rules: r} },
	sections.ATSKeywords:          func(r *ruleSet) Detector { return &keywordDetector{rules: r} },
	sections.SkillsRelevance:      func(r *ruleSet) Detector { return &skillsDetector{rules: r} },
	sections.AchievementsVsDuties: func(r *ruleSet) Detector { return &achievementsDetector{rules: r} },
	sections.QuantifiableImpact:   func(r *ruleSet) Detector { return &quantifiableDetector{rules: r} },
	sections.WeakVerbs:            func(r *ruleSet) Detector { return &weakVerbDetector{rules: r} },
	sections.Buzzwords:            func(r *ruleSet) Detector { return &buzzwordDetector{rules: r} },
	sections.Teamwork:             func(r *ruleSet) Detector { return &teamworkDetector{rules: r} },
	sections.Dates:                func(r *ruleSet) Detector { return &datesDetector{rules: r} },
	sections.GrammarSpelling:      func(r *ruleSet) Detector { return &grammarDetector{rules: r} },
	sections.LineByLine:           func(r *ruleSet) Detector { return &lineDetector{rules: r} },
	sections.EducationClarity:     func(r *ruleSet) Detector { return &educationDetector{rules: r} },
	sections.UnnecessarySections:  func(r *ruleSet) Detector { return &unnecessaryDetector{rules: r} },
}

// NewRegistry builds a detector for every section kind from rules.
func NewRegistry(rules config.Rules) (*Registry, error) {
	rs, err := newRuleSet(rules)
	if err != nil {
		return nil, err
	}

	reg := &Registry{rules: rs, detectors: make(map[sections.Kind]Detector, len(constructors))}
	for _, kind := range sections.All() {
		ctor, ok := constructors[kind]
		if !ok {
			return nil, fmt.Errorf("no detector registered for section %q", kind)
		}
		reg.detectors[kind] = ctor(rs)
	}
	return reg, nil
}

// Register replaces the detector for d.Kind(). Call it before the registry
// is shared.
func (r *Registry) Register(d Detector) error {
	if !d.Kind().Valid() {
		return &sections.UnknownSectionError{Name: string(d.Kind())}
	}
	r.detectors[d.Kind()] = d
	return nil
}

// Get returns the detector for kind.
func (r *Registry) Get(kind sections.Kind) (Detector, error) {
	d, ok := r.detectors[kind]
	if !ok {
		return nil, &sections.UnknownSectionError{Name: string(kind)}
	}
	return d, nil
}

// Kinds lists the registered kinds in report order.
func (r *Registry) Kinds() []sections.Kind {
	kinds := make([]sections.Kind, 0, len(r.detectors))
	for _, k := range sections.All() {
		if _, ok := r.detectors[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Run executes the detector for kind.
func (r *Registry) Run(kind sections.Kind, text *types.ResumeText, params Params) (types.SectionAnalysis, error) {
	d, err := r.Get(kind)
	if err != nil {
		return types.SectionAnalysis{}, err
	}
	return d.Detect(text, params)
}

// Dialect returns the configured English dialect.
func (r *Registry) Dialect() string {
	return r.rules.dialect.name
}

// ruleSet is the compiled, read-only form of config.Rules shared by all detectors.
type ruleSet struct {
	tuning      config.Tuning
	headerLines int
	role        string

	weakVerbs    *lexicon
	strongVerbs  *lexicon
	buzzwords    *lexicon
	teamwork     *lexicon
	achievements *lexicon
	duties       *lexicon
	technical    *lexicon
	soft         *lexicon
	personal     *lexicon
	nonStandard  *lexicon

	typos      map[string]string
	dialect    dialect
	vocabulary map[string]bool // nil without a vocabulary file
}

// dialect holds the spelling variants flagged for one English dialect.
type dialect struct {
	name     string
	variants map[string]string
	accepted []string
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case "", "uk":
		variants := make(map[string]string, len(americanToBritish)+len(americanToBritishIze))
		for k, v := range americanToBritish {
			variants[k] = v
		}
		for k, v := range americanToBritishIze {
			variants[k] = v
		}
		return dialect{name: "uk", variants: variants}, nil
	case "indian":
		variants := make(map[string]string, len(americanToBritish))
		for k, v := range americanToBritish {
			variants[k] = v
		}
		return dialect{name: "indian", variants: variants, accepted: indianAccepted}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported dialect %q", name)
	}
}

func newRuleSet(rules config.Rules) (*ruleSet, error) {
	d, err := dialectFor(rules.Dialect)
	if err != nil {
		return nil, err
	}

	lx := rules.Lexicons
	phrases := make([]string, 0, len(nonStandardPhrases))
	for p := range nonStandardPhrases {
		phrases = append(phrases, p)
	}

	rs := &ruleSet{
		tuning:       rules.Tuning,
		headerLines:  rules.HeaderLines,
		role:         rules.Role,
		weakVerbs:    newLexicon(orDefault(lx.WeakVerbs, defaultWeakVerbs)),
		strongVerbs:  newLexicon(orDefault(lx.StrongVerbs, defaultStrongVerbs)),
		buzzwords:    newLexicon(orDefault(lx.Buzzwords, defaultBuzzwords)),
		teamwork:     newLexicon(orDefault(lx.TeamworkIndicators, defaultTeamworkIndicators)),
		achievements: newLexicon(orDefault(lx.AchievementIndicators, defaultAchievementIndicators)),
		duties:       newLexicon(defaultDutyIndicators),
		technical:    newLexicon(orDefault(lx.TechnicalSkills, defaultTechnicalSkills)),
		soft:         newLexicon(orDefault(lx.SoftSkills, defaultSoftSkills)),
		personal:     newLexicon(personalDataMarkers),
		nonStandard:  newLexicon(phrases),
		typos:        parseTypos(orDefault(lx.Typos, defaultTypos)),
		dialect:      d,
	}
	if rs.headerLines <= 0 {
		rs.headerLines = 8
	}
	if rs.role == "" {
		rs.role = "general"
	}

	if rules.VocabularyFile != "" {
		vocab, err := loadVocabulary(rules.VocabularyFile)
		if err != nil {
			return nil, err
		}
		for _, w := range d.accepted {
			vocab[w] = true
		}
		rs.vocabulary = vocab
	}
	return rs, nil
}

func orDefault(custom, fallback []string) []string {
	if len(custom) > 0 {
		return custom
	}
	return fallback
}

// parseTypos reads "wrong=right" entries. A bare word is flagged without a suggestion.
func parseTypos(entries []string) map[string]string {
	typos := make(map[string]string, len(entries))
	for _, e := range entries {
		wrong, right, _ := strings.Cut(e, "=")
		wrong = strings.ToLower(strings.TrimSpace(wrong))
		if wrong == "" {
			continue
		}
		typos[wrong] = strings.TrimSpace(right)
	}
	return typos
}

// loadVocabulary reads one lowercase word per line; blank lines and lines
// starting with '#' are skipped.
func loadVocabulary(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer func() { _ = f.Close() }()

	vocab := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		vocab[w] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return vocab, nil
}
