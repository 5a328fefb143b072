// Package augment attaches model-written feedback to weak sections of an
// analysis result. It never changes scores.
package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/ats-checker/internal/cache"
	"github.com/jonathan/ats-checker/internal/llm"
	"github.com/jonathan/ats-checker/internal/logger"
	"github.com/jonathan/ats-checker/internal/prompts"
	"github.com/jonathan/ats-checker/internal/schemas"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultThreshold   = 7.0
	DefaultMaxSections = 5
	DefaultConcurrency = 3

	maxContextFindings = 12
	maxResumeChars     = 6000
)

// Request is one section sent to the generator.
type Request struct {
	Section       sections.Kind
	Score         float64
	PromptContext string
}

// Response is the generator outcome for one Request.
type Response struct {
	Section sections.Kind
	Content *types.AIContent
	Err     error
}

// Options configures an Augmenter.
type Options struct {
	Generator llm.Generator
	// Generate is passed to every call unchanged.
	Generate    llm.GenerateConfig
	Provider    llm.Provider
	Threshold   float64
	MaxSections int
	Concurrency int
	Dialect     string
	// Cache keeps replies per result fingerprint and section. Optional.
	Cache  *cache.Cache[types.AIContent]
	Logger *zap.Logger
}

// Augmenter generates AIContent for the weakest sections of a result.
type Augmenter struct {
	opts   Options
	logger *zap.Logger
}

// New validates opts and fills defaults.
func New(opts Options) (*Augmenter, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("augment: generator is required")
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxSections <= 0 {
		opts.MaxSections = DefaultMaxSections
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Generate.Model == "" {
		opts.Generate.Model = llm.DefaultModel
	}
	opts.Generate.JSON = true
	if opts.Provider == "" {
		opts.Provider = llm.ProviderGemini
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = logger.WithFields(log, logger.AIFields(string(opts.Provider), opts.Generate.Model)...)
	return &Augmenter{opts: opts, logger: log}, nil
}

// Model returns the model every call uses.
func (a *Augmenter) Model() string {
	return a.opts.Generate.Model
}

// Targets picks the sections to augment: those scoring below threshold,
// lowest first, ties in report order, at most limit.
func Targets(result *types.AnalysisResult, threshold float64, limit int) []sections.Kind {
	ordered := result.OrderedSections()
	weak := make([]types.SectionAnalysis, 0, len(ordered))
	for _, s := range ordered {
		if s.Score < threshold {
			weak = append(weak, s)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })
	if len(weak) > limit {
		weak = weak[:limit]
	}
	kinds := make([]sections.Kind, len(weak))
	for i, s := range weak {
		kinds[i] = s.Section
	}
	return kinds
}

// Requests builds the prompt context for every target section of result.
func (a *Augmenter) Requests(text *types.ResumeText, result *types.AnalysisResult) []Request {
	targets := Targets(result, a.opts.Threshold, a.opts.MaxSections)
	reqs := make([]Request, 0, len(targets))
	for _, kind := range targets {
		s, _ := result.Section(kind)
		reqs = append(reqs, Request{
			Section:       kind,
			Score:         s.Score,
			PromptContext: promptContext(text, s),
		})
	}
	return reqs
}

// Augment generates content for every target section. It is all or
// nothing: the first failure cancels the remaining calls and is returned as
// *UnavailableError.
func (a *Augmenter) Augment(ctx context.Context, text *types.ResumeText, result *types.AnalysisResult) (map[sections.Kind]types.AIContent, error) {
	reqs := a.Requests(text, result)
	out := make(map[sections.Kind]types.AIContent, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for _, req := range reqs {
		g.Go(func() error {
			resp := a.Generate(gctx, result.Fingerprint, req)
			if resp.Err != nil {
				return resp.Err
			}
			mu.Lock()
			out[req.Section] = *resp.Content
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	a.logger.Debug("augmented sections", zap.Int("count", len(out)))
	return out, nil
}

// Generate runs one request. Replies are cached under the result
// fingerprint when a cache is configured.
func (a *Augmenter) Generate(ctx context.Context, fingerprint string, req Request) Response {
	compute := func(ctx context.Context) (types.AIContent, error) {
		return a.generate(ctx, req)
	}

	var (
		content types.AIContent
		err     error
	)
	if a.opts.Cache != nil && fingerprint != "" {
		key := cache.Fingerprint(fingerprint, string(req.Section), a.opts.Generate.Model, a.opts.Dialect)
		content, err = a.opts.Cache.GetOrCompute(ctx, key, compute)
	} else {
		content, err = compute(ctx)
	}
	if err != nil {
		a.logger.Warn("section augmentation failed",
			zap.String(logger.FieldSection, string(req.Section)),
			zap.Error(err),
		)
		return Response{Section: req.Section, Err: &UnavailableError{Section: req.Section, Cause: err}}
	}
	return Response{Section: req.Section, Content: &content}
}

func (a *Augmenter) generate(ctx context.Context, req Request) (types.AIContent, error) {
	instructions, err := prompts.Section(req.Section, a.opts.Dialect, req.Score)
	if err != nil {
		return types.AIContent{}, err
	}
	prompt := llm.BuildStructuredPrompt(llm.SectionFeedbackSchema(instructions), req.PromptContext)

	raw, err := a.opts.Generator.Generate(ctx, prompt, a.opts.Generate)
	if err != nil {
		return types.AIContent{}, err
	}

	content, err := Decode(raw)
	if err != nil {
		a.logger.Debug("rejected ai reply",
			zap.String(logger.FieldSection, string(req.Section)),
			zap.String("reply", logger.TruncateForLog(raw, 300)),
		)
		return types.AIContent{}, &InvalidResponseError{Section: req.Section, Cause: err}
	}
	content.Model = a.opts.Generate.Model
	return content, nil
}

// Decode parses a model reply into AIContent after checking it against the
// ai_content schema.
func Decode(raw string) (types.AIContent, error) {
	body := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.AIContent, []byte(body)); err != nil {
		return types.AIContent{}, err
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		return types.AIContent{}, fmt.Errorf("reply is not a JSON object: %w", err)
	}

	var content types.AIContent
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &content,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return types.AIContent{}, err
	}
	if err := decoder.Decode(generic); err != nil {
		return types.AIContent{}, fmt.Errorf("failed to decode reply: %w", err)
	}

	content.Feedback = strings.TrimSpace(content.Feedback)
	content.Rewrite = strings.TrimSpace(content.Rewrite)
	suggestions := content.Suggestions[:0]
	for _, s := range content.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	content.Suggestions = suggestions
	return content, nil
}

func promptContext(text *types.ResumeText, s types.SectionAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Section: %s\nScore: %.1f/10\nRationale: %s\n", s.Section.Title(), s.Score, s.Rationale)

	n := 0
	for _, f := range s.Findings {
		if f.Severity == types.SeverityPositive {
			continue
		}
		if n == 0 {
			sb.WriteString("\nFindings:\n")
		}
		if n == maxContextFindings {
			break
		}
		n++
		if f.Evidence != nil {
			fmt.Fprintf(&sb, "- [%s] line %d: %s (%q)\n", f.Severity, f.Evidence.Line, f.Message, f.Evidence.Text)
		} else {
			fmt.Fprintf(&sb, "- [%s] %s\n", f.Severity, f.Message)
		}
	}

	resume := text.Text()
	if len(resume) > maxResumeChars {
		resume = resume[:maxResumeChars] + "\n[truncated]"
	}
	sb.WriteString("\nResume:\n")
	sb.WriteString(resume)
	return sb.String()
}
