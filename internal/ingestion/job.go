package ingestion

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jonathan/ats-checker/internal/fetch"
)

// JobPosting is the text of a job advert, the source of job keywords.
type JobPosting struct {
	Source   string
	Platform fetch.Platform
	Text     string
}

// JobLoader reads job postings from local files or job board URLs.
type JobLoader struct {
	Fetch *fetch.Options
	// Renderer re-renders pages whose plain download holds too little text.
	// Nil disables rendering.
	Renderer  fetch.Renderer
	Extractor Extractor
	Logger    *zap.Logger
}

// NewJobLoader returns a loader that reads documents with DocumentExtractor.
func NewJobLoader(logger *zap.Logger) *JobLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobLoader{
		Fetch:     fetch.DefaultOptions(),
		Extractor: NewDocumentExtractor(),
		Logger:    logger,
	}
}

// Load returns the cleaned posting at source, a path or an http(s) URL.
func (l *JobLoader) Load(ctx context.Context, source string) (*JobPosting, error) {
	var (
		posting *JobPosting
		err     error
	)
	if fetch.IsURL(source) {
		posting, err = l.loadURL(ctx, source)
	} else {
		posting, err = l.loadFile(ctx, source)
	}
	if err != nil {
		return nil, err
	}

	posting.Text = CleanText(posting.Text)
	if posting.Text == "" {
		return nil, &ExtractionError{Filename: source, Message: "job posting has no text"}
	}
	l.Logger.Debug("loaded job posting",
		zap.String("source", source),
		zap.String("platform", string(posting.Platform)),
		zap.Int("chars", len(posting.Text)))
	return posting, nil
}

func (l *JobLoader) loadFile(ctx context.Context, path string) (*JobPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Filename: path, Message: "failed to read job posting", Cause: err}
	}
	extractor := l.Extractor
	if extractor == nil {
		extractor = NewDocumentExtractor()
	}
	text, err := extractor.Extract(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return &JobPosting{Source: path, Platform: fetch.PlatformUnknown, Text: text}, nil
}

func (l *JobLoader) loadURL(ctx context.Context, url string) (*JobPosting, error) {
	platform := fetch.DetectPlatform(url)
	content := fetch.ContentSelectors(platform)
	noise := fetch.NoiseSelectors(platform)

	page, err := fetch.Get(ctx, url, l.Fetch)
	if err != nil {
		return nil, err
	}
	text, err := fetch.MainText(page.HTML, content, noise...)
	if err != nil {
		return nil, &ExtractionError{Filename: url, Message: "failed to parse job posting", Cause: err}
	}

	if l.Renderer != nil && fetch.NeedsRendering(text) {
		l.Logger.Info("job posting looks script rendered, retrying in browser",
			zap.String("url", url), zap.Int("chars", len(text)))
		html, err := l.Renderer.Render(ctx, url)
		if err != nil {
			// keep the plain download
			l.Logger.Warn("browser rendering failed", zap.String("url", url), zap.Error(err))
		} else if rendered, err := fetch.MainText(html, content, noise...); err == nil {
			text = rendered
		}
	}

	return &JobPosting{Source: url, Platform: platform, Text: text}, nil
}
