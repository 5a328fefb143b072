package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the shortest extracted text accepted from a plain
// download. Shorter text usually means the page renders with JavaScript.
const MinContentLength = 500

// NeedsRendering reports whether extracted text is too short to be the posting.
func NeedsRendering(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ChromeRenderer renders pages in headless Chrome. Chrome or Chromium must
// be installed.
type ChromeRenderer struct {
	Timeout time.Duration
	// Settle is how long scripts get to fill the page after load.
	Settle time.Duration
	Logger *zap.Logger
}

// NewChromeRenderer returns a renderer with a 30s budget per page.
func NewChromeRenderer(logger *zap.Logger) *ChromeRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeRenderer{Timeout: 30 * time.Second, Settle: 3 * time.Second, Logger: logger}
}

// Render loads url and returns the outer HTML of the document.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	r.Logger.Debug("rendering page in headless browser", zap.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, r.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	r.Logger.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, url string) (string, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

var _ Renderer = (*ChromeRenderer)(nil)
