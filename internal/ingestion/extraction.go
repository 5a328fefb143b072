package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxDocumentBytes caps the size of an uploaded resume.
const DefaultMaxDocumentBytes = 5 << 20

// Extractor turns document bytes into raw text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, filename string, data []byte) (string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	return f(ctx, filename, data)
}

// DocumentExtractor handles plain text and HTML documents. Binary formats
// such as PDF need an external converter and fail with ExtractionError.
type DocumentExtractor struct {
	MaxBytes int
}

// NewDocumentExtractor returns an extractor with the default size limit.
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{MaxBytes: DefaultMaxDocumentBytes}
}

// Extract detects the content type of data and returns its text.
func (e *DocumentExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(data) == 0 {
		return "", &ExtractionError{Filename: filename, Message: "document is empty"}
	}
	if e.MaxBytes > 0 && len(data) > e.MaxBytes {
		return "", &ExtractionError{
			Filename: filename,
			Message:  fmt.Sprintf("document is %d bytes, limit is %d", len(data), e.MaxBytes),
		}
	}

	mt := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case mt.Is("text/html") || ext == ".html" || ext == ".htm":
		return extractHTML(filename, data)
	case mt.Is("application/pdf"):
		return "", &ExtractionError{Filename: filename, Message: "pdf documents need an external text extractor"}
	case isText(mt):
		if !utf8.Valid(data) {
			return "", &ExtractionError{Filename: filename, Message: "text is not valid UTF-8"}
		}
		return string(data), nil
	default:
		return "", &ExtractionError{Filename: filename, Message: fmt.Sprintf("unsupported content type %s", mt.String())}
	}
}

// isText reports whether mt is text/plain or one of its descendants.
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// blockSelector lists elements that end a visual line.
const blockSelector = "p, div, li, h1, h2, h3, h4, h5, h6, tr, section, article, header, footer, ul, ol, table, dt, dd"

// extractHTML keeps the visible text of an HTML resume, one block per line,
// with list items rendered as "- " bullets.
func extractHTML(filename string, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", &ExtractionError{Filename: filename, Message: "failed to parse HTML", Cause: err}
	}

	doc.Find("script, style, noscript, head, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	body := doc.Find("body")
	text := body.Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	return text, nil
}
