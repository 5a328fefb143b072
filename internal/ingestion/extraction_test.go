package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentExtractor_PlainText(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.Extract(context.Background(), "cv.txt", []byte("Jane Doe\nEngineer\n"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer\n", text)
}

func TestDocumentExtractor_HTML(t *testing.T) {
	html := `<html><head><title>CV</title><style>p{}</style></head><body>
<h1>Jane Doe</h1>
<p>jane@example.com<br>London, UK</p>
<ul><li>Led a team of 5</li><li>Cut costs by 20%</li></ul>
<script>alert(1)</script>
</body></html>`

	text, err := NewDocumentExtractor().Extract(context.Background(), "cv.html", []byte(html))
	require.NoError(t, err)

	normalized, err := Normalize(text)
	require.NoError(t, err)

	got := normalized.Text()
	assert.Contains(t, got, "Jane Doe")
	assert.Contains(t, got, "jane@example.com\nLondon, UK")
	assert.Contains(t, got, "- Led a team of 5")
	assert.Contains(t, got, "- Cut costs by 20%")
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "CV\n")
}

func TestDocumentExtractor_Failures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		message  string
	}{
		{"empty", "cv.txt", nil, "empty"},
		{"pdf", "cv.pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), "pdf"},
		{"binary", "cv.bin", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d}, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentExtractor().Extract(context.Background(), tt.filename, tt.data)
			require.Error(t, err)

			var extractionErr *ExtractionError
			require.ErrorAs(t, err, &extractionErr)
			assert.Equal(t, tt.filename, extractionErr.Filename)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, apperr.CategoryUpstreamExtraction, apperr.CategoryOf(err))
		})
	}
}

func TestDocumentExtractor_SizeLimit(t *testing.T) {
	e := &DocumentExtractor{MaxBytes: 10}
	_, err := e.Extract(context.Background(), "cv.txt", []byte(strings.Repeat("a", 11)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestDocumentExtractor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDocumentExtractor().Extract(ctx, "cv.txt", []byte("text"))
	assert.ErrorIs(t, err, context.Canceled)
}
