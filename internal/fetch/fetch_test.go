package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ats-checker/internal/apperr"
)

func TestGet_Success(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Backend Engineer</h1></body></html>"))
	}))
	defer server.Close()

	page, err := Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, page.URL)
	assert.Contains(t, page.HTML, "<h1>Backend Engineer</h1>")
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "text/html", page.ContentType)
	assert.Equal(t, DefaultUserAgent, userAgent)
}

func TestGet_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	huge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer huge.Close()

	tests := []struct {
		name     string
		url      string
		opts     *Options
		contains string
	}{
		{"invalid url", "not-a-valid-url", nil, "invalid URL"},
		{"unsupported scheme", "ftp://example.com/job", nil, "invalid URL"},
		{"not found", notFound.URL, nil, "404"},
		{"too large", huge.URL, &Options{MaxBytes: 1024}, "exceeds 1024 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Get(context.Background(), tt.url, tt.opts)
			require.Error(t, err)

			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, apperr.CategoryUpstreamExtraction, apperr.CategoryOf(err))
		})
	}
}

func TestGet_NotFoundStillReturnsPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte("position filled"))
	}))
	defer server.Close()

	page, err := Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusGone, page.StatusCode)
	assert.Equal(t, "position filled", page.HTML)
}

func TestGet_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://jobs.lever.co/acme/123", true},
		{"http://localhost:8080/job", true},
		{"jobs/posting.html", false},
		{"/tmp/posting.txt", false},
		{"mailto:hr@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsURL(tt.in), tt.in)
	}
}

func TestMainText(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		selectors   []string
		noise       []string
		contains    []string
		notContains []string
	}{
		{
			name: "main element wins over chrome",
			html: `<html><body><nav>Navigation</nav>
				<main><h1>Data Engineer</h1><p>Build pipelines in Python.</p></main>
				<footer>Footer</footer></body></html>`,
			selectors:   ContentSelectors(PlatformUnknown),
			contains:    []string{"Data Engineer\nBuild pipelines in Python."},
			notContains: []string{"Navigation", "Footer"},
		},
		{
			name: "job description selector",
			html: `<html><body><div class="sidebar">Sidebar junk</div>
				<div class="job-description"><h2>Requirements</h2><ul><li>5 years of Go</li><li>Kubernetes</li></ul></div>
				</body></html>`,
			selectors:   ContentSelectors(PlatformUnknown),
			contains:    []string{"Requirements", "5 years of Go\nKubernetes"},
			notContains: []string{"Sidebar junk"},
		},
		{
			name:      "falls back to body",
			html:      `<html><body><div>Some content here.</div></body></html>`,
			selectors: []string{".missing"},
			contains:  []string{"Some content here."},
		},
		{
			name: "noise selectors removed",
			html: `<html><body><main><p>Own the billing service.</p>
				<form>Upload your CV</form><div class="eeo-statement">Equal opportunity</div></main></body></html>`,
			selectors:   []string{"main"},
			noise:       NoiseSelectors(PlatformUnknown),
			contains:    []string{"Own the billing service."},
			notContains: []string{"Upload your CV", "Equal opportunity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := MainText(tt.html, tt.selectors, tt.noise...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, text, unwanted)
			}
			assert.NotContains(t, text, "\n\n")
		})
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://job-boards.greenhouse.io/doordashusa/jobs/7063751", PlatformGreenhouse},
		{"https://boards.greenhouse.io/company/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/company/job-id", PlatformLever},
		{"https://company.wd5.myworkdayjobs.com/en-US/External", PlatformWorkday},
		{"https://workday.com/jobs", PlatformWorkday},
		{"https://notgreenhouse.io.example.com/jobs", PlatformUnknown},
		{"https://careers.example.com/jobs/1", PlatformUnknown},
		{"::not a url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, ".job__description.body", ContentSelectors(PlatformGreenhouse)[0])
	assert.Contains(t, ContentSelectors(PlatformUnknown), ".job-description")

	lever := NoiseSelectors(PlatformLever)
	assert.Contains(t, lever, "form")
	assert.Contains(t, lever, ".posting-apply")
	assert.NotContains(t, NoiseSelectors(PlatformUnknown), ".posting-apply")

	// callers may append without corrupting the shared list
	_ = append(NoiseSelectors(PlatformUnknown), "extra")
	assert.NotContains(t, NoiseSelectors(PlatformUnknown), "extra")
}

func TestNeedsRendering(t *testing.T) {
	assert.True(t, NeedsRendering("Loading..."))
	assert.True(t, NeedsRendering("   \n  "))
	assert.False(t, NeedsRendering(strings.Repeat("a", MinContentLength)))
}
