package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/fetch"
)

const postingHTML = `<!DOCTYPE html>
<html><body>
<nav>Jobs | About</nav>
<div class="job-description">
<h1>Senior Software Engineer</h1>
<h2>Requirements</h2>
<ul><li>Go experience</li><li>Distributed systems</li></ul>
</div>
<form>Apply now</form>
<footer>Footer</footer>
</body></html>`

func servePosting(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestJobLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Data Engineer  \n\n- Python\r\n- Airflow\n"), 0o644))

	posting, err := NewJobLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, posting.Source)
	assert.Equal(t, fetch.PlatformUnknown, posting.Platform)
	assert.Equal(t, "Data Engineer\n- Python\n- Airflow", posting.Text)
}

func TestJobLoader_HTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.html")
	require.NoError(t, os.WriteFile(path, []byte(postingHTML), 0o644))

	posting, err := NewJobLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, posting.Text, "Senior Software Engineer")
	assert.Contains(t, posting.Text, "- Go experience")
}

func TestJobLoader_URL(t *testing.T) {
	server := servePosting(t, postingHTML, http.StatusOK)

	posting, err := NewJobLoader(nil).Load(context.Background(), server.URL+"/jobs/42")
	require.NoError(t, err)
	assert.Equal(t, fetch.PlatformUnknown, posting.Platform)
	assert.Contains(t, posting.Text, "Senior Software Engineer")
	assert.Contains(t, posting.Text, "Distributed systems")
	assert.NotContains(t, posting.Text, "Apply now")
	assert.NotContains(t, posting.Text, "Footer")
}

func TestJobLoader_RendersShortPages(t *testing.T) {
	server := servePosting(t, `<html><body><div id="root">Loading...</div></body></html>`, http.StatusOK)
	rendered := `<html><body><main><p>` + strings.Repeat("Build Go services on Kubernetes. ", 20) + `</p></main></body></html>`

	var calls atomic.Int32
	loader := NewJobLoader(nil)
	loader.Renderer = fetch.RendererFunc(func(_ context.Context, url string) (string, error) {
		calls.Add(1)
		assert.Equal(t, server.URL, url)
		return rendered, nil
	})

	posting, err := loader.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, posting.Text, "Kubernetes")
	assert.NotContains(t, posting.Text, "Loading")
}

func TestJobLoader_RenderFailureKeepsDownload(t *testing.T) {
	server := servePosting(t, `<html><body><main>Go developer wanted</main></body></html>`, http.StatusOK)

	loader := NewJobLoader(nil)
	loader.Renderer = fetch.RendererFunc(func(context.Context, string) (string, error) {
		return "", errors.New("chrome not installed")
	})

	posting, err := loader.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Go developer wanted", posting.Text)
}

func TestJobLoader_Errors(t *testing.T) {
	gone := servePosting(t, "filled", http.StatusGone)
	empty := servePosting(t, "<html><body><nav>only nav</nav></body></html>", http.StatusOK)

	tests := []struct {
		name   string
		source string
	}{
		{"missing file", filepath.Join(t.TempDir(), "missing.txt")},
		{"http error", gone.URL},
		{"no text", empty.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJobLoader(nil).Load(context.Background(), tt.source)
			require.Error(t, err)
			assert.Equal(t, apperr.CategoryUpstreamExtraction, apperr.CategoryOf(err))
		})
	}
}
